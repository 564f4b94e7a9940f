// Package config loads the service configuration from YAML, JSON or TOML.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"lmrun/internal/errs"
	"lmrun/internal/hardware"
	"lmrun/internal/session"
)

// Config holds runtime parameters for the service. Load starts from
// Default, so fields missing from the file keep their default.
type Config struct {
	// Model is loaded at startup when set.
	Model    string                 `json:"model" yaml:"model" toml:"model"`
	Registry RegistryConfig         `json:"registry" yaml:"registry" toml:"registry"`
	Hardware hardware.Config        `json:"hardware" yaml:"hardware" toml:"hardware"`
	Sampling session.SamplingParams `json:"sampling" yaml:"sampling" toml:"sampling"`
	Engine   EngineConfig           `json:"engine" yaml:"engine" toml:"engine"`
	Server   ServerConfig           `json:"server" yaml:"server" toml:"server"`
	Log      LogConfig              `json:"log" yaml:"log" toml:"log"`
}

// RegistryConfig locates and fetches models.
type RegistryConfig struct {
	// Dir defaults to $OLLAMA_MODELS, then ~/.ollama/models.
	Dir        string   `json:"dir" yaml:"dir" toml:"dir"`
	ListScript string   `json:"list_script" yaml:"list_script" toml:"list_script"`
	PullScript string   `json:"pull_script" yaml:"pull_script" toml:"pull_script"`
	CacheTTL   Duration `json:"cache_ttl" yaml:"cache_ttl" toml:"cache_ttl"`
}

// EngineConfig configures the inference backend.
type EngineConfig struct {
	// LibPath is the directory holding the llama.cpp shared libraries.
	LibPath string `json:"lib_path" yaml:"lib_path" toml:"lib_path"`
}

// ServerConfig configures the HTTP API and admission queue.
type ServerConfig struct {
	Addr            string   `json:"addr" yaml:"addr" toml:"addr"`
	MaxQueueDepth   int      `json:"max_queue_depth" yaml:"max_queue_depth" toml:"max_queue_depth"`
	MaxWait         Duration `json:"max_wait" yaml:"max_wait" toml:"max_wait"`
	DrainTimeout    Duration `json:"drain_timeout" yaml:"drain_timeout" toml:"drain_timeout"`
	GenerateTimeout Duration `json:"generate_timeout" yaml:"generate_timeout" toml:"generate_timeout"`
	MaxBodyBytes    int64    `json:"max_body_bytes" yaml:"max_body_bytes" toml:"max_body_bytes"`
	// CORSOrigins enables CORS for the listed origins when non-empty.
	CORSOrigins []string `json:"cors_origins" yaml:"cors_origins" toml:"cors_origins"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level string `json:"level" yaml:"level" toml:"level"`
	// Format is "console" or "json".
	Format string `json:"format" yaml:"format" toml:"format"`
	// HTTP is the default per-request log level: off, error, info, debug.
	HTTP string `json:"http" yaml:"http" toml:"http"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Hardware: hardware.DefaultConfig(),
		Sampling: session.DefaultSampling(),
		Server: ServerConfig{
			Addr:          ":8080",
			MaxQueueDepth: 32,
			MaxWait:       Duration(30 * time.Second),
			DrainTimeout:  Duration(10 * time.Second),
			MaxBodyBytes:  1 << 20,
		},
		Log: LogConfig{Level: "info", Format: "console", HTTP: "info"},
	}
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &cfg)
	case ".json":
		err = json.Unmarshal(b, &cfg)
	case ".toml":
		err = toml.Unmarshal(b, &cfg)
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	if err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// Validate enforces value ranges.
func (c Config) Validate() error {
	h := c.Hardware
	switch h.GPUMode {
	case hardware.ModeAuto, hardware.ModeCPUOnly, hardware.ModeSingleGPU, hardware.ModeDualGPU:
	default:
		return errs.InvalidArgument("hardware.gpu_mode: unknown mode %d", int(h.GPUMode))
	}
	if h.GPULayers < -1 {
		return errs.InvalidArgument("hardware.gpu_layers must be >= -1, got %d", h.GPULayers)
	}
	if h.CPUThreads < -1 || h.CPUThreads == 0 {
		return errs.InvalidArgument("hardware.cpu_threads must be -1 or positive, got %d", h.CPUThreads)
	}
	if h.MainGPU < 0 {
		return errs.InvalidArgument("hardware.main_gpu must be >= 0, got %d", h.MainGPU)
	}
	for i, v := range h.TensorSplit {
		if v < 0 {
			return errs.InvalidArgument("hardware.tensor_split[%d] must be >= 0, got %g", i, v)
		}
	}
	s := c.Sampling
	if s.Temperature < 0 || s.Temperature > 2 {
		return errs.InvalidArgument("sampling.temperature must be in [0, 2], got %g", s.Temperature)
	}
	if s.TopP < 0 || s.TopP > 1 {
		return errs.InvalidArgument("sampling.top_p must be in [0, 1], got %g", s.TopP)
	}
	if s.TopK < 0 {
		return errs.InvalidArgument("sampling.top_k must be >= 0, got %d", s.TopK)
	}
	if c.Server.MaxQueueDepth < 0 {
		return errs.InvalidArgument("server.max_queue_depth must be >= 0, got %d", c.Server.MaxQueueDepth)
	}
	if c.Server.MaxWait < 0 || c.Server.DrainTimeout < 0 || c.Server.GenerateTimeout < 0 || c.Registry.CacheTTL < 0 {
		return errs.InvalidArgument("durations must not be negative")
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "console", "json":
	default:
		return errs.InvalidArgument("log.format must be console or json, got %q", c.Log.Format)
	}
	return nil
}
