package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"lmrun/internal/hardware"
)

func writeTempFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestLoadYAML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.yaml", `model: llama3:8b
registry:
  dir: /models
  cache_ttl: 2m
hardware:
  gpu_mode: dual_gpu
  gpu_layers: 20
  tensor_split: [0.5, 0.5]
sampling:
  temperature: 0.2
  top_k: 10
server:
  addr: ":9999"
  max_wait: 5s
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Model != "llama3:8b" || cfg.Registry.Dir != "/models" || cfg.Registry.CacheTTL.Std() != 2*time.Minute {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	if cfg.Hardware.GPUMode != hardware.ModeDualGPU || cfg.Hardware.GPULayers != 20 || len(cfg.Hardware.TensorSplit) != 2 {
		t.Fatalf("unexpected hardware: %+v", cfg.Hardware)
	}
	if cfg.Sampling.Temperature != 0.2 || cfg.Sampling.TopK != 10 {
		t.Fatalf("unexpected sampling: %+v", cfg.Sampling)
	}
	// unset keys keep defaults
	if cfg.Sampling.TopP != 0.9 || !cfg.Hardware.UseMMap || cfg.Server.MaxQueueDepth != 32 {
		t.Fatalf("defaults lost: %+v", cfg)
	}
	if cfg.Server.Addr != ":9999" || cfg.Server.MaxWait.Std() != 5*time.Second {
		t.Fatalf("unexpected server: %+v", cfg.Server)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestLoadJSON(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.json", `{"model":"m2","hardware":{"gpu_mode":"cpu_only","cpu_threads":4},"server":{"addr":":7070","drain_timeout":"1s"},"log":{"format":"json"}}`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Model != "m2" || cfg.Hardware.GPUMode != hardware.ModeCPUOnly || cfg.Hardware.CPUThreads != 4 {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	if cfg.Server.Addr != ":7070" || cfg.Server.DrainTimeout.Std() != time.Second || cfg.Log.Format != "json" {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestLoadTOML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.toml", `model = "m3"

[engine]
lib_path = "/opt/llama"

[hardware]
gpu_mode = "single_gpu"
main_gpu = 1

[server]
addr = ":8081"
generate_timeout = "90s"
cors_origins = ["http://localhost:3000"]
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Model != "m3" || cfg.Engine.LibPath != "/opt/llama" || cfg.Hardware.GPUMode != hardware.ModeSingleGPU || cfg.Hardware.MainGPU != 1 {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	if cfg.Server.Addr != ":8081" || cfg.Server.GenerateTimeout.Std() != 90*time.Second || len(cfg.Server.CORSOrigins) != 1 {
		t.Fatalf("unexpected server: %+v", cfg.Server)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Fatalf("expected error on empty path")
	}
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.txt", "not supported")
	if _, err := Load(p); err == nil {
		t.Fatalf("expected unsupported extension error")
	}
}

func TestDefaultValidates(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}
