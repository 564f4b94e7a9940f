// Package hardware detects GPU and CPU resources and turns a possibly-AUTO
// hardware configuration into the concrete one a session loads with.
package hardware

import (
	"fmt"
	"strings"
)

// GPUMode selects how model layers are placed across devices.
type GPUMode int

const (
	ModeAuto      GPUMode = -1
	ModeCPUOnly   GPUMode = 0
	ModeSingleGPU GPUMode = 1
	ModeDualGPU   GPUMode = 2
)

// AllLayers asks the engine to offload every layer to the GPU(s).
const AllLayers = 999

func (m GPUMode) String() string {
	switch m {
	case ModeAuto:
		return "auto"
	case ModeCPUOnly:
		return "cpu_only"
	case ModeSingleGPU:
		return "single_gpu"
	case ModeDualGPU:
		return "dual_gpu"
	default:
		return fmt.Sprintf("GPUMode(%d)", int(m))
	}
}

// ParseGPUMode accepts the names produced by String plus a few aliases.
func ParseGPUMode(s string) (GPUMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return ModeAuto, nil
	case "cpu", "cpu_only", "cpu-only":
		return ModeCPUOnly, nil
	case "single", "single_gpu", "single-gpu", "gpu":
		return ModeSingleGPU, nil
	case "dual", "dual_gpu", "dual-gpu":
		return ModeDualGPU, nil
	}
	return ModeAuto, fmt.Errorf("unknown gpu mode %q", s)
}

func (m GPUMode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

func (m *GPUMode) UnmarshalText(b []byte) error {
	v, err := ParseGPUMode(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// IsGPU reports whether layers are offloaded in this mode.
func (m GPUMode) IsGPU() bool { return m == ModeSingleGPU || m == ModeDualGPU }

// Config describes device placement and threading for a model load.
// GPULayers and CPUThreads use -1 for "decide automatically".
type Config struct {
	GPUMode     GPUMode   `json:"gpu_mode" yaml:"gpu_mode" toml:"gpu_mode"`
	GPULayers   int       `json:"gpu_layers" yaml:"gpu_layers" toml:"gpu_layers"`
	MainGPU     int       `json:"main_gpu" yaml:"main_gpu" toml:"main_gpu"`
	UseMMap     bool      `json:"use_mmap" yaml:"use_mmap" toml:"use_mmap"`
	UseMLock    bool      `json:"use_mlock" yaml:"use_mlock" toml:"use_mlock"`
	CPUThreads  int       `json:"cpu_threads" yaml:"cpu_threads" toml:"cpu_threads"`
	TensorSplit []float32 `json:"tensor_split,omitempty" yaml:"tensor_split,omitempty" toml:"tensor_split,omitempty"`
}

// DefaultConfig is AUTO with memory-mapped weights and automatic threading.
func DefaultConfig() Config {
	return Config{
		GPUMode:    ModeAuto,
		GPULayers:  -1,
		MainGPU:    0,
		UseMMap:    true,
		UseMLock:   false,
		CPUThreads: -1,
	}
}

// Clone returns a copy that shares no slice storage with c.
func (c Config) Clone() Config {
	if c.TensorSplit != nil {
		c.TensorSplit = append([]float32(nil), c.TensorSplit...)
	}
	return c
}

// EvenSplit returns n equal tensor-split proportions.
func EvenSplit(n int) []float32 {
	if n <= 0 {
		return nil
	}
	out := make([]float32, n)
	for i := range out {
		out[i] = 1 / float32(n)
	}
	return out
}
