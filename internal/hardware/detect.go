package hardware

import (
	"context"
	"runtime"

	"github.com/klauspost/cpuid/v2"
	"github.com/rs/zerolog"
)

// OptimalCPUThreads leaves headroom for the host on larger machines.
//
//	cores >= 16 -> cores-2
//	cores >= 8  -> cores-1
//	otherwise   -> max(1, cores/2)
func OptimalCPUThreads(cores int) int {
	switch {
	case cores >= 16:
		return cores - 2
	case cores >= 8:
		return cores - 1
	default:
		if cores/2 < 1 {
			return 1
		}
		return cores / 2
	}
}

// LogicalCores prefers cpuid's count and falls back to the runtime's.
func LogicalCores() int {
	if n := cpuid.CPU.LogicalCores; n > 0 {
		return n
	}
	return runtime.NumCPU()
}

// Prober detects hardware and resolves configs. The zero value probes
// nvidia-smi and counts cores with LogicalCores.
type Prober struct {
	Devices DeviceProbe
	Cores   func() int
	Log     zerolog.Logger
}

// NewProber returns a Prober backed by nvidia-smi.
func NewProber(log zerolog.Logger) *Prober {
	return &Prober{Devices: NvidiaSMI{}, Cores: LogicalCores, Log: log}
}

func (p *Prober) devices() DeviceProbe {
	if p == nil || p.Devices == nil {
		return NvidiaSMI{}
	}
	return p.Devices
}

func (p *Prober) cores() int {
	if p == nil || p.Cores == nil {
		return LogicalCores()
	}
	if n := p.Cores(); n > 0 {
		return n
	}
	return 1
}

// GPUs lists devices; probe failures are logged and yield an empty list.
func (p *Prober) GPUs(ctx context.Context) []GPU {
	gpus, err := p.devices().GPUs(ctx)
	if err != nil {
		if p != nil {
			p.Log.Debug().Str("event", "gpu_probe_failed").Err(err).Msg("gpu query failed; assuming none")
		}
		return nil
	}
	return gpus
}

// DetectGPUCount never fails: no tool or a failing tool means zero GPUs.
func (p *Prober) DetectGPUCount(ctx context.Context) int {
	return len(p.GPUs(ctx))
}

// DetectOptimalConfig picks a concrete mode from the GPU count.
func (p *Prober) DetectOptimalConfig(ctx context.Context) Config {
	return p.configFor(p.DetectGPUCount(ctx))
}

func (p *Prober) configFor(gpus int) Config {
	cfg := DefaultConfig()
	threads := OptimalCPUThreads(p.cores())
	switch {
	case gpus >= 2:
		cfg.GPUMode = ModeDualGPU
		cfg.GPULayers = AllLayers
		cfg.TensorSplit = EvenSplit(2)
	case gpus == 1:
		cfg.GPUMode = ModeSingleGPU
		cfg.GPULayers = AllLayers
		cfg.MainGPU = 0
	default:
		cfg.GPUMode = ModeCPUOnly
		cfg.GPULayers = 0
	}
	if cfg.GPUMode.IsGPU() {
		threads = halveThreads(threads)
	}
	cfg.CPUThreads = threads
	return cfg
}

func halveThreads(n int) int {
	if n/2 < 1 {
		return 1
	}
	return n / 2
}

// Resolve turns cfg into a concrete configuration. AUTO takes the detected
// mode, layers and split; explicit thread counts and memory flags from cfg
// are kept. Fields left at -1 are filled for concrete modes too.
func (p *Prober) Resolve(ctx context.Context, cfg Config) Config {
	out := cfg.Clone()
	if out.GPUMode == ModeAuto {
		det := p.DetectOptimalConfig(ctx)
		out.GPUMode = det.GPUMode
		out.GPULayers = det.GPULayers
		out.MainGPU = det.MainGPU
		out.TensorSplit = det.TensorSplit
		if out.CPUThreads <= 0 {
			out.CPUThreads = det.CPUThreads
		}
		p.log().Info().
			Str("event", "hardware_resolved").
			Str("mode", out.GPUMode.String()).
			Int("gpu_layers", out.GPULayers).
			Int("threads", out.CPUThreads).
			Msg("auto hardware config resolved")
		return out
	}

	switch out.GPUMode {
	case ModeCPUOnly:
		out.GPULayers = 0
		out.TensorSplit = nil
	case ModeSingleGPU:
		if out.GPULayers < 0 {
			out.GPULayers = AllLayers
		}
		out.TensorSplit = nil
	case ModeDualGPU:
		if out.GPULayers < 0 {
			out.GPULayers = AllLayers
		}
		if len(out.TensorSplit) == 0 {
			out.TensorSplit = EvenSplit(2)
		}
	}
	if out.MainGPU < 0 {
		out.MainGPU = 0
	}
	if out.CPUThreads <= 0 {
		out.CPUThreads = OptimalCPUThreads(p.cores())
		if out.GPUMode.IsGPU() {
			out.CPUThreads = halveThreads(out.CPUThreads)
		}
	}
	return out
}

func (p *Prober) log() *zerolog.Logger {
	if p == nil {
		l := zerolog.Nop()
		return &l
	}
	return &p.Log
}

// CPUBrand returns the processor brand string for diagnostics.
func CPUBrand() string { return cpuid.CPU.BrandName }
