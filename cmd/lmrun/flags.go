package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"lmrun/internal/config"
	"lmrun/internal/hardware"
)

// splitCSV splits a comma-separated list, trimming blanks and dropping empties.
func splitCSV(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parseTensorSplit parses "0.6,0.4" into per-device proportions.
func parseTensorSplit(s string) ([]float32, error) {
	parts := splitCSV(s)
	if len(parts) == 0 {
		return nil, nil
	}
	out := make([]float32, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseFloat(p, 32)
		if err != nil {
			return nil, fmt.Errorf("tensor split %q: %w", p, err)
		}
		if v < 0 {
			return nil, fmt.Errorf("tensor split %q: must not be negative", p)
		}
		out = append(out, float32(v))
	}
	return out, nil
}

// hardwareFlags overrides the configured hardware section.
type hardwareFlags struct {
	mode        string
	layers      int
	mainGPU     int
	threads     int
	noMMap      bool
	mlock       bool
	tensorSplit string
}

func (f *hardwareFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.mode, "gpu-mode", "auto", "auto, cpu_only, single_gpu or dual_gpu")
	fs.IntVar(&f.layers, "gpu-layers", -1, "layers to offload (-1 decides from the mode)")
	fs.IntVar(&f.mainGPU, "main-gpu", 0, "primary GPU index")
	fs.IntVar(&f.threads, "threads", -1, "CPU threads (-1 detects)")
	fs.BoolVar(&f.noMMap, "no-mmap", false, "read the model into memory instead of mapping it")
	fs.BoolVar(&f.mlock, "mlock", false, "lock model memory")
	fs.StringVar(&f.tensorSplit, "tensor-split", "", "comma-separated per-GPU proportions, e.g. 0.6,0.4")
}

func (f *hardwareFlags) apply(cmd *cobra.Command, c *hardware.Config) error {
	fs := cmd.Flags()
	if fs.Changed("gpu-mode") {
		m, err := hardware.ParseGPUMode(f.mode)
		if err != nil {
			return err
		}
		c.GPUMode = m
	}
	if fs.Changed("gpu-layers") {
		c.GPULayers = f.layers
	}
	if fs.Changed("main-gpu") {
		c.MainGPU = f.mainGPU
	}
	if fs.Changed("threads") {
		c.CPUThreads = f.threads
	}
	if fs.Changed("no-mmap") {
		c.UseMMap = !f.noMMap
	}
	if fs.Changed("mlock") {
		c.UseMLock = f.mlock
	}
	if fs.Changed("tensor-split") {
		ts, err := parseTensorSplit(f.tensorSplit)
		if err != nil {
			return err
		}
		c.TensorSplit = ts
	}
	return nil
}

// applyConfig re-validates after flag overrides.
func applyConfig(c config.Config) error {
	if err := c.Validate(); err != nil {
		return err
	}
	cfg = c
	return nil
}
