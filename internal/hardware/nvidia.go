package hardware

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
)

// GPU describes one accelerator as reported by the device probe.
type GPU struct {
	Index         int    `json:"index"`
	Name          string `json:"name"`
	MemoryTotalMB int    `json:"memory_total_mb"`
	MemoryUsedMB  int    `json:"memory_used_mb"`
}

// DeviceProbe lists the GPUs visible to the process.
type DeviceProbe interface {
	GPUs(ctx context.Context) ([]GPU, error)
}

// CommandRunner runs an external program and returns its stdout.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// ExecRunner runs commands with os/exec.
func ExecRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// NvidiaSMI queries GPUs through the nvidia-smi CLI.
type NvidiaSMI struct {
	// Bin defaults to "nvidia-smi".
	Bin string
	// Run defaults to ExecRunner.
	Run CommandRunner
}

var nvidiaSMIArgs = []string{
	"--query-gpu=index,name,memory.total,memory.used",
	"--format=csv,noheader,nounits",
}

func (n NvidiaSMI) GPUs(ctx context.Context) ([]GPU, error) {
	bin := n.Bin
	if bin == "" {
		bin = "nvidia-smi"
	}
	run := n.Run
	if run == nil {
		run = ExecRunner
	}
	out, err := run(ctx, bin, nvidiaSMIArgs...)
	if err != nil {
		var ee *exec.ExitError
		if errors.As(err, &ee) {
			return nil, fmt.Errorf("%s exited with status %d: %w", bin, ee.ExitCode(), err)
		}
		return nil, fmt.Errorf("%s: %w", bin, err)
	}
	return parseNvidiaSMI(out)
}

// parseNvidiaSMI reads "index, name, total, used" rows. Rows with
// unparseable numbers keep zero for that field.
func parseNvidiaSMI(out []byte) ([]GPU, error) {
	r := csv.NewReader(bytes.NewReader(out))
	r.TrimLeadingSpace = true
	r.FieldsPerRecord = -1
	var gpus []GPU
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse nvidia-smi output: %w", err)
		}
		if len(rec) < 2 {
			continue
		}
		g := GPU{Index: len(gpus), Name: strings.TrimSpace(rec[1])}
		if v, err := strconv.Atoi(strings.TrimSpace(rec[0])); err == nil {
			g.Index = v
		}
		if len(rec) > 2 {
			g.MemoryTotalMB = atoiMB(rec[2])
		}
		if len(rec) > 3 {
			g.MemoryUsedMB = atoiMB(rec[3])
		}
		gpus = append(gpus, g)
	}
	return gpus, nil
}

func atoiMB(s string) int {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return int(f)
}

// StaticProbe reports a fixed device list. Useful when the host has no
// query tool or in tests.
type StaticProbe []GPU

func (s StaticProbe) GPUs(context.Context) ([]GPU, error) {
	return append([]GPU(nil), s...), nil
}
