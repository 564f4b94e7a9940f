package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"lmrun/internal/engine"
	"lmrun/internal/hardware"
	"lmrun/internal/manager"
	"lmrun/internal/monitor"
)

var (
	hwJSON        bool
	statsJSON     bool
	statsInterval time.Duration
)

var hardwareCmd = &cobra.Command{
	Use:   "hardware",
	Short: "Show detected GPUs and the recommended placement",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p := hardware.NewProber(log)
		report := manager.HardwareReport{
			GPUs:          p.GPUs(cmd.Context()),
			LogicalCores:  hardware.LogicalCores(),
			CPUBrand:      hardware.CPUBrand(),
			Recommended:   p.DetectOptimalConfig(cmd.Context()),
			EngineDevices: engine.Devices(),
		}
		if hwJSON {
			return writeIndented(cmd.OutOrStdout(), report.Response())
		}
		printHardware(cmd.OutOrStdout(), report)
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show host memory, VRAM and CPU usage",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		mon := monitor.New(monitor.Options{Devices: hardware.NewProber(log).Devices, Logger: log})
		// CPU usage is a delta between two samples.
		mon.Snapshot(cmd.Context())
		select {
		case <-time.After(statsInterval):
		case <-cmd.Context().Done():
			return cmd.Context().Err()
		}
		st := mon.Snapshot(cmd.Context())
		if statsJSON {
			return writeIndented(cmd.OutOrStdout(), manager.StatsView(st))
		}
		out := cmd.OutOrStdout()
		label := color.New(color.Bold).SprintFunc()
		fmt.Fprintf(out, "%s %d / %d MB\n", label("memory:"), st.MemoryUsageMB, st.MemoryTotalMB)
		fmt.Fprintf(out, "%s %d / %d MB across %d GPU(s)\n", label("vram:  "), st.VRAMUsageMB, st.VRAMTotalMB, st.ActiveGPUs)
		fmt.Fprintf(out, "%s %.1f%%\n", label("cpu:   "), st.CPUUsagePercent)
		return nil
	},
}

func init() {
	hardwareCmd.Flags().BoolVar(&hwJSON, "json", false, "print JSON")
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "print JSON")
	statsCmd.Flags().DurationVar(&statsInterval, "interval", 500*time.Millisecond, "CPU sampling window")
	rootCmd.AddCommand(hardwareCmd, statsCmd)
}

func printHardware(out io.Writer, r manager.HardwareReport) {
	label := color.New(color.Bold).SprintFunc()
	fmt.Fprintf(out, "%s %s (%d logical cores)\n", label("cpu:"), r.CPUBrand, r.LogicalCores)
	if len(r.GPUs) == 0 {
		fmt.Fprintf(out, "%s %s\n", label("gpus:"), color.YellowString("none detected"))
	}
	for _, g := range r.GPUs {
		fmt.Fprintf(out, "%s #%d %s, %d / %d MB\n", label("gpu:"), g.Index, g.Name, g.MemoryUsedMB, g.MemoryTotalMB)
	}
	if len(r.EngineDevices) > 0 {
		fmt.Fprintf(out, "%s %s\n", label("engine devices:"), strings.Join(r.EngineDevices, ", "))
	}
	rec := r.Recommended
	fmt.Fprintf(out, "%s mode=%s gpu_layers=%d threads=%d mmap=%t\n",
		label("recommended:"), color.GreenString("%s", rec.GPUMode), rec.GPULayers, rec.CPUThreads, rec.UseMMap)
}

func writeIndented(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
