// Package monitor takes best-effort resource usage snapshots. Nothing in
// here returns an error: unavailable figures are reported as zero.
package monitor

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/prometheus/procfs"
	"github.com/rs/zerolog"

	"lmrun/internal/hardware"
	"lmrun/internal/metrics"
)

// PerformanceStats is a point-in-time view of resource usage.
type PerformanceStats struct {
	TokensPerSecond float64 `json:"tokens_per_second"`
	MemoryUsageMB   uint64  `json:"memory_usage_mb"`
	MemoryTotalMB   uint64  `json:"memory_total_mb"`
	VRAMUsageMB     uint64  `json:"vram_usage_mb"`
	VRAMTotalMB     uint64  `json:"vram_total_mb"`
	ActiveGPUs      int     `json:"active_gpus"`
	CPUUsagePercent float64 `json:"cpu_usage_percent"`
}

// Options configure a Monitor.
type Options struct {
	// Devices defaults to nvidia-smi.
	Devices hardware.DeviceProbe
	// ProcRoot defaults to procfs.DefaultMountPoint.
	ProcRoot string
	// Throughput reports the latest generation's tokens per second.
	Throughput func() float64
	Logger     zerolog.Logger
}

// Monitor produces PerformanceStats snapshots.
type Monitor struct {
	devices    hardware.DeviceProbe
	procRoot   string
	throughput func() float64
	log        zerolog.Logger
	now        func() time.Time

	mu       sync.Mutex
	lastCPU  float64
	lastWall time.Time
}

func New(opts Options) *Monitor {
	m := &Monitor{
		devices:    opts.Devices,
		procRoot:   opts.ProcRoot,
		throughput: opts.Throughput,
		log:        opts.Logger,
		now:        time.Now,
	}
	if m.devices == nil {
		m.devices = hardware.NvidiaSMI{}
	}
	if m.procRoot == "" {
		m.procRoot = procfs.DefaultMountPoint
	}
	return m
}

// Snapshot gathers every figure it can and updates the resource gauges.
func (m *Monitor) Snapshot(ctx context.Context) PerformanceStats {
	var st PerformanceStats
	if m.throughput != nil {
		st.TokensPerSecond = m.throughput()
	}
	st.MemoryUsageMB, st.MemoryTotalMB = m.hostMemory()
	st.VRAMUsageMB, st.VRAMTotalMB, st.ActiveGPUs = m.gpuMemory(ctx)
	st.CPUUsagePercent = m.cpuPercent()
	metrics.SetResources(st.MemoryUsageMB, st.VRAMUsageMB, st.ActiveGPUs)
	return st
}

// hostMemory returns used and total MB from /proc/meminfo.
func (m *Monitor) hostMemory() (used, total uint64) {
	fs, err := procfs.NewFS(m.procRoot)
	if err != nil {
		m.log.Debug().Err(err).Msg("procfs unavailable")
		return 0, 0
	}
	mi, err := fs.Meminfo()
	if err != nil || mi.MemTotal == nil {
		m.log.Debug().Err(err).Msg("meminfo unavailable")
		return 0, 0
	}
	totalKB := *mi.MemTotal
	var availKB uint64
	if mi.MemAvailable != nil {
		availKB = *mi.MemAvailable
	}
	usedKB := uint64(0)
	if totalKB > availKB {
		usedKB = totalKB - availKB
	}
	return usedKB / 1024, totalKB / 1024
}

func (m *Monitor) gpuMemory(ctx context.Context) (used, total uint64, n int) {
	gpus, err := m.devices.GPUs(ctx)
	if err != nil {
		m.log.Debug().Err(err).Msg("gpu query failed")
		return 0, 0, 0
	}
	for _, g := range gpus {
		if g.MemoryUsedMB > 0 {
			used += uint64(g.MemoryUsedMB)
		}
		if g.MemoryTotalMB > 0 {
			total += uint64(g.MemoryTotalMB)
		}
	}
	return used, total, len(gpus)
}

// cpuPercent is this process's CPU time over wall time since the previous
// snapshot, normalised by core count. The first call reports zero.
func (m *Monitor) cpuPercent() float64 {
	fs, err := procfs.NewFS(m.procRoot)
	if err != nil {
		return 0
	}
	p, err := fs.Self()
	if err != nil {
		return 0
	}
	stat, err := p.Stat()
	if err != nil {
		return 0
	}
	return m.cpuDelta(stat.CPUTime(), m.now())
}

func (m *Monitor) cpuDelta(cpuSeconds float64, now time.Time) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	prevCPU, prevWall := m.lastCPU, m.lastWall
	m.lastCPU, m.lastWall = cpuSeconds, now
	if prevWall.IsZero() {
		return 0
	}
	wall := now.Sub(prevWall).Seconds()
	if wall <= 0 || cpuSeconds < prevCPU {
		return 0
	}
	pct := (cpuSeconds - prevCPU) / wall / float64(runtime.NumCPU()) * 100
	if pct > 100 {
		pct = 100
	}
	return pct
}
