package manager

import (
	"time"

	"lmrun/internal/hardware"
	"lmrun/internal/monitor"
	"lmrun/internal/session"
	"lmrun/pkg/types"
)

// Snapshot returns a read-only view of the manager state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var cur *ModelInfo
	if m.cur != nil {
		c := *m.cur
		c.Hardware = m.cur.Hardware.Clone()
		cur = &c
	}
	state := m.state
	if m.draining {
		state = StateDraining
	}
	return Snapshot{State: state, CurrentModel: cur, Err: m.err}
}

// Status builds a detailed status response for /status.
func (m *Manager) Status() types.StatusResponse {
	m.mu.RLock()
	defer m.mu.RUnlock()
	state := m.state
	if m.draining {
		state = StateDraining
	}
	now := time.Now()
	resp := types.StatusResponse{
		State:          string(state),
		Engine:         m.engineName,
		Hardware:       HardwareView(m.hw),
		Sampling:       SamplingView(m.sampling),
		QueueLen:       len(m.queueCh),
		Inflight:       len(m.genCh),
		MaxQueueDepth:  cap(m.queueCh),
		LastError:      m.err,
		UptimeSeconds:  int64(now.Sub(m.startTime).Seconds()),
		ServerTimeUnix: now.Unix(),
		LoadsTotal:     m.loads,
	}
	if m.cur != nil {
		resp.Model = &types.ModelInfo{
			ID:        m.cur.ID,
			Path:      m.cur.Path,
			SizeBytes: m.cur.SizeBytes,
			LoadedAt:  m.cur.LoadedAt.Unix(),
		}
		resp.Hardware = HardwareView(m.cur.Hardware)
	}
	return resp
}

// HardwareView converts a hardware config to its API form.
func HardwareView(c hardware.Config) types.HardwareConfig {
	return types.HardwareConfig{
		GPUMode:     c.GPUMode.String(),
		GPULayers:   c.GPULayers,
		MainGPU:     c.MainGPU,
		UseMMap:     c.UseMMap,
		UseMLock:    c.UseMLock,
		CPUThreads:  c.CPUThreads,
		TensorSplit: append([]float32(nil), c.TensorSplit...),
	}
}

// SamplingView converts sampling parameters to their API form.
func SamplingView(p session.SamplingParams) types.SamplingResponse {
	return types.SamplingResponse{
		Temperature: float64(p.Temperature),
		TopP:        float64(p.TopP),
		TopK:        p.TopK,
		Seed:        p.Seed,
	}
}

// Response converts the report to its API form.
func (r HardwareReport) Response() types.HardwareResponse {
	out := types.HardwareResponse{
		GPUs:          make([]types.GPUInfo, 0, len(r.GPUs)),
		LogicalCores:  r.LogicalCores,
		CPUBrand:      r.CPUBrand,
		Recommended:   HardwareView(r.Recommended),
		EngineDevices: r.EngineDevices,
	}
	for _, g := range r.GPUs {
		out.GPUs = append(out.GPUs, types.GPUInfo{
			Index:         g.Index,
			Name:          g.Name,
			MemoryTotalMB: g.MemoryTotalMB,
			MemoryUsedMB:  g.MemoryUsedMB,
		})
	}
	return out
}

// StatsView converts a monitor snapshot to its API form.
func StatsView(st monitor.PerformanceStats) types.StatsResponse {
	return types.StatsResponse{
		TokensPerSecond: st.TokensPerSecond,
		MemoryUsageMB:   st.MemoryUsageMB,
		MemoryTotalMB:   st.MemoryTotalMB,
		VRAMUsageMB:     st.VRAMUsageMB,
		VRAMTotalMB:     st.VRAMTotalMB,
		ActiveGPUs:      st.ActiveGPUs,
		CPUUsagePercent: st.CPUUsagePercent,
	}
}
