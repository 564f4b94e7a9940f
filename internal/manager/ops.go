package manager

import (
	"context"

	"lmrun/internal/engine"
	"lmrun/internal/errs"
	"lmrun/internal/hardware"
	"lmrun/internal/monitor"
	"lmrun/internal/session"
)

// ValidateSampling checks that p is within the ranges the sampler accepts.
func ValidateSampling(p session.SamplingParams) error {
	if p.Temperature < 0 || p.Temperature > 2 {
		return errs.InvalidArgument("temperature must be in [0, 2], got %g", p.Temperature)
	}
	if p.TopP < 0 || p.TopP > 1 {
		return errs.InvalidArgument("top_p must be in [0, 1], got %g", p.TopP)
	}
	if p.TopK < 0 {
		return errs.InvalidArgument("top_k must be >= 0, got %d", p.TopK)
	}
	return nil
}

// Sampling returns the parameters the next generation will use.
func (m *Manager) Sampling() session.SamplingParams {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sampling
}

// SetSampling replaces the sampling parameters. They apply from the next
// generation and survive model switches.
func (m *Manager) SetSampling(ctx context.Context, p session.SamplingParams) error {
	_, err := m.UpdateSampling(ctx, func(cur *session.SamplingParams) { *cur = p })
	return err
}

// UpdateSampling applies update to the current parameters while holding the
// generation slot, so concurrent partial updates never overwrite each other.
// The result is validated before it is stored; on error nothing changes.
func (m *Manager) UpdateSampling(ctx context.Context, update func(*session.SamplingParams)) (session.SamplingParams, error) {
	release, err := m.beginGeneration(ctx)
	if err != nil {
		return session.SamplingParams{}, err
	}
	defer release()
	m.mu.RLock()
	p := m.sampling
	m.mu.RUnlock()
	update(&p)
	if err := ValidateSampling(p); err != nil {
		return session.SamplingParams{}, err
	}
	m.sess.SetSampling(p)
	m.mu.Lock()
	m.sampling = p
	m.mu.Unlock()
	m.log.Info().Str("event", "sampling_set").
		Float32("temperature", p.Temperature).
		Float32("top_p", p.TopP).
		Int("top_k", p.TopK).
		Msg("sampling parameters updated")
	return p, nil
}

// ClearCache drops the session's KV cache.
func (m *Manager) ClearCache(ctx context.Context) error {
	release, err := m.beginGeneration(ctx)
	if err != nil {
		return err
	}
	defer release()
	return m.sess.ClearCache()
}

// HardwareReport describes the host as the prober sees it now.
type HardwareReport struct {
	GPUs          []hardware.GPU
	LogicalCores  int
	CPUBrand      string
	Recommended   hardware.Config
	EngineDevices []string
}

// Hardware probes devices. It does not touch the session.
func (m *Manager) Hardware(ctx context.Context) HardwareReport {
	gpus := m.prober.GPUs(ctx)
	return HardwareReport{
		GPUs:          gpus,
		LogicalCores:  hardware.LogicalCores(),
		CPUBrand:      hardware.CPUBrand(),
		Recommended:   m.prober.DetectOptimalConfig(ctx),
		EngineDevices: engine.Devices(),
	}
}

// Stats takes a performance snapshot.
func (m *Manager) Stats(ctx context.Context) monitor.PerformanceStats {
	return m.mon.Snapshot(ctx)
}

// Switch starts loading modelID in the background. Callers poll Status to
// observe the transition; the outcome is also published as ensure_* events.
func (m *Manager) Switch(modelID string) {
	go func() {
		// Detached so the load is not canceled with the request that asked for it.
		if err := m.EnsureModel(context.Background(), modelID); err != nil {
			m.log.Warn().Str("event", "switch_failed").Str("model", modelID).Err(err).Msg("background model switch failed")
		}
	}()
}
