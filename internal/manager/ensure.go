package manager

import (
	"context"
	"os"
	"time"

	"lmrun/internal/common/fsutil"
	"lmrun/internal/errs"
	"lmrun/internal/locator"
)

// EnsureModel makes modelID the loaded model, fetching it through the
// registry when it is not present locally. An empty id means the default
// model. Loading the model that is already loaded is a no-op.
func (m *Manager) EnsureModel(ctx context.Context, modelID string) error {
	if modelID == "" {
		modelID = m.defaultModel
		if modelID == "" {
			return errs.InvalidArgument("model identifier must not be empty")
		}
	}
	if m.isCurrent(modelID) {
		return nil
	}

	release, err := m.beginGeneration(ctx)
	if err != nil {
		return err
	}
	defer release()
	// Another caller may have loaded it while we queued.
	if m.isCurrent(modelID) {
		return nil
	}
	return m.load(ctx, modelID)
}

func (m *Manager) isCurrent(modelID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cur != nil && m.cur.ID == modelID && m.state == StateReady
}

// load runs with the generation slot held.
func (m *Manager) load(ctx context.Context, modelID string) error {
	start := time.Now()
	m.publish("ensure_start", modelID, nil)
	m.mu.Lock()
	m.state = StateLoading
	m.err = ""
	m.cur = nil
	m.loads++
	m.mu.Unlock()

	path, err := m.pathFor(ctx, modelID)
	if err == nil {
		err = m.sess.Load(ctx, path, m.hw)
	}
	if err != nil {
		m.setState(StateFailed, err.Error())
		m.publish("ensure_error", modelID, map[string]any{"error": err.Error()})
		return err
	}

	info := &ModelInfo{ID: modelID, Path: path, LoadedAt: time.Now(), Hardware: m.sess.Hardware()}
	if st, statErr := os.Stat(path); statErr == nil {
		info.SizeBytes = st.Size()
	}
	m.mu.Lock()
	m.cur = info
	m.state = StateReady
	m.err = ""
	m.mu.Unlock()
	m.publish("ensure_ready", modelID, map[string]any{
		"path":        path,
		"duration_ms": time.Since(start).Milliseconds(),
	})
	return nil
}

// pathFor maps an identifier to a file: direct paths are used as given,
// everything else goes through the locator and, if needed, the registry.
func (m *Manager) pathFor(ctx context.Context, modelID string) (string, error) {
	if locator.IsDirectPath(modelID) {
		p, err := fsutil.ExpandHome(modelID)
		if err != nil {
			return "", errs.InvalidPath(modelID, err)
		}
		return p, nil
	}
	return m.loc.EnsureAvailable(ctx, modelID)
}
