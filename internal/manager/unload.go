package manager

import (
	"context"
	"time"

	"lmrun/internal/errs"
)

// Unload drains queued work and releases the loaded model.
//   - Marks the manager draining so new admissions get TooBusy.
//   - Waits up to drainTimeout for queued and in-flight calls to finish.
//   - Takes the session slot (bounded by ctx) and closes the session.
func (m *Manager) Unload(ctx context.Context) error {
	m.mu.Lock()
	if m.draining {
		m.mu.Unlock()
		return errs.TooBusy("unload already in progress")
	}
	m.draining = true
	modelID := ""
	if m.cur != nil {
		modelID = m.cur.ID
	}
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		m.draining = false
		m.mu.Unlock()
	}()
	m.publish("unload_start", modelID, nil)

	deadline := time.Now().Add(m.drainTimeout)
	for {
		qlen := len(m.queueCh)
		inflight := len(m.genCh)
		if inflight == 0 && qlen == 0 {
			break
		}
		if time.Now().After(deadline) {
			m.publish("unload_timeout", modelID, map[string]any{"inflight": inflight, "queue": qlen})
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	// In-flight generation still owns the session after a timeout; wait for it.
	select {
	case m.genCh <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	err := m.sess.Close()
	<-m.genCh

	m.mu.Lock()
	m.cur = nil
	m.state = StateUnloaded
	m.err = ""
	m.mu.Unlock()
	m.publish("unload_done", modelID, nil)
	return err
}

// Close unloads the model and stops the locator if the manager created it.
func (m *Manager) Close(ctx context.Context) error {
	err := m.Unload(ctx)
	if m.ownsLocator {
		m.loc.Close()
	}
	return err
}
