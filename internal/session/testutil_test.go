package session

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"lmrun/internal/engine/enginetest"
	"lmrun/internal/hardware"
)

// writeModel creates a GGUF-signed file of size bytes (minimum 4).
func writeModel(t *testing.T, dir, name string, size int) string {
	t.Helper()
	if size < len(Magic) {
		size = len(Magic)
	}
	b := make([]byte, size)
	copy(b, Magic)
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, b, 0o644); err != nil {
		t.Fatalf("write model: %v", err)
	}
	return p
}

// cpuProber reports no GPUs and a fixed core count.
func cpuProber(cores int) *hardware.Prober {
	return &hardware.Prober{Devices: hardware.StaticProbe{}, Cores: func() int { return cores }}
}

func newTestSession(t *testing.T, eng *enginetest.Engine) *Session {
	t.Helper()
	s := New(eng, Options{Prober: cpuProber(8)})
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// loadedSession returns a Ready session over a fresh model file.
func loadedSession(t *testing.T, eng *enginetest.Engine) *Session {
	t.Helper()
	s := newTestSession(t, eng)
	p := writeModel(t, t.TempDir(), "model.gguf", 64)
	if err := s.Load(testCtx(t), p, hardware.DefaultConfig()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return s
}

// testCtx returns a context with a short timeout, canceled on test cleanup.
func testCtx(t *testing.T) context.Context {
	t.Helper()
	c, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return c
}
