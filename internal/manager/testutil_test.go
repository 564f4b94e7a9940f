package manager

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"lmrun/internal/engine/enginetest"
	"lmrun/internal/hardware"
	"lmrun/internal/locator"
	"lmrun/internal/monitor"
)

// writeModel creates a GGUF-signed file of size bytes.
func writeModel(t *testing.T, dir, name string, size int) string {
	t.Helper()
	if size < 4 {
		size = 4
	}
	b := make([]byte, size)
	copy(b, "GGUF")
	p := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(p, b, 0o644); err != nil {
		t.Fatalf("write model: %v", err)
	}
	return p
}

// pullRegistry reports nothing present and "downloads" by writing a blob.
type pullRegistry struct {
	t     *testing.T
	root  string
	pulls int32
}

func (r *pullRegistry) Has(context.Context, string) (bool, error) { return false, nil }

func (r *pullRegistry) Pull(_ context.Context, id string) error {
	atomic.AddInt32(&r.pulls, 1)
	writeModel(r.t, r.root, filepath.Join("blobs", "sha256-"+id), 128)
	return nil
}

type testOpts struct {
	gpus        []hardware.GPU
	queueDepth  int
	maxWait     time.Duration
	drain       time.Duration
	registry    locator.RegistryClient
	registryDir string
	noEngine    bool
}

// newTestManager wires a manager over eng with a CPU-only prober, a
// temporary registry directory and an in-memory event publisher.
func newTestManager(t *testing.T, eng *enginetest.Engine, o testOpts) (*Manager, *MemoryPublisher) {
	t.Helper()
	if o.registryDir == "" {
		o.registryDir = t.TempDir()
	}
	if o.registry == nil {
		o.registry = &pullRegistry{t: t, root: o.registryDir}
	}
	prober := &hardware.Prober{Devices: hardware.StaticProbe(o.gpus), Cores: func() int { return 8 }}
	loc := locator.New(locator.Options{RegistryDir: o.registryDir, Registry: o.registry})
	t.Cleanup(loc.Close)
	pub := NewMemoryPublisher()
	cfg := ManagerConfig{
		Locator:       loc,
		Prober:        prober,
		Hardware:      hardware.DefaultConfig(),
		MaxQueueDepth: o.queueDepth,
		MaxWait:       o.maxWait,
		DrainTimeout:  o.drain,
		Publisher:     pub,
	}
	if !o.noEngine {
		cfg.Engine = eng
	}
	m := NewWithConfig(cfg)
	m.mon = monitor.New(monitor.Options{
		Devices:    prober.Devices,
		ProcRoot:   filepath.Join(t.TempDir(), "no-proc"),
		Throughput: m.lastThroughput,
	})
	t.Cleanup(func() { _ = m.Close(context.Background()) })
	return m, pub
}

// loadedManager returns a manager with a model file loaded by direct path.
func loadedManager(t *testing.T, eng *enginetest.Engine, o testOpts) (*Manager, *MemoryPublisher, string) {
	t.Helper()
	m, pub := newTestManager(t, eng, o)
	p := writeModel(t, t.TempDir(), "model.gguf", 64)
	if err := m.EnsureModel(testCtx(t), p); err != nil {
		t.Fatalf("EnsureModel: %v", err)
	}
	return m, pub, p
}

// testCtx returns a context with a short timeout, canceled on test cleanup.
func testCtx(t *testing.T) context.Context {
	t.Helper()
	c, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return c
}

func hasEvent(names []string, want string) bool {
	for _, n := range names {
		if n == want {
			return true
		}
	}
	return false
}
