package e2e

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"lmrun/internal/engine"
	"lmrun/internal/hardware"
	"lmrun/internal/httpapi"
	"lmrun/internal/locator"
	"lmrun/internal/manager"
	"lmrun/internal/monitor"
)

// createRegistryDir creates a registry root with one GGUF blob per name and
// returns the root.
func createRegistryDir(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	blobs := filepath.Join(dir, locator.BlobsDir)
	if err := os.MkdirAll(blobs, 0o755); err != nil {
		t.Fatalf("mkdir blobs: %v", err)
	}
	for i, n := range names {
		b := make([]byte, 64*(i+1))
		copy(b, "GGUF")
		p := filepath.Join(blobs, "sha256-"+n)
		if err := os.WriteFile(p, b, 0o644); err != nil {
			t.Fatalf("write temp model %s: %v", p, err)
		}
	}
	return dir
}

type serverOpts struct {
	registryDir string
	listScript  string
	pullScript  string
	engine      engine.Engine
	cfg         manager.ManagerConfig
}

// newServer wires locator, manager and router the way serve does, with the
// given engine standing in for llama.cpp.
func newServer(t *testing.T, o serverOpts) (*httptest.Server, *manager.Manager) {
	t.Helper()
	if o.listScript == "" {
		o.listScript = "exit 1"
	}
	if o.pullScript == "" {
		o.pullScript = "exit 1"
	}
	loc := locator.New(locator.Options{
		RegistryDir: o.registryDir,
		Registry:    locator.NewShellRegistry(o.listScript, o.pullScript),
	})
	t.Cleanup(loc.Close)
	prober := &hardware.Prober{Devices: hardware.StaticProbe(nil), Cores: func() int { return 4 }}
	cfg := o.cfg
	cfg.Engine = o.engine
	cfg.Locator = loc
	cfg.Prober = prober
	cfg.Hardware = hardware.DefaultConfig()
	cfg.Monitor = monitor.New(monitor.Options{
		Devices:  prober.Devices,
		ProcRoot: filepath.Join(t.TempDir(), "no-proc"),
	})
	mgr := manager.NewWithConfig(cfg)
	t.Cleanup(func() { _ = mgr.Close(context.Background()) })
	srv := httptest.NewServer(httpapi.NewMux(mgr))
	t.Cleanup(srv.Close)
	return srv, mgr
}

func httpGet(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	return do(t, req)
}

func httpSendJSON(t *testing.T, method, url string, payload []byte) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), method, url, bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return do(t, req)
}

func httpPostJSON(t *testing.T, url string, payload []byte) (*http.Response, []byte) {
	t.Helper()
	return httpSendJSON(t, http.MethodPost, url, payload)
}

func do(t *testing.T, req *http.Request) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do req: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, body
}
