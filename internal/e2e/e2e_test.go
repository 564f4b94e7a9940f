package e2e

import (
	"bufio"
	"bytes"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"lmrun/internal/engine"
	"lmrun/internal/engine/enginetest"
	"lmrun/internal/manager"
	"lmrun/pkg/types"
)

func helloEngine() *enginetest.Engine {
	return &enginetest.Engine{
		Script: []engine.Token{10, 11},
		Pieces: map[engine.Token]string{10: "Hello", 11: " world"},
	}
}

func TestE2E_LoadAndGenerate(t *testing.T) {
	dir := createRegistryDir(t, "small", "large")
	srv, _ := newServer(t, serverOpts{registryDir: dir, engine: helloEngine()})

	resp, body := httpGet(t, srv.URL+"/readyz")
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("/readyz initial %d %s", resp.StatusCode, body)
	}

	resp, body = httpPostJSON(t, srv.URL+"/model", []byte(`{"model":"llama3:8b"}`))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/model %d %s", resp.StatusCode, body)
	}
	var st types.StatusResponse
	if err := json.Unmarshal(body, &st); err != nil {
		t.Fatalf("status json: %v body=%s", err, body)
	}
	if st.State != string(manager.StateReady) || st.Model == nil || st.Model.ID != "llama3:8b" {
		t.Fatalf("unexpected status: %+v", st)
	}
	// the largest blob wins
	if st.Model.SizeBytes != 128 {
		t.Fatalf("expected largest blob, got size %d", st.Model.SizeBytes)
	}

	resp, _ = httpGet(t, srv.URL+"/readyz")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/readyz after load %d", resp.StatusCode)
	}

	resp, body = httpPostJSON(t, srv.URL+"/generate", []byte(`{"prompt":"hi","max_tokens":16}`))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/generate %d %s", resp.StatusCode, body)
	}
	var gen types.GenerateResponse
	if err := json.Unmarshal(body, &gen); err != nil {
		t.Fatalf("generate json: %v", err)
	}
	if gen.Text != "Hello world" || gen.FinishReason != "stop" || gen.Usage.CompletionTokens != 2 {
		t.Fatalf("unexpected generation: %+v", gen)
	}
	if gen.Usage.TotalTokens != gen.Usage.PromptTokens+gen.Usage.CompletionTokens {
		t.Fatalf("usage does not add up: %+v", gen.Usage)
	}
}

func TestE2E_GenerateStream(t *testing.T) {
	dir := createRegistryDir(t, "m")
	srv, _ := newServer(t, serverOpts{registryDir: dir, engine: helloEngine()})

	resp, body := httpPostJSON(t, srv.URL+"/generate", []byte(`{"model":"m","prompt":"hi","stream":true}`))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/generate %d %s", resp.StatusCode, body)
	}
	var lines [][]byte
	sc := bufio.NewScanner(bytes.NewReader(body))
	for sc.Scan() {
		lines = append(lines, append([]byte(nil), sc.Bytes()...))
	}
	if len(lines) != 3 {
		t.Fatalf("expected 2 chunks and a final line, got %d: %q", len(lines), body)
	}
	var text string
	for _, l := range lines[:2] {
		var c types.GenerateChunk
		if err := json.Unmarshal(l, &c); err != nil {
			t.Fatalf("chunk json: %v", err)
		}
		text += c.Text
	}
	if text != "Hello world" {
		t.Fatalf("streamed text %q", text)
	}
	var final types.GenerateResponse
	if err := json.Unmarshal(lines[2], &final); err != nil {
		t.Fatalf("final json: %v", err)
	}
	if !final.Done || final.FinishReason != "stop" || final.Error != "" {
		t.Fatalf("unexpected final line: %+v", final)
	}
}

func TestE2E_GenerateWithoutModel_503(t *testing.T) {
	srv, _ := newServer(t, serverOpts{registryDir: t.TempDir(), engine: helloEngine()})
	resp, body := httpPostJSON(t, srv.URL+"/generate", []byte(`{"prompt":"hi"}`))
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d body=%s", resp.StatusCode, body)
	}
}

func TestE2E_PullFailure_502(t *testing.T) {
	srv, _ := newServer(t, serverOpts{
		registryDir: t.TempDir(),
		engine:      helloEngine(),
		pullScript:  `echo "pulling $1" >&2; exit 3`,
	})
	resp, body := httpPostJSON(t, srv.URL+"/model", []byte(`{"model":"missing"}`))
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d body=%s", resp.StatusCode, body)
	}
	resp, body = httpGet(t, srv.URL+"/status")
	var st types.StatusResponse
	if err := json.Unmarshal(body, &st); err != nil {
		t.Fatalf("status json: %v", err)
	}
	if st.Model != nil || st.LastError == "" {
		t.Fatalf("expected no model and a recorded error, got %+v", st)
	}
}

func TestE2E_NoEngine_503(t *testing.T) {
	dir := createRegistryDir(t, "m")
	srv, _ := newServer(t, serverOpts{registryDir: dir})
	resp, body := httpPostJSON(t, srv.URL+"/model", []byte(`{"model":"m"}`))
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d body=%s", resp.StatusCode, body)
	}
}

func TestE2E_SamplingAndCache(t *testing.T) {
	dir := createRegistryDir(t, "m")
	eng := helloEngine()
	srv, _ := newServer(t, serverOpts{registryDir: dir, engine: eng})

	resp, body := httpSendJSON(t, http.MethodPut, srv.URL+"/sampling", []byte(`{"temperature":0.1,"top_k":5}`))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/sampling put %d %s", resp.StatusCode, body)
	}
	resp, body = httpGet(t, srv.URL+"/sampling")
	var sp types.SamplingResponse
	if err := json.Unmarshal(body, &sp); err != nil {
		t.Fatalf("sampling json: %v", err)
	}
	if sp.TopK != 5 || sp.Temperature < 0.09 || sp.Temperature > 0.11 || sp.TopP < 0.89 {
		t.Fatalf("unexpected sampling: %+v", sp)
	}

	resp, body = httpSendJSON(t, http.MethodPut, srv.URL+"/sampling", []byte(`{"top_p":1.5}`))
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for top_p out of range, got %d %s", resp.StatusCode, body)
	}

	resp, _ = httpPostJSON(t, srv.URL+"/cache/clear", nil)
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("cache clear without model: %d", resp.StatusCode)
	}
	if resp, body = httpPostJSON(t, srv.URL+"/model", []byte(`{"model":"m"}`)); resp.StatusCode != http.StatusOK {
		t.Fatalf("/model %d %s", resp.StatusCode, body)
	}
	if resp, body = httpPostJSON(t, srv.URL+"/generate", []byte(`{"prompt":"hi"}`)); resp.StatusCode != http.StatusOK {
		t.Fatalf("/generate %d %s", resp.StatusCode, body)
	}
	if len(eng.SamplerParams) == 0 || eng.SamplerParams[len(eng.SamplerParams)-1].TopK != 5 {
		t.Fatalf("sampler did not pick up top_k: %+v", eng.SamplerParams)
	}
	resp, _ = httpPostJSON(t, srv.URL+"/cache/clear", nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("cache clear: %d", resp.StatusCode)
	}
	if eng.KVClears == 0 {
		t.Fatalf("expected a KV clear")
	}
}

func TestE2E_AsyncLoad(t *testing.T) {
	dir := createRegistryDir(t, "m")
	srv, mgr := newServer(t, serverOpts{registryDir: dir, engine: helloEngine()})

	resp, body := httpPostJSON(t, srv.URL+"/model", []byte(`{"model":"m","async":true}`))
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("/model async %d %s", resp.StatusCode, body)
	}
	deadline := time.Now().Add(2 * time.Second)
	for !mgr.Ready() {
		if time.Now().After(deadline) {
			t.Fatalf("model did not become ready in time")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestE2E_HardwareAndStats(t *testing.T) {
	srv, _ := newServer(t, serverOpts{registryDir: t.TempDir(), engine: helloEngine()})

	resp, body := httpGet(t, srv.URL+"/hardware")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/hardware %d %s", resp.StatusCode, body)
	}
	var hw types.HardwareResponse
	if err := json.Unmarshal(body, &hw); err != nil {
		t.Fatalf("hardware json: %v", err)
	}
	if len(hw.GPUs) != 0 || hw.Recommended.GPUMode != "cpu_only" || hw.Recommended.GPULayers != 0 {
		t.Fatalf("unexpected hardware: %+v", hw)
	}

	resp, body = httpGet(t, srv.URL+"/stats")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/stats %d %s", resp.StatusCode, body)
	}
	var stats types.StatsResponse
	if err := json.Unmarshal(body, &stats); err != nil {
		t.Fatalf("stats json: %v", err)
	}
	if stats.ActiveGPUs != 0 || stats.VRAMTotalMB != 0 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}
