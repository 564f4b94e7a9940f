package session

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"lmrun/internal/engine"
	"lmrun/internal/engine/enginetest"
	"lmrun/internal/errs"
	"lmrun/internal/hardware"
)

func TestLoad_Ready(t *testing.T) {
	eng := &enginetest.Engine{}
	s := loadedSession(t, eng)

	if s.State() != StateReady {
		t.Fatalf("state = %s", s.State())
	}
	if len(eng.ContextParams) != 1 {
		t.Fatalf("expected one context, got %d", len(eng.ContextParams))
	}
	cp := eng.ContextParams[0]
	if cp.ContextSize != ContextSize || cp.BatchSize != BatchSize || !cp.F16KV {
		t.Fatalf("unexpected context params: %+v", cp)
	}
	// 8 cores, no GPU -> 7 threads
	if cp.Threads != 7 || cp.ThreadsBatch != 7 {
		t.Fatalf("threads = %d/%d, want 7", cp.Threads, cp.ThreadsBatch)
	}
	if hw := s.Hardware(); hw.GPUMode != hardware.ModeCPUOnly || hw.GPULayers != 0 {
		t.Fatalf("auto config not resolved: %+v", hw)
	}
}

func TestLoad_InvalidPath(t *testing.T) {
	dir := t.TempDir()
	for _, p := range []string{filepath.Join(dir, "missing.gguf"), dir} {
		eng := &enginetest.Engine{}
		s := newTestSession(t, eng)
		err := s.Load(testCtx(t), p, hardware.DefaultConfig())
		if !errs.Is(err, errs.KindInvalidPath) {
			t.Fatalf("%s: expected invalid path, got %v", p, err)
		}
		if s.State() != StateFailed {
			t.Fatalf("%s: state = %s", p, s.State())
		}
		if len(eng.Loads) != 0 {
			t.Fatalf("%s: engine must not be called", p)
		}
	}
}

func TestLoad_RejectsNonGGUF(t *testing.T) {
	p := filepath.Join(t.TempDir(), "weights.bin")
	if err := os.WriteFile(p, []byte("PK\x03\x04 not a model"), 0o644); err != nil {
		t.Fatal(err)
	}
	s := newTestSession(t, &enginetest.Engine{})
	if err := s.Load(testCtx(t), p, hardware.DefaultConfig()); !errs.Is(err, errs.KindLoadError) {
		t.Fatalf("expected load error, got %v", err)
	}
}

func TestLoad_ModelFailure(t *testing.T) {
	eng := &enginetest.Engine{LoadErr: errors.New("bad tensor data")}
	s := newTestSession(t, eng)
	p := writeModel(t, t.TempDir(), "m.gguf", 16)
	err := s.Load(testCtx(t), p, hardware.DefaultConfig())
	if !errs.Is(err, errs.KindLoadError) {
		t.Fatalf("expected load error, got %v", err)
	}
	if s.State() != StateFailed {
		t.Fatalf("state = %s", s.State())
	}
	if _, err := s.Generate(testCtx(t), "hi", 4); !errs.Is(err, errs.KindNotInitialized) {
		t.Fatalf("generate after failed load: %v", err)
	}
}

func TestLoad_ContextFailureReleasesModel(t *testing.T) {
	eng := &enginetest.Engine{ContextErr: errors.New("out of memory")}
	s := newTestSession(t, eng)
	p := writeModel(t, t.TempDir(), "m.gguf", 16)
	if err := s.Load(testCtx(t), p, hardware.DefaultConfig()); !errs.Is(err, errs.KindLoadError) {
		t.Fatalf("expected load error, got %v", err)
	}
	if m, c := eng.Live(); m != 0 || c != 0 {
		t.Fatalf("leaked handles: models=%d contexts=%d", m, c)
	}
	if want := []string{"model_load", "model_free"}; !reflect.DeepEqual(eng.Log, want) {
		t.Fatalf("log = %v, want %v", eng.Log, want)
	}
}

func TestLoad_AutoWithGPU(t *testing.T) {
	eng := &enginetest.Engine{}
	prober := &hardware.Prober{
		Devices: hardware.StaticProbe{{Name: "gpu0"}, {Name: "gpu1"}},
		Cores:   func() int { return 16 },
	}
	s := New(eng, Options{Prober: prober})
	defer s.Close()
	p := writeModel(t, t.TempDir(), "m.gguf", 16)
	if err := s.Load(testCtx(t), p, hardware.DefaultConfig()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	mp := eng.ModelParams[0]
	if mp.GPULayers != hardware.AllLayers || len(mp.TensorSplit) != 2 || !mp.UseMMap {
		t.Fatalf("unexpected model params: %+v", mp)
	}
	// 16 cores -> 14, halved for GPU mode
	if eng.ContextParams[0].Threads != 7 {
		t.Fatalf("threads = %d, want 7", eng.ContextParams[0].Threads)
	}
	if s.Hardware().GPUMode != hardware.ModeDualGPU {
		t.Fatalf("mode = %s", s.Hardware().GPUMode)
	}
}

func TestLoad_ReplacesPreviousPair(t *testing.T) {
	eng := &enginetest.Engine{}
	s := loadedSession(t, eng)
	p := writeModel(t, t.TempDir(), "other.gguf", 32)
	if err := s.Load(testCtx(t), p, hardware.Config{GPUMode: hardware.ModeCPUOnly, CPUThreads: 2}); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if m, c := eng.Live(); m != 1 || c != 1 {
		t.Fatalf("expected exactly one live pair, got models=%d contexts=%d", m, c)
	}
	want := []string{"model_load", "context_new", "context_free", "model_free", "model_load", "context_new"}
	if !reflect.DeepEqual(eng.Log, want) {
		t.Fatalf("log = %v, want %v", eng.Log, want)
	}
	if s.ModelPath() != p {
		t.Fatalf("path = %s", s.ModelPath())
	}
}

func TestClose_IdempotentContextFirst(t *testing.T) {
	eng := &enginetest.Engine{}
	s := loadedSession(t, eng)
	for i := 0; i < 3; i++ {
		if err := s.Close(); err != nil {
			t.Fatalf("close %d: %v", i, err)
		}
	}
	if s.State() != StateUnloaded {
		t.Fatalf("state = %s", s.State())
	}
	want := []string{"model_load", "context_new", "context_free", "model_free"}
	if !reflect.DeepEqual(eng.Log, want) {
		t.Fatalf("log = %v, want %v", eng.Log, want)
	}
}

func TestClearCache(t *testing.T) {
	eng := &enginetest.Engine{}
	s := newTestSession(t, eng)
	if err := s.ClearCache(); !errs.Is(err, errs.KindNotInitialized) {
		t.Fatalf("expected not initialized, got %v", err)
	}

	s = loadedSession(t, eng)
	if _, err := s.Generate(testCtx(t), "hi", 2); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	before := eng.KVClears
	if err := s.ClearCache(); err != nil {
		t.Fatalf("ClearCache: %v", err)
	}
	if err := s.ClearCache(); err != nil {
		t.Fatalf("second ClearCache: %v", err)
	}
	if eng.KVClears != before+1 {
		t.Fatalf("second clear must be a no-op: clears %d -> %d", before, eng.KVClears)
	}
}

func TestSamplingSetters(t *testing.T) {
	s := New(&enginetest.Engine{}, Options{Prober: cpuProber(4)})
	if s.Sampling() != DefaultSampling() {
		t.Fatalf("defaults = %+v", s.Sampling())
	}
	s.SetTemperature(0.1)
	s.SetTopP(0.5)
	s.SetTopK(7)
	want := SamplingParams{Temperature: 0.1, TopP: 0.5, TopK: 7}
	if s.Sampling() != want {
		t.Fatalf("sampling = %+v, want %+v", s.Sampling(), want)
	}
}

func TestLoad_FailureLeavesNoPath(t *testing.T) {
	eng := &enginetest.Engine{}
	s := loadedSession(t, eng)
	if s.ModelPath() == "" {
		t.Fatalf("loaded session has no path")
	}
	missing := filepath.Join(t.TempDir(), "missing.gguf")
	if err := s.Load(testCtx(t), missing, hardware.DefaultConfig()); err == nil {
		t.Fatalf("expected an error")
	}
	if got := s.ModelPath(); got != "" {
		t.Fatalf("failed load reports path %q", got)
	}

	eng.LoadErr = errors.New("bad tensor")
	if err := s.Load(testCtx(t), writeModel(t, t.TempDir(), "m.gguf", 32), hardware.DefaultConfig()); !errs.Is(err, errs.KindLoadError) {
		t.Fatalf("expected load error, got %v", err)
	}
	if got := s.ModelPath(); got != "" {
		t.Fatalf("engine failure reports path %q", got)
	}
}

func TestClearCache_Failure(t *testing.T) {
	eng := &enginetest.Engine{Script: []engine.Token{10}}
	s := loadedSession(t, eng)
	if _, err := s.Generate(testCtx(t), "hi", 1); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	eng.ClearKVErr = errors.New("no memory handle")
	if err := s.ClearCache(); !errs.Is(err, errs.KindDecodeError) {
		t.Fatalf("expected decode error, got %v", err)
	}
	eng.ClearKVErr = nil
	before := eng.KVClears
	if err := s.ClearCache(); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if eng.KVClears != before+1 {
		t.Fatalf("failed clear must leave the cache dirty")
	}
}
