// Package session owns one loaded model and its execution context and runs
// the generation loop over them.
//
// A Session is not safe for concurrent use; callers serialise access (see
// internal/manager).
package session

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"lmrun/internal/common/fsutil"
	"lmrun/internal/engine"
	"lmrun/internal/errs"
	"lmrun/internal/hardware"
	"lmrun/internal/metrics"
)

// State is the lifecycle state of a Session.
type State string

const (
	StateUnloaded   State = "unloaded"
	StateLoading    State = "loading"
	StateReady      State = "ready"
	StateGenerating State = "generating"
	StateFailed     State = "failed"
)

// Engine sizing fixed at load time.
const (
	ContextSize = 2048
	BatchSize   = 512
	// PromptChunk must not exceed BatchSize.
	PromptChunk = 256

	MaxTokensLimit   = 4096
	DefaultMaxTokens = 512
)

// Magic is the file signature every model file starts with.
var Magic = []byte("GGUF")

// SamplingParams are applied to every Generate call until changed.
type SamplingParams struct {
	Temperature float32 `json:"temperature" yaml:"temperature" toml:"temperature"`
	TopP        float32 `json:"top_p" yaml:"top_p" toml:"top_p"`
	TopK        int     `json:"top_k" yaml:"top_k" toml:"top_k"`
	Seed        uint32  `json:"seed,omitempty" yaml:"seed,omitempty" toml:"seed,omitempty"`
}

// DefaultSampling returns temperature 0.7, top-p 0.9, top-k 40.
func DefaultSampling() SamplingParams {
	return SamplingParams{Temperature: 0.7, TopP: 0.9, TopK: 40}
}

// Options tune a Session.
type Options struct {
	// Prober resolves AUTO hardware configs. Nil uses nvidia-smi.
	Prober *hardware.Prober
	Logger zerolog.Logger
	// Sampling defaults to DefaultSampling.
	Sampling *SamplingParams
}

// Session is the state machine
//
//	Unloaded -> Loading -> Ready <-> Generating
//	any      -> Failed   (unrecoverable load error)
type Session struct {
	eng      engine.Engine
	prober   *hardware.Prober
	log      zerolog.Logger
	state    State
	model    engine.Model
	lctx     engine.Context
	path     string
	hw       hardware.Config
	sampling SamplingParams
	// kvDirty is false right after a cache clear.
	kvDirty bool
	last    Result
}

// New returns an unloaded Session backed by eng.
func New(eng engine.Engine, opts Options) *Session {
	s := &Session{
		eng:      eng,
		prober:   opts.Prober,
		log:      opts.Logger,
		state:    StateUnloaded,
		sampling: DefaultSampling(),
	}
	if s.prober == nil {
		s.prober = hardware.NewProber(opts.Logger)
	}
	if opts.Sampling != nil {
		s.sampling = *opts.Sampling
	}
	return s
}

func (s *Session) State() State { return s.state }
func (s *Session) ModelPath() string { return s.path }
func (s *Session) Hardware() hardware.Config { return s.hw.Clone() }
func (s *Session) Sampling() SamplingParams { return s.sampling }
func (s *Session) LastResult() Result { return s.last }
func (s *Session) SetSampling(p SamplingParams) { s.sampling = p }
func (s *Session) SetTemperature(t float32) { s.sampling.Temperature = t }
func (s *Session) SetTopP(p float32) { s.sampling.TopP = p }
func (s *Session) SetTopK(k int) { s.sampling.TopK = k }

// Load replaces any loaded model with the one at path. An AUTO config is
// resolved through the prober first. On failure the session is left in
// StateFailed with nothing loaded.
func (s *Session) Load(ctx context.Context, path string, cfg hardware.Config) (err error) {
	if s.state == StateGenerating {
		return errs.InvalidArgument("load while generating")
	}
	start := time.Now()
	s.release()
	s.state = StateLoading
	defer func() {
		metrics.ObserveLoad(time.Since(start), err)
		if err != nil {
			s.state = StateFailed
			s.log.Error().Str("event", "load_failed").Str("path", path).Err(err).Msg("model load failed")
		}
	}()

	if _, err := fsutil.RegularFile(path); err != nil {
		return errs.InvalidPath(path, err)
	}
	ok, err := fsutil.HasMagic(path, Magic)
	if err != nil {
		return errs.InvalidPath(path, err)
	}
	if !ok {
		return errs.LoadError(nil, "%s is not a GGUF model file", path)
	}

	hw := s.prober.Resolve(ctx, cfg)
	s.log.Info().
		Str("event", "load_start").
		Str("path", path).
		Str("engine", s.eng.Name()).
		Str("mode", hw.GPUMode.String()).
		Int("gpu_layers", hw.GPULayers).
		Int("threads", hw.CPUThreads).
		Msg("loading model")

	model, err := s.eng.LoadModel(path, modelParams(hw))
	if err != nil {
		return errs.LoadError(err, "load model %s", path)
	}
	lctx, err := model.NewContext(contextParams(hw))
	if err != nil {
		_ = model.Close()
		return errs.LoadError(err, "create context for %s", path)
	}

	s.model, s.lctx, s.hw, s.path = model, lctx, hw, path
	s.kvDirty = false
	s.state = StateReady
	s.log.Info().Str("event", "load_ready").Str("path", path).Dur("dur", time.Since(start)).Msg("model ready")
	return nil
}

func modelParams(hw hardware.Config) engine.ModelParams {
	return engine.ModelParams{
		GPULayers:   hw.GPULayers,
		MainGPU:     hw.MainGPU,
		TensorSplit: append([]float32(nil), hw.TensorSplit...),
		UseMMap:     hw.UseMMap,
		UseMLock:    hw.UseMLock,
	}
}

func contextParams(hw hardware.Config) engine.ContextParams {
	threads := hw.CPUThreads
	if threads < 1 {
		threads = 1
	}
	return engine.ContextParams{
		ContextSize:  ContextSize,
		BatchSize:    BatchSize,
		Threads:      threads,
		ThreadsBatch: threads,
		F16KV:        true,
	}
}

// ClearCache drops the KV cache. A second consecutive call does nothing.
func (s *Session) ClearCache() error {
	if s.state != StateReady {
		return errs.NotInitialized("no model loaded")
	}
	if !s.kvDirty {
		return nil
	}
	if err := s.lctx.ClearKV(); err != nil {
		return errs.DecodeError(err, "clear kv cache")
	}
	s.kvDirty = false
	return nil
}

// Close releases the context, then the model. Safe to call repeatedly.
func (s *Session) Close() error {
	s.release()
	s.state = StateUnloaded
	return nil
}

func (s *Session) release() {
	if s.lctx != nil {
		if err := s.lctx.Close(); err != nil {
			s.log.Warn().Err(err).Msg("context release failed")
		}
		s.lctx = nil
	}
	if s.model != nil {
		if err := s.model.Close(); err != nil {
			s.log.Warn().Err(err).Msg("model release failed")
		}
		s.model = nil
	}
	s.path = ""
}
