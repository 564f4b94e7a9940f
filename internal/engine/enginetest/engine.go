// Package enginetest provides a scripted in-memory engine for tests.
package enginetest

import (
	"errors"
	"fmt"
	"sync"

	"lmrun/internal/engine"
)

const (
	BOS engine.Token = 1
	EOG engine.Token = 2
)

// Engine is a fake engine. Configure the exported fields before use; the
// recorded fields are safe to read once the code under test returns.
type Engine struct {
	LoadErr     error
	ContextErr  error
	TokenizeErr error
	// Script is the sequence of tokens successive Sample calls return; each
	// new sampler replays it from the start. Once exhausted, Sample returns EOG.
	Script []engine.Token
	// Pieces maps tokens to text; unmapped tokens render as "t<id>".
	Pieces map[engine.Token]string
	// FailDecodeAt makes the n-th Decode call (1-based, counted per
	// context) fail. Zero never fails.
	FailDecodeAt int
	// ClearKVErr is returned by every ClearKV call when set.
	ClearKVErr error

	mu            sync.Mutex
	Loads         []string
	ModelParams   []engine.ModelParams
	ContextParams []engine.ContextParams
	SamplerParams []engine.SamplerParams
	Decoded       [][]engine.Token
	KVClears      int
	Log           []string
	liveModels    int
	liveContexts  int
	sampleCursor  int
	decodeCalls   int
}

var _ engine.Engine = (*Engine)(nil)

func (e *Engine) Name() string { return "fake" }

func (e *Engine) record(s string) {
	e.Log = append(e.Log, s)
}

func (e *Engine) LoadModel(path string, p engine.ModelParams) (engine.Model, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Loads = append(e.Loads, path)
	e.ModelParams = append(e.ModelParams, p)
	if e.LoadErr != nil {
		return nil, e.LoadErr
	}
	e.liveModels++
	e.record("model_load")
	return &model{e: e}, nil
}

// Live reports how many models and contexts are currently open.
func (e *Engine) Live() (models, contexts int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.liveModels, e.liveContexts
}

// AllDecoded flattens every token passed to Decode, in call order.
func (e *Engine) AllDecoded() []engine.Token {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []engine.Token
	for _, d := range e.Decoded {
		out = append(out, d...)
	}
	return out
}

// Tokens returns the ids the fake tokenizer produces for text, without BOS.
func Tokens(text string) []engine.Token {
	out := make([]engine.Token, 0, len(text))
	for i := 0; i < len(text); i++ {
		out = append(out, engine.Token(1000+int(text[i])))
	}
	return out
}

type model struct {
	e      *Engine
	closed bool
}

func (m *model) NewContext(p engine.ContextParams) (engine.Context, error) {
	e := m.e
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ContextParams = append(e.ContextParams, p)
	if e.ContextErr != nil {
		return nil, e.ContextErr
	}
	e.liveContexts++
	e.decodeCalls = 0
	e.record("context_new")
	return &fakeContext{e: e}, nil
}

// Tokenize maps every byte to its own token so tests can predict counts.
func (m *model) Tokenize(text string, addSpecial, _ bool) ([]engine.Token, error) {
	if m.e.TokenizeErr != nil {
		return nil, m.e.TokenizeErr
	}
	var out []engine.Token
	if addSpecial {
		out = append(out, BOS)
	}
	return append(out, Tokens(text)...), nil
}

func (m *model) TokenToPiece(t engine.Token) string {
	if s, ok := m.e.Pieces[t]; ok {
		return s
	}
	return fmt.Sprintf("t%d", t)
}

func (m *model) IsEOG(t engine.Token) bool { return t == EOG }

func (m *model) Close() error {
	e := m.e
	e.mu.Lock()
	defer e.mu.Unlock()
	if m.closed {
		return errors.New("model closed twice")
	}
	m.closed = true
	e.liveModels--
	e.record("model_free")
	return nil
}

type fakeContext struct {
	e      *Engine
	closed bool
}

func (c *fakeContext) Decode(tokens []engine.Token) error {
	e := c.e
	e.mu.Lock()
	defer e.mu.Unlock()
	e.decodeCalls++
	if e.FailDecodeAt > 0 && e.decodeCalls == e.FailDecodeAt {
		return fmt.Errorf("decode call %d failed", e.decodeCalls)
	}
	e.Decoded = append(e.Decoded, append([]engine.Token(nil), tokens...))
	return nil
}

func (c *fakeContext) ClearKV() error {
	c.e.mu.Lock()
	defer c.e.mu.Unlock()
	if c.e.ClearKVErr != nil {
		return c.e.ClearKVErr
	}
	c.e.KVClears++
	return nil
}

func (c *fakeContext) NewSampler(p engine.SamplerParams) (engine.Sampler, error) {
	c.e.mu.Lock()
	defer c.e.mu.Unlock()
	c.e.SamplerParams = append(c.e.SamplerParams, p)
	c.e.sampleCursor = 0
	return &sampler{e: c.e}, nil
}

func (c *fakeContext) Close() error {
	e := c.e
	e.mu.Lock()
	defer e.mu.Unlock()
	if c.closed {
		return errors.New("context closed twice")
	}
	c.closed = true
	e.liveContexts--
	e.record("context_free")
	return nil
}

type sampler struct{ e *Engine }

func (s *sampler) Sample() engine.Token {
	e := s.e
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.sampleCursor >= len(e.Script) {
		return EOG
	}
	t := e.Script[e.sampleCursor]
	e.sampleCursor++
	return t
}

func (s *sampler) Close() {}
