// Package engine abstracts the native inference library behind small
// interfaces so the session logic can be exercised without it.
//
// Build tags:
//
//   - default: Open returns a dependency-unavailable error (no native code).
//   - yzma: llama.cpp through github.com/hybridgroup/yzma (purego, no CGO).
package engine

// Token is a vocabulary id.
type Token int32

// ModelParams controls weight placement when loading a model.
type ModelParams struct {
	GPULayers   int
	MainGPU     int
	TensorSplit []float32
	UseMMap     bool
	UseMLock    bool
}

// ContextParams sizes the execution context.
type ContextParams struct {
	ContextSize  int
	BatchSize    int
	Threads      int
	ThreadsBatch int
	// F16KV keeps the KV cache in half precision.
	F16KV bool
}

// Stage is one step of the sampler chain.
type Stage int

const (
	StageTopK Stage = iota
	StageTopP
	StageTemperature
)

func (s Stage) String() string {
	switch s {
	case StageTopK:
		return "top_k"
	case StageTopP:
		return "top_p"
	case StageTemperature:
		return "temperature"
	}
	return "unknown"
}

// DefaultChain is applied in order before the final distribution draw.
var DefaultChain = []Stage{StageTopK, StageTopP, StageTemperature}

// SamplerParams configures a sampler chain.
type SamplerParams struct {
	Chain       []Stage
	Temperature float32
	TopP        float32
	TopK        int
	// Seed 0 lets the engine pick a random seed.
	Seed uint32
}

// Stages returns the chain stages a backend should build, in order.
// Top-k is left out when TopK is 0. Backends append a seeded
// distribution draw after the last stage.
func (p SamplerParams) Stages() []Stage {
	chain := p.Chain
	if len(chain) == 0 {
		chain = DefaultChain
	}
	out := make([]Stage, 0, len(chain))
	for _, st := range chain {
		if st == StageTopK && p.TopK <= 0 {
			continue
		}
		out = append(out, st)
	}
	return out
}

// Engine loads models.
type Engine interface {
	LoadModel(path string, p ModelParams) (Model, error)
	// Name identifies the backend in logs and status output.
	Name() string
}

// Model is a loaded set of weights plus vocabulary.
type Model interface {
	NewContext(p ContextParams) (Context, error)
	// Tokenize converts text to tokens. addSpecial prepends BOS when the
	// vocabulary defines one.
	Tokenize(text string, addSpecial, parseSpecial bool) ([]Token, error)
	TokenToPiece(t Token) string
	IsEOG(t Token) bool
	Close() error
}

// Context holds the KV cache and sequence position for one model.
type Context interface {
	// Decode appends tokens to the sequence and computes logits for the last.
	Decode(tokens []Token) error
	// ClearKV drops all cached state so the next Decode starts at position 0.
	ClearKV() error
	NewSampler(p SamplerParams) (Sampler, error)
	Close() error
}

// Sampler draws the next token from the logits of the last decoded position.
type Sampler interface {
	Sample() Token
	Close()
}
