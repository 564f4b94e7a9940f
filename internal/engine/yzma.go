//go:build yzma

package engine

import (
	"fmt"
	"os"
	"sync"

	"github.com/hybridgroup/yzma/pkg/llama"

	"lmrun/internal/errs"
)

// Options configures backend initialisation.
type Options struct {
	// LibPath is the directory holding the llama.cpp shared libraries.
	// Empty falls back to $YZMA_LIB.
	LibPath string
}

var (
	initOnce sync.Once
	initErr  error
	ready    bool
)

// Open loads the llama.cpp shared libraries once per process.
func Open(opts Options) (Engine, error) {
	initOnce.Do(func() {
		lib := opts.LibPath
		if lib == "" {
			lib = os.Getenv("YZMA_LIB")
		}
		if lib == "" {
			initErr = errs.DependencyUnavailable("llama.cpp library path not set (engine.lib_path or YZMA_LIB)")
			return
		}
		if err := llama.Load(lib); err != nil {
			initErr = errs.New(errs.KindDependencyUnavailable, err, "load llama.cpp from %s", lib)
			return
		}
		llama.Init()
		ready = true
	})
	if initErr != nil {
		return nil, initErr
	}
	return yzmaEngine{}, nil
}

// Devices lists the backend devices llama.cpp can see.
func Devices() []string {
	if !ready {
		return nil
	}
	n := llama.GGMLBackendDeviceCount()
	out := make([]string, 0, n)
	for i := uint64(0); i < n; i++ {
		out = append(out, llama.GGMLBackendDeviceName(llama.GGMLBackendDeviceGet(i)))
	}
	return out
}

type yzmaEngine struct{}

func (yzmaEngine) Name() string { return "llama.cpp (yzma)" }

// maxDevices bounds the tensor split array handed to llama.cpp.
const maxDevices = 16

func (yzmaEngine) LoadModel(path string, p ModelParams) (Model, error) {
	mp := llama.ModelDefaultParams()
	mp.NGpuLayers = int32(p.GPULayers)
	mp.MainGpu = int32(p.MainGPU)
	mp.UseMmap = boolByte(p.UseMMap)
	mp.UseMlock = boolByte(p.UseMLock)
	var split []float32
	if len(p.TensorSplit) > 0 {
		split = make([]float32, maxDevices)
		copy(split, p.TensorSplit)
		mp.TensorSplit = &split[0]
	}
	m, err := llama.ModelLoadFromFile(path, mp)
	if err != nil {
		return nil, err
	}
	return &yzmaModel{m: m, vocab: llama.ModelGetVocab(m), split: split}, nil
}

type yzmaModel struct {
	m     llama.Model
	vocab llama.Vocab
	// split stays referenced for the lifetime of the model.
	split []float32
}

func (m *yzmaModel) NewContext(p ContextParams) (Context, error) {
	cp := llama.ContextDefaultParams()
	cp.NCtx = uint32(p.ContextSize)
	cp.NBatch = uint32(p.BatchSize)
	cp.NThreads = int32(p.Threads)
	cp.NThreadsBatch = int32(p.ThreadsBatch)
	// llama.cpp stores K/V as f16 by default; F16KV leaves that untouched.
	lctx, err := llama.InitFromModel(m.m, cp)
	if err != nil {
		return nil, err
	}
	return &yzmaContext{ctx: lctx, model: m}, nil
}

func (m *yzmaModel) Tokenize(text string, addSpecial, parseSpecial bool) ([]Token, error) {
	toks := llama.Tokenize(m.vocab, text, addSpecial, parseSpecial)
	if len(toks) == 0 && text != "" {
		return nil, fmt.Errorf("tokenizer produced no tokens")
	}
	out := make([]Token, len(toks))
	for i, t := range toks {
		out[i] = Token(t)
	}
	return out, nil
}

func (m *yzmaModel) TokenToPiece(t Token) string {
	buf := make([]byte, 128)
	n := llama.TokenToPiece(m.vocab, llama.Token(t), buf, 0, true)
	if n < 0 {
		// buffer too small; -n is the required size
		buf = make([]byte, -n)
		n = llama.TokenToPiece(m.vocab, llama.Token(t), buf, 0, true)
	}
	if n <= 0 {
		return ""
	}
	return string(buf[:n])
}

func (m *yzmaModel) IsEOG(t Token) bool { return llama.VocabIsEOG(m.vocab, llama.Token(t)) }

func (m *yzmaModel) Close() error {
	llama.ModelFree(m.m)
	return nil
}

type yzmaContext struct {
	ctx   llama.Context
	model *yzmaModel
}

func (c *yzmaContext) Decode(tokens []Token) error {
	if len(tokens) == 0 {
		return nil
	}
	lt := make([]llama.Token, len(tokens))
	for i, t := range tokens {
		lt[i] = llama.Token(t)
	}
	ret, err := llama.Decode(c.ctx, llama.BatchGetOne(lt))
	if err != nil {
		return err
	}
	if ret != 0 {
		return fmt.Errorf("llama_decode returned %d", ret)
	}
	return nil
}

func (c *yzmaContext) ClearKV() error {
	mem, err := llama.GetMemory(c.ctx)
	if err != nil {
		return err
	}
	return llama.MemoryClear(mem, true)
}

func (c *yzmaContext) NewSampler(p SamplerParams) (Sampler, error) {
	chain := llama.SamplerChainInit(llama.SamplerChainDefaultParams())
	if chain == 0 {
		return nil, fmt.Errorf("llama_sampler_chain_init failed")
	}
	for _, st := range p.Stages() {
		switch st {
		case StageTopK:
			llama.SamplerChainAdd(chain, llama.SamplerInitTopK(int32(p.TopK)))
		case StageTopP:
			llama.SamplerChainAdd(chain, llama.SamplerInitTopP(p.TopP, 1))
		case StageTemperature:
			llama.SamplerChainAdd(chain, llama.SamplerInitTempExt(p.Temperature, 0, 1))
		}
	}
	seed := p.Seed
	if seed == 0 {
		seed = llama.DefaultSeed
	}
	llama.SamplerChainAdd(chain, llama.SamplerInitDist(seed))
	return &yzmaSampler{s: chain, ctx: c.ctx}, nil
}

func (c *yzmaContext) Close() error {
	llama.Free(c.ctx)
	return nil
}

type yzmaSampler struct {
	s   llama.Sampler
	ctx llama.Context
}

func (s *yzmaSampler) Sample() Token { return Token(llama.SamplerSample(s.s, s.ctx, -1)) }

func (s *yzmaSampler) Close() { llama.SamplerFree(s.s) }

func boolByte(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
