package session

import (
	"context"
	"strings"
	"time"

	"lmrun/internal/engine"
	"lmrun/internal/errs"
	"lmrun/internal/metrics"
)

// Finish reasons reported in Result.
const (
	FinishStop        = "stop"
	FinishLength      = "length"
	FinishDecodeError = "decode_error"
	FinishCanceled    = "canceled"
	FinishCallback    = "callback_error"
)

// Result summarizes one generate call.
type Result struct {
	Text             string
	PromptTokens     int
	CompletionTokens int
	FinishReason     string
	Duration         time.Duration
}

// TokensPerSecond is the completion throughput of r.
func (r Result) TokensPerSecond() float64 {
	if r.Duration <= 0 {
		return 0
	}
	return float64(r.CompletionTokens) / r.Duration.Seconds()
}

// Generate runs GenerateStream without a callback.
func (s *Session) Generate(ctx context.Context, prompt string, maxTokens int) (Result, error) {
	return s.GenerateStream(ctx, prompt, maxTokens, nil)
}

// GenerateStream produces at most maxTokens tokens continuing prompt. The KV
// cache is cleared first, so every call starts from an empty sequence.
//
// Failures while ingesting the prompt return no text. Once sampling has
// started, a failing decode ends generation and the text so far is returned
// without error. Cancellation of ctx and callback errors also stop
// generation; the partial text is returned alongside the error.
func (s *Session) GenerateStream(ctx context.Context, prompt string, maxTokens int, onPiece func(string) error) (Result, error) {
	if s.state != StateReady {
		return Result{}, errs.NotInitialized("no model loaded")
	}
	if prompt == "" {
		return Result{}, errs.InvalidArgument("prompt must not be empty")
	}
	if maxTokens <= 0 || maxTokens > MaxTokensLimit {
		return Result{}, errs.InvalidArgument("max_tokens must be in 1..%d, got %d", MaxTokensLimit, maxTokens)
	}

	s.state = StateGenerating
	defer func() {
		if s.state == StateGenerating {
			s.state = StateReady
		}
	}()
	start := time.Now()

	tokens, err := s.model.Tokenize(prompt, true, true)
	if err != nil {
		return Result{}, errs.TokenizeError(err)
	}

	if err := s.lctx.ClearKV(); err != nil {
		return Result{}, errs.DecodeError(err, "reset kv cache")
	}
	s.kvDirty = true
	for i, chunk := range chunkTokens(tokens, PromptChunk) {
		if err := s.lctx.Decode(chunk); err != nil {
			return Result{}, errs.DecodeError(err, "decode prompt chunk %d", i)
		}
	}

	sampler, err := s.lctx.NewSampler(engine.SamplerParams{
		Chain:       engine.DefaultChain,
		Temperature: s.sampling.Temperature,
		TopP:        s.sampling.TopP,
		TopK:        s.sampling.TopK,
		Seed:        s.sampling.Seed,
	})
	if err != nil {
		return Result{}, errs.DecodeError(err, "create sampler")
	}
	defer sampler.Close()

	var (
		out    strings.Builder
		n      int
		finish = FinishLength
		retErr error
	)
	for n < maxTokens {
		if err := ctx.Err(); err != nil {
			finish, retErr = FinishCanceled, err
			break
		}
		tok := sampler.Sample()
		if s.model.IsEOG(tok) {
			finish = FinishStop
			break
		}
		piece := s.model.TokenToPiece(tok)
		out.WriteString(piece)
		n++
		if onPiece != nil {
			if err := onPiece(piece); err != nil {
				finish, retErr = FinishCallback, err
				break
			}
		}
		if err := s.lctx.Decode([]engine.Token{tok}); err != nil {
			s.log.Warn().Str("event", "decode_failed").Int("token", n).Err(err).Msg("stopping generation early")
			finish = FinishDecodeError
			break
		}
	}

	res := Result{
		Text:             out.String(),
		PromptTokens:     len(tokens),
		CompletionTokens: n,
		FinishReason:     finish,
		Duration:         time.Since(start),
	}
	s.last = res
	metrics.ObserveGeneration(finish, res.PromptTokens, res.CompletionTokens, res.Duration)
	s.log.Debug().
		Str("event", "generate_done").
		Int("prompt_tokens", res.PromptTokens).
		Int("completion_tokens", n).
		Str("finish", finish).
		Dur("dur", res.Duration).
		Msg("generation finished")
	return res, retErr
}

// chunkTokens splits tokens into consecutive slices of at most size.
func chunkTokens(tokens []engine.Token, size int) [][]engine.Token {
	if size < 1 {
		size = 1
	}
	chunks := make([][]engine.Token, 0, (len(tokens)+size-1)/size)
	for i := 0; i < len(tokens); i += size {
		end := i + size
		if end > len(tokens) {
			end = len(tokens)
		}
		chunks = append(chunks, tokens[i:end])
	}
	return chunks
}
