package manager

import (
	"context"

	"lmrun/internal/errs"
	"lmrun/internal/session"
)

// Generate ensures req.Model (when set), then runs one generation.
// req.MaxTokens must be in 1..session.MaxTokensLimit; callers apply their
// own default. onPiece,
// if non-nil, receives each piece as it is produced; returning an error
// stops generation.
func (m *Manager) Generate(ctx context.Context, req GenerateRequest, onPiece func(string) error) (session.Result, error) {
	if req.MaxTokens < 1 || req.MaxTokens > session.MaxTokensLimit {
		return session.Result{}, errs.InvalidArgument("max_tokens must be in 1..%d, got %d", session.MaxTokensLimit, req.MaxTokens)
	}
	if req.Model != "" {
		if err := m.EnsureModel(ctx, req.Model); err != nil {
			return session.Result{}, err
		}
	}

	release, err := m.beginGeneration(ctx)
	if err != nil {
		return session.Result{}, err
	}
	defer release()
	if m.sess.State() != session.StateReady {
		return session.Result{}, errs.NotInitialized("no model loaded")
	}

	var modelID string
	m.mu.Lock()
	m.state = StateGenerating
	if m.cur != nil {
		modelID = m.cur.ID
	}
	m.mu.Unlock()
	m.publish("generate_start", modelID, map[string]any{"max_tokens": req.MaxTokens})

	res, genErr := m.sess.GenerateStream(ctx, req.Prompt, req.MaxTokens, onPiece)

	m.mu.Lock()
	m.state = StateReady
	if res.CompletionTokens > 0 {
		m.lastTPS = res.TokensPerSecond()
	}
	m.mu.Unlock()
	fields := map[string]any{
		"finish_reason":     res.FinishReason,
		"prompt_tokens":     res.PromptTokens,
		"completion_tokens": res.CompletionTokens,
	}
	if genErr != nil {
		fields["error"] = genErr.Error()
	}
	m.publish("generate_done", modelID, fields)
	return res, genErr
}
