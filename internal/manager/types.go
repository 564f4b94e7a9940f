package manager

import (
	"time"

	"lmrun/internal/hardware"
)

// State represents the lifecycle state reported by the manager. It mirrors
// the session state plus draining.
type State string

const (
	StateUnloaded   State = "unloaded"
	StateLoading    State = "loading"
	StateReady      State = "ready"
	StateGenerating State = "generating"
	StateFailed     State = "failed"
	StateDraining   State = "draining"
)

// ModelInfo is a minimal view of the current model.
type ModelInfo struct {
	ID        string
	Path      string
	SizeBytes int64
	LoadedAt  time.Time
	// Hardware is the resolved config the model was loaded with.
	Hardware hardware.Config
}

// Snapshot is a read-only projection of the manager state.
type Snapshot struct {
	State        State
	CurrentModel *ModelInfo
	Err          string
}

// GenerateRequest is one generation call as the manager sees it.
type GenerateRequest struct {
	// Model, when set, is ensured before generating.
	Model     string
	Prompt    string
	// MaxTokens is required; zero is rejected.
	MaxTokens int
}
