package manager

import "lmrun/internal/engine"

// Unavailable returns an engine whose loads always fail with err. It lets
// the manager run (status, hardware, stats) when no backend could be opened.
func Unavailable(err error) engine.Engine { return unavailableEngine{err: err} }

type unavailableEngine struct{ err error }

func (unavailableEngine) Name() string { return "unavailable" }

func (u unavailableEngine) LoadModel(string, engine.ModelParams) (engine.Model, error) {
	return nil, u.err
}
