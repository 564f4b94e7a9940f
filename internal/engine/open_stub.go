//go:build !yzma

package engine

// This file is compiled when the 'yzma' build tag is NOT set, keeping default
// builds free of native libraries. The real backend lives in yzma.go.

import (
	"lmrun/internal/errs"
)

// Options configures backend initialisation.
type Options struct {
	// LibPath is the directory holding the llama.cpp shared libraries.
	LibPath string
}

// Open fails fast: no inference backend is available in this build.
func Open(Options) (Engine, error) {
	return nil, errs.DependencyUnavailable("inference engine not built (missing 'yzma' build tag)")
}

// Devices lists backend devices; the stub knows none.
func Devices() []string { return nil }
