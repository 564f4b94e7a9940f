package locator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"

	"lmrun/internal/errs"
)

// RegistryClient talks to the external model registry tool.
type RegistryClient interface {
	// Has reports whether the registry already lists id.
	Has(ctx context.Context, id string) (bool, error)
	// Pull downloads id into the registry directory.
	Pull(ctx context.Context, id string) error
}

// Default scripts for the ollama CLI. The identifier is passed as $1.
const (
	DefaultListScript = `ollama list | grep -q -F -- "$1"`
	DefaultPullScript = `ollama pull "$1"`
)

// ShellRegistry runs small shell scripts through an in-process POSIX shell
// interpreter. Only the exit status is inspected.
type ShellRegistry struct {
	ListScript string
	PullScript string
	// Stdout and Stderr receive the scripts' output; nil discards it.
	Stdout io.Writer
	Stderr io.Writer
}

// NewShellRegistry returns a ShellRegistry using the ollama defaults for
// any empty script.
func NewShellRegistry(listScript, pullScript string) *ShellRegistry {
	if strings.TrimSpace(listScript) == "" {
		listScript = DefaultListScript
	}
	if strings.TrimSpace(pullScript) == "" {
		pullScript = DefaultPullScript
	}
	return &ShellRegistry{ListScript: listScript, PullScript: pullScript}
}

func (r *ShellRegistry) Has(ctx context.Context, id string) (bool, error) {
	status, err := r.run(ctx, "list", r.ListScript, id, io.Discard)
	if err != nil {
		return false, err
	}
	return status == 0, nil
}

func (r *ShellRegistry) Pull(ctx context.Context, id string) error {
	status, err := r.run(ctx, "pull", r.PullScript, id, r.Stdout)
	if err != nil {
		return err
	}
	if status != 0 {
		return errs.FetchFailed(toolName(r.PullScript), status, nil)
	}
	return nil
}

// run executes script with id as $1 and returns its exit status. Errors
// other than a non-zero exit (parse failures, cancellation) are returned.
func (r *ShellRegistry) run(ctx context.Context, name, script, id string, stdout io.Writer) (int, error) {
	file, err := syntax.NewParser().Parse(strings.NewReader(script), name)
	if err != nil {
		return 0, fmt.Errorf("parse %s script: %w", name, err)
	}
	if stdout == nil {
		stdout = io.Discard
	}
	stderr := r.Stderr
	if stderr == nil {
		stderr = io.Discard
	}
	runner, err := interp.New(
		interp.Params("--", id),
		interp.StdIO(nil, stdout, stderr),
	)
	if err != nil {
		return 0, fmt.Errorf("%s script: %w", name, err)
	}
	err = runner.Run(ctx, file)
	if err == nil {
		return 0, nil
	}
	var status interp.ExitStatus
	if errors.As(err, &status) {
		return int(status), nil
	}
	return 0, fmt.Errorf("%s script: %w", name, err)
}

// toolName is the first word of script, used to label failures.
func toolName(script string) string {
	fields := strings.Fields(script)
	if len(fields) == 0 {
		return "registry tool"
	}
	if len(fields) > 1 && !strings.HasPrefix(fields[1], "-") && !strings.ContainsAny(fields[1], `"$'`) {
		return fields[0] + " " + fields[1]
	}
	return fields[0]
}
