package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/qobs-build/sm/internal/builder/gen"
)

// Result is the outcome of one finished process. A non-zero exit code is a
// Result, not an error.
type Result struct {
	ExitCode int
	Stdout   []byte
	Stderr   []byte
	Duration time.Duration
}

// Runner spawns an invocation and blocks until it exits. It returns an error
// only when the process could not be started.
type Runner interface {
	Run(ctx context.Context, inv gen.Invocation) (Result, error)
}

// ExecRunner runs invocations as child processes in Dir
type ExecRunner struct {
	Dir string
	// Env is the child environment; nil inherits the current one
	Env []string
}

// Run ignores ctx once the process is spawned: a started stage always runs
// to its natural end.
func (r ExecRunner) Run(_ context.Context, inv gen.Invocation) (Result, error) {
	cmd := exec.Command(inv.Program, inv.Args...)
	cmd.Dir = r.Dir
	cmd.Env = r.Env

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	res := Result{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		Duration: time.Since(start),
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			return res, nil
		}
		return res, fmt.Errorf("failed to start %s: %w", inv.Program, err)
	}
	return res, nil
}
