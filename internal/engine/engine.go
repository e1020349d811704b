// Package engine drives a build pipeline through its stages as a finite state
// machine, one process at a time.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/qobs-build/sm/internal/builder/gen"
	"github.com/qobs-build/sm/internal/msg"
)

type Engine struct {
	runner Runner
	w      io.Writer
}

func New(runner Runner, w io.Writer) *Engine {
	return &Engine{runner: runner, w: w}
}

// machine is the per-build execution context; it is never shared
type machine struct {
	runner   Runner
	w        io.Writer
	pipeline *gen.Pipeline
	state    State
	report   *Report
}

// Execute runs p to a terminal state. It returns the report together with an
// *AbortError when the build ends in Aborted.
func (e *Engine) Execute(ctx context.Context, p *gen.Pipeline) (*Report, error) {
	if p == nil {
		return nil, errors.New("nil pipeline")
	}

	m := &machine{
		runner:   e.runner,
		w:        e.w,
		pipeline: p,
		state:    Start,
		report: &Report{
			ID:       uuid.New(),
			History:  []State{Start},
			Executed: []string{},
			Started:  time.Now(),
		},
	}

	for !m.state.Terminal() {
		m.state = m.step(ctx)
		m.report.History = append(m.report.History, m.state)
	}

	m.report.State = m.state
	m.report.Finished = time.Now()

	if m.state == Aborted {
		msg.Errorw(m.w, "aborting due to previous error")
		return m.report, &AbortError{Failure: m.report.Failed}
	}

	msg.Status(m.w, "", "Finished", fmt.Sprintf("%s in %.2fs", p.Executable, m.report.Finished.Sub(m.report.Started).Seconds()))
	return m.report, nil
}

// step performs the work of the current state and returns the next one
func (m *machine) step(ctx context.Context) State {
	switch m.state {
	case Start:
		if len(m.pipeline.Compile) > 0 {
			return CompilingObjects
		}
		return PackagingLibrary

	case CompilingObjects:
		progress := msg.NewProgress(len(m.pipeline.Compile))
		for _, inv := range m.pipeline.Compile {
			if !m.run(ctx, progress.Next(), inv) {
				return Aborted
			}
		}
		return PackagingLibrary

	case PackagingLibrary:
		if !m.run(ctx, "", m.pipeline.Library) {
			return Aborted
		}
		return LinkingExecutable

	case LinkingExecutable:
		if !m.run(ctx, "", m.pipeline.Link) {
			return Aborted
		}
		return Completed
	}

	panic(fmt.Sprintf("engine: step called in state %s", m.state))
}

// run executes one invocation and reports whether it succeeded
func (m *machine) run(ctx context.Context, progress string, inv gen.Invocation) bool {
	if err := ctx.Err(); err != nil {
		m.fail(inv, Result{}, err)
		return false
	}

	msg.Status(m.w, progress, inv.Verb, inv.Subject)
	msg.Debugw(m.w, "%s", inv.String())

	res, err := m.runner.Run(ctx, inv)
	m.report.Executed = append(m.report.Executed, inv.String())
	if err != nil || res.ExitCode != 0 {
		m.fail(inv, res, err)
		return false
	}

	msg.Block(m.w, res.Stdout, nil)
	msg.Block(m.w, res.Stderr, color.YellowString)
	return true
}

func (m *machine) fail(inv gen.Invocation, res Result, err error) {
	f := &Failure{
		State:    m.state,
		Label:    inv.Label(),
		Command:  inv.String(),
		ExitCode: res.ExitCode,
		Stderr:   string(res.Stderr),
		err:      err,
	}
	if err != nil {
		f.Error = err.Error()
	}
	m.report.Failed = f

	if err != nil {
		msg.Errorw(m.w, "%s: %v", f.Label, err)
	} else {
		msg.Errorw(m.w, "%s failed with exit status %d", f.Label, f.ExitCode)
	}
	fmt.Fprintf(m.w, "  %s %s\n", color.HiBlackString("command:"), f.Command)
	msg.Block(m.w, res.Stdout, nil)
	msg.Block(m.w, res.Stderr, color.RedString)
}
