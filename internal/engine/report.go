package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var ErrAborted = errors.New("build aborted")

// Failure describes the invocation that aborted a build
type Failure struct {
	State    State  `json:"state"`
	Label    string `json:"label"`
	Command  string `json:"command"`
	ExitCode int    `json:"exit_code"`
	Stderr   string `json:"stderr,omitempty"`
	Error    string `json:"error,omitempty"`
	err      error
}

// Report summarizes one execution of a pipeline
type Report struct {
	ID       uuid.UUID `json:"id"`
	State    State     `json:"state"`
	History  []State   `json:"history"`
	Executed []string  `json:"executed"`
	Failed   *Failure  `json:"failed,omitempty"`
	Started  time.Time `json:"started"`
	Finished time.Time `json:"finished"`
}

func (r *Report) Succeeded() bool {
	return r.State == Completed
}

// AbortError is returned by Execute when the build ends in Aborted
type AbortError struct {
	Failure *Failure
}

func (e *AbortError) Error() string {
	f := e.Failure
	if f.err != nil {
		return fmt.Sprintf("%s: %s: %v", ErrAborted, f.Label, f.err)
	}
	return fmt.Sprintf("%s: %s failed with exit status %d", ErrAborted, f.Label, f.ExitCode)
}

func (e *AbortError) Unwrap() []error {
	if e.Failure.err != nil {
		return []error{ErrAborted, e.Failure.err}
	}
	return []error{ErrAborted}
}
