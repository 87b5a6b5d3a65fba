package app

import (
	"errors"
	"fmt"
)

// ErrNoContent marks a post whose body is empty after boilerplate
// stripping, leaving nothing to narrate.
var ErrNoContent = errors.New("post has no narratable content")

// StageError wraps a failure with the pipeline stage it happened in, so
// task records and logs name the failing step.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

func stageErr(stage string, err error) *StageError {
	return &StageError{Stage: stage, Err: err}
}
