package domain

import (
	"errors"
	"fmt"
)

// Domain errors.
var (
	ErrValidation         = errors.New("validation failed")
	ErrNotFound           = errors.New("not found")
	ErrEmptyIdea          = errors.New("idea cannot be empty")
	ErrEmptyJobID         = errors.New("job id cannot be empty")
	ErrInvalidJobID       = errors.New("job id must not contain path separators or \"..\"")
	ErrMissingAction      = errors.New("decision action cannot be empty")
	ErrMissingAgent       = errors.New("missing agent for ASSIGN_AGENT")
	ErrInvalidAgent       = errors.New("invalid agent role")
	ErrMissingTargetPhase = errors.New("missing target phase for SET_PHASE")
	ErrInvalidPhase       = errors.New("invalid phase")
	ErrMissingSelector    = errors.New("missing job id, code, or --last")
	ErrJobNotFound        = fmt.Errorf("job %w", ErrNotFound)
	ErrPendingNotFound    = fmt.Errorf("pending job %w", ErrNotFound)
	ErrNoPendingJobs      = fmt.Errorf("no pending jobs exist: %w", ErrNotFound)
	ErrArtifactNotFound   = fmt.Errorf("artifact %w", ErrNotFound)
	ErrArtifactExists     = errors.New("artifact already exists")
	ErrStoreConflict      = errors.New("store conflict: remote has advanced")
	ErrRetryExhausted     = errors.New("store conflict persisted after retry")
	ErrNotInitialized     = errors.New("swarm store not initialized (run 'swarm init' first)")
	ErrConfigExists       = errors.New("config file already exists")
)

// ValidationError reports a rejected input field.
// It matches both ErrValidation and the specific cause with errors.Is.
type ValidationError struct {
	Err   error
	Field string
	Value string
}

func (e *ValidationError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("%s: %q", e.Err, e.Value)
	}
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() []error {
	return []error{ErrValidation, e.Err}
}

func invalid(field string, err error) error {
	return &ValidationError{Field: field, Err: err}
}
