package domain

import (
	"errors"
	"fmt"
)

// CommitStatus classifies the outcome of a store mutation.
type CommitStatus int

// Commit outcomes.
const (
	CommitOK       CommitStatus = iota // Written and visible to other writers
	CommitConflict                     // Shared history moved; resync and try again
	CommitFatal                        // Anything else
)

// String returns the status name.
func (s CommitStatus) String() string {
	switch s {
	case CommitOK:
		return "ok"
	case CommitConflict:
		return "conflict"
	case CommitFatal:
		return "fatal"
	default:
		return fmt.Sprintf("CommitStatus(%d)", int(s))
	}
}

// CommitResult is the explicit outcome of a store mutation.
type CommitResult struct {
	Err    error
	Status CommitStatus
}

// Committed returns a successful result.
func Committed() CommitResult {
	return CommitResult{Status: CommitOK}
}

// Conflicted returns a conflict result with the backend's detail.
func Conflicted(err error) CommitResult {
	return CommitResult{Status: CommitConflict, Err: err}
}

// Failed returns a fatal result.
func Failed(err error) CommitResult {
	return CommitResult{Status: CommitFatal, Err: err}
}

// OK reports whether the write succeeded.
func (r CommitResult) OK() bool {
	return r.Status == CommitOK
}

// AsError converts the result into an error. Conflicts match ErrStoreConflict.
func (r CommitResult) AsError() error {
	switch r.Status {
	case CommitOK:
		return nil
	case CommitConflict:
		if r.Err == nil {
			return ErrStoreConflict
		}
		if errors.Is(r.Err, ErrStoreConflict) {
			return r.Err
		}
		return fmt.Errorf("%w: %w", ErrStoreConflict, r.Err)
	default:
		if r.Err == nil {
			return errors.New("store write failed")
		}
		return r.Err
	}
}
