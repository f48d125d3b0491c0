// Package shared provides shared utilities for use cases.
package shared

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/runoshun/swarm-factory/internal/domain"
)

// Syncer refreshes the local view of the shared history.
type Syncer interface {
	Sync(ctx context.Context) error
}

// RetryPolicy wraps store mutations with optimistic-concurrency handling.
// A conflicting write is retried exactly once after a resync; a second conflict
// is returned as ErrRetryExhausted. Fatal results are never retried.
// A policy covers one batch of writes and is not safe for concurrent use.
// Fields are ordered to minimize memory padding.
type RetryPolicy struct {
	store     domain.ArtifactStore
	syncer    Syncer
	logger    domain.Logger
	PullFirst bool // Sync once before the first write of a batch
	prepared  bool
}

// NewRetryPolicy creates a RetryPolicy writing to store.
// logger may be nil.
func NewRetryPolicy(store domain.ArtifactStore, logger domain.Logger, pullFirst bool) *RetryPolicy {
	return &RetryPolicy{
		store:     store,
		syncer:    store,
		logger:    logger,
		PullFirst: pullFirst,
	}
}

// Prepare syncs before a batch of writes when PullFirst is set.
// Only the first call per policy syncs.
func (p *RetryPolicy) Prepare(ctx context.Context) error {
	if !p.PullFirst || p.prepared {
		return nil
	}
	if err := p.syncer.Sync(ctx); err != nil {
		return fmt.Errorf("pull latest: %w", err)
	}
	p.prepared = true
	return nil
}

// Do runs op and applies the retry policy to its result.
func (p *RetryPolicy) Do(ctx context.Context, what string, op func(ctx context.Context) domain.CommitResult) error {
	if err := p.Prepare(ctx); err != nil {
		return err
	}

	res := op(ctx)
	switch res.Status {
	case domain.CommitOK:
		return nil
	case domain.CommitFatal:
		return fmt.Errorf("%s: %w", what, res.AsError())
	}

	p.log("warn", fmt.Sprintf("%s: conflict, resyncing: %v", what, res.Err))
	if err := p.syncer.Sync(ctx); err != nil {
		return fmt.Errorf("%s: resync after conflict: %w", what, err)
	}

	res = op(ctx)
	switch res.Status {
	case domain.CommitOK:
		p.log("info", what+": retry succeeded")
		return nil
	case domain.CommitConflict:
		return fmt.Errorf("%s: %w: %w", what, domain.ErrRetryExhausted, res.AsError())
	default:
		return fmt.Errorf("%s: %w", what, res.AsError())
	}
}

// Put writes data at path under the policy.
func (p *RetryPolicy) Put(ctx context.Context, path string, data []byte, message string) error {
	return p.Do(ctx, "write "+path, func(ctx context.Context) domain.CommitResult {
		return p.store.Put(ctx, path, data, message)
	})
}

// Create writes data at a new path under the policy. It fails with
// ErrArtifactExists when path is taken.
func (p *RetryPolicy) Create(ctx context.Context, path string, data []byte, message string) error {
	return p.Do(ctx, "create "+path, func(ctx context.Context) domain.CommitResult {
		return p.store.Create(ctx, path, data, message)
	})
}

// MaxCreateAttempts bounds how far CreateAt moves a timestamp forward.
const MaxCreateAttempts = 1000

// CreateAt writes a new record whose path and content derive from a timestamp.
// While the path is taken the timestamp moves forward by one millisecond, so
// lexical path order keeps following time. It returns the timestamp used.
func (p *RetryPolicy) CreateAt(
	ctx context.Context,
	at time.Time,
	build func(at time.Time) (path string, data []byte, err error),
	message string,
) (time.Time, string, error) {
	for range MaxCreateAttempts {
		path, data, err := build(at)
		if err != nil {
			return at, "", err
		}
		err = p.Create(ctx, path, data, message)
		if err == nil {
			return at, path, nil
		}
		if !errors.Is(err, domain.ErrArtifactExists) {
			return at, "", err
		}
		at = at.Add(time.Millisecond)
	}
	return at, "", fmt.Errorf("no free path after %d attempts: %w", MaxCreateAttempts, domain.ErrArtifactExists)
}

// Delete removes path under the policy.
func (p *RetryPolicy) Delete(ctx context.Context, path, message string) error {
	return p.Do(ctx, "delete "+path, func(ctx context.Context) domain.CommitResult {
		return p.store.Delete(ctx, path, message)
	})
}

func (p *RetryPolicy) log(level, msg string) {
	if p.logger == nil {
		return
	}
	switch level {
	case "warn":
		p.logger.Warn("", "store", msg)
	default:
		p.logger.Info("", "store", msg)
	}
}
