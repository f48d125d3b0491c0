package usecase

import (
	"context"
	"fmt"

	"github.com/runoshun/swarm-factory/internal/domain"
	"github.com/runoshun/swarm-factory/internal/usecase/shared"
)

// ResolveEffectiveInput contains the parameters for resolving a job.
type ResolveEffectiveInput struct {
	JobID string
}

// ResolveEffectiveOutput contains the effective view of a job.
type ResolveEffectiveOutput struct {
	View *domain.EffectiveView `json:"view"`
}

// ResolveEffective is the use case for folding a job's decision log over its record.
type ResolveEffective struct {
	store  domain.ArtifactStore
	logger domain.Logger
}

// NewResolveEffective creates a new ResolveEffective use case.
func NewResolveEffective(store domain.ArtifactStore, logger domain.Logger) *ResolveEffective {
	return &ResolveEffective{
		store:  store,
		logger: logger,
	}
}

// Execute reads the run and its decisions and resolves them.
// A failure to read decisions degrades to the raw record and is logged.
func (uc *ResolveEffective) Execute(ctx context.Context, in ResolveEffectiveInput) (*ResolveEffectiveOutput, error) {
	if in.JobID == "" {
		return nil, &domain.ValidationError{Field: "jobId", Err: domain.ErrEmptyJobID}
	}
	job, err := shared.GetRun(ctx, uc.store, in.JobID)
	if err != nil {
		return nil, err
	}
	view, _ := resolveJob(ctx, uc.store, uc.logger, job)
	return &ResolveEffectiveOutput{View: view}, nil
}

// resolveJob resolves one job, degrading on decision read failure.
// The decisions are returned for callers that display them.
func resolveJob(ctx context.Context, store domain.ArtifactStore, logger domain.Logger, job *domain.Job) (*domain.EffectiveView, []*domain.Decision) {
	decisions, err := shared.ListDecisions(ctx, store, job.JobID, 0)
	if err != nil {
		if logger != nil {
			logger.Warn(job.JobID, "overlay", fmt.Sprintf("decisions unavailable, showing raw record: %v", err))
		}
		return domain.Degraded(job), nil
	}
	return domain.Resolve(job, decisions), decisions
}
