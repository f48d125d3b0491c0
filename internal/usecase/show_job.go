package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/runoshun/swarm-factory/internal/domain"
	"github.com/runoshun/swarm-factory/internal/usecase/shared"
)

// ShowJobInput contains the parameters for showing a job.
type ShowJobInput struct {
	JobID string // Job ID (required)
}

// ShowJobOutput contains the job details.
// Fields are ordered to minimize memory padding.
type ShowJobOutput struct {
	View      *domain.EffectiveView    `json:"view"`
	Decisions []*domain.Decision       `json:"decisions"`
	Markers   []*domain.DispatchMarker `json:"dispatch"`
	Lane      domain.Lane              `json:"lane"`
	Pending   bool                     `json:"pending"`
}

// ShowJob is the use case for displaying one job with its decisions and dispatch markers.
type ShowJob struct {
	store  domain.ArtifactStore
	logger domain.Logger
}

// NewShowJob creates a new ShowJob use case.
func NewShowJob(store domain.ArtifactStore, logger domain.Logger) *ShowJob {
	return &ShowJob{
		store:  store,
		logger: logger,
	}
}

// Execute looks the job up among runs first, then pending jobs.
func (uc *ShowJob) Execute(ctx context.Context, in ShowJobInput) (*ShowJobOutput, error) {
	if in.JobID == "" {
		return nil, &domain.ValidationError{Field: "jobId", Err: domain.ErrEmptyJobID}
	}

	job, err := shared.GetRun(ctx, uc.store, in.JobID)
	if errors.Is(err, domain.ErrNotFound) {
		pending, perr := shared.GetPending(ctx, uc.store, in.JobID)
		if perr != nil {
			if errors.Is(perr, domain.ErrNotFound) {
				return nil, err
			}
			return nil, perr
		}
		view := domain.Resolve(pending, nil)
		return &ShowJobOutput{
			View:      view,
			Decisions: []*domain.Decision{},
			Markers:   []*domain.DispatchMarker{},
			Lane:      view.Lane(),
			Pending:   true,
		}, nil
	}
	if err != nil {
		return nil, err
	}

	view, decisions := resolveJob(ctx, uc.store, uc.logger, job)
	if decisions == nil {
		decisions = []*domain.Decision{}
	}
	markers, err := readMarkers(ctx, uc.store, job.JobID)
	if err != nil {
		return nil, fmt.Errorf("read dispatch markers: %w", err)
	}

	return &ShowJobOutput{
		View:      view,
		Decisions: decisions,
		Markers:   markers,
		Lane:      view.Lane(),
	}, nil
}
