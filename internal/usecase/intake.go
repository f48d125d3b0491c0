package usecase

import (
	"context"
	"fmt"

	"github.com/runoshun/swarm-factory/internal/domain"
	"github.com/runoshun/swarm-factory/internal/usecase/shared"
)

// IntakeInput contains the parameters for creating a pending job.
type IntakeInput struct {
	Idea      string // Free-text idea (required)
	Requester string // Who asked; defaults to "unknown"
}

// IntakeOutput contains the result of intake.
type IntakeOutput struct {
	Job  *domain.Job `json:"job"`
	Path string      `json:"path"`
}

// Intake is the use case for staging a new idea as a pending job.
type Intake struct {
	writer *shared.RetryPolicy
	ids    domain.IDGenerator
	clock  domain.Clock
	logger domain.Logger
}

// NewIntake creates a new Intake use case.
func NewIntake(writer *shared.RetryPolicy, ids domain.IDGenerator, clock domain.Clock, logger domain.Logger) *Intake {
	return &Intake{
		writer: writer,
		ids:    ids,
		clock:  clock,
		logger: logger,
	}
}

// Execute validates the idea and writes the pending job.
func (uc *Intake) Execute(ctx context.Context, in IntakeInput) (*IntakeOutput, error) {
	now := uc.clock.Now()
	job, err := domain.NewPendingJob(uc.ids.NewJobID(), "", in.Idea, in.Requester, now)
	if err != nil {
		return nil, err
	}
	job.Code = domain.ShortCode(job.Idea, uc.ids.NewSuffix())

	data, err := shared.EncodeJSON(job)
	if err != nil {
		return nil, err
	}
	p := domain.PendingPath(job.JobID)
	if err := uc.writer.Put(ctx, p, data, fmt.Sprintf("intake: %s", job.Code)); err != nil {
		return nil, fmt.Errorf("save pending job: %w", err)
	}

	if uc.logger != nil {
		uc.logger.Info(job.JobID, "intake", fmt.Sprintf("pending job %s created", job.Code))
	}
	return &IntakeOutput{Job: job, Path: p}, nil
}
