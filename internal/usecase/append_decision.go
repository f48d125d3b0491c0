package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/runoshun/swarm-factory/internal/domain"
	"github.com/runoshun/swarm-factory/internal/usecase/shared"
)

// AppendDecisionInput contains the parameters for recording a decision.
type AppendDecisionInput struct {
	Fields domain.DecisionFields
	JobID  string                // Owning run (required)
	Action domain.DecisionAction // SET_PHASE, ASSIGN_AGENT, or a future tag
}

// AppendDecisionOutput contains the written decision.
type AppendDecisionOutput struct {
	Decision *domain.Decision `json:"decision"`
	Path     string           `json:"file"`
}

// AppendDecision is the use case for appending to a job's decision log.
// The job record itself is never rewritten.
type AppendDecision struct {
	store  domain.ArtifactStore
	writer *shared.RetryPolicy
	clock  domain.Clock
	logger domain.Logger
}

// NewAppendDecision creates a new AppendDecision use case.
func NewAppendDecision(store domain.ArtifactStore, writer *shared.RetryPolicy, clock domain.Clock, logger domain.Logger) *AppendDecision {
	return &AppendDecision{
		store:  store,
		writer: writer,
		clock:  clock,
		logger: logger,
	}
}

// Execute validates the decision, checks the run exists and writes a new decision file.
// Decision files are never overwritten: a taken path moves the decision one millisecond later.
func (uc *AppendDecision) Execute(ctx context.Context, in AppendDecisionInput) (*AppendDecisionOutput, error) {
	d, err := domain.NewDecision(in.JobID, in.Action, in.Fields, uc.clock.Now())
	if err != nil {
		return nil, err
	}
	if _, err := shared.GetRun(ctx, uc.store, d.JobID); err != nil {
		return nil, err
	}

	msg := fmt.Sprintf("decision: %s %s", d.Action, d.JobID)
	at, p, err := uc.writer.CreateAt(ctx, d.CreatedAt, func(at time.Time) (string, []byte, error) {
		d.CreatedAt = at
		data, err := shared.EncodeJSON(d)
		return domain.DecisionPath(d.JobID, at), data, err
	}, msg)
	if err != nil {
		return nil, fmt.Errorf("save decision: %w", err)
	}
	d.CreatedAt = at
	d.Path = p

	if uc.logger != nil {
		uc.logger.Info(d.JobID, "decision", fmt.Sprintf("%s -> %s", d.Action, d.Path))
	}
	return &AppendDecisionOutput{Decision: d, Path: d.Path}, nil
}
