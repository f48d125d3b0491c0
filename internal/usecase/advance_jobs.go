package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/runoshun/swarm-factory/internal/domain"
	"github.com/runoshun/swarm-factory/internal/usecase/shared"
)

// AdvanceJobsInput contains the parameters for a batch advance.
type AdvanceJobsInput struct {
	JobIDs   []string // Runs to advance
	MaxSteps int      // Per-job step bound; 0 uses the configured value
	All      bool     // Advance every run in the store
}

// Advance outcome statuses.
const (
	AdvanceUpdated = "updated"
	AdvanceSkipped = "skipped"
	AdvanceMissing = "missing"
	AdvanceFlagged = "flagged" // Diagnostic recorded, phase unchanged
)

// AdvanceResult reports what happened to one job.
type AdvanceResult struct {
	JobID  string       `json:"jobId"`
	Code   string       `json:"code,omitempty"`
	From   domain.Phase `json:"from,omitempty"`
	To     domain.Phase `json:"to,omitempty"`
	Status string       `json:"status"`
	Steps  int          `json:"steps"`
}

// AdvanceJobsOutput contains the result of a batch advance.
type AdvanceJobsOutput struct {
	Results []AdvanceResult `json:"results"`
	Updated int             `json:"updated"`
	Skipped int             `json:"skipped"`
}

// AdvanceJobs is the batch runner: it drives the phase machine across runs
// and rewrites each job record once.
type AdvanceJobs struct {
	store    domain.ArtifactStore
	writer   *shared.RetryPolicy
	machine  *shared.PhaseMachine
	clock    domain.Clock
	logger   domain.Logger
	runner   string
	maxSteps int
}

// NewAdvanceJobs creates a new AdvanceJobs use case.
func NewAdvanceJobs(
	store domain.ArtifactStore,
	writer *shared.RetryPolicy,
	clock domain.Clock,
	logger domain.Logger,
	runner domain.RunnerConfig,
) *AdvanceJobs {
	maxSteps := runner.MaxSteps
	if maxSteps <= 0 {
		maxSteps = domain.DefaultMaxSteps
	}
	name := runner.Name
	if name == "" {
		name = domain.DefaultRunnerName
	}
	return &AdvanceJobs{
		store:    store,
		writer:   writer,
		machine:  shared.NewPhaseMachine(writer, clock),
		clock:    clock,
		logger:   logger,
		runner:   name,
		maxSteps: maxSteps,
	}
}

// Execute advances the selected runs.
// A write failure stops the batch; the failing job keeps the phases already written.
func (uc *AdvanceJobs) Execute(ctx context.Context, in AdvanceJobsInput) (*AdvanceJobsOutput, error) {
	if len(in.JobIDs) == 0 && !in.All {
		return nil, &domain.ValidationError{Field: "jobId", Err: domain.ErrMissingSelector}
	}
	if err := uc.writer.Prepare(ctx); err != nil {
		return nil, err
	}

	ids := in.JobIDs
	if in.All {
		records, skipped, err := shared.ListRecords(ctx, uc.store, domain.RunsDir)
		if err != nil {
			return nil, fmt.Errorf("list runs: %w", err)
		}
		for _, s := range skipped {
			uc.warn("", "skip unreadable run "+s)
		}
		ids = ids[:0:0]
		for _, r := range records {
			ids = append(ids, r.Job.JobID)
		}
	}

	maxSteps := in.MaxSteps
	if maxSteps <= 0 {
		maxSteps = uc.maxSteps
	}

	out := &AdvanceJobsOutput{Results: []AdvanceResult{}}
	for _, id := range ids {
		res, err := uc.advance(ctx, id, maxSteps)
		if err != nil {
			return out, err
		}
		out.Results = append(out.Results, res)
		switch res.Status {
		case AdvanceUpdated, AdvanceFlagged:
			out.Updated++
		default:
			out.Skipped++
		}
	}
	return out, nil
}

func (uc *AdvanceJobs) advance(ctx context.Context, jobID string, maxSteps int) (AdvanceResult, error) {
	job, err := shared.GetRun(ctx, uc.store, jobID)
	if errors.Is(err, domain.ErrNotFound) {
		uc.warn(jobID, "skip (missing): "+domain.RunPath(jobID))
		return AdvanceResult{JobID: jobID, Status: AdvanceMissing}, nil
	}
	if err != nil {
		return AdvanceResult{}, err
	}

	res := AdvanceResult{JobID: job.JobID, Code: job.Code, From: job.Phase}
	uc.markStarted(job)

	run, runErr := uc.machine.Run(ctx, job, maxSteps)
	res.Steps = run.Steps
	res.To = job.Phase

	if run.Steps == 0 && !run.Diagnose {
		if runErr != nil {
			return res, fmt.Errorf("advance %s: %w", jobID, runErr)
		}
		res.Status = AdvanceSkipped
		uc.info(jobID, fmt.Sprintf("skip (no phase change): phase=%s", job.Phase))
		return res, nil
	}

	res.Status = AdvanceUpdated
	if run.Steps == 0 {
		res.Status = AdvanceFlagged
		uc.warn(jobID, fmt.Sprintf("unknown phase %q left for manual inspection", job.Phase))
	}
	if err := uc.save(ctx, job); err != nil {
		return res, err
	}
	if runErr != nil {
		return res, fmt.Errorf("advance %s: %w", jobID, runErr)
	}
	uc.info(jobID, fmt.Sprintf("updated: %s -> %s in %d step(s)", res.From, res.To, res.Steps))
	return res, nil
}

func (uc *AdvanceJobs) markStarted(job *domain.Job) {
	if job.Swarm == nil {
		job.Swarm = &domain.SwarmInfo{}
	}
	if job.Swarm.StartedAt != nil {
		return
	}
	now := uc.clock.Now().UTC()
	job.Swarm.StartedAt = &now
	job.Swarm.Runner = uc.runner
	job.Record(now, domain.EventSwarmStarted, map[string]any{"runner": uc.runner})
}

func (uc *AdvanceJobs) save(ctx context.Context, job *domain.Job) error {
	data, err := shared.EncodeJSON(job)
	if err != nil {
		return err
	}
	msg := fmt.Sprintf("run: %s advanced to %s", job.DisplayCode(), job.Phase)
	if err := uc.writer.Put(ctx, domain.RunPath(job.JobID), data, msg); err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	return nil
}

func (uc *AdvanceJobs) info(jobID, msg string) {
	if uc.logger != nil {
		uc.logger.Info(jobID, "runner", msg)
	}
}

func (uc *AdvanceJobs) warn(jobID, msg string) {
	if uc.logger != nil {
		uc.logger.Warn(jobID, "runner", msg)
	}
}
