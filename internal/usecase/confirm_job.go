package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/runoshun/swarm-factory/internal/domain"
	"github.com/runoshun/swarm-factory/internal/usecase/shared"
)

// ConfirmJobInput contains the parameters for confirming a pending job.
// Exactly one of Ref or Last selects the job.
type ConfirmJobInput struct {
	Ref     string // Job ID or short code
	Message string // Commit message override
	Last    bool   // Select the most recently created pending job
}

// ConfirmJobOutput contains the result of confirming a pending job.
// Fields are ordered to minimize memory padding.
type ConfirmJobOutput struct {
	Job         *domain.Job         `json:"job"`
	Channel     *domain.ChannelInfo `json:"channel,omitempty"`
	RunPath     string              `json:"runPath"`
	PendingPath string              `json:"deletedPending"`
	NotifyError string              `json:"notifyError,omitempty"`
}

// ConfirmJob is the use case for promoting a pending job to a run.
type ConfirmJob struct {
	store    domain.ArtifactStore
	writer   *shared.RetryPolicy
	notifier domain.Notifier
	clock    domain.Clock
	logger   domain.Logger
}

// NewConfirmJob creates a new ConfirmJob use case.
// notifier and logger may be nil.
func NewConfirmJob(
	store domain.ArtifactStore,
	writer *shared.RetryPolicy,
	notifier domain.Notifier,
	clock domain.Clock,
	logger domain.Logger,
) *ConfirmJob {
	return &ConfirmJob{
		store:    store,
		writer:   writer,
		notifier: notifier,
		clock:    clock,
		logger:   logger,
	}
}

// Execute writes the run record, deletes the pending record and asks the
// notifier for a run channel. A notifier failure is reported, not returned.
func (uc *ConfirmJob) Execute(ctx context.Context, in ConfirmJobInput) (*ConfirmJobOutput, error) {
	if err := uc.writer.Prepare(ctx); err != nil {
		return nil, err
	}
	job, err := uc.selectPending(ctx, in)
	if err != nil {
		return nil, err
	}

	job.Confirm(uc.clock.Now())

	msg := in.Message
	if msg == "" {
		msg = fmt.Sprintf("run: %s confirmed", job.DisplayCode())
	}
	runPath := domain.RunPath(job.JobID)
	pendingPath := domain.PendingPath(job.JobID)

	if err := uc.saveRun(ctx, job, msg); err != nil {
		return nil, err
	}
	if err := uc.writer.Delete(ctx, pendingPath, msg); err != nil {
		return nil, fmt.Errorf("delete pending job: %w", err)
	}
	uc.log(job.JobID, fmt.Sprintf("confirmed %s", job.DisplayCode()))

	out := &ConfirmJobOutput{Job: job, RunPath: runPath, PendingPath: pendingPath}
	if uc.notifier == nil {
		return out, nil
	}

	ch, err := uc.notifier.CreateRunChannel(ctx, job)
	if err != nil {
		out.NotifyError = err.Error()
		if uc.logger != nil {
			uc.logger.Warn(job.JobID, "notify", fmt.Sprintf("create run channel: %v", err))
		}
		return out, nil
	}
	if ch == nil {
		return out, nil
	}

	job.Channel = ch
	job.Record(uc.clock.Now().UTC(), domain.EventChannelCreated, map[string]any{
		"channelId": ch.ChannelID,
		"name":      ch.Name,
	})
	if err := uc.saveRun(ctx, job, fmt.Sprintf("run: persist channel for %s", job.DisplayCode())); err != nil {
		out.NotifyError = fmt.Sprintf("persist channel: %v", err)
		return out, nil
	}
	out.Channel = ch
	return out, nil
}

func (uc *ConfirmJob) saveRun(ctx context.Context, job *domain.Job, msg string) error {
	data, err := shared.EncodeJSON(job)
	if err != nil {
		return err
	}
	if err := uc.writer.Put(ctx, domain.RunPath(job.JobID), data, msg); err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	return nil
}

func (uc *ConfirmJob) selectPending(ctx context.Context, in ConfirmJobInput) (*domain.Job, error) {
	ref := strings.TrimSpace(in.Ref)
	if ref == "" && !in.Last {
		return nil, &domain.ValidationError{Field: "job", Err: domain.ErrMissingSelector}
	}

	if ref != "" {
		job, err := shared.GetPending(ctx, uc.store, ref)
		if err == nil {
			return job, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
	}

	records, _, err := shared.ListRecords(ctx, uc.store, domain.PendingDir)
	if err != nil {
		return nil, fmt.Errorf("list pending jobs: %w", err)
	}
	if len(records) == 0 {
		return nil, domain.ErrNoPendingJobs
	}

	var found *domain.Job
	for _, r := range records {
		if ref != "" && !r.Job.MatchesCode(ref) {
			continue
		}
		if found == nil || r.Job.CreatedAt.After(found.CreatedAt) {
			found = r.Job
		}
	}
	if found == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrPendingNotFound, ref)
	}
	return found, nil
}

func (uc *ConfirmJob) log(jobID, msg string) {
	if uc.logger != nil {
		uc.logger.Info(jobID, "confirm", msg)
	}
}
