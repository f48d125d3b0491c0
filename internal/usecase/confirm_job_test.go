package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runoshun/swarm-factory/internal/domain"
)

// intake stages an idea through the Intake use case.
func (e *testEnv) intake(t *testing.T, idea string) *domain.Job {
	t.Helper()
	out, err := NewIntake(e.writer(), e.ids, e.clock, nil).Execute(context.Background(), IntakeInput{Idea: idea})
	require.NoError(t, err)
	return out.Job
}

func (e *testEnv) confirmUseCase() *ConfirmJob {
	return NewConfirmJob(e.store, e.writer(), e.notifier, e.clock, e.logger)
}

func TestConfirmJob_Execute_ByID(t *testing.T) {
	// Setup
	env := newTestEnv()
	pending := env.intake(t, "A CRM for dog groomers")
	writesBefore := len(env.store.Messages)

	// Execute
	out, err := env.confirmUseCase().Execute(context.Background(), ConfirmJobInput{Ref: pending.JobID})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, domain.RunPath(pending.JobID), out.RunPath)
	assert.Equal(t, domain.PendingPath(pending.JobID), out.PendingPath)
	assert.Equal(t, domain.PhaseCustomerDiscovery, out.Job.Phase)
	assert.Empty(t, out.NotifyError)
	require.NotNil(t, out.Channel)
	assert.Equal(t, "C1", out.Channel.ChannelID)

	assert.NotContains(t, env.store.Files, out.PendingPath)
	run := env.run(t, pending.JobID)
	assert.Equal(t, domain.PhaseCustomerDiscovery, run.Phase)
	assert.Equal(t, 1, run.CountEvents(domain.EventConfirmed))
	assert.Equal(t, 1, run.CountEvents(domain.EventPhaseSet))
	assert.Equal(t, 1, run.CountEvents(domain.EventChannelCreated))
	require.NotNil(t, run.Channel)
	assert.Equal(t, "C1", run.Channel.ChannelID)
	assert.Equal(t, []string{pending.JobID}, env.notifier.Calls)

	// Run is written before the pending record is removed
	msgs := env.store.Messages[writesBefore:]
	require.Len(t, msgs, 3)
	assert.Equal(t, "run: "+pending.Code+" confirmed", msgs[0])
	assert.Equal(t, msgs[0], msgs[1])
	assert.Contains(t, msgs[2], "persist channel")
}

func TestConfirmJob_Execute_ByCodeIgnoresCase(t *testing.T) {
	env := newTestEnv()
	env.intake(t, "first idea")
	second := env.intake(t, "second idea")

	out, err := env.confirmUseCase().Execute(context.Background(), ConfirmJobInput{Ref: strings.ToUpper(second.Code)})

	require.NoError(t, err)
	assert.Equal(t, second.JobID, out.Job.JobID)
}

func TestConfirmJob_Execute_Last(t *testing.T) {
	env := newTestEnv()
	env.intake(t, "older")
	newest := env.intake(t, "newer")

	out, err := env.confirmUseCase().Execute(context.Background(), ConfirmJobInput{Last: true})

	require.NoError(t, err)
	assert.Equal(t, newest.JobID, out.Job.JobID)
}

func TestConfirmJob_Execute_MessageOverride(t *testing.T) {
	env := newTestEnv()
	pending := env.intake(t, "idea")

	_, err := NewConfirmJob(env.store, env.writer(), nil, env.clock, nil).Execute(context.Background(), ConfirmJobInput{
		Ref:     pending.JobID,
		Message: "ship it",
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"ship it", "ship it"}, env.store.Messages[len(env.store.Messages)-2:])
}

func TestConfirmJob_Execute_NotifierFailureIsReported(t *testing.T) {
	// Setup
	env := newTestEnv()
	pending := env.intake(t, "idea")
	env.notifier.Err = errors.New("webhook returned 502")

	// Execute
	out, err := env.confirmUseCase().Execute(context.Background(), ConfirmJobInput{Ref: pending.JobID})

	// Assert
	require.NoError(t, err)
	assert.Contains(t, out.NotifyError, "502")
	assert.Nil(t, out.Channel)
	run := env.run(t, pending.JobID)
	assert.Nil(t, run.Channel)
	assert.Equal(t, domain.PhaseCustomerDiscovery, run.Phase)
	assert.Equal(t, 1, env.logger.Count("warn"))
}

func TestConfirmJob_Execute_NilChannel(t *testing.T) {
	env := newTestEnv()
	pending := env.intake(t, "idea")
	env.notifier.Channel = nil

	out, err := env.confirmUseCase().Execute(context.Background(), ConfirmJobInput{Ref: pending.JobID})

	require.NoError(t, err)
	assert.Nil(t, out.Channel)
	assert.Equal(t, 0, env.run(t, pending.JobID).CountEvents(domain.EventChannelCreated))
}

func TestConfirmJob_Execute_Errors(t *testing.T) {
	tests := []struct {
		wantErr error
		name    string
		in      ConfirmJobInput
		seed    bool
	}{
		{name: "no selector", in: ConfirmJobInput{}, wantErr: domain.ErrValidation},
		{name: "last with nothing pending", in: ConfirmJobInput{Last: true}, wantErr: domain.ErrNoPendingJobs},
		{name: "unknown ref", in: ConfirmJobInput{Ref: "nope-zzzz"}, seed: true, wantErr: domain.ErrPendingNotFound},
		{name: "unknown ref and empty store", in: ConfirmJobInput{Ref: "nope-zzzz"}, wantErr: domain.ErrNotFound},
		{name: "ref with path separator", in: ConfirmJobInput{Ref: "../../runs/job-1"}, seed: true, wantErr: domain.ErrInvalidJobID},
		{name: "ref with dot dot", in: ConfirmJobInput{Ref: ".."}, seed: true, wantErr: domain.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv()
			if tt.seed {
				env.intake(t, "idea")
			}
			writes := env.store.Writes

			_, err := env.confirmUseCase().Execute(context.Background(), tt.in)

			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, writes, env.store.Writes)
			assert.Empty(t, env.store.Paths(domain.RunsDir))
		})
	}
}

func TestConfirmJob_Execute_RefCannotLeavePendingDir(t *testing.T) {
	// Setup: a confirmed run that a traversing ref would otherwise reach
	env := newTestEnv()
	env.seedRun(&domain.Job{JobID: "job-1", Phase: domain.PhaseQA, CreatedAt: testNow})
	runBefore := string(env.store.Files[domain.RunPath("job-1")])

	// Execute
	_, err := env.confirmUseCase().Execute(context.Background(), ConfirmJobInput{Ref: "../../runs/job-1"})

	// Assert
	require.ErrorIs(t, err, domain.ErrValidation)
	assert.Zero(t, env.store.Writes)
	assert.Equal(t, runBefore, string(env.store.Files[domain.RunPath("job-1")]))
}
