package usecase

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runoshun/swarm-factory/internal/domain"
)

func TestAppendDecision_Execute_SetPhase(t *testing.T) {
	// Setup
	env := newTestEnv()
	env.seedRun(&domain.Job{JobID: "job-1", Phase: domain.PhaseBuild})
	runBefore := string(env.store.Files[domain.RunPath("job-1")])
	uc := NewAppendDecision(env.store, env.writer(), env.clock, env.logger)

	// Execute
	out, err := uc.Execute(context.Background(), AppendDecisionInput{
		JobID:  "job-1",
		Action: "set_phase",
		Fields: domain.DecisionFields{ToPhase: "qa", Note: "skip ahead"},
	})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, domain.DecisionPath("job-1", testNow), out.Path)
	assert.Equal(t, domain.ActionSetPhase, out.Decision.Action)
	require.NotNil(t, out.Decision.ToPhase)
	assert.Equal(t, domain.PhaseQA, *out.Decision.ToPhase)

	var stored map[string]any
	require.NoError(t, json.Unmarshal(env.store.Files[out.Path], &stored))
	assert.Equal(t, domain.DecisionKind, stored["kind"])
	assert.Equal(t, "QA", stored["toPhase"])
	assert.Equal(t, "skip ahead", stored["note"])
	assert.Nil(t, stored["agent"])

	assert.Equal(t, runBefore, string(env.store.Files[domain.RunPath("job-1")]), "run record is never rewritten")
	assert.Equal(t, "decision: SET_PHASE job-1", env.store.Messages[0])
}

func TestAppendDecision_Execute_AssignAgent(t *testing.T) {
	env := newTestEnv()
	env.seedRun(&domain.Job{JobID: "job-1", Phase: domain.PhaseBuild})
	yes := true

	d := env.decide(t, "job-1", domain.ActionAssignAgent, domain.DecisionFields{Agent: "Coder", Pipeline: &yes})

	require.NotNil(t, d.Agent)
	assert.Equal(t, domain.RoleCoder, *d.Agent)
	require.NotNil(t, d.Pipeline)
	assert.True(t, *d.Pipeline)
}

func TestAppendDecision_Execute_UnknownActionStored(t *testing.T) {
	env := newTestEnv()
	env.seedRun(&domain.Job{JobID: "job-1", Phase: domain.PhaseBuild})

	d := env.decide(t, "job-1", "ESCALATE", domain.DecisionFields{Note: "call the customer"})

	assert.Equal(t, domain.DecisionAction("ESCALATE"), d.Action)
	assert.Contains(t, env.store.Files, d.Path)
}

func TestAppendDecision_Execute_Errors(t *testing.T) {
	tests := []struct {
		wantErr error
		name    string
		in      AppendDecisionInput
	}{
		{name: "missing run", in: AppendDecisionInput{JobID: "ghost", Action: domain.ActionSetPhase, Fields: domain.DecisionFields{ToPhase: "QA"}}, wantErr: domain.ErrJobNotFound},
		{name: "empty job id", in: AppendDecisionInput{Action: domain.ActionSetPhase, Fields: domain.DecisionFields{ToPhase: "QA"}}, wantErr: domain.ErrEmptyJobID},
		{name: "invalid phase", in: AppendDecisionInput{JobID: "job-1", Action: domain.ActionSetPhase, Fields: domain.DecisionFields{ToPhase: "LAUNCH"}}, wantErr: domain.ErrInvalidPhase},
		{name: "missing agent", in: AppendDecisionInput{JobID: "job-1", Action: domain.ActionAssignAgent}, wantErr: domain.ErrMissingAgent},
		{name: "missing action", in: AppendDecisionInput{JobID: "job-1"}, wantErr: domain.ErrMissingAction},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv()
			env.seedRun(&domain.Job{JobID: "job-1", Phase: domain.PhaseBuild})
			uc := NewAppendDecision(env.store, env.writer(), env.clock, env.logger)

			_, err := uc.Execute(context.Background(), tt.in)

			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, 0, env.store.Writes)
		})
	}
}

func TestAppendDecision_Execute_SameMillisecondKeepsBoth(t *testing.T) {
	// Setup: a clock that never advances
	env := newTestEnv()
	env.clock.Step = 0
	env.seedRun(&domain.Job{JobID: "job-1", Phase: domain.PhaseBuild})

	// Execute
	assign := env.decide(t, "job-1", domain.ActionAssignAgent, domain.DecisionFields{Agent: "coder"})
	phase := env.decide(t, "job-1", domain.ActionSetPhase, domain.DecisionFields{ToPhase: "QA"})

	// Assert
	assert.Equal(t, domain.DecisionPath("job-1", testNow), assign.Path)
	assert.Equal(t, domain.DecisionPath("job-1", testNow.Add(time.Millisecond)), phase.Path)
	assert.Equal(t, testNow.Add(time.Millisecond), phase.CreatedAt)
	assert.Equal(t, []string{assign.Path, phase.Path}, env.store.Paths(domain.DecisionsPath("job-1")))

	out, err := NewResolveEffective(env.store, env.logger).Execute(context.Background(), ResolveEffectiveInput{JobID: "job-1"})
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseQA, out.View.EffectivePhase)
	require.NotNil(t, out.View.Assignment.Agent)
	assert.Equal(t, domain.RoleCoder, *out.View.Assignment.Agent)
}

func TestAppendDecision_Execute_StoredCreatedAtMatchesPath(t *testing.T) {
	env := newTestEnv()
	env.clock.Step = 0
	env.seedRun(&domain.Job{JobID: "job-1", Phase: domain.PhaseBuild})
	env.store.Seed(domain.DecisionPath("job-1", testNow), map[string]any{"action": "NOTE"})

	d := env.decide(t, "job-1", domain.ActionSetPhase, domain.DecisionFields{ToPhase: "QA"})

	var stored domain.Decision
	require.NoError(t, json.Unmarshal(env.store.Files[d.Path], &stored))
	assert.Equal(t, domain.DecisionPath("job-1", stored.CreatedAt), d.Path)
	assert.Equal(t, map[string]any{"action": "NOTE"}, decodeMap(t, env.store.Files[domain.DecisionPath("job-1", testNow)]), "existing decision untouched")
}

func decodeMap(t *testing.T, data []byte) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	return m
}
