package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runoshun/swarm-factory/internal/domain"
)

func columnJobs(out *BoardOutput, lane domain.Lane) []string {
	for _, c := range out.Columns {
		if c.Lane == lane {
			ids := make([]string, 0, len(c.Jobs))
			for _, v := range c.Jobs {
				ids = append(ids, v.Job.JobID)
			}
			return ids
		}
	}
	return nil
}

func TestBoard_Execute(t *testing.T) {
	// Setup
	env := newTestEnv()
	env.seedRun(&domain.Job{JobID: "old", Phase: domain.PhaseBuild, CreatedAt: testNow})
	env.seedRun(&domain.Job{JobID: "mid", Phase: domain.PhaseBuild, CreatedAt: testNow.Add(time.Hour)})
	env.seedRun(&domain.Job{JobID: "new", Phase: domain.PhaseQA, CreatedAt: testNow.Add(2 * time.Hour)})
	env.store.Files[domain.RunPath("broken")] = []byte("{")
	env.intake(t, "still pending")
	env.decide(t, "mid", domain.ActionAssignAgent, domain.DecisionFields{Agent: "coder"})
	env.decide(t, "new", domain.ActionSetPhase, domain.DecisionFields{ToPhase: "DONE"})
	uc := NewBoard(env.store, env.logger, 10)

	// Execute
	out, err := uc.Execute(context.Background(), BoardInput{})

	// Assert
	require.NoError(t, err)
	require.Len(t, out.Columns, len(domain.AllLanes()))
	for i, lane := range domain.AllLanes() {
		assert.Equal(t, lane, out.Columns[i].Lane)
		assert.NotNil(t, out.Columns[i].Jobs)
	}
	assert.Equal(t, []string{"old"}, columnJobs(out, domain.LaneIntake))
	assert.Equal(t, []string{"mid"}, columnJobs(out, domain.LaneEngineering))
	assert.Equal(t, []string{"new"}, columnJobs(out, domain.LaneDone))
	assert.Equal(t, 3, out.Total)
	assert.Equal(t, 0, out.Degraded)
	require.Len(t, out.Pending, 1)
	assert.Equal(t, "still pending", out.Pending[0].Idea)
	require.Len(t, out.Skipped, 1)
	assert.Contains(t, out.Skipped[0], "broken")
}

func TestBoard_Execute_LimitKeepsNewest(t *testing.T) {
	env := newTestEnv()
	env.seedRun(&domain.Job{JobID: "old", Phase: domain.PhaseBuild, CreatedAt: testNow})
	env.seedRun(&domain.Job{JobID: "new", Phase: domain.PhaseBuild, CreatedAt: testNow.Add(time.Hour)})

	out, err := NewBoard(env.store, env.logger, 10).Execute(context.Background(), BoardInput{Limit: 1})

	require.NoError(t, err)
	assert.Equal(t, 1, out.Total)
	assert.Equal(t, []string{"new"}, columnJobs(out, domain.LaneIntake))
}

func TestBoard_Execute_DegradedJobDoesNotFailBoard(t *testing.T) {
	env := newTestEnv()
	env.seedRun(&domain.Job{JobID: "a", Phase: domain.PhaseBuild})
	env.seedRun(&domain.Job{JobID: "b", Phase: domain.PhaseBuild})
	env.store.ListErrFor = domain.DecisionsPath("a")

	out, err := NewBoard(env.store, env.logger, 0).Execute(context.Background(), BoardInput{})

	require.NoError(t, err)
	assert.Equal(t, 2, out.Total)
	assert.Equal(t, 1, out.Degraded)
}

func TestBoard_Execute_ListFailure(t *testing.T) {
	env := newTestEnv()
	env.store.ListErr = errors.New("offline")

	_, err := NewBoard(env.store, env.logger, 0).Execute(context.Background(), BoardInput{})

	assert.Error(t, err)
}

func TestBoard_Execute_Empty(t *testing.T) {
	env := newTestEnv()

	out, err := NewBoard(env.store, nil, 0).Execute(context.Background(), BoardInput{})

	require.NoError(t, err)
	assert.Equal(t, 0, out.Total)
	assert.Empty(t, out.Pending)
	assert.Len(t, out.Columns, len(domain.AllLanes()))
}
