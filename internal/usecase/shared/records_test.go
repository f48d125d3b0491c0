package shared

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runoshun/swarm-factory/internal/domain"
	"github.com/runoshun/swarm-factory/internal/testutil"
)

func TestEncodeJSON(t *testing.T) {
	data, err := EncodeJSON(map[string]int{"a": 1})

	require.NoError(t, err)
	assert.Equal(t, "{\n  \"a\": 1\n}\n", string(data))
}

func TestGetRun(t *testing.T) {
	store := testutil.NewMemoryStore()
	store.Seed(domain.RunPath("job-1"), map[string]any{"jobId": "job-1", "idea": "x", "phase": "QA"})

	job, err := GetRun(context.Background(), store, "job-1")

	require.NoError(t, err)
	assert.Equal(t, domain.PhaseQA, job.Phase)
	assert.NotNil(t, job.Artifacts, "normalized")
	assert.NotNil(t, job.History, "normalized")
}

func TestGetRun_NotFound(t *testing.T) {
	_, err := GetRun(context.Background(), testutil.NewMemoryStore(), "nope")

	assert.ErrorIs(t, err, domain.ErrJobNotFound)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGetPending_NotFound(t *testing.T) {
	_, err := GetPending(context.Background(), testutil.NewMemoryStore(), "nope")

	assert.ErrorIs(t, err, domain.ErrPendingNotFound)
}

func TestReadJob_FillsMissingID(t *testing.T) {
	store := testutil.NewMemoryStore()
	store.Seed(domain.PendingPath("job-7"), map[string]any{"idea": "x", "phase": "INTAKE"})

	job, err := GetPending(context.Background(), store, "job-7")

	require.NoError(t, err)
	assert.Equal(t, "job-7", job.JobID)
}

func TestReadJob_Corrupt(t *testing.T) {
	store := testutil.NewMemoryStore()
	store.Files[domain.RunPath("job-1")] = []byte("{not json")

	_, err := GetRun(context.Background(), store, "job-1")

	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrNotFound)
	assert.Contains(t, err.Error(), "decode")
}

func TestListRecords_SkipsBadFiles(t *testing.T) {
	// Setup
	store := testutil.NewMemoryStore()
	store.Seed(domain.RunPath("a"), map[string]any{"jobId": "a", "phase": "QA"})
	store.Seed(domain.RunPath("b"), map[string]any{"jobId": "b", "phase": "BUILD"})
	store.Files[domain.RunPath("bad")] = []byte("garbage")
	store.Files["runs/README.md"] = []byte("# runs")
	store.Files["runs/archive/c.json"] = []byte("{}")

	// Execute
	records, skipped, err := ListRecords(context.Background(), store, domain.RunsDir)

	// Assert
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "a", records[0].Job.JobID)
	assert.Equal(t, domain.RunPath("a"), records[0].Entry.Path)
	require.Len(t, skipped, 1)
	assert.Contains(t, skipped[0], "runs/bad.json")
}

func TestListRecords_ListError(t *testing.T) {
	store := testutil.NewMemoryStore()
	store.ListErr = errors.New("offline")

	_, _, err := ListRecords(context.Background(), store, domain.RunsDir)

	assert.Error(t, err)
}

func TestListDecisions(t *testing.T) {
	// Setup
	store := testutil.NewMemoryStore()
	base := time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC)
	for i, phase := range []string{"QA", "DEPLOY", "HUMAN_REVIEW"} {
		at := base.Add(time.Duration(i) * time.Second)
		store.Seed(domain.DecisionPath("job-1", at), map[string]any{
			"kind": domain.DecisionKind, "jobId": "job-1", "action": "SET_PHASE", "toPhase": phase, "createdAt": at,
		})
	}
	store.Files[domain.DecisionsPath("job-1")+"/notes.txt"] = []byte("ignored")

	// Execute
	all, err := ListDecisions(context.Background(), store, "job-1", 0)
	require.NoError(t, err)
	newest, err := ListDecisions(context.Background(), store, "job-1", 2)
	require.NoError(t, err)

	// Assert
	require.Len(t, all, 3)
	assert.Equal(t, domain.DecisionPath("job-1", base), all[0].Path)
	require.Len(t, newest, 2)
	assert.Equal(t, domain.PhaseDeploy, *newest[0].ToPhase)
	assert.Equal(t, domain.PhaseHumanReview, *newest[1].ToPhase)
}

func TestListDecisions_MissingDirIsEmpty(t *testing.T) {
	decisions, err := ListDecisions(context.Background(), testutil.NewMemoryStore(), "job-1", 0)

	require.NoError(t, err)
	assert.Empty(t, decisions)
}

func TestListDecisions_CorruptFileFails(t *testing.T) {
	store := testutil.NewMemoryStore()
	store.Files[domain.DecisionPath("job-1", time.Unix(0, 0))] = []byte("{")

	_, err := ListDecisions(context.Background(), store, "job-1", 0)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode decision")
}
