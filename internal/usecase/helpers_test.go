package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/runoshun/swarm-factory/internal/domain"
	"github.com/runoshun/swarm-factory/internal/testutil"
	"github.com/runoshun/swarm-factory/internal/usecase/shared"
)

var testNow = time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC)

// testEnv bundles the doubles most use cases need.
type testEnv struct {
	store    *testutil.MemoryStore
	clock    *testutil.MockClock
	ids      *testutil.SeqIDs
	logger   *testutil.MockLogger
	notifier *testutil.MockNotifier
}

func newTestEnv() *testEnv {
	return &testEnv{
		store:    testutil.NewMemoryStore(),
		clock:    &testutil.MockClock{NowTime: testNow, Step: time.Second},
		ids:      &testutil.SeqIDs{},
		logger:   &testutil.MockLogger{},
		notifier: &testutil.MockNotifier{Channel: &domain.ChannelInfo{ChannelID: "C1", Name: "run-channel"}},
	}
}

func (e *testEnv) writer() *shared.RetryPolicy {
	return shared.NewRetryPolicy(e.store, e.logger, false)
}

// seedRun stores job as a confirmed run.
func (e *testEnv) seedRun(job *domain.Job) {
	job.Normalize()
	e.store.Seed(domain.RunPath(job.JobID), job)
}

// run reads a run back from the store.
func (e *testEnv) run(t *testing.T, jobID string) *domain.Job {
	t.Helper()
	job, err := shared.GetRun(context.Background(), e.store, jobID)
	require.NoError(t, err)
	return job
}

// decide appends a decision through the use case.
func (e *testEnv) decide(t *testing.T, jobID string, action domain.DecisionAction, fields domain.DecisionFields) *domain.Decision {
	t.Helper()
	out, err := NewAppendDecision(e.store, e.writer(), e.clock, e.logger).Execute(context.Background(), AppendDecisionInput{
		JobID:  jobID,
		Action: action,
		Fields: fields,
	})
	require.NoError(t, err)
	return out.Decision
}
