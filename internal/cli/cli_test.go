package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runoshun/swarm-factory/internal/app"
	"github.com/runoshun/swarm-factory/internal/domain"
	"github.com/runoshun/swarm-factory/internal/testutil"
	"github.com/runoshun/swarm-factory/internal/tui"
)

var testNow = time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC)

// newTestContainer creates an app.Container backed by an in-memory store.
func newTestContainer(t *testing.T, store *testutil.MemoryStore) *app.Container {
	t.Helper()
	return app.NewWithDeps(
		app.Config{RepoRoot: t.TempDir(), SwarmDir: t.TempDir()},
		domain.NewDefaultConfig(),
		store,
		nil,
		&testutil.MockClock{NowTime: testNow, Step: time.Second},
		&testutil.SeqIDs{},
		&testutil.MockNotifier{Channel: &domain.ChannelInfo{ChannelID: "C1"}},
		&testutil.MockLogger{},
	)
}

type result struct {
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error"`
	OK    bool            `json:"ok"`
}

// run executes the root command with args and decodes its JSON output.
func run(t *testing.T, c *app.Container, args ...string) (result, error) {
	t.Helper()
	root := NewRootCommand(c, "test")
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)

	err := root.Execute()

	var res result
	if out.Len() > 0 {
		require.NoError(t, json.Unmarshal(out.Bytes(), &res), out.String())
	}
	return res, err
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

func TestCLI_IntakeConfirmDecideShow(t *testing.T) {
	// Setup
	store := testutil.NewMemoryStore()
	c := newTestContainer(t, store)

	// Intake
	res, err := run(t, c, "intake", "A CRM for", "dog groomers", "--requester", "alice")
	require.NoError(t, err)
	require.True(t, res.OK)
	intake := decode[struct {
		Job  domain.Job `json:"job"`
		Path string     `json:"path"`
	}](t, res.Data)
	assert.Equal(t, "job-1", intake.Job.JobID)
	assert.Equal(t, "A CRM for dog groomers", intake.Job.Idea)
	assert.Equal(t, domain.PendingPath("job-1"), intake.Path)

	// Confirm by short code, case-insensitive
	res, err = run(t, c, "confirm", strings.ToUpper(intake.Job.Code))
	require.NoError(t, err)
	confirm := decode[struct {
		Job     domain.Job `json:"job"`
		RunPath string     `json:"runPath"`
	}](t, res.Data)
	assert.Equal(t, domain.PhaseCustomerDiscovery, confirm.Job.Phase)
	assert.Equal(t, domain.RunPath("job-1"), confirm.RunPath)

	// Decide with a shortcut
	res, err = run(t, c, "decide", "job-1", "--pause", "--note", "waiting on legal")
	require.NoError(t, err)
	assert.True(t, res.OK)

	// Show
	res, err = run(t, c, "show", "job-1")
	require.NoError(t, err)
	show := decode[struct {
		View domain.EffectiveView `json:"view"`
		Lane domain.Lane          `json:"lane"`
	}](t, res.Data)
	assert.Equal(t, domain.PhaseHumanReview, show.View.EffectivePhase)
	assert.True(t, show.View.PhaseOverridden)
	assert.Equal(t, domain.PhaseCustomerDiscovery, show.View.Job.Phase, "run record is unchanged")
}

func TestCLI_ConfirmLast(t *testing.T) {
	store := testutil.NewMemoryStore()
	c := newTestContainer(t, store)

	_, err := run(t, c, "intake", "first idea")
	require.NoError(t, err)
	_, err = run(t, c, "intake", "second idea")
	require.NoError(t, err)

	res, err := run(t, c, "confirm", "--last")
	require.NoError(t, err)
	confirm := decode[struct {
		Job domain.Job `json:"job"`
	}](t, res.Data)
	assert.Equal(t, "job-2", confirm.Job.JobID)
}

func TestCLI_Errors(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantCode int
	}{
		{name: "intake without idea", args: []string{"intake"}, wantCode: ExitValidation},
		{name: "confirm without selector", args: []string{"confirm"}, wantCode: ExitValidation},
		{name: "confirm with ref and last", args: []string{"confirm", "x", "--last"}, wantCode: ExitValidation},
		{name: "confirm unknown", args: []string{"confirm", "nope"}, wantCode: ExitNotFound},
		{name: "decide missing job", args: []string{"decide", "nope", "--pause"}, wantCode: ExitNotFound},
		{name: "decide missing args", args: []string{"decide"}, wantCode: ExitValidation},
		{name: "decide bad agent", args: []string{"decide", "job-1", "--action", "ASSIGN_AGENT", "--agent", "wizard"}, wantCode: ExitValidation},
		{name: "show missing job", args: []string{"show", "nope"}, wantCode: ExitNotFound},
		{name: "advance without selection", args: []string{"advance"}, wantCode: ExitValidation},
		{name: "advance with both", args: []string{"advance", "job-1", "--all"}, wantCode: ExitValidation},
		{name: "unknown flag", args: []string{"board", "--colour"}, wantCode: ExitValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestContainer(t, testutil.NewMemoryStore())

			_, err := run(t, c, tt.args...)

			require.Error(t, err)
			assert.Equal(t, tt.wantCode, ExitCode(err), err.Error())
		})
	}
}

func TestCLI_AdvanceAll(t *testing.T) {
	store := testutil.NewMemoryStore()
	c := newTestContainer(t, store)
	_, err := run(t, c, "intake", "an idea")
	require.NoError(t, err)
	_, err = run(t, c, "confirm", "job-1")
	require.NoError(t, err)

	res, err := run(t, c, "advance", "--all")

	require.NoError(t, err)
	out := decode[struct {
		Results []struct {
			To     domain.Phase `json:"to"`
			Status string       `json:"status"`
		} `json:"results"`
		Updated int `json:"updated"`
	}](t, res.Data)
	require.Len(t, out.Results, 1)
	assert.Equal(t, domain.PhaseHumanReview, out.Results[0].To)
	assert.Equal(t, 1, out.Updated)
}

func TestCLI_CarWashScenario(t *testing.T) {
	store := testutil.NewMemoryStore()
	c := newTestContainer(t, store)

	res, err := run(t, c, "intake", "Mobile car-wash booking app")
	require.NoError(t, err)
	intake := decode[struct {
		Job domain.Job `json:"job"`
	}](t, res.Data)
	assert.Equal(t, domain.PhaseIntake, intake.Job.Phase)
	require.NotEmpty(t, intake.Job.Code)

	_, err = run(t, c, "confirm", intake.Job.Code)
	require.NoError(t, err)
	assert.NotContains(t, store.Files, domain.PendingPath("job-1"))

	_, err = run(t, c, "advance", "job-1")
	require.NoError(t, err)

	_, err = run(t, c, "decide", "job-1", "--action", "SET_PHASE", "--to", "DONE")
	require.NoError(t, err)

	res, err = run(t, c, "show", "job-1")
	require.NoError(t, err)
	show := decode[struct {
		View domain.EffectiveView `json:"view"`
	}](t, res.Data)
	assert.Equal(t, domain.PhaseDone, show.View.EffectivePhase)
	assert.Equal(t, domain.PhaseHumanReview, show.View.Job.Phase)
	assert.True(t, show.View.PhaseOverridden)
	assert.Len(t, show.View.Job.Artifacts, 6)
	assert.Equal(t, 6, show.View.Job.CountEvents(domain.EventPhaseSet))
	assert.Equal(t, 6, show.View.Job.CountEvents(domain.EventArtifactWritten))
}

func TestCLI_DispatchScan(t *testing.T) {
	store := testutil.NewMemoryStore()
	c := newTestContainer(t, store)
	_, err := run(t, c, "intake", "an idea")
	require.NoError(t, err)
	_, err = run(t, c, "confirm", "job-1")
	require.NoError(t, err)
	_, err = run(t, c, "decide", "job-1", "--action", "ASSIGN_AGENT", "--agent", "coder", "--pipeline")
	require.NoError(t, err)

	type scan struct {
		Queued        []json.RawMessage `json:"queued"`
		AlreadyQueued int               `json:"alreadyQueued"`
		DryRun        bool              `json:"dryRun"`
	}

	// Dry run writes nothing
	res, err := run(t, c, "dispatch-scan", "--dry-run")
	require.NoError(t, err)
	dry := decode[scan](t, res.Data)
	assert.True(t, dry.DryRun)
	assert.Len(t, dry.Queued, 1)
	assert.Empty(t, store.Paths(domain.DispatchPath("job-1")))

	// First scan queues, second finds it queued
	res, err = run(t, c, "dispatch-scan")
	require.NoError(t, err)
	assert.Len(t, decode[scan](t, res.Data).Queued, 1)

	res, err = run(t, c, "dispatch-scan")
	require.NoError(t, err)
	again := decode[scan](t, res.Data)
	assert.Empty(t, again.Queued)
	assert.Equal(t, 1, again.AlreadyQueued)
	assert.Len(t, store.Paths(domain.DispatchPath("job-1")), 1)
}

func TestCLI_Board(t *testing.T) {
	store := testutil.NewMemoryStore()
	c := newTestContainer(t, store)
	_, err := run(t, c, "intake", "pending idea")
	require.NoError(t, err)

	res, err := run(t, c, "board", "--limit", "5")

	require.NoError(t, err)
	out := decode[struct {
		Columns []struct {
			Lane domain.Lane `json:"lane"`
		} `json:"columns"`
		Pending []domain.Job `json:"pending"`
	}](t, res.Data)
	assert.Len(t, out.Columns, len(domain.AllLanes()))
	require.Len(t, out.Pending, 1)
	assert.Equal(t, "job-1", out.Pending[0].JobID)
}

func TestCLI_BoardWatchLaunchesTUI(t *testing.T) {
	// Save original function and restore after test
	original := launchBoardTUIFunc
	defer func() { launchBoardTUIFunc = original }()

	var gotInterval time.Duration
	var loaded bool
	launchBoardTUIFunc = func(load tui.Loader, interval time.Duration) error {
		gotInterval = interval
		board, err := load(t.Context())
		loaded = err == nil && board != nil
		return nil
	}

	c := newTestContainer(t, testutil.NewMemoryStore())
	res, err := run(t, c, "board", "--watch", "--interval", "2s")

	require.NoError(t, err)
	assert.False(t, res.OK, "watch mode prints no JSON")
	assert.Equal(t, 2*time.Second, gotInterval)
	assert.True(t, loaded)
}

func TestCLI_ConfigWarningsPrinted(t *testing.T) {
	c := newTestContainer(t, testutil.NewMemoryStore())
	c.AppConfig.Warnings = []string{"unknown key in config.toml: mystery"}

	root := NewRootCommand(c, "test")
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs([]string{"config", "show"})

	require.NoError(t, root.Execute())
	assert.Contains(t, errOut.String(), "Warning: unknown key in config.toml: mystery")
	assert.Contains(t, out.String(), `"effective"`)
}

func TestDecideOptions_Request(t *testing.T) {
	tests := []struct {
		name        string
		wantPhase   string
		wantAction  domain.DecisionAction
		opts        decideOptions
		pipelineSet bool
		wantErr     bool
	}{
		{name: "explicit", opts: decideOptions{action: "SET_PHASE", to: "QA"}, wantAction: domain.ActionSetPhase, wantPhase: "QA"},
		{name: "approve default", opts: decideOptions{approve: string(domain.PhaseCustomerDiscovery)}, wantAction: domain.ActionSetPhase, wantPhase: "CUSTOMER_DISCOVERY"},
		{name: "approve phase", opts: decideOptions{approve: "BUILD"}, wantAction: domain.ActionSetPhase, wantPhase: "BUILD"},
		{name: "pause", opts: decideOptions{pause: true}, wantAction: domain.ActionSetPhase, wantPhase: "HUMAN_REVIEW"},
		{name: "cancel", opts: decideOptions{cancel: true}, wantAction: domain.ActionSetPhase, wantPhase: "FAILED"},
		{name: "two shortcuts", opts: decideOptions{pause: true, cancel: true}, wantErr: true},
		{name: "shortcut with action", opts: decideOptions{pause: true, action: "ASSIGN_AGENT"}, wantErr: true},
		{name: "shortcut with to", opts: decideOptions{cancel: true, to: "QA"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, err := tt.opts.request("job-1", tt.pipelineSet)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, ExitValidation, ExitCode(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "job-1", in.JobID)
			assert.Equal(t, tt.wantAction, in.Action)
			assert.Equal(t, tt.wantPhase, in.Fields.ToPhase)
			assert.Nil(t, in.Fields.Pipeline)
		})
	}
}

func TestDecideOptions_Pipeline(t *testing.T) {
	in, err := decideOptions{action: "ASSIGN_AGENT", agent: "qa"}.request("job-1", true)
	require.NoError(t, err)
	require.NotNil(t, in.Fields.Pipeline)
	assert.False(t, *in.Fields.Pipeline, "explicit --pipeline=false is kept")
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		name string
		want int
	}{
		{name: "nil", err: nil, want: ExitOK},
		{name: "validation", err: fmt.Errorf("intake: %w", &domain.ValidationError{Err: domain.ErrEmptyIdea}), want: ExitValidation},
		{name: "usage", err: usageError("bad"), want: ExitValidation},
		{name: "not found", err: fmt.Errorf("confirm: %w", domain.ErrPendingNotFound), want: ExitNotFound},
		{name: "conflict", err: domain.ErrRetryExhausted, want: ExitFailure},
		{name: "other", err: errors.New("boom"), want: ExitFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}

func TestWriteError(t *testing.T) {
	var buf bytes.Buffer
	WriteError(&buf, errors.New("boom"))

	var res result
	require.NoError(t, json.Unmarshal(buf.Bytes(), &res))
	assert.False(t, res.OK)
	assert.Equal(t, "boom", res.Error)
}

func TestNewRootCommand_Groups(t *testing.T) {
	root := NewRootCommand(nil, "test-version")

	byName := map[string]*cobra.Command{}
	for _, cmd := range root.Commands() {
		byName[cmd.Name()] = cmd
	}
	for name, group := range map[string]string{
		"init":          groupSetup,
		"config":        groupSetup,
		"intake":        groupJob,
		"confirm":       groupJob,
		"decide":        groupJob,
		"show":          groupJob,
		"board":         groupJob,
		"advance":       groupSwarm,
		"dispatch-scan": groupSwarm,
		"serve":         groupSwarm,
	} {
		require.Contains(t, byName, name)
		assert.Equal(t, group, byName[name].GroupID, name)
	}
	assert.Equal(t, "test-version", root.Version)
}
