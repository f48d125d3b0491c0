package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runoshun/swarm-factory/internal/domain"
	"github.com/runoshun/swarm-factory/internal/infra/ghstore"
	"github.com/runoshun/swarm-factory/internal/infra/gitstore"
	"github.com/runoshun/swarm-factory/internal/testutil"
	"github.com/runoshun/swarm-factory/internal/usecase"
)

func TestNewConfig_DetectsRepoRoot(t *testing.T) {
	// Setup
	root, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	_, err = git.PlainInit(root, false)
	require.NoError(t, err)
	sub := filepath.Join(root, "runs", "nested")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	// Execute
	cfg := newConfig(sub)

	// Assert
	assert.Equal(t, root, cfg.RepoRoot)
	assert.Equal(t, filepath.Join(root, ".swarm"), cfg.SwarmDir)
}

func TestNewConfig_OutsideRepo(t *testing.T) {
	dir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)

	cfg := newConfig(dir)

	assert.Equal(t, dir, cfg.RepoRoot)
	assert.Equal(t, domain.RepoSwarmDir(dir), cfg.SwarmDir)
}

func TestNewStore(t *testing.T) {
	t.Run("git backend by default", func(t *testing.T) {
		cfg := domain.NewDefaultConfig()
		cfg.Store.Backend = ""

		store, storeInit, err := newStore(t.TempDir(), cfg)

		require.NoError(t, err)
		assert.IsType(t, &gitstore.Store{}, store)
		assert.Same(t, store, storeInit)
	})

	t.Run("github backend", func(t *testing.T) {
		t.Setenv("SWARM_TEST_TOKEN", "secret")
		cfg := domain.NewDefaultConfig()
		cfg.Store.Backend = domain.StoreBackendGitHub
		cfg.GitHub.TokenEnv = "SWARM_TEST_TOKEN"
		cfg.GitHub.Owner = "acme"
		cfg.GitHub.Repo = "swarm-state"

		store, _, err := newStore("", cfg)

		require.NoError(t, err)
		assert.IsType(t, &ghstore.Store{}, store)
	})

	t.Run("github backend without token", func(t *testing.T) {
		t.Setenv("SWARM_TEST_TOKEN", "")
		cfg := domain.NewDefaultConfig()
		cfg.Store.Backend = domain.StoreBackendGitHub
		cfg.GitHub.TokenEnv = "SWARM_TEST_TOKEN"

		_, _, err := newStore("", cfg)

		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrValidation)
		assert.Contains(t, err.Error(), "SWARM_TEST_TOKEN")
	})

	t.Run("unknown backend", func(t *testing.T) {
		cfg := domain.NewDefaultConfig()
		cfg.Store.Backend = "s3"

		_, _, err := newStore("", cfg)

		assert.ErrorIs(t, err, domain.ErrValidation)
	})
}

func TestNewWithDeps(t *testing.T) {
	// Setup
	store := testutil.NewMemoryStore()
	c := NewWithDeps(
		Config{RepoRoot: "/repo", SwarmDir: "/repo/.swarm"},
		nil,
		store,
		&testutil.MockStoreInitializer{},
		&testutil.MockClock{NowTime: time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC)},
		&testutil.SeqIDs{},
		&testutil.MockNotifier{},
		&testutil.MockLogger{},
	)

	// Assert defaults
	require.NotNil(t, c.AppConfig)
	assert.Equal(t, domain.NewDefaultConfig().Server.BoardSize, c.AppConfig.Server.BoardSize)
	assert.NotNil(t, c.HTTPHandler())
	assert.NoError(t, c.Close())

	// Execute a use case through the container
	out, err := c.IntakeUseCase().Execute(context.Background(), usecase.IntakeInput{Idea: "A CRM for dog groomers"})
	require.NoError(t, err)
	assert.Equal(t, "job-1", out.Job.JobID)
	assert.Contains(t, store.Files, domain.PendingPath("job-1"))
}
