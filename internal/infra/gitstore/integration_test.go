//go:build integration

package gitstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runoshun/swarm-factory/internal/domain"
)

// setupRemote creates a bare remote seeded with one commit on main.
// Returns the remote path.
func setupRemote(t *testing.T) string {
	t.Helper()

	base := t.TempDir()
	bare := filepath.Join(base, "remote.git")
	_, err := git.PlainInit(bare, true)
	require.NoError(t, err)

	seed := filepath.Join(base, "seed")
	repo, err := git.PlainInit(seed, false)
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(seed, "README.md"), []byte("# Test\n"), 0o644))
	_, err = wt.Add("README.md")
	require.NoError(t, err)
	_, err = wt.Commit("Initial commit", &git.CommitOptions{
		Author: &object.Signature{Name: "Test", Email: "test@example.com", When: time.Now()},
	})
	require.NoError(t, err)

	_, err = repo.CreateRemote(&config.RemoteConfig{Name: "origin", URLs: []string{bare}})
	require.NoError(t, err)
	require.NoError(t, repo.Push(&git.PushOptions{RemoteName: "origin"}))

	return bare
}

func cloneRemote(t *testing.T, remote string) *git.Repository {
	t.Helper()

	repo, err := git.PlainClone(t.TempDir(), false, &git.CloneOptions{URL: remote})
	require.NoError(t, err)
	return repo
}

func TestStore_PushConflictAndSync(t *testing.T) {
	remote := setupRemote(t)
	ctx := context.Background()

	a := NewWithRepo(cloneRemote(t, remote), Options{Push: true})
	b := NewWithRepo(cloneRemote(t, remote), Options{Push: true})

	// Writer A publishes first
	res := a.Put(ctx, "runs/job-1.json", []byte(`{"jobId":"job-1"}`), "run: a")
	require.True(t, res.OK(), "put a: %v", res.Err)

	// Writer B is behind, so its push is rejected
	res = b.Put(ctx, "runs/job-2.json", []byte(`{"jobId":"job-2"}`), "run: b")
	require.Equal(t, domain.CommitConflict, res.Status, "err: %v", res.Err)
	assert.ErrorIs(t, res.AsError(), domain.ErrStoreConflict)

	// Sync drops the unpublished attempt and picks up A's write
	require.NoError(t, b.Sync(ctx))
	data, err := b.Get(ctx, "runs/job-1.json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"jobId":"job-1"}`, string(data))
	_, err = b.Get(ctx, "runs/job-2.json")
	require.ErrorIs(t, err, domain.ErrArtifactNotFound)

	// Redoing the write now succeeds
	res = b.Put(ctx, "runs/job-2.json", []byte(`{"jobId":"job-2"}`), "run: b")
	require.True(t, res.OK(), "retry b: %v", res.Err)

	require.NoError(t, a.Sync(ctx))
	_, err = a.Get(ctx, "runs/job-2.json")
	assert.NoError(t, err)
}

func TestStore_Sync_DivergedWithoutPush(t *testing.T) {
	remote := setupRemote(t)
	ctx := context.Background()

	a := NewWithRepo(cloneRemote(t, remote), Options{Push: true})
	b := NewWithRepo(cloneRemote(t, remote), Options{})

	require.True(t, a.Put(ctx, "runs/job-1.json", []byte("{}"), "a").OK())
	require.True(t, b.Put(ctx, "runs/job-2.json", []byte("{}"), "b").OK())

	// Local-only commits are never discarded
	err := b.Sync(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "diverged")
}

func TestStore_Sync_FastForward(t *testing.T) {
	remote := setupRemote(t)
	ctx := context.Background()

	a := NewWithRepo(cloneRemote(t, remote), Options{Push: true})
	b := NewWithRepo(cloneRemote(t, remote), Options{})

	require.True(t, a.Put(ctx, "decisions/job-1/x.json", []byte("{}"), "a").OK())
	require.NoError(t, b.Sync(ctx))

	entries, err := b.List(ctx, "decisions/job-1")
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
