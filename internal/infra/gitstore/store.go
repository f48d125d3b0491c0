// Package gitstore provides a go-git implementation of domain.ArtifactStore.
package gitstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/go-git/go-billy/v5/util"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"

	"github.com/runoshun/swarm-factory/internal/domain"
)

// Options configures a Store.
// Fields are ordered to minimize memory padding.
type Options struct {
	Auth        transport.AuthMethod // Optional credentials for fetch/push
	Remote      string               // Remote name, default "origin"
	AuthorName  string
	AuthorEmail string
	Push        bool // Push after every commit
}

// Store implements domain.ArtifactStore on a git working tree.
//
// Every Put or Delete is one commit on the checked-out branch. With Push set,
// the commit is pushed immediately; a rejected non-fast-forward push is a
// conflict. Sync fetches and moves the branch to the remote tip.
type Store struct {
	repo *git.Repository
	opts Options
	root string
	mu   sync.Mutex
}

// Ensure Store implements the domain ports.
var (
	_ domain.ArtifactStore    = (*Store)(nil)
	_ domain.StoreInitializer = (*Store)(nil)
)

// New creates a Store for the repository at root. The repository is opened lazily
// so that Initialize can create it.
func New(root string, opts Options) *Store {
	if opts.Remote == "" {
		opts.Remote = domain.DefaultRemote
	}
	if opts.AuthorName == "" {
		opts.AuthorName = domain.DefaultAuthorName
	}
	if opts.AuthorEmail == "" {
		opts.AuthorEmail = domain.DefaultAuthorEmail
	}
	return &Store{root: root, opts: opts}
}

// NewWithRepo creates a Store with an existing repository instance.
func NewWithRepo(repo *git.Repository, opts Options) *Store {
	s := New("", opts)
	s.repo = repo
	return s
}

// repository returns the opened repository. Callers hold s.mu.
func (s *Store) repository() (*git.Repository, error) {
	if s.repo != nil {
		return s.repo, nil
	}
	repo, err := git.PlainOpen(s.root)
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return nil, domain.ErrNotInitialized
	}
	if err != nil {
		return nil, fmt.Errorf("open git repository: %w", err)
	}
	s.repo = repo
	return repo, nil
}

func (s *Store) worktree() (*git.Worktree, error) {
	repo, err := s.repository()
	if err != nil {
		return nil, err
	}
	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("open worktree: %w", err)
	}
	return wt, nil
}

// Initialize creates the repository if it does not exist yet.
func (s *Store) Initialize(_ context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.repository(); err == nil {
		return false, nil
	} else if !errors.Is(err, domain.ErrNotInitialized) {
		return false, err
	}

	repo, err := git.PlainInit(s.root, false)
	if err != nil {
		return false, fmt.Errorf("init git repository: %w", err)
	}
	s.repo = repo
	return true, nil
}

// List returns the entries directly under dir.
func (s *Store) List(_ context.Context, dir string) ([]domain.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	wt, err := s.worktree()
	if err != nil {
		return nil, err
	}
	infos, err := wt.Filesystem.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}

	entries := make([]domain.Entry, 0, len(infos))
	for _, fi := range infos {
		entries = append(entries, domain.Entry{
			Path:    path.Join(dir, fi.Name()),
			Name:    fi.Name(),
			IsDir:   fi.IsDir(),
			ModTime: fi.ModTime(),
		})
	}
	return entries, nil
}

// Get returns the content at p.
func (s *Store) Get(_ context.Context, p string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	wt, err := s.worktree()
	if err != nil {
		return nil, err
	}
	f, err := wt.Filesystem.Open(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", domain.ErrArtifactNotFound, p)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", p, err)
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", p, err)
	}
	return data, nil
}

// Put writes data at p and commits it.
func (s *Store) Put(ctx context.Context, p string, data []byte, message string) domain.CommitResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	wt, err := s.worktree()
	if err != nil {
		return domain.Failed(err)
	}
	return s.write(ctx, wt, p, data, message)
}

// Create writes data at p and commits it, failing when p already exists.
func (s *Store) Create(ctx context.Context, p string, data []byte, message string) domain.CommitResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	wt, err := s.worktree()
	if err != nil {
		return domain.Failed(err)
	}
	if _, err := wt.Filesystem.Stat(p); err == nil {
		return domain.Failed(fmt.Errorf("%w: %s", domain.ErrArtifactExists, p))
	} else if !errors.Is(err, os.ErrNotExist) {
		return domain.Failed(fmt.Errorf("stat %s: %w", p, err))
	}
	return s.write(ctx, wt, p, data, message)
}

// write stages data at p and commits it. Callers hold s.mu.
func (s *Store) write(ctx context.Context, wt *git.Worktree, p string, data []byte, message string) domain.CommitResult {
	if err := wt.Filesystem.MkdirAll(path.Dir(p), 0o755); err != nil {
		return domain.Failed(fmt.Errorf("create %s: %w", path.Dir(p), err))
	}
	if err := util.WriteFile(wt.Filesystem, p, data, 0o644); err != nil {
		return domain.Failed(fmt.Errorf("write %s: %w", p, err))
	}
	if _, err := wt.Add(p); err != nil {
		return domain.Failed(fmt.Errorf("stage %s: %w", p, err))
	}
	return s.commit(ctx, wt, message)
}

// Delete removes p and commits the removal.
func (s *Store) Delete(ctx context.Context, p, message string) domain.CommitResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	wt, err := s.worktree()
	if err != nil {
		return domain.Failed(err)
	}
	if _, err := wt.Filesystem.Stat(p); errors.Is(err, os.ErrNotExist) {
		return domain.Failed(fmt.Errorf("%w: %s", domain.ErrArtifactNotFound, p))
	}
	if _, err := wt.Remove(p); err != nil {
		return domain.Failed(fmt.Errorf("remove %s: %w", p, err))
	}
	return s.commit(ctx, wt, message)
}

// commit records the staged change and pushes it when configured. Callers hold s.mu.
func (s *Store) commit(ctx context.Context, wt *git.Worktree, message string) domain.CommitResult {
	_, err := wt.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  s.opts.AuthorName,
			Email: s.opts.AuthorEmail,
			When:  time.Now(),
		},
	})
	if err != nil && !errors.Is(err, git.ErrEmptyCommit) {
		return domain.Failed(fmt.Errorf("commit: %w", err))
	}
	if !s.opts.Push {
		return domain.Committed()
	}
	return s.push(ctx)
}

func (s *Store) push(ctx context.Context) domain.CommitResult {
	err := s.repo.PushContext(ctx, &git.PushOptions{
		RemoteName: s.opts.Remote,
		Auth:       s.opts.Auth,
	})
	switch {
	case err == nil, errors.Is(err, git.NoErrAlreadyUpToDate):
		return domain.Committed()
	case isRejected(err):
		return domain.Conflicted(fmt.Errorf("push: %w", err))
	default:
		return domain.Failed(fmt.Errorf("push: %w", err))
	}
}

func isRejected(err error) bool {
	if errors.Is(err, git.ErrNonFastForwardUpdate) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "non-fast-forward") || strings.Contains(msg, "rejected")
}

// Sync fetches the remote and fast-forwards the branch to its tip.
//
// When local and remote have diverged, the local commits are discarded only if
// pushing is enabled: they are then unpublished attempts that the caller will
// redo. Without pushing, divergence is reported as an error.
func (s *Store) Sync(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	repo, err := s.repository()
	if err != nil {
		return err
	}
	if _, err := repo.Remote(s.opts.Remote); errors.Is(err, git.ErrRemoteNotFound) {
		return nil
	}

	err = repo.FetchContext(ctx, &git.FetchOptions{
		RemoteName: s.opts.Remote,
		Auth:       s.opts.Auth,
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) && !errors.Is(err, transport.ErrEmptyRemoteRepository) {
		return fmt.Errorf("fetch %s: %w", s.opts.Remote, err)
	}

	head, err := repo.Head()
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return s.checkoutRemote(repo)
	}
	if err != nil {
		return fmt.Errorf("resolve HEAD: %w", err)
	}
	remoteRef, err := repo.Reference(plumbing.NewRemoteReferenceName(s.opts.Remote, head.Name().Short()), true)
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("resolve remote branch: %w", err)
	}
	if remoteRef.Hash() == head.Hash() {
		return nil
	}

	local, err := repo.CommitObject(head.Hash())
	if err != nil {
		return fmt.Errorf("load local commit: %w", err)
	}
	remote, err := repo.CommitObject(remoteRef.Hash())
	if err != nil {
		return fmt.Errorf("load remote commit: %w", err)
	}
	if ahead, err := remote.IsAncestor(local); err == nil && ahead {
		return nil
	}
	behind, err := local.IsAncestor(remote)
	if err != nil {
		return fmt.Errorf("compare with remote: %w", err)
	}
	if !behind && !s.opts.Push {
		return fmt.Errorf("local branch %s has diverged from %s; resolve manually", head.Name().Short(), s.opts.Remote)
	}
	return s.resetTo(repo, remoteRef.Hash())
}

// checkoutRemote points an unborn branch at the remote default branch.
func (s *Store) checkoutRemote(repo *git.Repository) error {
	headRef, err := repo.Storer.Reference(plumbing.HEAD)
	if err != nil {
		return fmt.Errorf("read HEAD: %w", err)
	}
	branch := headRef.Target()
	remoteRef, err := repo.Reference(plumbing.NewRemoteReferenceName(s.opts.Remote, branch.Short()), true)
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("resolve remote branch: %w", err)
	}
	if err := repo.Storer.SetReference(plumbing.NewHashReference(branch, remoteRef.Hash())); err != nil {
		return fmt.Errorf("create branch: %w", err)
	}
	return s.resetTo(repo, remoteRef.Hash())
}

func (s *Store) resetTo(repo *git.Repository, hash plumbing.Hash) error {
	wt, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("open worktree: %w", err)
	}
	if err := wt.Reset(&git.ResetOptions{Commit: hash, Mode: git.HardReset}); err != nil {
		return fmt.Errorf("reset to %s: %w", hash, err)
	}
	return nil
}
