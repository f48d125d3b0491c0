// Package ghstore implements domain.ArtifactStore on the GitHub contents API.
//
// Every Put or Delete is one commit on the configured branch. Writes carry the
// blob SHA that was read just before, so a concurrent writer makes GitHub
// answer 409 or 422, which is reported as a conflict.
package ghstore

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"

	"github.com/google/go-github/github"
	"golang.org/x/oauth2"

	"github.com/runoshun/swarm-factory/internal/domain"
)

// Options configures a Store.
type Options struct {
	Owner       string
	Repo        string
	Branch      string
	AuthorName  string
	AuthorEmail string
}

// Store is the contents-API artifact store.
type Store struct {
	client *github.Client
	opts   Options
}

// Ensure Store implements the domain ports.
var (
	_ domain.ArtifactStore    = (*Store)(nil)
	_ domain.StoreInitializer = (*Store)(nil)
)

// NewClient returns a GitHub client authenticated with token.
// baseURL selects a GitHub Enterprise API endpoint; empty means github.com.
func NewClient(ctx context.Context, token, baseURL string) (*github.Client, error) {
	var hc *http.Client
	if token != "" {
		hc = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))
	}
	if baseURL == "" {
		return github.NewClient(hc), nil
	}
	return github.NewEnterpriseClient(baseURL, baseURL, hc)
}

// New creates a Store.
func New(client *github.Client, opts Options) *Store {
	if opts.Branch == "" {
		opts.Branch = domain.DefaultBranch
	}
	if opts.AuthorName == "" {
		opts.AuthorName = domain.DefaultAuthorName
	}
	if opts.AuthorEmail == "" {
		opts.AuthorEmail = domain.DefaultAuthorEmail
	}
	return &Store{client: client, opts: opts}
}

// Initialize checks that the repository is reachable. It never creates one.
func (s *Store) Initialize(ctx context.Context) (bool, error) {
	_, resp, err := s.client.Repositories.Get(ctx, s.opts.Owner, s.opts.Repo)
	if isStatus(resp, http.StatusNotFound) {
		return false, fmt.Errorf("repository %s/%s: %w", s.opts.Owner, s.opts.Repo, domain.ErrNotFound)
	}
	if err != nil {
		return false, fmt.Errorf("get repository: %w", err)
	}
	return false, nil
}

func (s *Store) getOptions() *github.RepositoryContentGetOptions {
	return &github.RepositoryContentGetOptions{Ref: s.opts.Branch}
}

// List returns the entries directly under dir. A missing directory is empty.
func (s *Store) List(ctx context.Context, dir string) ([]domain.Entry, error) {
	file, contents, resp, err := s.client.Repositories.GetContents(ctx, s.opts.Owner, s.opts.Repo, dir, s.getOptions())
	if isStatus(resp, http.StatusNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}
	if file != nil {
		return nil, fmt.Errorf("list %s: not a directory", dir)
	}

	entries := make([]domain.Entry, 0, len(contents))
	for _, c := range contents {
		p := c.GetPath()
		if p == "" {
			p = path.Join(dir, c.GetName())
		}
		entries = append(entries, domain.Entry{
			Path:  p,
			Name:  c.GetName(),
			IsDir: c.GetType() == "dir",
		})
	}
	return entries, nil
}

// Get returns the decoded content at p.
func (s *Store) Get(ctx context.Context, p string) ([]byte, error) {
	file, _, err := s.getFile(ctx, p)
	if err != nil {
		return nil, err
	}
	content, err := file.GetContent()
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", p, err)
	}
	return []byte(content), nil
}

// getFile fetches file metadata and content.
func (s *Store) getFile(ctx context.Context, p string) (*github.RepositoryContent, *github.Response, error) {
	file, _, resp, err := s.client.Repositories.GetContents(ctx, s.opts.Owner, s.opts.Repo, p, s.getOptions())
	if isStatus(resp, http.StatusNotFound) {
		return nil, resp, fmt.Errorf("%w: %s", domain.ErrArtifactNotFound, p)
	}
	if err != nil {
		return nil, resp, fmt.Errorf("get %s: %w", p, err)
	}
	if file == nil {
		return nil, resp, fmt.Errorf("get %s: is a directory", p)
	}
	return file, resp, nil
}

// currentSHA returns the blob SHA at p, or nil when p does not exist.
func (s *Store) currentSHA(ctx context.Context, p string) (*string, error) {
	file, _, err := s.getFile(ctx, p)
	if errors.Is(err, domain.ErrArtifactNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return github.String(file.GetSHA()), nil
}

func (s *Store) fileOptions(message string) *github.RepositoryContentFileOptions {
	author := &github.CommitAuthor{
		Name:  github.String(s.opts.AuthorName),
		Email: github.String(s.opts.AuthorEmail),
	}
	return &github.RepositoryContentFileOptions{
		Message:   github.String(message),
		Branch:    github.String(s.opts.Branch),
		Author:    author,
		Committer: author,
	}
}

// Put creates or updates p in one commit.
func (s *Store) Put(ctx context.Context, p string, data []byte, message string) domain.CommitResult {
	sha, err := s.currentSHA(ctx, p)
	if err != nil {
		return domain.Failed(err)
	}

	opts := s.fileOptions(message)
	opts.Content = data
	opts.SHA = sha

	var resp *github.Response
	if sha == nil {
		_, resp, err = s.client.Repositories.CreateFile(ctx, s.opts.Owner, s.opts.Repo, p, opts)
	} else {
		_, resp, err = s.client.Repositories.UpdateFile(ctx, s.opts.Owner, s.opts.Repo, p, opts)
	}
	return classify(resp, err, "put "+p)
}

// Create adds p in one commit. It never updates an existing file.
func (s *Store) Create(ctx context.Context, p string, data []byte, message string) domain.CommitResult {
	sha, err := s.currentSHA(ctx, p)
	if err != nil {
		return domain.Failed(err)
	}
	if sha != nil {
		return domain.Failed(fmt.Errorf("%w: %s", domain.ErrArtifactExists, p))
	}

	opts := s.fileOptions(message)
	opts.Content = data
	_, resp, err := s.client.Repositories.CreateFile(ctx, s.opts.Owner, s.opts.Repo, p, opts)
	return classify(resp, err, "create "+p)
}

// Delete removes p in one commit.
func (s *Store) Delete(ctx context.Context, p, message string) domain.CommitResult {
	sha, err := s.currentSHA(ctx, p)
	if err != nil {
		return domain.Failed(err)
	}
	if sha == nil {
		return domain.Failed(fmt.Errorf("%w: %s", domain.ErrArtifactNotFound, p))
	}

	opts := s.fileOptions(message)
	opts.SHA = sha
	_, resp, err := s.client.Repositories.DeleteFile(ctx, s.opts.Owner, s.opts.Repo, p, opts)
	return classify(resp, err, "delete "+p)
}

// Sync is a no-op: every read goes to the API.
func (s *Store) Sync(context.Context) error {
	return nil
}

func classify(resp *github.Response, err error, what string) domain.CommitResult {
	if err == nil {
		return domain.Committed()
	}
	if isStatus(resp, http.StatusConflict) || isStatus(resp, http.StatusUnprocessableEntity) || isSHAMismatch(err) {
		return domain.Conflicted(fmt.Errorf("%s: %w", what, err))
	}
	return domain.Failed(fmt.Errorf("%s: %w", what, err))
}

func isSHAMismatch(err error) bool {
	var er *github.ErrorResponse
	if !errors.As(err, &er) {
		return false
	}
	return strings.Contains(er.Message, "does not match")
}

func isStatus(resp *github.Response, code int) bool {
	return resp != nil && resp.Response != nil && resp.StatusCode == code
}
