// Package app provides the dependency injection container for the application.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v5"

	"github.com/runoshun/swarm-factory/internal/domain"
	"github.com/runoshun/swarm-factory/internal/infra/config"
	"github.com/runoshun/swarm-factory/internal/infra/ghstore"
	"github.com/runoshun/swarm-factory/internal/infra/gitstore"
	"github.com/runoshun/swarm-factory/internal/infra/httpapi"
	"github.com/runoshun/swarm-factory/internal/infra/ids"
	"github.com/runoshun/swarm-factory/internal/infra/logging"
	"github.com/runoshun/swarm-factory/internal/infra/notify"
	"github.com/runoshun/swarm-factory/internal/usecase"
	"github.com/runoshun/swarm-factory/internal/usecase/shared"
)

// Config holds the application configuration paths.
type Config struct {
	RepoRoot string // Root directory of the store checkout
	SwarmDir string // Path to .swarm directory
}

// newConfig resolves paths for the checkout containing dir.
// Outside a git repository dir itself is the root, so init can create one.
func newConfig(dir string) Config {
	root := dir
	if repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true}); err == nil {
		if wt, err := repo.Worktree(); err == nil {
			root = wt.Filesystem.Root()
		}
	}
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	return Config{
		RepoRoot: root,
		SwarmDir: domain.RepoSwarmDir(root),
	}
}

// Container provides dependency injection for the application.
// It holds all port implementations and provides factory methods for use cases.
type Container struct {
	// Ports (interfaces bound to implementations)
	Store            domain.ArtifactStore
	StoreInitializer domain.StoreInitializer
	Clock            domain.Clock
	IDs              domain.IDGenerator
	Notifier         domain.Notifier
	Logger           domain.Logger
	ConfigLoader     domain.ConfigLoader
	ConfigManager    domain.ConfigManager

	// Pointer fields
	AppConfig *domain.Config
	Slog      *slog.Logger
	closers   []func() error

	// Configuration
	Config Config
}

// New creates a new Container for the store checkout containing dir.
func New(dir string) (*Container, error) {
	cfg := newConfig(dir)

	configLoader := config.NewLoader(cfg.SwarmDir)
	appConfig, err := configLoader.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	store, storeInit, err := newStore(cfg.RepoRoot, appConfig)
	if err != nil {
		return nil, err
	}

	level := logging.ParseLevel(appConfig.Log.Level)
	fileLogger := logging.New(cfg.SwarmDir, level)

	var notifier domain.Notifier = notify.Noop{}
	if appConfig.Notify.BaseURL != "" {
		notifier = notify.NewWebhook(appConfig.Notify.BaseURL, appConfig.Notify.Timeout.Std(), nil)
	}

	return &Container{
		Store:            store,
		StoreInitializer: storeInit,
		Clock:            domain.RealClock{},
		IDs:              ids.Generator{},
		Notifier:         notifier,
		Logger:           fileLogger,
		ConfigLoader:     configLoader,
		ConfigManager:    config.NewManager(cfg.SwarmDir),
		AppConfig:        appConfig,
		Slog: slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: level,
		})),
		closers: []func() error{fileLogger.Close},
		Config:  cfg,
	}, nil
}

// newStore builds the artifact store selected by [store] backend.
func newStore(root string, cfg *domain.Config) (domain.ArtifactStore, domain.StoreInitializer, error) {
	switch cfg.Store.Backend {
	case domain.StoreBackendGitHub:
		token := os.Getenv(cfg.GitHub.TokenEnv)
		if token == "" {
			return nil, nil, fmt.Errorf("github backend: %s is not set: %w", cfg.GitHub.TokenEnv, domain.ErrValidation)
		}
		client, err := ghstore.NewClient(context.Background(), token, cfg.GitHub.BaseURL)
		if err != nil {
			return nil, nil, err
		}
		s := ghstore.New(client, ghstore.Options{
			Owner:       cfg.GitHub.Owner,
			Repo:        cfg.GitHub.Repo,
			Branch:      cfg.GitHub.Branch,
			AuthorName:  cfg.Store.AuthorName,
			AuthorEmail: cfg.Store.AuthorEmail,
		})
		return s, s, nil
	case domain.StoreBackendGit, "":
		s := gitstore.New(root, gitstore.Options{
			Remote:      cfg.Store.Remote,
			AuthorName:  cfg.Store.AuthorName,
			AuthorEmail: cfg.Store.AuthorEmail,
			Push:        cfg.Store.Push,
		})
		return s, s, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q: %w", cfg.Store.Backend, domain.ErrValidation)
	}
}

// NewWithDeps creates a new Container with custom dependencies.
// This is useful for testing.
func NewWithDeps(
	cfg Config,
	appConfig *domain.Config,
	store domain.ArtifactStore,
	storeInit domain.StoreInitializer,
	clock domain.Clock,
	idGen domain.IDGenerator,
	notifier domain.Notifier,
	logger domain.Logger,
) *Container {
	if appConfig == nil {
		appConfig = domain.NewDefaultConfig()
	}
	return &Container{
		Store:            store,
		StoreInitializer: storeInit,
		Clock:            clock,
		IDs:              idGen,
		Notifier:         notifier,
		Logger:           logger,
		ConfigLoader:     config.NewLoaderWithGlobalDir(cfg.SwarmDir, ""),
		ConfigManager:    config.NewManagerWithGlobalDir(cfg.SwarmDir, ""),
		AppConfig:        appConfig,
		Slog:             slog.New(slog.NewTextHandler(os.Stderr, nil)),
		Config:           cfg,
	}
}

// Close releases resources held by the container.
func (c *Container) Close() error {
	var errs []error
	for _, fn := range c.closers {
		errs = append(errs, fn())
	}
	return errors.Join(errs...)
}

// writer returns a fresh retry policy for a single use case invocation.
func (c *Container) writer() *shared.RetryPolicy {
	return shared.NewRetryPolicy(c.Store, c.Logger, c.AppConfig.Store.PullFirst)
}

// InitRepoUseCase returns a new InitRepo use case.
func (c *Container) InitRepoUseCase() *usecase.InitRepo {
	return usecase.NewInitRepo(c.StoreInitializer, c.ConfigManager)
}

// IntakeUseCase returns a new Intake use case.
func (c *Container) IntakeUseCase() *usecase.Intake {
	return usecase.NewIntake(c.writer(), c.IDs, c.Clock, c.Logger)
}

// ConfirmJobUseCase returns a new ConfirmJob use case.
func (c *Container) ConfirmJobUseCase() *usecase.ConfirmJob {
	return usecase.NewConfirmJob(c.Store, c.writer(), c.Notifier, c.Clock, c.Logger)
}

// AdvanceJobsUseCase returns a new AdvanceJobs use case.
func (c *Container) AdvanceJobsUseCase() *usecase.AdvanceJobs {
	return usecase.NewAdvanceJobs(c.Store, c.writer(), c.Clock, c.Logger, c.AppConfig.Runner)
}

// AppendDecisionUseCase returns a new AppendDecision use case.
func (c *Container) AppendDecisionUseCase() *usecase.AppendDecision {
	return usecase.NewAppendDecision(c.Store, c.writer(), c.Clock, c.Logger)
}

// ResolveEffectiveUseCase returns a new ResolveEffective use case.
func (c *Container) ResolveEffectiveUseCase() *usecase.ResolveEffective {
	return usecase.NewResolveEffective(c.Store, c.Logger)
}

// BoardUseCase returns a new Board use case.
func (c *Container) BoardUseCase() *usecase.Board {
	return usecase.NewBoard(c.Store, c.Logger, c.AppConfig.Server.BoardSize)
}

// ShowJobUseCase returns a new ShowJob use case.
func (c *Container) ShowJobUseCase() *usecase.ShowJob {
	return usecase.NewShowJob(c.Store, c.Logger)
}

// DispatchScanUseCase returns a new DispatchScan use case.
func (c *Container) DispatchScanUseCase() *usecase.DispatchScan {
	return usecase.NewDispatchScan(c.Store, c.writer(), c.Clock, c.Logger, c.AppConfig.Dispatch)
}

// ShowConfigUseCase returns a new ShowConfig use case.
func (c *Container) ShowConfigUseCase() *usecase.ShowConfig {
	return usecase.NewShowConfig(c.ConfigManager, c.AppConfig)
}

// InitConfigUseCase returns a new InitConfig use case.
func (c *Container) InitConfigUseCase() *usecase.InitConfig {
	return usecase.NewInitConfig(c.ConfigManager)
}

// HTTPHandler returns the HTTP API router.
func (c *Container) HTTPHandler() http.Handler {
	return httpapi.NewRouter(httpapi.Handlers{
		AppendDecision:   c.AppendDecisionUseCase,
		Board:            c.BoardUseCase,
		ShowJob:          c.ShowJobUseCase,
		ResolveEffective: c.ResolveEffectiveUseCase,
		Logger:           c.Logger,
	})
}
