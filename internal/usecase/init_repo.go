// Package usecase contains the application use cases.
package usecase

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/runoshun/swarm-factory/internal/domain"
)

// InitRepoInput contains the input parameters for InitRepo.
type InitRepoInput struct {
	Config   *domain.Config // Seeds the config template
	SwarmDir string         // Path to .swarm directory
}

// InitRepoOutput contains the output from InitRepo.
type InitRepoOutput struct {
	SwarmDir           string `json:"swarmDir"`
	ConfigPath         string `json:"configPath,omitempty"`
	AlreadyInitialized bool   `json:"alreadyInitialized"`
	ConfigCreated      bool   `json:"configCreated"`
}

// InitRepo prepares a store checkout for swarm-factory.
type InitRepo struct {
	storeInit     domain.StoreInitializer
	configManager domain.ConfigManager
}

// NewInitRepo creates a new InitRepo use case.
func NewInitRepo(storeInit domain.StoreInitializer, configManager domain.ConfigManager) *InitRepo {
	return &InitRepo{
		storeInit:     storeInit,
		configManager: configManager,
	}
}

// Execute initializes the store, the .swarm directory and the repo config.
// Running it again is safe: existing files are kept.
func (uc *InitRepo) Execute(ctx context.Context, in InitRepoInput) (*InitRepoOutput, error) {
	created, err := uc.storeInit.Initialize(ctx)
	if err != nil {
		return nil, fmt.Errorf("initialize store: %w", err)
	}

	logsDir := filepath.Join(in.SwarmDir, "logs")
	if err := os.MkdirAll(logsDir, 0o750); err != nil {
		return nil, fmt.Errorf("create logs directory: %w", err)
	}
	gitignore := filepath.Join(in.SwarmDir, domain.GitignoreName)
	if _, err := os.Stat(gitignore); errors.Is(err, os.ErrNotExist) {
		if err := os.WriteFile(gitignore, domain.GitignoreContent(), 0o600); err != nil {
			return nil, fmt.Errorf("write .gitignore: %w", err)
		}
	}

	out := &InitRepoOutput{
		SwarmDir:           in.SwarmDir,
		AlreadyInitialized: !created,
		ConfigPath:         uc.configManager.GetRepoConfigInfo().Path,
	}
	cfg := in.Config
	if cfg == nil {
		cfg = domain.NewDefaultConfig()
	}
	switch err := uc.configManager.InitRepoConfig(cfg); {
	case err == nil:
		out.ConfigCreated = true
	case errors.Is(err, domain.ErrConfigExists):
	default:
		return nil, fmt.Errorf("write config: %w", err)
	}
	return out, nil
}
