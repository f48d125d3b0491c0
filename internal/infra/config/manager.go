package config

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/runoshun/swarm-factory/internal/domain"
)

// Ensure Manager implements domain.ConfigManager.
var _ domain.ConfigManager = (*Manager)(nil)

// Manager manages configuration files.
type Manager struct {
	swarmDir      string // Path to the .swarm directory of the store checkout
	globalConfDir string // Path to global config directory
}

// NewManager creates a new Manager.
func NewManager(swarmDir string) *Manager {
	return &Manager{
		swarmDir:      swarmDir,
		globalConfDir: defaultGlobalConfigDir(),
	}
}

// NewManagerWithGlobalDir creates a new Manager with a custom global config directory.
// This is useful for testing.
func NewManagerWithGlobalDir(swarmDir, globalConfDir string) *Manager {
	return &Manager{
		swarmDir:      swarmDir,
		globalConfDir: globalConfDir,
	}
}

// GetRepoConfigInfo returns information about the repository config file.
func (m *Manager) GetRepoConfigInfo() domain.ConfigInfo {
	return readConfigInfo(filepath.Join(m.swarmDir, domain.ConfigFileName))
}

// GetGlobalConfigInfo returns information about the global config file.
func (m *Manager) GetGlobalConfigInfo() domain.ConfigInfo {
	if m.globalConfDir == "" {
		return domain.ConfigInfo{}
	}
	return readConfigInfo(filepath.Join(m.globalConfDir, domain.ConfigFileName))
}

func readConfigInfo(path string) domain.ConfigInfo {
	content, err := os.ReadFile(path)
	if err != nil {
		return domain.ConfigInfo{Path: path}
	}
	return domain.ConfigInfo{
		Path:    path,
		Content: string(content),
		Exists:  true,
	}
}

// InitRepoConfig writes the commented config template into the swarm directory.
func (m *Manager) InitRepoConfig(cfg *domain.Config) error {
	if err := os.MkdirAll(m.swarmDir, 0o750); err != nil {
		return err
	}
	return writeTemplate(filepath.Join(m.swarmDir, domain.ConfigFileName), cfg)
}

// InitGlobalConfig writes the commented config template into the global config directory.
func (m *Manager) InitGlobalConfig(cfg *domain.Config) error {
	if m.globalConfDir == "" {
		return errors.New("global config directory not available")
	}
	if err := os.MkdirAll(m.globalConfDir, 0o700); err != nil {
		return err
	}
	return writeTemplate(filepath.Join(m.globalConfDir, domain.ConfigFileName), cfg)
}

func writeTemplate(path string, cfg *domain.Config) error {
	if _, err := os.Stat(path); err == nil {
		return domain.ErrConfigExists
	}
	return os.WriteFile(path, []byte(domain.RenderConfigTemplate(cfg)), 0o600)
}
