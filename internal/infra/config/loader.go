// Package config provides configuration loading functionality.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/runoshun/swarm-factory/internal/domain"
)

// Ensure Loader implements domain.ConfigLoader.
var _ domain.ConfigLoader = (*Loader)(nil)

// Loader loads configuration from TOML files.
type Loader struct {
	swarmDir      string // Path to the .swarm directory of the store checkout
	globalConfDir string // Path to global config directory (e.g., ~/.config/swarm-factory)
}

// NewLoader creates a new Loader.
func NewLoader(swarmDir string) *Loader {
	return &Loader{
		swarmDir:      swarmDir,
		globalConfDir: defaultGlobalConfigDir(),
	}
}

// NewLoaderWithGlobalDir creates a new Loader with a custom global config directory.
// This is useful for testing.
func NewLoaderWithGlobalDir(swarmDir, globalConfDir string) *Loader {
	return &Loader{
		swarmDir:      swarmDir,
		globalConfDir: globalConfDir,
	}
}

// defaultGlobalConfigDir returns the default global config directory.
func defaultGlobalConfigDir() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return domain.GlobalConfigDir(configHome)
}

// Load returns the merged configuration.
// Merge order is default <- global <- repo; later files only override the keys they set.
// Unknown keys do not fail the load and are reported in Config.Warnings.
func (l *Loader) Load() (*domain.Config, error) {
	cfg := domain.NewDefaultConfig()
	var warnings []string

	if l.globalConfDir != "" {
		w, err := decodeFile(filepath.Join(l.globalConfDir, domain.ConfigFileName), cfg)
		if err != nil {
			return nil, err
		}
		warnings = append(warnings, w...)
	}
	if l.swarmDir != "" {
		w, err := decodeFile(filepath.Join(l.swarmDir, domain.ConfigFileName), cfg)
		if err != nil {
			return nil, err
		}
		warnings = append(warnings, w...)
	}

	sort.Strings(warnings)
	cfg.Warnings = warnings

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// decodeFile overlays the file at path onto cfg. A missing file is not an error.
func decodeFile(path string, cfg *domain.Config) ([]string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	err = dec.Decode(cfg)

	var strict *toml.StrictMissingError
	if errors.As(err, &strict) {
		warnings := make([]string, 0, len(strict.Errors))
		for _, e := range strict.Errors {
			warnings = append(warnings, fmt.Sprintf("unknown key in %s: %s", path, strings.Join(e.Key(), ".")))
		}
		return warnings, nil
	}
	if err != nil {
		var de *toml.DecodeError
		if errors.As(err, &de) {
			row, col := de.Position()
			return nil, fmt.Errorf("parse config %s:%d:%d: %w", path, row, col, err)
		}
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil, nil
}
