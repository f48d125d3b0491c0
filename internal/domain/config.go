package domain

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"path/filepath"
	"text/template"
	"time"
)

//go:embed config_template.toml
var configTemplateContent string

// Config represents the application configuration.
// Fields are ordered to minimize memory padding.
type Config struct {
	Warnings []string       `toml:"-"`
	Store    StoreConfig    `toml:"store"`
	GitHub   GitHubConfig   `toml:"github"`
	Notify   NotifyConfig   `toml:"notify"`
	Runner   RunnerConfig   `toml:"runner"`
	Dispatch DispatchConfig `toml:"dispatch"`
	Log      LogConfig      `toml:"log"`
	Server   ServerConfig   `toml:"server"`
}

// Store backends.
const (
	StoreBackendGit    = "git"
	StoreBackendGitHub = "github"
)

// StoreConfig holds artifact store settings from [store] section.
type StoreConfig struct {
	Backend     string `toml:"backend"`      // "git" (default) or "github"
	Remote      string `toml:"remote"`       // Git remote name (default: "origin")
	AuthorName  string `toml:"author_name"`  // Commit author name
	AuthorEmail string `toml:"author_email"` // Commit author email
	Push        bool   `toml:"push"`         // Push after each commit
	PullFirst   bool   `toml:"pull_first"`   // Sync before a batch of writes
}

// GitHubConfig holds contents-API settings from [github] section.
type GitHubConfig struct {
	Owner    string `toml:"owner"`
	Repo     string `toml:"repo"`
	Branch   string `toml:"branch"`    // Default: "main"
	TokenEnv string `toml:"token_env"` // Environment variable holding the token (default: GITHUB_TOKEN)
	BaseURL  string `toml:"base_url"`  // GitHub Enterprise API URL
}

// NotifyConfig holds run-channel webhook settings from [notify] section.
type NotifyConfig struct {
	BaseURL string   `toml:"base_url"` // Empty disables notifications
	Timeout Duration `toml:"timeout"`
}

// RunnerConfig holds batch-advance settings from [runner] section.
type RunnerConfig struct {
	Name     string `toml:"name"`      // Recorded in swarm.runner
	MaxSteps int    `toml:"max_steps"` // Steps per job per invocation
}

// DispatchConfig holds dispatch-scan settings from [dispatch] section.
type DispatchConfig struct {
	MaxRuns         int `toml:"max_runs"`          // Runs scanned per tick
	DecisionsPerJob int `toml:"decisions_per_job"` // Newest decision files read per run
}

// LogConfig holds logging settings from [log] section.
type LogConfig struct {
	Level string `toml:"level"` // debug, info, warn, error
}

// ServerConfig holds HTTP API settings from [server] section.
type ServerConfig struct {
	Addr      string `toml:"addr"`
	BoardSize int    `toml:"board_size"` // Max jobs in a board response
}

// Duration is a time.Duration that reads and writes as a TOML string like "5s".
type Duration time.Duration

// UnmarshalText parses a duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", text, err)
	}
	*d = Duration(v)
	return nil
}

// MarshalText formats the duration.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Default configuration values.
const (
	DefaultLogLevel        = "info"
	DefaultRemote          = "origin"
	DefaultBranch          = "main"
	DefaultTokenEnv        = "GITHUB_TOKEN"
	DefaultRunnerName      = "swarm-runner"
	DefaultMaxSteps        = 20
	DefaultMaxRuns         = 200
	DefaultDecisionsPerJob = 10
	DefaultServerAddr      = "127.0.0.1:8787"
	DefaultBoardSize       = 50
	DefaultNotifyTimeout   = 10 * time.Second
	DefaultAuthorName      = "swarm-factory"
	DefaultAuthorEmail     = "swarm-factory@localhost"
)

// NewDefaultConfig returns a Config with default values.
func NewDefaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			Backend:     StoreBackendGit,
			Remote:      DefaultRemote,
			AuthorName:  DefaultAuthorName,
			AuthorEmail: DefaultAuthorEmail,
		},
		GitHub: GitHubConfig{
			Branch:   DefaultBranch,
			TokenEnv: DefaultTokenEnv,
		},
		Notify: NotifyConfig{
			Timeout: Duration(DefaultNotifyTimeout),
		},
		Runner: RunnerConfig{
			Name:     DefaultRunnerName,
			MaxSteps: DefaultMaxSteps,
		},
		Dispatch: DispatchConfig{
			MaxRuns:         DefaultMaxRuns,
			DecisionsPerJob: DefaultDecisionsPerJob,
		},
		Log: LogConfig{
			Level: DefaultLogLevel,
		},
		Server: ServerConfig{
			Addr:      DefaultServerAddr,
			BoardSize: DefaultBoardSize,
		},
	}
}

// Validate checks values that would make the tool misbehave.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case StoreBackendGit:
	case StoreBackendGitHub:
		if c.GitHub.Owner == "" || c.GitHub.Repo == "" {
			return invalid("github", errors.New("owner and repo are required for the github backend"))
		}
	default:
		return &ValidationError{Field: "store.backend", Err: errors.New("unknown backend"), Value: c.Store.Backend}
	}
	if c.Runner.MaxSteps <= 0 {
		return invalid("runner.max_steps", errors.New("must be positive"))
	}
	if c.Dispatch.MaxRuns <= 0 {
		return invalid("dispatch.max_runs", errors.New("must be positive"))
	}
	return nil
}

// Directory and file names for swarm-factory.
const (
	SwarmDirName   = ".swarm"        // Local state directory in the store checkout
	AppDirName     = "swarm-factory" // Directory name under XDG_CONFIG_HOME
	ConfigFileName = "config.toml"   // Config file name
	GitignoreName  = ".gitignore"    // Inside SwarmDirName
)

const gitignoreBody = "logs/\n"

// RepoSwarmDir returns the swarm directory for a store checkout.
func RepoSwarmDir(repoRoot string) string {
	return filepath.Join(repoRoot, SwarmDirName)
}

// RepoConfigPath returns the repo config path.
func RepoConfigPath(repoRoot string) string {
	return filepath.Join(RepoSwarmDir(repoRoot), ConfigFileName)
}

// GlobalConfigDir returns the global config directory.
// configHome is typically XDG_CONFIG_HOME or ~/.config (resolved by caller).
func GlobalConfigDir(configHome string) string {
	return filepath.Join(configHome, AppDirName)
}

// GlobalConfigPath returns the global config path.
func GlobalConfigPath(configHome string) string {
	return filepath.Join(GlobalConfigDir(configHome), ConfigFileName)
}

// GitignoreContent returns the .swarm/.gitignore body written by init.
func GitignoreContent() []byte {
	return []byte(gitignoreBody)
}

// RenderConfigTemplate renders a commented config file seeded from cfg.
func RenderConfigTemplate(cfg *Config) string {
	tmpl, err := template.New("config").Delims("<<", ">>").Parse(configTemplateContent)
	if err != nil {
		// Should never happen with embedded template
		panic(fmt.Sprintf("failed to parse config template: %v", err))
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, cfg); err != nil {
		// Should never happen with valid data
		panic(fmt.Sprintf("failed to execute config template: %v", err))
	}
	return buf.String()
}
