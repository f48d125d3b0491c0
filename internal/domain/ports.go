package domain

import (
	"context"
	"time"
)

// Entry is one item of a store directory listing.
// Fields are ordered to minimize memory padding.
type Entry struct {
	ModTime time.Time // Last modification, zero when the backend cannot tell
	Path    string    // Full slash-separated store path
	Name    string    // Base name
	IsDir   bool
}

// ArtifactStore is durable, path-addressed storage for job records and artifacts.
// Single writes are atomic; ordering across writes is only eventually consistent.
type ArtifactStore interface {
	// List returns the entries directly under dir. A missing dir yields no entries and no error.
	List(ctx context.Context, dir string) ([]Entry, error)

	// Get returns the content at path. Returns ErrArtifactNotFound if absent.
	Get(ctx context.Context, path string) ([]byte, error)

	// Put writes data at path as one commit.
	Put(ctx context.Context, path string, data []byte, message string) CommitResult

	// Create writes data at path as one commit only if path does not exist.
	// An existing path is a fatal result matching ErrArtifactExists.
	Create(ctx context.Context, path string, data []byte, message string) CommitResult

	// Delete removes path as one commit.
	Delete(ctx context.Context, path, message string) CommitResult

	// Sync brings the local view up to date with the shared history.
	Sync(ctx context.Context) error
}

// Clock provides time operations for testability.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
}

// RealClock implements Clock using the system clock.
type RealClock struct{}

// Now returns the current time.
func (RealClock) Now() time.Time {
	return time.Now()
}

// IDGenerator produces job identifiers and short-code suffixes.
type IDGenerator interface {
	// NewJobID returns a globally unique job identifier.
	NewJobID() string

	// NewSuffix returns a short random lowercase suffix for short codes.
	NewSuffix() string
}

// Notifier tells the messaging side about new runs.
type Notifier interface {
	// CreateRunChannel creates a channel for a confirmed run.
	CreateRunChannel(ctx context.Context, job *Job) (*ChannelInfo, error)
}

// Logger writes leveled log entries, optionally scoped to a job.
// An empty jobID logs globally.
type Logger interface {
	Info(jobID, category, msg string)
	Debug(jobID, category, msg string)
	Warn(jobID, category, msg string)
	Error(jobID, category, msg string)
}

// ConfigLoader loads configuration.
type ConfigLoader interface {
	// Load returns the merged configuration (defaults <- global <- repo).
	Load() (*Config, error)
}

// ConfigInfo describes one configuration file.
type ConfigInfo struct {
	Path    string `json:"path"`              // Absolute path
	Content string `json:"content,omitempty"` // File content, empty when missing
	Exists  bool   `json:"exists"`
}

// ConfigManager inspects and creates configuration files.
type ConfigManager interface {
	// GetRepoConfigInfo returns information about the repository config file.
	GetRepoConfigInfo() ConfigInfo

	// GetGlobalConfigInfo returns information about the global config file.
	GetGlobalConfigInfo() ConfigInfo

	// InitRepoConfig writes the repository config template. Returns ErrConfigExists if present.
	InitRepoConfig(cfg *Config) error

	// InitGlobalConfig writes the global config template. Returns ErrConfigExists if present.
	InitGlobalConfig(cfg *Config) error
}

// StoreInitializer prepares a backend for first use.
type StoreInitializer interface {
	// Initialize creates or verifies the store. created is false when it already existed.
	Initialize(ctx context.Context) (created bool, err error)
}
