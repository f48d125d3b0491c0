// Package testutil provides shared test utilities and mock implementations.
package testutil

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/runoshun/swarm-factory/internal/domain"
)

// MockClock is a test double for domain.Clock.
type MockClock struct {
	NowTime time.Time
	Step    time.Duration // Added after every call when non-zero
	mu      sync.Mutex
}

// Now returns the configured time, then advances it by Step.
func (m *MockClock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.NowTime
	m.NowTime = m.NowTime.Add(m.Step)
	return now
}

// Ensure MemoryStore implements domain.ArtifactStore.
var _ domain.ArtifactStore = (*MemoryStore)(nil)

// MemoryStore is an in-memory domain.ArtifactStore.
// Conflicts and failures can be injected per call.
// Fields are ordered to minimize memory padding.
type MemoryStore struct {
	Files    map[string][]byte
	ModTimes map[string]time.Time
	Messages []string // Commit messages in write order
	ListErr  error    // Returned by List when set
	GetErr   error    // Returned by Get when set
	SyncErr  error    // Returned by Sync when set
	FatalErr error    // Every Put/Delete fails fatally when set
	// ListErrFor fails List for directories with this prefix.
	ListErrFor string
	Conflicts  int // Next N writes report a conflict
	Syncs      int // Number of Sync calls
	Writes     int // Number of attempted writes
	clock      int64
	mu         sync.Mutex
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		Files:    make(map[string][]byte),
		ModTimes: make(map[string]time.Time),
	}
}

// List returns the direct children of dir.
func (m *MemoryStore) List(_ context.Context, dir string) ([]domain.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	if m.ListErrFor != "" && strings.HasPrefix(dir, m.ListErrFor) {
		return nil, fmt.Errorf("list %s: injected failure", dir)
	}

	prefix := strings.TrimSuffix(dir, "/") + "/"
	seen := make(map[string]bool)
	var entries []domain.Entry
	for p := range m.Files {
		if !strings.HasPrefix(p, prefix) {
			continue
		}
		rest := strings.TrimPrefix(p, prefix)
		name, _, nested := strings.Cut(rest, "/")
		if seen[name] {
			continue
		}
		seen[name] = true
		entries = append(entries, domain.Entry{
			Path:    path.Join(dir, name),
			Name:    name,
			IsDir:   nested,
			ModTime: m.ModTimes[p],
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

// Get returns the content at p.
func (m *MemoryStore) Get(_ context.Context, p string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	data, ok := m.Files[p]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrArtifactNotFound, p)
	}
	return append([]byte(nil), data...), nil
}

// Put stores data at p.
func (m *MemoryStore) Put(_ context.Context, p string, data []byte, message string) domain.CommitResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	if res, done := m.injected(); done {
		return res
	}
	m.Files[p] = append([]byte(nil), data...)
	m.clock++
	m.ModTimes[p] = time.Unix(m.clock, 0).UTC()
	m.Messages = append(m.Messages, message)
	return domain.Committed()
}

// Create stores data at p unless p already exists.
func (m *MemoryStore) Create(_ context.Context, p string, data []byte, message string) domain.CommitResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	if res, done := m.injected(); done {
		return res
	}
	if _, ok := m.Files[p]; ok {
		return domain.Failed(fmt.Errorf("%w: %s", domain.ErrArtifactExists, p))
	}
	m.Files[p] = append([]byte(nil), data...)
	m.clock++
	m.ModTimes[p] = time.Unix(m.clock, 0).UTC()
	m.Messages = append(m.Messages, message)
	return domain.Committed()
}

// Delete removes p.
func (m *MemoryStore) Delete(_ context.Context, p, message string) domain.CommitResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	if res, done := m.injected(); done {
		return res
	}
	if _, ok := m.Files[p]; !ok {
		return domain.Failed(fmt.Errorf("%w: %s", domain.ErrArtifactNotFound, p))
	}
	delete(m.Files, p)
	delete(m.ModTimes, p)
	m.Messages = append(m.Messages, message)
	return domain.Committed()
}

// Sync counts the call.
func (m *MemoryStore) Sync(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Syncs++
	return m.SyncErr
}

func (m *MemoryStore) injected() (domain.CommitResult, bool) {
	m.Writes++
	if m.FatalErr != nil {
		return domain.Failed(m.FatalErr), true
	}
	if m.Conflicts > 0 {
		m.Conflicts--
		return domain.Conflicted(errors.New("injected conflict")), true
	}
	return domain.CommitResult{}, false
}

// Seed stores v as indented JSON at p without counting a write.
// It panics if v cannot be marshaled.
func (m *MemoryStore) Seed(p string, v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		panic(fmt.Sprintf("seed %s: %v", p, err))
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Files[p] = append(data, '\n')
	m.clock++
	m.ModTimes[p] = time.Unix(m.clock, 0).UTC()
}

// Paths returns stored paths with the given prefix, sorted.
func (m *MemoryStore) Paths(prefix string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for p := range m.Files {
		if strings.HasPrefix(p, prefix) {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}

// SeqIDs is a deterministic domain.IDGenerator.
type SeqIDs struct {
	Prefix string
	n      int
	mu     sync.Mutex
}

// NewJobID returns job-1, job-2, ...
func (s *SeqIDs) NewJobID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	prefix := s.Prefix
	if prefix == "" {
		prefix = "job"
	}
	return fmt.Sprintf("%s-%d", prefix, s.n)
}

// NewSuffix returns a fixed suffix.
func (s *SeqIDs) NewSuffix() string {
	return "abcd"
}

// MockNotifier is a test double for domain.Notifier.
type MockNotifier struct {
	Channel *domain.ChannelInfo
	Err     error
	Calls   []string // Job IDs
}

// CreateRunChannel records the call.
func (m *MockNotifier) CreateRunChannel(_ context.Context, job *domain.Job) (*domain.ChannelInfo, error) {
	m.Calls = append(m.Calls, job.JobID)
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Channel, nil
}

// LogEntry is one message captured by MockLogger.
type LogEntry struct {
	Level    string
	JobID    string
	Category string
	Msg      string
}

// MockLogger captures log entries.
type MockLogger struct {
	Entries []LogEntry
	mu      sync.Mutex
}

func (l *MockLogger) add(level, jobID, category, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Entries = append(l.Entries, LogEntry{Level: level, JobID: jobID, Category: category, Msg: msg})
}

// Info records an info entry.
func (l *MockLogger) Info(jobID, category, msg string) { l.add("info", jobID, category, msg) }

// Debug records a debug entry.
func (l *MockLogger) Debug(jobID, category, msg string) { l.add("debug", jobID, category, msg) }

// Warn records a warn entry.
func (l *MockLogger) Warn(jobID, category, msg string) { l.add("warn", jobID, category, msg) }

// Error records an error entry.
func (l *MockLogger) Error(jobID, category, msg string) { l.add("error", jobID, category, msg) }

// Count returns the number of entries at level.
func (l *MockLogger) Count(level string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, e := range l.Entries {
		if e.Level == level {
			n++
		}
	}
	return n
}

// MockStoreInitializer is a test double for domain.StoreInitializer.
type MockStoreInitializer struct {
	Err    error
	Called int
	Exists bool // Initialize reports the store as already present
}

// Ensure MockStoreInitializer implements domain.StoreInitializer.
var _ domain.StoreInitializer = (*MockStoreInitializer)(nil)

// Initialize records the call.
func (m *MockStoreInitializer) Initialize(_ context.Context) (bool, error) {
	m.Called++
	if m.Err != nil {
		return false, m.Err
	}
	return !m.Exists, nil
}

// MockConfigManager is a test double for domain.ConfigManager.
// Fields are ordered to minimize memory padding.
type MockConfigManager struct {
	InitRepoErr      error
	InitGlobalErr    error
	RepoConfigInfo   domain.ConfigInfo
	GlobalConfigInfo domain.ConfigInfo
	InitRepoCalled   bool
	InitGlobalCalled bool
}

// NewMockConfigManager creates a new MockConfigManager.
func NewMockConfigManager() *MockConfigManager {
	return &MockConfigManager{
		RepoConfigInfo: domain.ConfigInfo{
			Path: "/test/.swarm/config.toml",
		},
		GlobalConfigInfo: domain.ConfigInfo{
			Path: "/home/test/.config/swarm-factory/config.toml",
		},
	}
}

// Ensure MockConfigManager implements domain.ConfigManager.
var _ domain.ConfigManager = (*MockConfigManager)(nil)

// GetRepoConfigInfo returns the configured repo config info.
func (m *MockConfigManager) GetRepoConfigInfo() domain.ConfigInfo {
	return m.RepoConfigInfo
}

// GetGlobalConfigInfo returns the configured global config info.
func (m *MockConfigManager) GetGlobalConfigInfo() domain.ConfigInfo {
	return m.GlobalConfigInfo
}

// InitRepoConfig records the call and returns the configured error.
func (m *MockConfigManager) InitRepoConfig(_ *domain.Config) error {
	m.InitRepoCalled = true
	return m.InitRepoErr
}

// InitGlobalConfig records the call and returns the configured error.
func (m *MockConfigManager) InitGlobalConfig(_ *domain.Config) error {
	m.InitGlobalCalled = true
	return m.InitGlobalErr
}
