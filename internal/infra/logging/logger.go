// Package logging provides file-based logging for swarm-factory.
// It outputs logs to both a global log file (.swarm/logs/swarm.log)
// and job-specific log files (.swarm/logs/job-<id>.log).
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/runoshun/swarm-factory/internal/domain"
)

// Ensure Logger implements domain.Logger interface.
var _ domain.Logger = (*Logger)(nil)

// Logger writes leveled entries to the swarm log directory.
// Fields are ordered to minimize memory padding.
type Logger struct {
	globalFile *os.File
	jobFiles   map[string]*os.File
	now        func() time.Time
	swarmDir   string
	mu         sync.Mutex
	level      slog.Level
}

// New creates a new Logger that writes under swarmDir/logs.
// If swarmDir is empty, logging is disabled.
func New(swarmDir string, level slog.Level) *Logger {
	return &Logger{
		swarmDir: swarmDir,
		level:    level,
		jobFiles: make(map[string]*os.File),
		now:      time.Now,
	}
}

// ParseLevel parses a log level string into slog.Level.
// Unknown values fall back to info.
func ParseLevel(levelStr string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(levelStr)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (l *Logger) openFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create logs directory: %w", err)
	}
	//nolint:gosec // Log file readable by owner and group
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return f, nil
}

// globalWriter returns the global log file. Callers hold l.mu.
func (l *Logger) globalWriter() (*os.File, error) {
	if l.globalFile != nil {
		return l.globalFile, nil
	}
	f, err := l.openFile(domain.GlobalLogPath(l.swarmDir))
	if err != nil {
		return nil, err
	}
	l.globalFile = f
	return f, nil
}

// jobWriter returns the log file of a job. Callers hold l.mu.
func (l *Logger) jobWriter(jobID string) (*os.File, error) {
	if f, ok := l.jobFiles[jobID]; ok {
		return f, nil
	}
	f, err := l.openFile(domain.JobLogPath(l.swarmDir, jobID))
	if err != nil {
		return nil, err
	}
	l.jobFiles[jobID] = f
	return f, nil
}

// Close closes all open log files.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var lastErr error
	if l.globalFile != nil {
		if err := l.globalFile.Close(); err != nil {
			lastErr = err
		}
		l.globalFile = nil
	}
	for id, f := range l.jobFiles {
		if err := f.Close(); err != nil {
			lastErr = err
		}
		delete(l.jobFiles, id)
	}
	return lastErr
}

// formatLog formats a log entry.
// Format: [2025-12-30 09:32:51] [INFO] [job-abc] [category] message
func formatLog(t time.Time, level slog.Level, jobID, category, msg string) string {
	scope := "global"
	if jobID != "" {
		scope = "job-" + jobID
	}
	return fmt.Sprintf("[%s] [%s] [%s] [%s] %s\n",
		t.Format("2006-01-02 15:04:05"),
		levelToString(level),
		scope,
		category,
		msg,
	)
}

func levelToString(level slog.Level) string {
	switch level {
	case slog.LevelDebug:
		return "DEBUG"
	case slog.LevelWarn:
		return "WARN"
	case slog.LevelError:
		return "ERROR"
	default:
		return "INFO"
	}
}

// validJobFile reports whether jobID can name a log file.
func validJobFile(jobID string) bool {
	return jobID != "" && jobID != "." && jobID != ".." && !strings.ContainsAny(jobID, `/\`)
}

// log writes an entry to the global log and, for a job, to its own file too.
// Write failures are swallowed; logging never fails an operation.
func (l *Logger) log(level slog.Level, jobID, category, msg string) {
	if l.swarmDir == "" || level < l.level {
		return
	}

	entry := formatLog(l.now(), level, jobID, category, msg)

	l.mu.Lock()
	defer l.mu.Unlock()

	if gf, err := l.globalWriter(); err == nil {
		_, _ = io.WriteString(gf, entry)
	}
	if validJobFile(jobID) {
		if jf, err := l.jobWriter(jobID); err == nil {
			_, _ = io.WriteString(jf, entry)
		}
	}
}

// Info logs an info message.
func (l *Logger) Info(jobID, category, msg string) {
	l.log(slog.LevelInfo, jobID, category, msg)
}

// Debug logs a debug message.
func (l *Logger) Debug(jobID, category, msg string) {
	l.log(slog.LevelDebug, jobID, category, msg)
}

// Warn logs a warning message.
func (l *Logger) Warn(jobID, category, msg string) {
	l.log(slog.LevelWarn, jobID, category, msg)
}

// Error logs an error message.
func (l *Logger) Error(jobID, category, msg string) {
	l.log(slog.LevelError, jobID, category, msg)
}
