package domain

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// Store collection roots. Store paths are always slash separated.
const (
	RunsDir      = "runs"
	PendingDir   = "orchestrator/pending"
	ArtifactsDir = "artifacts"
	DecisionsDir = "decisions"
	DispatchDir  = "dispatch"
)

// ValidateJobID rejects identifiers that are empty or would address a path
// outside their own record directory.
func ValidateJobID(jobID string) error {
	if strings.TrimSpace(jobID) == "" {
		return invalid("jobId", ErrEmptyJobID)
	}
	if strings.ContainsAny(jobID, `/\`) || strings.Contains(jobID, "..") {
		return &ValidationError{Field: "jobId", Value: jobID, Err: ErrInvalidJobID}
	}
	return nil
}

// timestampLayout is the fixed-width UTC layout used before encoding.
// Every encoded value has the same length, so lexical order equals chronological order.
const timestampLayout = "2006-01-02T15:04:05.000Z"

var timestampEncoder = strings.NewReplacer(":", "-", ".", "-")

// EncodeTimestamp renders t as a path-safe token, e.g. 2024-01-02T03-04-05-678Z.
// This and DecodeTimestamp are the only places the encoding is defined.
func EncodeTimestamp(t time.Time) string {
	return timestampEncoder.Replace(t.UTC().Format(timestampLayout))
}

// DecodeTimestamp reverses EncodeTimestamp.
func DecodeTimestamp(s string) (time.Time, error) {
	if len(s) != len(timestampLayout) || s[13] != '-' || s[16] != '-' || s[19] != '-' {
		return time.Time{}, fmt.Errorf("decode timestamp %q: unexpected format", s)
	}
	b := []byte(s)
	b[13], b[16], b[19] = ':', ':', '.'
	t, err := time.Parse(timestampLayout, string(b))
	if err != nil {
		return time.Time{}, fmt.Errorf("decode timestamp %q: %w", s, err)
	}
	return t, nil
}

// RunPath returns the store path of a confirmed job record.
func RunPath(jobID string) string {
	return path.Join(RunsDir, jobID+".json")
}

// PendingPath returns the store path of a pending job.
func PendingPath(jobID string) string {
	return path.Join(PendingDir, jobID+".json")
}

// JobIDFromRecordPath extracts the job ID from a run or pending path.
func JobIDFromRecordPath(p string) string {
	return strings.TrimSuffix(path.Base(p), ".json")
}

// JobArtifactsDir returns the per-job artifact collection.
func JobArtifactsDir(jobID string) string {
	return path.Join(ArtifactsDir, jobID)
}

// DecisionsPath returns the decision collection of a job.
func DecisionsPath(jobID string) string {
	return path.Join(ArtifactsDir, jobID, DecisionsDir)
}

// DecisionPath returns the store path of a decision created at t.
func DecisionPath(jobID string, t time.Time) string {
	return path.Join(DecisionsPath(jobID), EncodeTimestamp(t)+".json")
}

// ArtifactPath returns the store path of a phase artifact created at t.
func ArtifactPath(jobID, dir string, t time.Time, ext string) string {
	return path.Join(ArtifactsDir, jobID, dir, EncodeTimestamp(t)+"."+ext)
}

// DispatchPath returns the dispatch collection of a job.
func DispatchPath(jobID string) string {
	return path.Join(ArtifactsDir, jobID, DispatchDir)
}

// DispatchMarkerPath returns the store path of a dispatch marker.
// Format: artifacts/<jobId>/dispatch/<ts>-<role>.json
func DispatchMarkerPath(jobID string, t time.Time, role string) string {
	return path.Join(DispatchPath(jobID), EncodeTimestamp(t)+"-"+role+".json")
}

// GlobalLogPath returns the path to the global log file.
func GlobalLogPath(swarmDir string) string {
	return filepath.Join(swarmDir, "logs", "swarm.log")
}

// JobLogPath returns the path to the job log file.
func JobLogPath(swarmDir, jobID string) string {
	return filepath.Join(swarmDir, "logs", fmt.Sprintf("job-%s.log", jobID))
}
