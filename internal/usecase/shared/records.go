package shared

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"slices"
	"strings"

	"github.com/runoshun/swarm-factory/internal/domain"
)

// EncodeJSON renders v the way every record is stored: two-space indent and a trailing newline.
func EncodeJSON(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode json: %w", err)
	}
	return append(data, '\n'), nil
}

// ReadJob reads and decodes the job record at p.
func ReadJob(ctx context.Context, store domain.ArtifactStore, p string) (*domain.Job, error) {
	data, err := store.Get(ctx, p)
	if err != nil {
		return nil, err
	}
	var job domain.Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("decode %s: %w", p, err)
	}
	if job.JobID == "" {
		job.JobID = domain.JobIDFromRecordPath(p)
	}
	job.Normalize()
	return &job, nil
}

// GetRun retrieves a confirmed job and returns domain.ErrJobNotFound if not found.
func GetRun(ctx context.Context, store domain.ArtifactStore, jobID string) (*domain.Job, error) {
	if err := domain.ValidateJobID(jobID); err != nil {
		return nil, err
	}
	job, err := ReadJob(ctx, store, domain.RunPath(jobID))
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", domain.ErrJobNotFound, jobID)
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return job, nil
}

// GetPending retrieves a pending job and returns domain.ErrPendingNotFound if not found.
func GetPending(ctx context.Context, store domain.ArtifactStore, jobID string) (*domain.Job, error) {
	if err := domain.ValidateJobID(jobID); err != nil {
		return nil, err
	}
	job, err := ReadJob(ctx, store, domain.PendingPath(jobID))
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", domain.ErrPendingNotFound, jobID)
	}
	if err != nil {
		return nil, fmt.Errorf("get pending job: %w", err)
	}
	return job, nil
}

// RecordEntry pairs a job with the listing entry it was read from.
type RecordEntry struct {
	Job   *domain.Job
	Entry domain.Entry
}

// ListRecords reads every *.json job record under dir.
// Records that fail to decode are returned in skipped rather than failing the listing.
func ListRecords(ctx context.Context, store domain.ArtifactStore, dir string) (records []RecordEntry, skipped []string, err error) {
	entries, err := store.List(ctx, dir)
	if err != nil {
		return nil, nil, fmt.Errorf("list %s: %w", dir, err)
	}
	for _, e := range entries {
		if e.IsDir || !strings.HasSuffix(e.Name, ".json") {
			continue
		}
		job, err := ReadJob(ctx, store, e.Path)
		if err != nil {
			skipped = append(skipped, fmt.Sprintf("%s: %v", e.Path, err))
			continue
		}
		records = append(records, RecordEntry{Job: job, Entry: e})
	}
	return records, skipped, nil
}

// ListDecisions reads the decision log of a job in path order.
// limit > 0 keeps only the newest limit files.
func ListDecisions(ctx context.Context, store domain.ArtifactStore, jobID string, limit int) ([]*domain.Decision, error) {
	entries, err := store.List(ctx, domain.DecisionsPath(jobID))
	if err != nil {
		return nil, fmt.Errorf("list decisions: %w", err)
	}
	paths := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir && strings.HasSuffix(e.Name, ".json") {
			paths = append(paths, e.Path)
		}
	}
	slices.Sort(paths)
	if limit > 0 && len(paths) > limit {
		paths = paths[len(paths)-limit:]
	}

	decisions := make([]*domain.Decision, 0, len(paths))
	for _, p := range paths {
		data, err := store.Get(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("read decision %s: %w", path.Base(p), err)
		}
		var d domain.Decision
		if err := json.Unmarshal(data, &d); err != nil {
			return nil, fmt.Errorf("decode decision %s: %w", path.Base(p), err)
		}
		d.Path = p
		decisions = append(decisions, &d)
	}
	return decisions, nil
}
