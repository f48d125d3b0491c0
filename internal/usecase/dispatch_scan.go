package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/runoshun/swarm-factory/internal/domain"
	"github.com/runoshun/swarm-factory/internal/usecase/shared"
)

// DispatchScanInput contains the parameters for one dispatch tick.
type DispatchScanInput struct {
	MaxRuns         int  // Runs scanned, most recently modified first; 0 uses config
	DecisionsPerJob int  // Newest decision files read per run; 0 uses config
	DryRun          bool // Compute markers without writing
	Pull            bool // Sync before scanning
}

// ScannedRun reports a run that carried assignment events.
type ScannedRun struct {
	JobID        string `json:"jobId"`
	RunFile      string `json:"runFile"`
	AssignEvents int    `json:"assignEvents"`
}

// QueuedMarker reports a marker written (or, in dry-run, that would be written).
type QueuedMarker struct {
	DispatchKey   string `json:"dispatchKey"`
	File          string `json:"file"`
	RequestedRole string `json:"requestedRole"`
	JobID         string `json:"jobId"`
}

// DispatchScanOutput contains the result of a tick.
// Fields are ordered to minimize memory padding.
type DispatchScanOutput struct {
	Scanned       []ScannedRun   `json:"scanned"`
	Queued        []QueuedMarker `json:"queued"`
	Warnings      []string       `json:"warnings,omitempty"`
	ScannedRuns   int            `json:"scannedRuns"`
	AlreadyQueued int            `json:"alreadyQueued"`
	DryRun        bool           `json:"dryRun"`
}

// DispatchScan is the use case that turns assignment events into at most one
// QUEUED dispatch marker per idempotency key. It is safe to run on a schedule.
type DispatchScan struct {
	store  domain.ArtifactStore
	writer *shared.RetryPolicy
	clock  domain.Clock
	logger domain.Logger
	cfg    domain.DispatchConfig
}

// NewDispatchScan creates a new DispatchScan use case.
func NewDispatchScan(
	store domain.ArtifactStore,
	writer *shared.RetryPolicy,
	clock domain.Clock,
	logger domain.Logger,
	cfg domain.DispatchConfig,
) *DispatchScan {
	return &DispatchScan{
		store:  store,
		writer: writer,
		clock:  clock,
		logger: logger,
		cfg:    cfg,
	}
}

// Execute runs one scan. An empty scan is a successful no-op.
func (uc *DispatchScan) Execute(ctx context.Context, in DispatchScanInput) (*DispatchScanOutput, error) {
	out := &DispatchScanOutput{
		DryRun:  in.DryRun,
		Scanned: []ScannedRun{},
		Queued:  []QueuedMarker{},
	}

	if in.Pull && !in.DryRun {
		if err := uc.store.Sync(ctx); err != nil {
			uc.warnf(out, "", "pull failed, scanning current state: %v", err)
		}
	}

	maxRuns := firstPositive(in.MaxRuns, uc.cfg.MaxRuns, domain.DefaultMaxRuns)
	perJob := firstPositive(in.DecisionsPerJob, uc.cfg.DecisionsPerJob, domain.DefaultDecisionsPerJob)

	runs, skipped, err := shared.ListRecords(ctx, uc.store, domain.RunsDir)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	for _, s := range skipped {
		uc.warnf(out, "", "skip unreadable run %s", s)
	}
	// Backends without modification times fall back to creation order.
	slices.SortStableFunc(runs, func(a, b shared.RecordEntry) int {
		if c := b.Entry.ModTime.Compare(a.Entry.ModTime); c != 0 {
			return c
		}
		return b.Job.CreatedAt.Compare(a.Job.CreatedAt)
	})
	if len(runs) > maxRuns {
		runs = runs[:maxRuns]
	}

	for _, r := range runs {
		job := r.Job
		events := domain.AssignEventsFromHistory(job)

		decisions, err := shared.ListDecisions(ctx, uc.store, job.JobID, perJob)
		if err != nil {
			uc.warnf(out, job.JobID, "decisions unavailable, using history only: %v", err)
		}
		for _, d := range decisions {
			if ev, ok := domain.AssignEventFromDecision(d); ok {
				events = append(events, ev)
			}
		}
		if len(events) == 0 {
			continue
		}

		out.Scanned = append(out.Scanned, ScannedRun{JobID: job.JobID, RunFile: r.Entry.Path, AssignEvents: len(events)})
		planned := make(map[string]string)
		for _, ev := range events {
			queued, created, err := uc.queue(ctx, job, ev, planned, in.DryRun)
			if err != nil {
				return out, err
			}
			if !created {
				out.AlreadyQueued++
				continue
			}
			out.Queued = append(out.Queued, queued)
		}
	}
	out.ScannedRuns = len(out.Scanned)

	if uc.logger != nil {
		uc.logger.Info("", "dispatch", fmt.Sprintf("scanned %d run(s), queued %d, already queued %d (dry-run=%t)",
			out.ScannedRuns, len(out.Queued), out.AlreadyQueued, in.DryRun))
	}
	return out, nil
}

// queue writes a marker for ev unless one with the same key already exists.
// Existing markers are re-listed for every event. planned holds the keys and
// paths queued earlier in this scan, so a dry run reports what a real run writes.
func (uc *DispatchScan) queue(
	ctx context.Context,
	job *domain.Job,
	ev domain.AssignEvent,
	planned map[string]string,
	dryRun bool,
) (QueuedMarker, bool, error) {
	key, err := domain.DispatchKey(job.JobID, ev)
	if err != nil {
		return QueuedMarker{}, false, fmt.Errorf("derive dispatch key: %w", err)
	}
	if _, ok := planned[key]; ok {
		return QueuedMarker{}, false, nil
	}

	existing, err := readMarkers(ctx, uc.store, job.JobID)
	if err != nil {
		return QueuedMarker{}, false, fmt.Errorf("read dispatch markers: %w", err)
	}
	taken := make(map[string]bool, len(existing)+len(planned))
	for _, m := range existing {
		if m.DispatchKey == key {
			return QueuedMarker{}, false, nil
		}
		taken[m.File] = true
	}
	for _, p := range planned {
		taken[p] = true
	}

	marker := domain.NewDispatchMarker(job, ev, key, uc.clock.Now())
	for taken[marker.Path()] {
		marker.CreatedAt = marker.CreatedAt.Add(time.Millisecond)
	}
	p := marker.Path()
	if !dryRun {
		msg := fmt.Sprintf("dispatch: queue %s for %s", marker.RequestedRole, job.DisplayCode())
		at, written, err := uc.writer.CreateAt(ctx, marker.CreatedAt, func(at time.Time) (string, []byte, error) {
			marker.CreatedAt = at
			data, err := shared.EncodeJSON(marker)
			return marker.Path(), data, err
		}, msg)
		if err != nil {
			return QueuedMarker{}, false, fmt.Errorf("save dispatch marker: %w", err)
		}
		marker.CreatedAt = at
		p = written
		if uc.logger != nil {
			uc.logger.Info(job.JobID, "dispatch", "queued "+p)
		}
	}
	planned[key] = p
	return QueuedMarker{DispatchKey: key, File: p, RequestedRole: marker.RequestedRole, JobID: job.JobID}, true, nil
}

func (uc *DispatchScan) warnf(out *DispatchScanOutput, jobID, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if jobID != "" {
		msg = jobID + ": " + msg
	}
	out.Warnings = append(out.Warnings, msg)
	if uc.logger != nil {
		uc.logger.Warn(jobID, "dispatch", msg)
	}
}

// readMarkers reads the dispatch markers of a job. Unreadable files are ignored.
func readMarkers(ctx context.Context, store domain.ArtifactStore, jobID string) ([]*domain.DispatchMarker, error) {
	entries, err := store.List(ctx, domain.DispatchPath(jobID))
	if err != nil {
		return nil, err
	}
	markers := make([]*domain.DispatchMarker, 0, len(entries))
	for _, e := range entries {
		if e.IsDir || !strings.HasSuffix(e.Name, ".json") {
			continue
		}
		data, err := store.Get(ctx, e.Path)
		if err != nil {
			continue
		}
		var m domain.DispatchMarker
		if err := json.Unmarshal(data, &m); err != nil {
			continue
		}
		m.File = e.Path
		markers = append(markers, &m)
	}
	return markers, nil
}

func firstPositive(values ...int) int {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}
