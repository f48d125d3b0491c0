package domain

import (
	"strings"
	"time"

	"github.com/gosimple/slug"
)

// Short code settings.
const (
	ShortCodeSlugLen   = 24
	ShortCodeSuffixLen = 4
	DefaultRequester   = "unknown"
)

// ShortCode derives a human-friendly code from idea and a random suffix.
// Codes are not unique; the job ID stays authoritative.
func ShortCode(idea, suffix string) string {
	base := slug.Make(idea)
	if len(base) > ShortCodeSlugLen {
		base = strings.TrimRight(base[:ShortCodeSlugLen], "-")
	}
	if base == "" {
		base = "idea"
	}
	return base + "-" + strings.ToLower(suffix)
}

// NewPendingJob builds a job in the INTAKE phase with its first history entry.
func NewPendingJob(jobID, code, idea, requester string, now time.Time) (*Job, error) {
	idea = strings.TrimSpace(idea)
	if idea == "" {
		return nil, invalid("idea", ErrEmptyIdea)
	}
	if strings.TrimSpace(jobID) == "" {
		return nil, invalid("jobId", ErrEmptyJobID)
	}
	requester = strings.TrimSpace(requester)
	if requester == "" {
		requester = DefaultRequester
	}

	job := &Job{
		JobID:     jobID,
		Code:      code,
		CreatedAt: now.UTC(),
		Idea:      idea,
		Title:     TitleFromIdea(idea),
		Requester: requester,
		Phase:     PhaseIntake,
		Artifacts: map[string]string{},
		History:   []HistoryEvent{},
	}
	job.Record(now.UTC(), EventIntake, map[string]any{"idea": idea, "requester": requester})
	return job, nil
}

// Confirm promotes a pending job to a run starting at CUSTOMER_DISCOVERY.
func (j *Job) Confirm(now time.Time) {
	j.Normalize()
	j.Record(now.UTC(), EventConfirmed, nil)
	j.SetPhase(now.UTC(), PhaseCustomerDiscovery, "confirmed")
}

// MatchesCode reports whether code selects the job, ignoring case.
func (j *Job) MatchesCode(code string) bool {
	code = strings.TrimSpace(code)
	return code != "" && strings.EqualFold(j.Code, code)
}
