// Package domain contains core business entities and interfaces.
package domain

import (
	"encoding/json"
	"strings"
	"time"
)

// EventKind identifies a history entry on a job record.
type EventKind string

// History event kinds.
const (
	EventIntake          EventKind = "INTAKE"
	EventConfirmed       EventKind = "CONFIRMED"
	EventArtifactWritten EventKind = "ARTIFACT_WRITTEN"
	EventPhaseSet        EventKind = "PHASE_SET"
	EventSwarmStarted    EventKind = "SWARM_STARTED"
	EventSwarmCompleted  EventKind = "SWARM_COMPLETED"
	EventSwarmError      EventKind = "SWARM_ERROR"
	EventAssignAgent     EventKind = "ASSIGN_AGENT"
	EventChannelCreated  EventKind = "CHANNEL_CREATED"
)

// TitleMaxLen is the display length of a job title.
const TitleMaxLen = 80

// HistoryEvent is one timestamped entry of a job's history log.
type HistoryEvent struct {
	TS    time.Time      `json:"ts"`
	Data  map[string]any `json:"data,omitempty"`
	Event EventKind      `json:"event"`
}

// UnmarshalJSON reads a history event. Records written by other tools may use
// type for event, payload for data and at for ts; the canonical names win.
func (e *HistoryEvent) UnmarshalJSON(b []byte) error {
	var raw struct {
		TS      *time.Time     `json:"ts"`
		At      *time.Time     `json:"at"`
		Data    map[string]any `json:"data"`
		Payload map[string]any `json:"payload"`
		Event   EventKind      `json:"event"`
		Type    EventKind      `json:"type"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	*e = HistoryEvent{Event: raw.Event, Data: raw.Data}
	if e.Event == "" {
		e.Event = raw.Type
	}
	if e.Data == nil {
		e.Data = raw.Payload
	}
	switch {
	case raw.TS != nil:
		e.TS = *raw.TS
	case raw.At != nil:
		e.TS = *raw.At
	}
	return nil
}

// SwarmInfo records batch runner bookkeeping.
type SwarmInfo struct {
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	Runner      string     `json:"runner,omitempty"`
}

// ChannelInfo records the messaging channel created for a run.
type ChannelInfo struct {
	ChannelID string `json:"channelId"`
	Name      string `json:"name,omitempty"`
	ThreadTS  string `json:"threadTs,omitempty"`
}

// Job is one idea's record as it progresses through the pipeline.
// The same shape is used for pending jobs and confirmed runs.
// Fields are ordered to minimize memory padding.
type Job struct {
	CreatedAt time.Time         `json:"createdAt"`
	Artifacts map[string]string `json:"artifacts"`
	Swarm     *SwarmInfo        `json:"swarm,omitempty"`
	Channel   *ChannelInfo      `json:"channel,omitempty"`
	JobID     string            `json:"jobId"`
	Code      string            `json:"code,omitempty"`
	Title     string            `json:"title,omitempty"`
	Idea      string            `json:"idea"`
	Requester string            `json:"requester,omitempty"`
	Phase     Phase             `json:"phase"`
	History   []HistoryEvent    `json:"history"`
}

// Record appends a history event.
func (j *Job) Record(ts time.Time, kind EventKind, data map[string]any) {
	j.History = append(j.History, HistoryEvent{TS: ts, Event: kind, Data: data})
}

// SetPhase moves the job to phase and records a PHASE_SET event.
func (j *Job) SetPhase(ts time.Time, phase Phase, note string) {
	j.Phase = phase
	data := map[string]any{"toPhase": string(phase)}
	if note != "" {
		data["note"] = note
	}
	j.Record(ts, EventPhaseSet, data)
}

// CountEvents returns the number of history events of the given kind.
func (j *Job) CountEvents(kind EventKind) int {
	n := 0
	for _, e := range j.History {
		if e.Event == kind {
			n++
		}
	}
	return n
}

// Normalize fills nil collections so that records read from older files behave like new ones.
func (j *Job) Normalize() {
	if j.Artifacts == nil {
		j.Artifacts = map[string]string{}
	}
	if j.History == nil {
		j.History = []HistoryEvent{}
	}
}

// DisplayCode returns the short code, falling back to an abbreviated job ID.
func (j *Job) DisplayCode() string {
	if j.Code != "" {
		return j.Code
	}
	if len(j.JobID) > 10 {
		return j.JobID[:6] + "…" + j.JobID[len(j.JobID)-4:]
	}
	return j.JobID
}

// TitleFromIdea returns the first line of idea truncated to TitleMaxLen runes.
func TitleFromIdea(idea string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(idea), "\n")
	line = strings.TrimSpace(line)
	runes := []rune(line)
	if len(runes) > TitleMaxLen {
		return string(runes[:TitleMaxLen])
	}
	return line
}
