package domain

import (
	"crypto/sha1" //nolint:gosec // content fingerprint, not a security boundary
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/gosimple/slug"
	"github.com/gowebpki/jcs"
)

// Dispatch marker constants.
const (
	DispatchKind        = "DISPATCH_REQUEST"
	DispatchStatusQueue = "QUEUED"
	UnknownRole         = "unknown"
	dispatchNotes       = "A higher-level controller should spawn the appropriate agent and update this marker's status."
)

// AssignEvent is an assignment observed in a job's history or decision log.
type AssignEvent struct {
	Data   map[string]any `json:"data"`
	TS     string         `json:"ts"`
	Event  EventKind      `json:"event"`
	Source string         `json:"source"` // history or decision
}

// Assignment event sources.
const (
	SourceHistory  = "history"
	SourceDecision = "decision"
)

// DispatchMarker is a durable at-most-once action request.
// Fields are ordered to minimize memory padding.
type DispatchMarker struct {
	CreatedAt     time.Time   `json:"createdAt"`
	Code          *string     `json:"code"`
	Title         *string     `json:"title"`
	Pool          *string     `json:"pool"`
	AssignEvent   AssignEvent `json:"assignEvent"`
	Kind          string      `json:"kind"`
	JobID         string      `json:"jobId"`
	DispatchKey   string      `json:"dispatchKey"`
	RequestedRole string      `json:"requestedRole"`
	Status        string      `json:"status"`
	Notes         string      `json:"notes"`
	File          string      `json:"-"` // Store path, set when read
}

// FormatEventTime renders an event timestamp for use inside idempotency keys.
func FormatEventTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// AssignEventsFromHistory returns the ASSIGN_AGENT entries of a job's history.
func AssignEventsFromHistory(job *Job) []AssignEvent {
	var out []AssignEvent
	for _, e := range job.History {
		if !strings.EqualFold(string(e.Event), string(EventAssignAgent)) {
			continue
		}
		data := e.Data
		if data == nil {
			data = map[string]any{}
		}
		out = append(out, AssignEvent{
			TS:     FormatEventTime(e.TS),
			Event:  EventAssignAgent,
			Data:   data,
			Source: SourceHistory,
		})
	}
	return out
}

// AssignEventFromDecision converts an ASSIGN_AGENT decision into an assignment event.
func AssignEventFromDecision(d *Decision) (AssignEvent, bool) {
	v, ok := d.Variant().(AssignAgent)
	if !ok {
		return AssignEvent{}, false
	}
	data := map[string]any{"agent": string(v.Agent)}
	if v.Pipeline != nil {
		data["pipeline"] = *v.Pipeline
	}
	if d.Note != nil {
		data["note"] = *d.Note
	}
	return AssignEvent{
		TS:     FormatEventTime(d.CreatedAt),
		Event:  EventAssignAgent,
		Data:   data,
		Source: SourceDecision,
	}, true
}

var roleAliases = map[string]string{
	"engineer": string(RoleCoder),
	"coder":    string(RoleCoder),
	"dev":      string(RoleCoder),
	"design":   string(RoleDesigner),
	"designer": string(RoleDesigner),
	"ux":       string(RoleDesigner),
	"qa":       string(RoleQA),
	"test":     string(RoleQA),
	"tester":   string(RoleQA),
	"deploy":   string(RoleDeploy),
	"release":  string(RoleDeploy),
}

// roleFields is the lookup order for the role of an assignment payload.
var roleFields = []string{"role", "agent", "agentRole", "pool"}

// RoleFromPayload resolves the requested role of an assignment payload.
// Returns UnknownRole when no field carries a role.
func RoleFromPayload(data map[string]any) string {
	for _, field := range roleFields {
		raw, ok := data[field]
		if !ok || raw == nil {
			continue
		}
		r := strings.ToLower(strings.TrimSpace(fmt.Sprint(raw)))
		if r == "" {
			continue
		}
		if alias, ok := roleAliases[r]; ok {
			return alias
		}
		return r
	}
	return UnknownRole
}

// PayloadHash fingerprints an assignment payload over its RFC 8785 canonical JSON,
// so key order in the stored file does not change the hash.
func PayloadHash(data map[string]any) (string, error) {
	if data == nil {
		data = map[string]any{}
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return "", fmt.Errorf("canonicalize payload: %w", err)
	}
	sum := sha1.Sum(canonical) //nolint:gosec // content fingerprint
	return hex.EncodeToString(sum[:]), nil
}

// DispatchKey derives the idempotency key of an assignment event.
// Format: <jobId>:<role>:<ts>:<sha1 of canonical payload>
func DispatchKey(jobID string, ev AssignEvent) (string, error) {
	hash, err := PayloadHash(ev.Data)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:%s:%s:%s", jobID, RoleFromPayload(ev.Data), ev.TS, hash), nil
}

// NewDispatchMarker builds a QUEUED marker for ev on job.
func NewDispatchMarker(job *Job, ev AssignEvent, key string, now time.Time) *DispatchMarker {
	m := &DispatchMarker{
		Kind:          DispatchKind,
		CreatedAt:     now.UTC(),
		JobID:         job.JobID,
		DispatchKey:   key,
		AssignEvent:   ev,
		RequestedRole: RoleFromPayload(ev.Data),
		Status:        DispatchStatusQueue,
		Notes:         dispatchNotes,
		Code:          optionalString(job.Code),
		Title:         optionalString(job.Title),
	}
	if pool, ok := ev.Data["pool"]; ok && pool != nil {
		m.Pool = optionalString(fmt.Sprint(pool))
	}
	return m
}

// Path returns the store path of the marker.
func (m *DispatchMarker) Path() string {
	role := slug.Make(m.RequestedRole)
	if role == "" {
		role = UnknownRole
	}
	return DispatchMarkerPath(m.JobID, m.CreatedAt, role)
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
