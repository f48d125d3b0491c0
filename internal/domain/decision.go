package domain

import (
	"strings"
	"time"
)

// DecisionAction tags a decision record. Unknown tags are accepted and stored for audit.
type DecisionAction string

// Known decision actions.
const (
	ActionSetPhase    DecisionAction = "SET_PHASE"
	ActionAssignAgent DecisionAction = "ASSIGN_AGENT"
)

// DecisionKind is the constant kind field written on every decision file.
const DecisionKind = "DECISION"

// AgentRole is an assignable worker role.
type AgentRole string

// Agent roles accepted by ASSIGN_AGENT.
const (
	RoleDesigner AgentRole = "designer"
	RoleCoder    AgentRole = "coder"
	RoleQA       AgentRole = "qa"
	RoleDeploy   AgentRole = "deploy"
	RoleCustomer AgentRole = "customer"
	RoleProduct  AgentRole = "product"
)

// AllAgentRoles returns the closed set of agent roles.
func AllAgentRoles() []AgentRole {
	return []AgentRole{RoleDesigner, RoleCoder, RoleQA, RoleDeploy, RoleCustomer, RoleProduct}
}

// IsValid returns true if the role belongs to the closed set.
func (r AgentRole) IsValid() bool {
	switch r {
	case RoleDesigner, RoleCoder, RoleQA, RoleDeploy, RoleCustomer, RoleProduct:
		return true
	default:
		return false
	}
}

// Decision is an append-only, out-of-band instruction for a job.
// Nullable fields are written as JSON null when unset.
type Decision struct {
	CreatedAt time.Time      `json:"createdAt"`
	ToPhase   *Phase         `json:"toPhase"`
	Agent     *AgentRole     `json:"agent"`
	Pipeline  *bool          `json:"pipeline"`
	Note      *string        `json:"note"`
	Kind      string         `json:"kind"`
	JobID     string         `json:"jobId"`
	Action    DecisionAction `json:"action"`
	Path      string         `json:"-"` // Store path, set when read or written
}

// DecisionFields carries the optional parts of a decision.
type DecisionFields struct {
	ToPhase  string // Target phase (SET_PHASE)
	Agent    string // Agent role (ASSIGN_AGENT)
	Pipeline *bool  // Pipeline flag (ASSIGN_AGENT)
	Note     string // Free text
}

// NewDecision validates the input and builds a decision record created at now.
func NewDecision(jobID string, action DecisionAction, fields DecisionFields, now time.Time) (*Decision, error) {
	jobID = strings.TrimSpace(jobID)
	if err := ValidateJobID(jobID); err != nil {
		return nil, err
	}
	action = DecisionAction(strings.ToUpper(strings.TrimSpace(string(action))))
	if action == "" {
		return nil, invalid("action", ErrMissingAction)
	}

	d := &Decision{
		Kind:      DecisionKind,
		JobID:     jobID,
		CreatedAt: now.UTC(),
		Action:    action,
		Pipeline:  fields.Pipeline,
	}
	if fields.Note != "" {
		note := fields.Note
		d.Note = &note
	}

	if fields.ToPhase != "" {
		phase, err := ParsePhase(fields.ToPhase)
		if err != nil {
			return nil, err
		}
		d.ToPhase = &phase
	}
	if fields.Agent != "" {
		role := AgentRole(strings.ToLower(strings.TrimSpace(fields.Agent)))
		if !role.IsValid() {
			return nil, &ValidationError{Field: "agent", Err: ErrInvalidAgent, Value: fields.Agent}
		}
		d.Agent = &role
	}

	switch action {
	case ActionSetPhase:
		if d.ToPhase == nil {
			return nil, invalid("toPhase", ErrMissingTargetPhase)
		}
	case ActionAssignAgent:
		if d.Agent == nil {
			return nil, invalid("agent", ErrMissingAgent)
		}
	}

	return d, nil
}

// DecisionVariant is the typed view of a decision, keyed by its action.
// Implementations: SetPhase, AssignAgent, OtherDecision.
type DecisionVariant interface {
	action() DecisionAction
}

// SetPhase overrides the effective phase.
type SetPhase struct {
	To Phase
}

// AssignAgent assigns a worker role to the job.
type AssignAgent struct {
	Pipeline *bool
	Agent    AgentRole
}

// OtherDecision is a decision with an action this version does not interpret.
type OtherDecision struct {
	Action DecisionAction
}

func (SetPhase) action() DecisionAction { return ActionSetPhase }
func (AssignAgent) action() DecisionAction { return ActionAssignAgent }
func (o OtherDecision) action() DecisionAction { return o.Action }

// Variant returns the typed view of the decision.
// Records that carry a known action but lack its required field are treated as OtherDecision.
func (d *Decision) Variant() DecisionVariant {
	switch d.Action {
	case ActionSetPhase:
		if d.ToPhase != nil && d.ToPhase.IsValid() {
			return SetPhase{To: *d.ToPhase}
		}
	case ActionAssignAgent:
		if d.Agent != nil && *d.Agent != "" {
			return AssignAgent{Agent: *d.Agent, Pipeline: d.Pipeline}
		}
	}
	return OtherDecision{Action: d.Action}
}
