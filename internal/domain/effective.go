package domain

import (
	"slices"
	"strings"
)

// Assignment is the effective agent assignment of a job.
type Assignment struct {
	Agent    *AgentRole `json:"agent"`
	Pipeline *bool      `json:"pipeline"`
}

// ArtifactSummary summarizes the decision log and artifacts of a job.
type ArtifactSummary struct {
	LatestDecisionFile string `json:"latestDecisionFile,omitempty"`
	DecisionCount      int    `json:"decisionCount"`
	HasSpec            bool   `json:"hasSpec"`
}

// EffectiveView is a job with its decision log folded over it. It is never persisted.
type EffectiveView struct {
	Job                      *Job            `json:"job"`
	LatestDecision           *Decision       `json:"latestDecision"`
	LatestPhaseDecision      *Decision       `json:"latestPhaseDecision"`
	LatestAssignmentDecision *Decision       `json:"latestAssignmentDecision"`
	Assignment               Assignment      `json:"assignment"`
	EffectivePhase           Phase           `json:"effectivePhase"`
	ArtifactSummary          ArtifactSummary `json:"artifactSummary"`
	PhaseOverridden          bool            `json:"phaseOverridden"`
	DecisionsDegraded        bool            `json:"decisionsDegraded,omitempty"` // Decision fetch failed; raw job shown
}

// Resolve folds decisions over job without mutating either.
// Decisions are ordered by store path (chronological, since paths encode timestamps);
// equal paths keep input order. The latest phase decision and the latest assignment
// decision are looked up independently.
func Resolve(job *Job, decisions []*Decision) *EffectiveView {
	ordered := make([]*Decision, 0, len(decisions))
	for _, d := range decisions {
		if d != nil {
			ordered = append(ordered, d)
		}
	}
	slices.SortStableFunc(ordered, func(a, b *Decision) int {
		return strings.Compare(decisionSortKey(a), decisionSortKey(b))
	})

	view := &EffectiveView{
		Job:            job,
		EffectivePhase: job.Phase,
		ArtifactSummary: ArtifactSummary{
			DecisionCount: len(ordered),
			HasSpec:       job.Artifacts[ArtifactKeyProduct] != "",
		},
	}
	if len(ordered) == 0 {
		return view
	}

	latest := ordered[len(ordered)-1]
	view.LatestDecision = latest
	view.ArtifactSummary.LatestDecisionFile = decisionSortKey(latest)

	for i := len(ordered) - 1; i >= 0; i-- {
		d := ordered[i]
		switch v := d.Variant().(type) {
		case SetPhase:
			if view.LatestPhaseDecision == nil {
				view.LatestPhaseDecision = d
				view.EffectivePhase = v.To
			}
		case AssignAgent:
			if view.LatestAssignmentDecision == nil {
				view.LatestAssignmentDecision = d
				agent := v.Agent
				view.Assignment = Assignment{Agent: &agent, Pipeline: v.Pipeline}
			}
		case OtherDecision:
			// Recorded for audit only.
		}
		if view.LatestPhaseDecision != nil && view.LatestAssignmentDecision != nil {
			break
		}
	}

	view.PhaseOverridden = view.EffectivePhase != job.Phase
	return view
}

// Degraded returns the view of a job whose decisions could not be read.
func Degraded(job *Job) *EffectiveView {
	view := Resolve(job, nil)
	view.DecisionsDegraded = true
	return view
}

func decisionSortKey(d *Decision) string {
	if d.Path != "" {
		return d.Path
	}
	return DecisionPath(d.JobID, d.CreatedAt)
}

// Lane is a board column.
type Lane string

// Board lanes.
const (
	LaneIntake      Lane = "INTAKE"
	LaneCustomer    Lane = "CUSTOMER"
	LaneProduct     Lane = "PRODUCT"
	LaneDesign      Lane = "DESIGN"
	LaneEngineering Lane = "ENGINEERING"
	LaneQA          Lane = "QA"
	LaneDeploy      Lane = "DEPLOY"
	LaneDone        Lane = "DONE"
)

// AllLanes returns the board lanes in display order.
func AllLanes() []Lane {
	return []Lane{LaneIntake, LaneCustomer, LaneProduct, LaneDesign, LaneEngineering, LaneQA, LaneDeploy, LaneDone}
}

// Lane returns the board lane for the view.
// Terminal phases win over assignment; unassigned jobs sit in INTAKE.
func (v *EffectiveView) Lane() Lane {
	if v.EffectivePhase.IsTerminal() {
		return LaneDone
	}
	if v.Assignment.Agent == nil {
		return LaneIntake
	}
	switch *v.Assignment.Agent {
	case RoleCustomer:
		return LaneCustomer
	case RoleProduct:
		return LaneProduct
	case RoleDesigner:
		return LaneDesign
	case RoleCoder:
		return LaneEngineering
	case RoleQA:
		return LaneQA
	case RoleDeploy:
		return LaneDeploy
	default:
		return LaneIntake
	}
}
