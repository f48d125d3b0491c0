package domain

import "strings"

// Phase represents a stage of the idea pipeline.
type Phase string

const (
	PhaseIntake            Phase = "INTAKE"             // Pending, awaiting confirmation
	PhaseCustomerDiscovery Phase = "CUSTOMER_DISCOVERY" // First automatic phase after confirm
	PhaseProduct           Phase = "PRODUCT"            // Product spec
	PhaseDesign            Phase = "DESIGN"             // Design spec
	PhaseBuild             Phase = "BUILD"              // Build plan
	PhaseQA                Phase = "QA"                 // QA report
	PhaseDeploy            Phase = "DEPLOY"             // Deploy report
	PhaseHumanReview       Phase = "HUMAN_REVIEW"       // End of automatic advancement
	PhaseDone              Phase = "DONE"               // Terminal, decision only
	PhaseFailed            Phase = "FAILED"             // Terminal, decision only
)

// AllPhases returns every phase in pipeline order.
func AllPhases() []Phase {
	return []Phase{
		PhaseIntake,
		PhaseCustomerDiscovery,
		PhaseProduct,
		PhaseDesign,
		PhaseBuild,
		PhaseQA,
		PhaseDeploy,
		PhaseHumanReview,
		PhaseDone,
		PhaseFailed,
	}
}

// automatic maps each automatically advanced phase to its successor.
// Flow: CUSTOMER_DISCOVERY → PRODUCT → DESIGN → BUILD → QA → DEPLOY → HUMAN_REVIEW
var automatic = map[Phase]Phase{
	PhaseCustomerDiscovery: PhaseProduct,
	PhaseProduct:           PhaseDesign,
	PhaseDesign:            PhaseBuild,
	PhaseBuild:             PhaseQA,
	PhaseQA:                PhaseDeploy,
	PhaseDeploy:            PhaseHumanReview,
}

// ParsePhase normalizes s and returns the matching phase.
func ParsePhase(s string) (Phase, error) {
	p := Phase(strings.ToUpper(strings.TrimSpace(s)))
	if !p.IsValid() {
		return "", &ValidationError{Field: "phase", Err: ErrInvalidPhase, Value: s}
	}
	return p, nil
}

// IsValid returns true if the phase belongs to the closed enumeration.
func (p Phase) IsValid() bool {
	switch p {
	case PhaseIntake, PhaseCustomerDiscovery, PhaseProduct, PhaseDesign, PhaseBuild,
		PhaseQA, PhaseDeploy, PhaseHumanReview, PhaseDone, PhaseFailed:
		return true
	default:
		return false
	}
}

// Next returns the successor reached by automatic advancement.
// The second return value is false when the phase does not advance on its own.
func (p Phase) Next() (Phase, bool) {
	next, ok := automatic[p]
	return next, ok
}

// IsTerminal returns true for DONE and FAILED.
func (p Phase) IsTerminal() bool {
	return p == PhaseDone || p == PhaseFailed
}

// Display returns a human-readable label.
func (p Phase) Display() string {
	switch p {
	case PhaseIntake:
		return "Intake"
	case PhaseCustomerDiscovery:
		return "Customer"
	case PhaseProduct:
		return "Product"
	case PhaseDesign:
		return "Design"
	case PhaseBuild:
		return "Build"
	case PhaseQA:
		return "QA"
	case PhaseDeploy:
		return "Deploy"
	case PhaseHumanReview:
		return "Review"
	case PhaseDone:
		return "Done"
	case PhaseFailed:
		return "Failed"
	default:
		return string(p)
	}
}
