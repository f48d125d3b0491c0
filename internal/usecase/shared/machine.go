package shared

import (
	"context"
	"fmt"

	"github.com/runoshun/swarm-factory/internal/domain"
)

// ArtifactWriter persists one artifact. RetryPolicy implements it.
type ArtifactWriter interface {
	Put(ctx context.Context, path string, data []byte, message string) error
}

// PhaseMachine advances jobs through the automatic phases.
type PhaseMachine struct {
	writer ArtifactWriter
	clock  domain.Clock
}

// NewPhaseMachine creates a new PhaseMachine.
func NewPhaseMachine(writer ArtifactWriter, clock domain.Clock) *PhaseMachine {
	return &PhaseMachine{
		writer: writer,
		clock:  clock,
	}
}

// AdvanceOneStep moves job one phase forward and reports whether it progressed.
//
// On progress it writes the phase artifact, then appends ARTIFACT_WRITTEN and
// PHASE_SET. INTAKE, HUMAN_REVIEW, DONE and FAILED return false untouched.
// A phase outside the enumeration appends SWARM_ERROR and returns false.
// An artifact write failure returns the error and leaves job unchanged.
func (m *PhaseMachine) AdvanceOneStep(ctx context.Context, job *domain.Job) (bool, error) {
	job.Normalize()
	if job.Phase == "" {
		job.Phase = domain.PhaseCustomerDiscovery
	}

	step, ok := domain.StepFor(job.Phase)
	if !ok {
		if !job.Phase.IsValid() {
			job.Record(m.clock.Now().UTC(), domain.EventSwarmError, map[string]any{
				"error": fmt.Sprintf("Unknown phase: %s", job.Phase),
			})
		}
		return false, nil
	}

	now := m.clock.Now().UTC()
	content, err := step.Render(job, now)
	if err != nil {
		return false, err
	}
	p := domain.ArtifactPath(job.JobID, step.Dir, now, step.Ext)
	msg := fmt.Sprintf("run: %s %s", job.DisplayCode(), step.Kind)
	if err := m.writer.Put(ctx, p, content, msg); err != nil {
		return false, fmt.Errorf("write %s artifact: %w", step.Kind, err)
	}

	job.Artifacts[step.Key] = p
	job.Record(now, domain.EventArtifactWritten, map[string]any{
		"kind": string(step.Kind),
		"path": p,
	})
	job.SetPhase(now, step.To, step.Note)

	if step.From == domain.PhaseDeploy {
		if job.Swarm == nil {
			job.Swarm = &domain.SwarmInfo{}
		}
		completed := now
		job.Swarm.CompletedAt = &completed
		job.Record(now, domain.EventSwarmCompleted, map[string]any{"mode": "template"})
	}
	return true, nil
}

// RunResult summarizes a driven job.
type RunResult struct {
	Steps    int  // Transitions made
	Diagnose bool // A diagnostic event was recorded
}

// Run calls AdvanceOneStep until it reports no progress or maxSteps is reached.
// On error the job keeps the phases already advanced.
func (m *PhaseMachine) Run(ctx context.Context, job *domain.Job, maxSteps int) (RunResult, error) {
	var res RunResult
	errorsBefore := job.CountEvents(domain.EventSwarmError)
	for range maxSteps {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		did, err := m.AdvanceOneStep(ctx, job)
		if err != nil {
			return res, err
		}
		if !did {
			break
		}
		res.Steps++
	}
	res.Diagnose = job.CountEvents(domain.EventSwarmError) > errorsBefore
	return res, nil
}
