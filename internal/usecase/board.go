package usecase

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/runoshun/swarm-factory/internal/domain"
	"github.com/runoshun/swarm-factory/internal/usecase/shared"
)

// BoardInput contains the parameters for the board aggregate.
type BoardInput struct {
	Limit int // Max runs; 0 uses the configured size
}

// BoardColumn is one lane of the board.
type BoardColumn struct {
	Lane domain.Lane             `json:"lane"`
	Jobs []*domain.EffectiveView `json:"jobs"`
}

// BoardOutput contains the board aggregate.
// Fields are ordered to minimize memory padding.
type BoardOutput struct {
	Columns  []BoardColumn `json:"columns"`
	Pending  []*domain.Job `json:"pending"`
	Skipped  []string      `json:"skipped,omitempty"` // Unreadable records
	Total    int           `json:"total"`
	Degraded int           `json:"degraded"` // Runs shown without decisions
}

// Board is the use case for the aggregate read used by the dashboard.
// One job's decision failure never fails the whole board.
type Board struct {
	store  domain.ArtifactStore
	logger domain.Logger
	size   int
}

// NewBoard creates a new Board use case.
func NewBoard(store domain.ArtifactStore, logger domain.Logger, size int) *Board {
	if size <= 0 {
		size = domain.DefaultBoardSize
	}
	return &Board{
		store:  store,
		logger: logger,
		size:   size,
	}
}

// Execute lists runs newest first, resolves each and groups them by lane.
func (uc *Board) Execute(ctx context.Context, in BoardInput) (*BoardOutput, error) {
	limit := in.Limit
	if limit <= 0 {
		limit = uc.size
	}

	runs, skipped, err := shared.ListRecords(ctx, uc.store, domain.RunsDir)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	pending, skippedPending, err := shared.ListRecords(ctx, uc.store, domain.PendingDir)
	if err != nil {
		return nil, fmt.Errorf("list pending jobs: %w", err)
	}
	skipped = append(skipped, skippedPending...)

	newestFirst := func(a, b shared.RecordEntry) int {
		return cmp.Compare(b.Job.CreatedAt.UnixNano(), a.Job.CreatedAt.UnixNano())
	}
	slices.SortStableFunc(runs, newestFirst)
	slices.SortStableFunc(pending, newestFirst)
	if len(runs) > limit {
		runs = runs[:limit]
	}

	out := &BoardOutput{Skipped: skipped, Pending: make([]*domain.Job, 0, len(pending))}
	for _, p := range pending {
		out.Pending = append(out.Pending, p.Job)
	}

	byLane := make(map[domain.Lane][]*domain.EffectiveView)
	for _, r := range runs {
		view, _ := resolveJob(ctx, uc.store, uc.logger, r.Job)
		if view.DecisionsDegraded {
			out.Degraded++
		}
		lane := view.Lane()
		byLane[lane] = append(byLane[lane], view)
		out.Total++
	}
	for _, lane := range domain.AllLanes() {
		jobs := byLane[lane]
		if jobs == nil {
			jobs = []*domain.EffectiveView{}
		}
		out.Columns = append(out.Columns, BoardColumn{Lane: lane, Jobs: jobs})
	}
	return out, nil
}
