package cli

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/runoshun/swarm-factory/internal/app"
	"github.com/runoshun/swarm-factory/internal/infra/httpapi"
	"github.com/runoshun/swarm-factory/internal/usecase"
)

// newAdvanceCommand creates the advance command.
func newAdvanceCommand(c *app.Container) *cobra.Command {
	var all bool
	var maxSteps int

	cmd := &cobra.Command{
		Use:   "advance [job-id...]",
		Short: "Drive runs through the phase pipeline",
		Long: `Advance runs through the automatic pipeline, writing the phase
artifacts of each step:

  CUSTOMER_DISCOVERY -> PRODUCT -> DESIGN -> BUILD -> QA -> DEPLOY -> HUMAN_REVIEW

A run stops at HUMAN_REVIEW, DONE or FAILED. A run that makes no progress
is reported as skipped and not rewritten. Missing runs are skipped with a
warning in the log.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if all == (len(args) > 0) {
				return usageError("specify job ids or --all")
			}
			out, err := c.AdvanceJobsUseCase().Execute(cmd.Context(), usecase.AdvanceJobsInput{
				JobIDs:   args,
				All:      all,
				MaxSteps: maxSteps,
			})
			if err != nil {
				return err
			}
			return writeResult(cmd.OutOrStdout(), out)
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Advance every run in the store")
	cmd.Flags().IntVar(&maxSteps, "max-steps", 0, "Steps per run (default from [runner] max_steps)")

	return cmd
}

// newDispatchScanCommand creates the dispatch-scan command.
func newDispatchScanCommand(c *app.Container) *cobra.Command {
	var dryRun, pull bool
	var maxRuns, decisions int

	cmd := &cobra.Command{
		Use:   "dispatch-scan",
		Short: "Queue one dispatch request per agent assignment",
		Long: `Scan recently modified runs for agent assignments and write one
dispatch request per assignment under artifacts/<job>/dispatch/.

Assignments are read from run history and from ASSIGN_AGENT decisions.
Each request carries a dispatch key derived from the assignment, so
running the scan again never queues the same assignment twice.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out, err := c.DispatchScanUseCase().Execute(cmd.Context(), usecase.DispatchScanInput{
				MaxRuns:         maxRuns,
				DecisionsPerJob: decisions,
				DryRun:          dryRun,
				Pull:            pull,
			})
			if err != nil {
				return err
			}
			return writeResult(cmd.OutOrStdout(), out)
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Compute dispatch requests without writing")
	cmd.Flags().BoolVar(&pull, "pull", false, "Sync the store before scanning")
	cmd.Flags().IntVar(&maxRuns, "max-runs", 0, "Runs to scan (default from [dispatch] max_runs)")
	cmd.Flags().IntVar(&decisions, "decisions", 0, "Newest decisions read per run (default from [dispatch] decisions_per_job)")

	return cmd
}

// newServeCommand creates the serve command.
func newServeCommand(c *app.Container) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the dashboard HTTP API",
		Long: `Serve the dashboard HTTP API:

  GET  /healthz
  POST /api/decision     append a decision
  GET  /api/board        board grouped by lane (?limit=N)
  GET  /api/runs/{jobId} effective view of one run

The server stops gracefully on SIGINT or SIGTERM.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr == "" {
				addr = c.AppConfig.Server.Addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			c.Slog.Info("serving dashboard API", "addr", addr)
			return httpapi.Serve(ctx, addr, c.HTTPHandler())
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from [server] addr)")

	return cmd
}
