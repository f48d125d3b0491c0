package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/runoshun/swarm-factory/internal/app"
	"github.com/runoshun/swarm-factory/internal/domain"
	"github.com/runoshun/swarm-factory/internal/usecase"
)

// newIntakeCommand creates the intake command.
func newIntakeCommand(c *app.Container) *cobra.Command {
	var requester string

	cmd := &cobra.Command{
		Use:   "intake <idea>...",
		Short: "Record a new idea as a pending job",
		Long: `Record a new idea as a pending job under orchestrator/pending/.

All arguments are joined with spaces to form the idea text.
The first line (up to 80 characters) becomes the title, and a short code
is derived from it for use with confirm.`,
		Example: `  swarm intake "A CRM for dog groomers" --requester alice`,
		RunE: func(cmd *cobra.Command, args []string) error {
			idea := strings.TrimSpace(strings.Join(args, " "))
			out, err := c.IntakeUseCase().Execute(cmd.Context(), usecase.IntakeInput{
				Idea:      idea,
				Requester: requester,
			})
			if err != nil {
				return err
			}
			return writeResult(cmd.OutOrStdout(), out)
		},
	}

	cmd.Flags().StringVar(&requester, "requester", "", "Who asked for the job (default \"unknown\")")

	return cmd
}

// newConfirmCommand creates the confirm command.
func newConfirmCommand(c *app.Container) *cobra.Command {
	var last bool
	var message string

	cmd := &cobra.Command{
		Use:   "confirm [job-id|code]",
		Short: "Promote a pending job to a run",
		Long: `Promote a pending job to a run in runs/.

The job is selected by its ID, by its short code (case-insensitive), or
with --last by the most recently created pending job. The run starts in
CUSTOMER_DISCOVERY and the pending file is removed.

When a notifier is configured a run channel is created afterwards. A
notifier failure is reported in the result but does not fail the command.`,
		Args: usageArgs(cobra.MaximumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := usecase.ConfirmJobInput{
				Last:    last,
				Message: message,
			}
			if len(args) == 1 {
				in.Ref = args[0]
			}
			if in.Ref != "" && last {
				return usageError("cannot combine a job reference with --last")
			}
			out, err := c.ConfirmJobUseCase().Execute(cmd.Context(), in)
			if err != nil {
				return err
			}
			return writeResult(cmd.OutOrStdout(), out)
		},
	}

	cmd.Flags().BoolVar(&last, "last", false, "Confirm the most recently created pending job")
	cmd.Flags().StringVarP(&message, "message", "m", "", "Commit message override")

	return cmd
}

// decideOptions holds the flags of the decide command.
type decideOptions struct {
	action   string
	to       string
	agent    string
	note     string
	approve  string
	pipeline bool
	pause    bool
	cancel   bool
}

// request turns flags into an AppendDecision input.
// Shortcuts are mutually exclusive with each other and with --action.
func (o decideOptions) request(jobID string, pipelineSet bool) (usecase.AppendDecisionInput, error) {
	in := usecase.AppendDecisionInput{
		JobID:  jobID,
		Action: domain.DecisionAction(o.action),
		Fields: domain.DecisionFields{
			ToPhase: o.to,
			Agent:   o.agent,
			Note:    o.note,
		},
	}
	if pipelineSet {
		pipeline := o.pipeline
		in.Fields.Pipeline = &pipeline
	}

	shortcuts := 0
	for _, set := range []bool{o.approve != "", o.pause, o.cancel} {
		if set {
			shortcuts++
		}
	}
	if shortcuts == 0 {
		return in, nil
	}
	if shortcuts > 1 || o.action != "" || o.to != "" {
		return in, usageError("--approve, --pause and --cancel cannot be combined with each other, --action or --to")
	}

	in.Action = domain.ActionSetPhase
	switch {
	case o.approve != "":
		in.Fields.ToPhase = o.approve
	case o.pause:
		in.Fields.ToPhase = string(domain.PhaseHumanReview)
	case o.cancel:
		in.Fields.ToPhase = string(domain.PhaseFailed)
	}
	return in, nil
}

// newDecideCommand creates the decide command.
func newDecideCommand(c *app.Container) *cobra.Command {
	var opts decideOptions

	cmd := &cobra.Command{
		Use:   "decide <job-id>",
		Short: "Append a decision to a run",
		Long: `Append a decision to a run without modifying the run record.

Decisions overlay the run when it is displayed: the latest SET_PHASE
decision overrides the phase and the latest ASSIGN_AGENT decision sets
the assignment. Unknown actions are stored as-is.

Shortcuts:
  --approve [PHASE]  SET_PHASE to PHASE (default CUSTOMER_DISCOVERY)
  --pause            SET_PHASE to HUMAN_REVIEW
  --cancel           SET_PHASE to FAILED`,
		Example: `  swarm decide 3f2a... --action ASSIGN_AGENT --agent coder --pipeline
  swarm decide 3f2a... --action SET_PHASE --to QA --note "skip design"
  swarm decide 3f2a... --pause`,
		Args: usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := opts.request(args[0], cmd.Flags().Changed("pipeline"))
			if err != nil {
				return err
			}
			out, err := c.AppendDecisionUseCase().Execute(cmd.Context(), in)
			if err != nil {
				return err
			}
			return writeResult(cmd.OutOrStdout(), out)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.action, "action", "", "Decision action (SET_PHASE, ASSIGN_AGENT, ...)")
	f.StringVar(&opts.to, "to", "", "Target phase for SET_PHASE")
	f.StringVar(&opts.agent, "agent", "", "Agent role for ASSIGN_AGENT (designer, coder, qa, deploy, customer, product)")
	f.BoolVar(&opts.pipeline, "pipeline", false, "Mark the assignment as part of the pipeline")
	f.StringVar(&opts.note, "note", "", "Free-text note")
	f.StringVar(&opts.approve, "approve", "", "Approve the run into PHASE")
	f.Lookup("approve").NoOptDefVal = string(domain.PhaseCustomerDiscovery)
	f.BoolVar(&opts.pause, "pause", false, "Pause the run for human review")
	f.BoolVar(&opts.cancel, "cancel", false, "Cancel the run")

	return cmd
}

// newShowCommand creates the show command.
func newShowCommand(c *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "show <job-id>",
		Short: "Show the effective view of a job",
		Long: `Show a job with its decisions overlaid, its raw decisions and its
dispatch requests. Pending jobs are shown as-is.`,
		Args: usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := c.ShowJobUseCase().Execute(cmd.Context(), usecase.ShowJobInput{JobID: args[0]})
			if err != nil {
				return err
			}
			return writeResult(cmd.OutOrStdout(), out)
		},
	}
}
