// Package cli provides the command-line interface for swarm-factory.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/runoshun/swarm-factory/internal/app"
)

// Command group IDs.
const (
	groupSetup = "setup"
	groupJob   = "job"
	groupSwarm = "swarm"
)

// NewRootCommand creates the root command for swarm.
// It receives the container for dependency injection and version for display.
func NewRootCommand(c *app.Container, version string) *cobra.Command {
	root := &cobra.Command{
		Use:   "swarm",
		Short: "Git-backed job pipeline for agent swarms",
		Long: `swarm moves product ideas through a fixed pipeline of phases
(customer discovery, product, design, build, QA, deploy, human review).

Every job, decision, and dispatch request is a JSON file committed to a
shared git repository. Humans steer running jobs by appending decisions;
the dispatcher turns agent assignments into one dispatch request each.

All commands print a JSON result on stdout.
Exit codes: 0 success, 1 invalid input, 2 not found, 3 other failure.`,
		Version: version,
		// SilenceUsage prevents usage from being printed on errors
		SilenceUsage: true,
		// SilenceErrors prevents Cobra from printing errors (we handle it in main)
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Skip if container is nil (e.g. in tests)
			if c == nil || c.AppConfig == nil {
				return nil
			}
			for _, w := range c.AppConfig.Warnings {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %s\n", w)
			}
			return nil
		},
	}

	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return fmt.Errorf("%w: %w", errUsage, err)
	})

	root.AddGroup(
		&cobra.Group{ID: groupSetup, Title: "Setup Commands:"},
		&cobra.Group{ID: groupJob, Title: "Job Commands:"},
		&cobra.Group{ID: groupSwarm, Title: "Swarm Commands:"},
	)

	// Setup commands
	initCmd := newInitCommand(c)
	initCmd.GroupID = groupSetup

	configCmd := newConfigCommand(c)
	configCmd.GroupID = groupSetup

	// Job commands
	intakeCmd := newIntakeCommand(c)
	intakeCmd.GroupID = groupJob

	confirmCmd := newConfirmCommand(c)
	confirmCmd.GroupID = groupJob

	decideCmd := newDecideCommand(c)
	decideCmd.GroupID = groupJob

	showCmd := newShowCommand(c)
	showCmd.GroupID = groupJob

	boardCmd := newBoardCommand(c)
	boardCmd.GroupID = groupJob

	// Swarm commands
	advanceCmd := newAdvanceCommand(c)
	advanceCmd.GroupID = groupSwarm

	dispatchCmd := newDispatchScanCommand(c)
	dispatchCmd.GroupID = groupSwarm

	serveCmd := newServeCommand(c)
	serveCmd.GroupID = groupSwarm

	root.AddCommand(
		initCmd,
		configCmd,
		intakeCmd,
		confirmCmd,
		decideCmd,
		showCmd,
		boardCmd,
		advanceCmd,
		dispatchCmd,
		serveCmd,
	)

	return root
}
