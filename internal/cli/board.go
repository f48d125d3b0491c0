package cli

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/runoshun/swarm-factory/internal/app"
	"github.com/runoshun/swarm-factory/internal/tui"
	"github.com/runoshun/swarm-factory/internal/usecase"
)

// launchBoardTUIFunc launches the interactive board, allowing it to be mocked in tests.
var launchBoardTUIFunc = launchBoardTUI

// newBoardCommand creates the board command.
func newBoardCommand(c *app.Container) *cobra.Command {
	var limit int
	var watch bool
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "board",
		Short: "Show runs grouped by lane",
		Long: `Show the newest runs with their decisions overlaid, grouped into lanes
by assigned agent (INTAKE, CUSTOMER, PRODUCT, DESIGN, ENGINEERING, QA,
DEPLOY, DONE), together with the pending jobs.

Use --watch for an interactive board that refreshes periodically.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			uc := c.BoardUseCase()
			if watch {
				return launchBoardTUIFunc(func(ctx context.Context) (*usecase.BoardOutput, error) {
					return uc.Execute(ctx, usecase.BoardInput{Limit: limit})
				}, interval)
			}
			out, err := uc.Execute(cmd.Context(), usecase.BoardInput{Limit: limit})
			if err != nil {
				return err
			}
			return writeResult(cmd.OutOrStdout(), out)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "Max runs (default from [server] board_size)")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Open the interactive board")
	cmd.Flags().DurationVar(&interval, "interval", tui.DefaultRefreshInterval, "Refresh interval for --watch")

	return cmd
}

func launchBoardTUI(load tui.Loader, interval time.Duration) error {
	p := tea.NewProgram(tui.New(load, interval), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
