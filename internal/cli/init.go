package cli

import (
	"github.com/spf13/cobra"

	"github.com/runoshun/swarm-factory/internal/app"
	"github.com/runoshun/swarm-factory/internal/usecase"
)

// newInitCommand creates the init command.
func newInitCommand(c *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize the store for swarm-factory",
		Long: `Initialize a store checkout for swarm-factory.

With the git backend this creates the repository if needed. With the
github backend it verifies the configured repository is reachable.

It also creates the .swarm/ directory with:
- config.toml: configuration template
- logs/: directory for log files
- .gitignore: keeps logs out of the store

Running init again is safe: existing files are kept.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			uc := c.InitRepoUseCase()
			out, err := uc.Execute(cmd.Context(), usecase.InitRepoInput{
				SwarmDir: c.Config.SwarmDir,
				Config:   c.AppConfig,
			})
			if err != nil {
				return err
			}
			return writeResult(cmd.OutOrStdout(), out)
		},
	}
}
