package usecase_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runoshun/swarm-factory/internal/domain"
	"github.com/runoshun/swarm-factory/internal/testutil"
	"github.com/runoshun/swarm-factory/internal/usecase"
)

func TestShowConfig_Execute(t *testing.T) {
	t.Run("reports both files and the effective config", func(t *testing.T) {
		manager := testutil.NewMockConfigManager()
		manager.RepoConfigInfo = domain.ConfigInfo{
			Path:    "/test/.swarm/config.toml",
			Content: "[runner]\nmax_steps = 3\n",
			Exists:  true,
		}
		effective := domain.NewDefaultConfig()
		effective.Runner.MaxSteps = 3

		uc := usecase.NewShowConfig(manager, effective)
		out, err := uc.Execute(context.Background(), usecase.ShowConfigInput{})

		require.NoError(t, err)
		assert.True(t, out.RepoConfig.Exists)
		assert.Contains(t, out.RepoConfig.Content, "max_steps = 3")
		assert.False(t, out.GlobalConfig.Exists)
		assert.Equal(t, "/home/test/.config/swarm-factory/config.toml", out.GlobalConfig.Path)
		assert.Same(t, effective, out.Effective)
	})
}
