package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoad(t *testing.T) {
	t.Run("defaults without a file", func(t *testing.T) {
		cfg, err := Load("")
		require.NoError(t, err)
		require.Equal(t, Default(), cfg)
	})

	t.Run("file overrides defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "train.yaml")
		err := os.WriteFile(path, []byte("board_width: 6\nboard_height: 6\nn_in_row: 4\nkl_target: 0.05\n"), 0o644)
		require.NoError(t, err)

		cfg, err := Load(path)
		require.NoError(t, err)
		require.Equal(t, 6, cfg.BoardWidth)
		require.Equal(t, 4, cfg.NInRow)
		require.Equal(t, 0.05, cfg.KLTarget)
		require.Equal(t, 400, cfg.NPlayout, "Unset keys keep their default")
	})

	t.Run("environment overrides defaults", func(t *testing.T) {
		t.Setenv("GOMOKU_N_PLAYOUT", "25")
		t.Setenv("GOMOKU_DEDUPE", "true")

		cfg, err := Load("")
		require.NoError(t, err)
		require.Equal(t, 25, cfg.NPlayout)
		require.True(t, cfg.Dedupe)
	})

	t.Run("rejects invalid values", func(t *testing.T) {
		t.Setenv("GOMOKU_N_IN_ROW", "20")
		_, err := Load("")
		require.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("rejects a negative dirichlet alpha", func(t *testing.T) {
		cfg := Default()
		cfg.DirichletAlpha = -0.1
		require.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)

		t.Setenv("GOMOKU_DIRICHLET_ALPHA", "-0.3")
		_, err := Load("")
		require.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
		require.Error(t, err)
	})
}

func TestSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run", "config.yaml")
	cfg := Default()
	cfg.Seed = 42
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg, loaded)
}
