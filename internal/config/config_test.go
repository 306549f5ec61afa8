package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jirevwe/tilequeue/queue"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, DefaultConfig(), cfg)
	require.NoError(t, cfg.Validate())
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tilequeue.yaml")
	contents := "location: /var/lib/tiles/queue.db\nworkers: 8\npoll_interval: 250ms\nlog_level: debug\n"
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	t.Setenv("TILEQUEUE_LOCATION", queue.Memory)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, queue.Memory, cfg.Location)
	require.Equal(t, uint(8), cfg.Workers)
	require.Equal(t, 250*time.Millisecond, cfg.PollInterval)
	require.Equal(t, queue.DefaultSelectLimit, cfg.SelectLimit)

	level, err := cfg.Level()
	require.NoError(t, err)
	require.Equal(t, slog.LevelDebug, level)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Location = ""
	require.ErrorIs(t, cfg.Validate(), queue.ErrNoLocation)

	cfg = DefaultConfig()
	cfg.LogLevel = "loud"
	require.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Workers = 0
	require.Error(t, cfg.Validate())
}
