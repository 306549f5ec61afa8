package cli

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/jirevwe/tilequeue/internal/config"
	"github.com/jirevwe/tilequeue/queue/sqlite"
	"github.com/spf13/cobra"
)

type app struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *sqlite.Sqlite
}

// Execute runs the CLI
func Execute(ctx context.Context, cfg *config.Config) error {
	a := &app{cfg: cfg}
	defer a.closeStore()

	return a.rootCmd().ExecuteContext(ctx)
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "tilequeue",
		Short: "A deduplicating queue of tile render jobs",
		Long: `tilequeue keeps pending tile render jobs, keyed by (z, x, y, preset),
in a single SQLite file. Enqueuing a job that is already pending is a no-op.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.openStore,
	}

	root.PersistentFlags().StringVar(&a.cfg.Location, "location", a.cfg.Location, `queue database file, or ":memory:"`)
	root.PersistentFlags().StringVar(&a.cfg.LogLevel, "log-level", a.cfg.LogLevel, "debug, info, warn or error")

	root.AddCommand(a.insertCmd())
	root.AddCommand(a.batchCmd())
	root.AddCommand(a.selectCmd())
	root.AddCommand(a.takeCmd())
	root.AddCommand(a.lengthCmd())
	root.AddCommand(a.resetCmd())
	root.AddCommand(a.workCmd())

	return root
}

func (a *app) openStore(cmd *cobra.Command, _ []string) error {
	if err := a.cfg.Validate(); err != nil {
		return err
	}

	a.logger = a.cfg.Logger(cmd.ErrOrStderr())

	store, err := sqlite.NewSqlite(a.cfg.Location, a.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize queue store: %w", err)
	}
	a.store = store

	return nil
}

func (a *app) closeStore() {
	if err := a.store.Close(); err != nil && a.logger != nil {
		a.logger.Error("failed to close queue store", "error", err)
	}
}

func parseTile(args []string) (preset string, x, y, z int, err error) {
	if len(args) != 4 {
		return "", 0, 0, 0, fmt.Errorf("expected preset x y z, got %d fields", len(args))
	}

	coords := make([]int, 3)
	for i, raw := range args[1:] {
		coords[i], err = strconv.Atoi(raw)
		if err != nil {
			return "", 0, 0, 0, fmt.Errorf("invalid coordinate %q: %w", raw, err)
		}
	}

	return args[0], coords[0], coords[1], coords[2], nil
}
