package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jirevwe/tilequeue"
	"github.com/spf13/cobra"
)

func (a *app) workCmd() *cobra.Command {
	var (
		presets []string
		command string
		drain   bool
	)

	cmd := &cobra.Command{
		Use:   "work",
		Short: "Take jobs off the queue and run a render command for each",
		Long: `Start workers that take jobs off the queue and run the render command
through "sh -c" with TILE_PRESET, TILE_X, TILE_Y and TILE_Z set.

A job is removed from the queue when it is taken; a failed render is logged
and not retried. Stop with Ctrl+C, or pass --drain to exit once the queue
is empty.

Example:
  tilequeue work --preset satellite --exec './render.sh "$TILE_PRESET" $TILE_Z $TILE_X $TILE_Y'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if len(presets) == 0 {
				return errors.New("at least one --preset is required")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv, err := tilequeue.NewServer(&tilequeue.Config{
				Queue:        a.store,
				Logger:       a.logger,
				Workers:      a.cfg.Workers,
				PollInterval: a.cfg.PollInterval,
				Drain:        drain,
			})
			if err != nil {
				return err
			}

			renderer := execRenderer(command, a.logger)
			for _, preset := range presets {
				srv.Handle(preset, renderer)
			}

			a.logger.Info("starting workers", "presets", strings.Join(presets, ","), "workers", a.cfg.Workers)
			srv.Start(ctx)

			processed, failed := srv.Stats()
			a.logger.Info("workers stopped", "processed", processed, "failed", failed)
			fmt.Fprintf(cmd.OutOrStdout(), "rendered %d tiles, %d failed\n", processed-failed, failed)

			return nil
		},
	}

	cmd.Flags().StringSliceVar(&presets, "preset", nil, "preset to render, repeat for more than one")
	cmd.Flags().StringVar(&command, "exec", "", "render command run for every job")
	cmd.Flags().BoolVar(&drain, "drain", false, "exit once the queue is empty")
	_ = cmd.MarkFlagRequired("exec")

	return cmd
}

func execRenderer(command string, logger *slog.Logger) tilequeue.HandlerFunc {
	return func(ctx context.Context, task *tilequeue.Task) error {
		item, err := task.Item()
		if err != nil {
			return err
		}

		cmd := exec.CommandContext(ctx, "sh", "-c", command)
		cmd.Env = append(os.Environ(),
			"TILE_PRESET="+item.Preset,
			fmt.Sprintf("TILE_X=%d", item.X),
			fmt.Sprintf("TILE_Y=%d", item.Y),
			fmt.Sprintf("TILE_Z=%d", item.Z),
		)

		out, err := cmd.CombinedOutput()
		if err != nil {
			return fmt.Errorf("render %s %d/%d/%d: %w: %s", item.Preset, item.Z, item.X, item.Y, err, strings.TrimSpace(string(out)))
		}

		logger.Debug("rendered tile", "task", task.Id(), "preset", item.Preset, "x", item.X, "y", item.Y, "z", item.Z)
		return nil
	}
}
