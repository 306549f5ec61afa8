package cli

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jirevwe/tilequeue/queue"
	"github.com/spf13/cobra"
)

func (a *app) insertCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "insert PRESET X Y Z",
		Short: "Enqueue one tile job",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			preset, x, y, z, err := parseTile(args)
			if err != nil {
				return err
			}

			if err := a.store.Insert(cmd.Context(), preset, x, y, z); err != nil {
				return fmt.Errorf("failed to enqueue job: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "queued %s %d/%d/%d\n", preset, z, x, y)
			return nil
		},
	}
}

func (a *app) batchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "batch",
		Short: "Enqueue jobs read from stdin in one transaction",
		Long: `Read one "PRESET X Y Z" job per line from stdin and enqueue them all
in one transaction. Blank lines and lines starting with # are skipped.
Jobs that are already pending are ignored; any other error rolls back the
whole batch.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			b, err := a.store.Batch(ctx)
			if err != nil {
				return err
			}

			n, err := insertLines(cmd, b)
			if err != nil {
				if rbErr := b.Rollback(); rbErr != nil {
					return errors.Join(err, rbErr)
				}
				return err
			}

			if err := b.Commit(); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "queued %d jobs\n", n)
			return nil
		},
	}
}

func insertLines(cmd *cobra.Command, b queue.Batch) (int, error) {
	n := 0
	lineNo := 0
	scanner := bufio.NewScanner(cmd.InOrStdin())
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		preset, x, y, z, err := parseTile(strings.Fields(line))
		if err != nil {
			return n, fmt.Errorf("line %d: %w", lineNo, err)
		}

		if err := b.Insert(cmd.Context(), preset, x, y, z); err != nil {
			return n, fmt.Errorf("line %d: %w", lineNo, err)
		}
		n++
	}

	return n, scanner.Err()
}

func (a *app) selectCmd() *cobra.Command {
	var xr, yr string
	var limit int

	cmd := &cobra.Command{
		Use:   "select Z",
		Short: "Print pending jobs at a zoom level without removing them",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			z, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid zoom %q: %w", args[0], err)
			}

			xRange, err := parseRange(xr)
			if err != nil {
				return err
			}

			yRange, err := parseRange(yr)
			if err != nil {
				return err
			}

			if limit <= 0 {
				limit = a.cfg.SelectLimit
			}

			items, err := a.store.Select(cmd.Context(), z, xRange, yRange, &queue.SelectOptions{Limit: limit})
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			for i := range items {
				if err := enc.Encode(&items[i]); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&xr, "x", "", "inclusive x range as MIN:MAX")
	cmd.Flags().StringVar(&yr, "y", "", "inclusive y range as MIN:MAX")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of jobs to print")
	_ = cmd.MarkFlagRequired("x")
	_ = cmd.MarkFlagRequired("y")

	return cmd
}

func parseRange(raw string) (queue.Range, error) {
	lo, hi, ok := strings.Cut(raw, ":")
	if !ok {
		return queue.Range{}, fmt.Errorf("invalid range %q, want MIN:MAX", raw)
	}

	from, err := strconv.Atoi(lo)
	if err != nil {
		return queue.Range{}, fmt.Errorf("invalid range %q: %w", raw, err)
	}

	to, err := strconv.Atoi(hi)
	if err != nil {
		return queue.Range{}, fmt.Errorf("invalid range %q: %w", raw, err)
	}

	return queue.Span(from, to), nil
}

func (a *app) takeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "take",
		Short: "Remove one pending job and print it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			item, err := a.store.Take(cmd.Context())
			if err != nil {
				return err
			}

			if item == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "queue is empty")
				return nil
			}

			return json.NewEncoder(cmd.OutOrStdout()).Encode(item)
		},
	}
}

func (a *app) lengthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "length",
		Short: "Print the number of pending jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			n, err := a.store.Length(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), n)
			return nil
		},
	}
}

func (a *app) resetCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete every pending job",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return errors.New("reset deletes every pending job, pass --yes to confirm")
			}

			if err := a.store.Reset(cmd.Context()); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "queue reset")
			return nil
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "confirm deleting every pending job")

	return cmd
}
