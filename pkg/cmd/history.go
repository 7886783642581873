package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/pseudomuto/sqlchanges/pkg/history"
	"github.com/urfave/cli/v3"
)

// historyCmd lists recorded operations, newest first. With a name it shows
// that change's applies and reverts; with --all it includes runs and builds.
//
// Example usage:
//
//	sqlchanges history
//	sqlchanges history 2024-01-15-add-users --files
//	sqlchanges history --all --limit 20
func historyCmd(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:      "history",
		Usage:     "Show execution history",
		ArgsUsage: "[name]",
		Before:    rt.requireProject,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "all",
				Usage: "include runs and builds",
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "show at most this many operations (0 for all)",
				Value: 50,
			},
			&cli.BoolFlag{
				Name:  "files",
				Usage: "show the files of each operation",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return rt.withSession(ctx, cmd, func(s *session) error {
				var (
					ops []*history.Operation
					err error
				)

				if cmd.Bool("all") && cmd.NArg() == 0 {
					ops, err = s.history.GetUnifiedHistory(ctx, cmd.Int("limit"))
				} else {
					ops, err = s.history.GetHistory(ctx, cmd.Args().First())
					if limit := cmd.Int("limit"); limit > 0 && len(ops) > limit {
						ops = ops[:limit]
					}
				}
				if err != nil {
					return err
				}

				if len(ops) == 0 {
					fmt.Fprintln(writer(cmd), "No history found.")
					return nil
				}

				for _, op := range ops {
					if err := printOperation(ctx, writer(cmd), s, op, cmd.Bool("files")); err != nil {
						return err
					}
				}

				return nil
			})
		},
	}
}

func printOperation(ctx context.Context, w io.Writer, s *session, op *history.Operation, files bool) error {
	label := op.Name
	if op.Kind != history.KindChange {
		label = string(op.Kind) + " " + label
	}

	fmt.Fprintf(w, "%s %s %-8s %s %s\n",
		marker(op.Status),
		faint(op.ExecutedAt.UTC().Format(timeLayout)),
		op.Direction,
		bold(label),
		faint(fmt.Sprintf("(%s, %s by %s)", op.Status, op.Duration.Round(time.Millisecond), op.ExecutedBy)),
	)

	if op.ErrorMessage != "" {
		fmt.Fprintf(w, "    %s\n", red(op.ErrorMessage))
	}

	if !files {
		return nil
	}

	execs, err := s.history.GetFileHistory(ctx, op.ID)
	if err != nil {
		return err
	}

	for _, f := range execs {
		line := fmt.Sprintf("    %s %s", marker(f.Status), f.Path)
		switch {
		case f.ErrorMessage != "":
			line += " " + red(f.ErrorMessage)
		case f.SkipReason != "":
			line += " " + faint(f.SkipReason)
		}

		fmt.Fprintln(w, line)
	}

	return nil
}
