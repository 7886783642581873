package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/pseudomuto/sqlchanges/pkg/change"
	"github.com/pseudomuto/sqlchanges/pkg/history"
	"github.com/urfave/cli/v3"
)

const timeLayout = "2006-01-02 15:04:05 UTC"

// status shows every change on disk alongside what history says about it,
// followed by changes that are recorded in history but no longer on disk.
//
// Example output:
//
//	✓ 2024-01-15-add-users     success   2024-01-15 10:04:12 UTC by jane@ci
//	… 2024-02-01-add-orders    pending   (changed)
//	… 2024-03-09-add-invoices  pending   (new)
func status(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:   "status",
		Usage:  "Show which changes have been applied",
		Before: rt.requireProject,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			changes, err := rt.project.Changes()
			if err != nil {
				return err
			}

			return rt.withSession(ctx, cmd, func(s *session) error {
				return printStatus(ctx, writer(cmd), s, changes, rt.project.SchemaDir())
			})
		},
	}
}

func printStatus(ctx context.Context, w io.Writer, s *session, changes []*change.Change, schemaDir string) error {
	fmt.Fprintf(w, "%s %s\n\n", bold("Config:"), s.cfg.Name)

	if len(changes) == 0 {
		fmt.Fprintln(w, "No changes found.")
	}

	width := 0
	for _, c := range changes {
		width = max(width, len(c.Name))
	}

	pending := 0
	for _, c := range changes {
		plan, err := change.NewPlan(c.Forward, schemaDir)
		if err != nil {
			fmt.Fprintf(w, "%s %-*s  %s\n", marker(history.StatusFailed), width, c.Name, red(err))
			continue
		}

		op, err := s.history.GetStatus(ctx, c.Name)
		if err != nil {
			return err
		}

		decision := s.history.NeedsRun(ctx, c.Name, plan.Checksum(), false)
		if !decision.Run {
			fmt.Fprintf(w, "%s %-*s  %-8s  %s\n",
				marker(op.Status), width, c.Name, op.Status,
				faint(op.ExecutedAt.UTC().Format(timeLayout)+" by "+op.ExecutedBy))
			continue
		}

		pending++
		state := history.StatusPending
		if op != nil && op.Status != history.StatusPending {
			state = op.Status
		}

		fmt.Fprintf(w, "%s %-*s  %-8s  %s\n", marker(state), width, c.Name, state, yellow("("+decision.Reason+")"))
		if op != nil && op.ErrorMessage != "" {
			fmt.Fprintf(w, "  %s\n", red(op.ErrorMessage))
		}
	}

	orphaned, err := s.history.GetOrphaned(ctx, change.Names(changes))
	if err != nil {
		return err
	}

	if len(orphaned) > 0 {
		fmt.Fprintf(w, "\n%s\n", bold("In history but not on disk:"))
		for _, op := range orphaned {
			fmt.Fprintf(w, "%s %s  %s\n", marker(op.Status), op.Name, faint(op.Status))
		}
	}

	fmt.Fprintln(w)
	if pending > 0 {
		fmt.Fprintf(w, "%d change(s) to apply, run 'sqlchanges ff' to apply them\n", pending)
	} else if len(changes) > 0 {
		fmt.Fprintln(w, green("✓"), "Everything is up to date")
	}

	return nil
}
