package cmd

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v3"
)

// purge deletes history under the lock so it can't race an execution.
//
// Example usage:
//
//	sqlchanges purge 2024-01-15-add-users
//	sqlchanges purge --all
func purge(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:      "purge",
		Usage:     "Delete recorded history",
		ArgsUsage: "[name]",
		Before:    rt.requireProject,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "all",
				Usage: "purge the history of every change in this config",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			name := cmd.Args().First()
			if name == "" && !cmd.Bool("all") {
				return errors.New("a change name or --all is required")
			}

			return rt.withSession(ctx, cmd, func(s *session) error {
				opts := s.cfg.LockOptions()
				opts.Reason = "purge"

				var purged int
				err := s.locks.WithLock(ctx, s.cfg.Name, s.identity, opts, func(ctx context.Context) error {
					var err error
					purged, err = s.history.Purge(ctx, name)
					return err
				})
				if err != nil {
					return err
				}

				fmt.Fprintf(writer(cmd), "%s Purged %d operation(s)\n", green("✓"), purged)
				return nil
			})
		},
	}
}

