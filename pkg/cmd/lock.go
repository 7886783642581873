package cmd

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

// lockCmd inspects and releases the execution lock of the project's config.
//
// Example usage:
//
//	sqlchanges lock status
//	sqlchanges lock release        # only when held by you
//	sqlchanges lock force-release  # e.g. after a crashed deploy
func lockCmd(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:   "lock",
		Usage:  "Inspect or release the execution lock",
		Before: rt.requireProject,
		Commands: []*cli.Command{
			{
				Name:  "status",
				Usage: "Show who holds the lock",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return rt.withSession(ctx, cmd, func(s *session) error {
						l, err := s.locks.Status(ctx, s.cfg.Name)
						if err != nil {
							return err
						}

						if l == nil {
							fmt.Fprintf(writer(cmd), "%s %s is not locked\n", green("✓"), s.cfg.Name)
							return nil
						}

						fmt.Fprintf(writer(cmd), "%s %s is locked by %s since %s (expires %s)\n",
							yellow("!"), s.cfg.Name, l.LockedBy,
							l.LockedAt.UTC().Format(timeLayout), l.ExpiresAt.UTC().Format(timeLayout))
						if l.Reason != "" {
							fmt.Fprintf(writer(cmd), "  reason: %s\n", l.Reason)
						}

						return nil
					})
				},
			},
			{
				Name:  "release",
				Usage: "Release a lock you hold",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return rt.withSession(ctx, cmd, func(s *session) error {
						if err := s.locks.Release(ctx, s.cfg.Name, s.identity); err != nil {
							return err
						}

						fmt.Fprintf(writer(cmd), "%s Released %s\n", green("✓"), s.cfg.Name)
						return nil
					})
				},
			},
			{
				Name:  "force-release",
				Usage: "Release the lock regardless of who holds it",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return rt.withSession(ctx, cmd, func(s *session) error {
						released, err := s.locks.ForceRelease(ctx, s.cfg.Name)
						if err != nil {
							return err
						}

						if !released {
							fmt.Fprintf(writer(cmd), "%s %s was not locked\n", faint("-"), s.cfg.Name)
							return nil
						}

						fmt.Fprintf(writer(cmd), "%s Force released %s\n", green("✓"), s.cfg.Name)
						return nil
					})
				},
			},
		},
	}
}
