package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/pseudomuto/sqlchanges/pkg/change"
	"github.com/pseudomuto/sqlchanges/pkg/executor"
	"github.com/pseudomuto/sqlchanges/pkg/history"
	"github.com/urfave/cli/v3"
)

// errFailed is returned when a change ran but did not succeed. The details
// have already been printed.
var errFailed = errors.New("execution failed")

func renderFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "dry-run",
			Usage: "render files into the tmp directory without executing them",
		},
		&cli.BoolFlag{
			Name:  "preview",
			Usage: "print the rendered SQL without executing it",
		},
	}
}

func executionFlags(docker bool) []cli.Flag {
	flags := append([]cli.Flag{
		&cli.BoolFlag{
			Name:    "force",
			Aliases: []string{"f"},
			Usage:   "run regardless of what history says",
		},
	}, renderFlags()...)

	if docker {
		flags = append(flags, &cli.BoolFlag{
			Name:  "docker",
			Usage: "apply to a throwaway ClickHouse container instead of the configured database",
		})
	}

	return flags
}

func executionOptions(cmd *cli.Command) executor.Options {
	return executor.Options{
		Force:   cmd.Bool("force"),
		DryRun:  cmd.Bool("dry-run"),
		Preview: cmd.Bool("preview"),
		Output:  writer(cmd),
	}
}

// applyCmd applies a single change.
//
// Example usage:
//
//	sqlchanges apply 2024-01-15-add-users
//	sqlchanges apply 2024-01-15-add-users --preview
func applyCmd(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:      "apply",
		Usage:     "Apply a change",
		ArgsUsage: "<name>",
		Before:    rt.requireProject,
		Flags:     executionFlags(true),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			c, err := rt.change(cmd)
			if err != nil {
				return err
			}

			return rt.withSession(ctx, cmd, func(s *session) error {
				res, err := s.executor.ExecuteChange(ctx, c, executionOptions(cmd))
				return report(cmd, res, err)
			})
		},
	}
}

// revert runs the revert files of a change that has been applied.
func revert(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:      "revert",
		Usage:     "Revert an applied change",
		ArgsUsage: "<name>",
		Before:    rt.requireProject,
		Flags:     executionFlags(false),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			c, err := rt.change(cmd)
			if err != nil {
				return err
			}

			return rt.withSession(ctx, cmd, func(s *session) error {
				res, err := s.executor.RevertChange(ctx, c, executionOptions(cmd))
				return report(cmd, res, err)
			})
		},
	}
}

// fastForward applies every change that needs to run, in name order, and
// stops at the first failure.
//
// Example usage:
//
//	sqlchanges ff
//	sqlchanges ff --dry-run
func fastForward(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:    "ff",
		Aliases: []string{"fast-forward"},
		Usage:   "Apply every pending change",
		Before:  rt.requireProject,
		Flags:   executionFlags(true),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			changes, err := rt.project.Changes()
			if err != nil {
				return err
			}

			if len(changes) == 0 {
				fmt.Fprintln(writer(cmd), "No changes found.")
				return nil
			}

			return rt.withSession(ctx, cmd, func(s *session) error {
				results, err := s.executor.FastForward(ctx, changes, executionOptions(cmd))

				applied := 0
				for _, res := range results {
					printResult(writer(cmd), res)
					if !res.Skipped {
						applied++
					}
				}

				if err != nil {
					return err
				}

				if n := len(results); n > 0 && !results[n-1].Succeeded() {
					return errFailed
				}

				if applied == 0 {
					fmt.Fprintln(writer(cmd), green("✓"), "Everything is up to date")
				}

				return nil
			})
		},
	}
}

// runCmd executes ad-hoc SQL files, recording them in history without any
// change detection.
//
// Example usage:
//
//	sqlchanges run refresh-views schema/views/*.sql
//	sqlchanges run --build nightly schema/nightly.sql
func runCmd(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:      "run",
		Usage:     "Execute SQL files and record them in history",
		ArgsUsage: "<name> <file>...",
		Before:    rt.requireProject,
		Flags: append(renderFlags(), &cli.BoolFlag{
			Name:  "build",
			Usage: "record the execution as a build rather than a run",
		}),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.NArg() < 2 {
				return errors.New("a name and at least one file are required")
			}

			name := cmd.Args().First()
			paths := make([]string, 0, cmd.NArg()-1)
			for _, p := range cmd.Args().Tail() {
				if !filepath.IsAbs(p) {
					p = filepath.Join(rt.dir, p)
				}
				paths = append(paths, p)
			}

			kind := history.KindRun
			if cmd.Bool("build") {
				kind = history.KindBuild
			}

			return rt.withSession(ctx, cmd, func(s *session) error {
				res, err := s.executor.RunFiles(ctx, kind, name, paths, executionOptions(cmd))
				return report(cmd, res, err)
			})
		},
	}
}

func (rt *runtime) change(cmd *cli.Command) (*change.Change, error) {
	if cmd.NArg() != 1 {
		return nil, errors.New("exactly one change name is required")
	}

	c, err := rt.project.Change(cmd.Args().First())
	if change.IsNotFound(err) {
		return nil, errors.Errorf("change not found: %s", cmd.Args().First())
	}

	return c, err
}

// report prints res and converts a failed result into an error so the
// process exits non-zero.
func report(cmd *cli.Command, res *executor.Result, err error) error {
	if err != nil {
		return err
	}

	printResult(writer(cmd), res)
	if !res.Succeeded() {
		return errFailed
	}

	return nil
}
