package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/pkg/errors"
	"github.com/pseudomuto/sqlchanges/pkg/consts"
	"github.com/urfave/cli/v3"
	"go.uber.org/fx"
)

type (
	Params struct {
		fx.In

		Args       []string
		Commands   []*cli.Command `group:"commands"`
		Ctx        context.Context
		Lifecycle  fx.Lifecycle
		Runtime    *runtime
		Shutdowner fx.Shutdowner
		Version    *Version
	}

	Version struct {
		Version   string
		Commit    string
		Timestamp string
	}
)

// Run creates and executes the sqlchanges CLI application once the fx app
// starts, shutting the app down with a non-zero exit code when the command
// fails.
//
// Global Flags:
//   - --dir, -d: Project directory (defaults to current directory)
//   - --dsn: Database DSN, overriding sqlchanges.yaml ($SQLCHANGES_DSN)
//   - --log-level: debug, info, warn or error (default: warn)
//
// Example usage:
//
//	sqlchanges init --dialect postgres --dsn postgres://localhost/app
//	sqlchanges new add-users
//	sqlchanges apply 2024-01-15-add-users
//	sqlchanges --dir ./db ff --dry-run
func Run(p Params) {
	app := newApp(p.Runtime, p.Version, p.Commands)

	p.Lifecycle.Append(fx.StartHook(func() {
		if err := app.Run(p.Ctx, p.Args); err != nil {
			slog.Error("Error running command", "err", err)
			_ = p.Shutdowner.Shutdown(fx.ExitCode(1))
			return
		}

		_ = p.Shutdowner.Shutdown(fx.ExitCode(0))
	}))
}

func newApp(rt *runtime, version *Version, commands []*cli.Command) *cli.Command {
	cli.VersionPrinter = func(cmd *cli.Command) {
		fmt.Fprintln(cmd.Writer, "Version:", version.Version)
		fmt.Fprintln(cmd.Writer, "Commit:", version.Commit)
		fmt.Fprintln(cmd.Writer, "Date:", version.Timestamp)
	}

	slices.SortFunc(commands, func(a, b *cli.Command) int {
		return strings.Compare(a.Name, b.Name)
	})

	return &cli.Command{
		Name:  "sqlchanges",
		Usage: "Apply and revert versioned SQL changes",
		Description: `sqlchanges applies folders of forward SQL (and optional revert SQL) to a
database, recording every execution and checksum so that each change runs
exactly once unless its files change.`,
		Version: version.Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "dir",
				Aliases:     []string{"d"},
				Usage:       "the project directory",
				Value:       ".",
				DefaultText: "Current directory",
				Config: cli.StringConfig{
					TrimSpace: true,
				},
			},
			&cli.StringFlag{
				Name:    "dsn",
				Usage:   "database DSN, overrides " + consts.ConfigFile,
				Sources: cli.EnvVars(consts.EnvDSN),
				Config: cli.StringConfig{
					TrimSpace: true,
				},
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "debug, info, warn or error",
				Value: "warn",
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			var level slog.Level
			if err := level.UnmarshalText([]byte(cmd.String("log-level"))); err != nil {
				return ctx, errors.Wrapf(err, "invalid log level: %s", cmd.String("log-level"))
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

			if err := os.Chdir(cmd.String("dir")); err != nil {
				return ctx, err
			}

			pwd, err := os.Getwd()
			if err != nil {
				return ctx, errors.Wrap(err, "failed to get current working directory")
			}

			rt.dsn = cmd.String("dsn")
			return ctx, rt.resolve(pwd)
		},
		Commands: commands,
	}
}
