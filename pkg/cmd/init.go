package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/pseudomuto/sqlchanges/pkg/consts"
	"github.com/pseudomuto/sqlchanges/pkg/database"
	"github.com/pseudomuto/sqlchanges/pkg/project"
	"github.com/urfave/cli/v3"
)

// initCmd creates the project layout in the project directory. Existing files
// are left untouched, so running it in an initialized project is harmless.
//
// Example usage:
//
//	sqlchanges init
//	sqlchanges init --name billing --dialect postgres --dsn 'postgres://localhost/billing'
func initCmd(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:  "init",
		Usage: "Initialize a sqlchanges project",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "name",
				Usage: "config name used to scope history and the lock",
				Value: consts.DefaultConfigName,
			},
			&cli.StringFlag{
				Name:  "dialect",
				Usage: "sqlite, postgres or clickhouse",
				Value: "sqlite",
			},
			&cli.StringFlag{
				Name:  "dsn",
				Usage: "database DSN written to " + consts.ConfigFile,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			dialect := cmd.String("dialect")
			if _, err := database.Lookup(dialect); err != nil {
				return err
			}

			proj := project.New(project.ProjectParams{Dir: rt.dir})
			if err := proj.Initialize(project.InitOptions{
				Name:    cmd.String("name"),
				Dialect: dialect,
				DSN:     cmd.String("dsn"),
			}); err != nil {
				return errors.Wrap(err, "failed to initialize project")
			}

			rt.project = proj
			fmt.Fprintf(writer(cmd), "%s Initialized sqlchanges project in %s\n", green("✓"), rt.dir)
			return nil
		},
	}
}

// newCmd scaffolds a dated change folder.
//
// Example usage:
//
//	sqlchanges new add-users
func newCmd(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:      "new",
		Usage:     "Create a new change",
		ArgsUsage: "<slug>",
		Before:    rt.requireProject,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "date",
				Usage: "date prefix for the change name, YYYY-MM-DD (default: today)",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.NArg() != 1 {
				return errors.New("exactly one slug is required")
			}

			date := time.Now()
			if v := cmd.String("date"); v != "" {
				var err error
				if date, err = time.Parse(time.DateOnly, v); err != nil {
					return errors.Wrapf(err, "invalid date: %s", v)
				}
			}

			c, err := rt.project.NewChange(cmd.Args().First(), date)
			if err != nil {
				return err
			}

			fmt.Fprintf(writer(cmd), "%s Created %s\n", green("✓"), c.Path)
			return nil
		},
	}
}
