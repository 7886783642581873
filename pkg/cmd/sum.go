package cmd

import (
	"context"

	"github.com/pkg/errors"
	"github.com/pseudomuto/sqlchanges/pkg/change"
	"github.com/urfave/cli/v3"
)

// sum prints the per-file hashes of a change and the combined checksum that
// history compares against, with manifests expanded.
//
// Example output:
//
//	h1:9Zb4I0...
//	001_create.sql h1:47DEQp...
//	tables/orders.sql h1:2jmj7l...
func sum(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:      "sum",
		Usage:     "Print the checksums of a change",
		ArgsUsage: "<name>",
		Before:    rt.requireProject,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "revert",
				Usage: "hash the revert files instead",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			c, err := rt.change(cmd)
			if err != nil {
				return err
			}

			dir := change.Forward
			if cmd.Bool("revert") {
				dir = change.Reverse
			}

			files := c.Files(dir)
			if len(files) == 0 {
				return errors.Errorf("%s has no %s files", c.Name, dir.Folder())
			}

			plan, err := change.NewPlan(files, rt.project.SchemaDir())
			if err != nil {
				return err
			}

			_, err = plan.Sum().WriteTo(writer(cmd))
			return errors.Wrap(err, "failed to write sum")
		},
	}
}
