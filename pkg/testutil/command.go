package testutil

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/urfave/cli/v3"
)

// RunCommand runs command beneath a bare root command, as if invoked as
// `sqlchanges <command.Name> args...`, and returns everything it wrote.
func RunCommand(t *testing.T, command *cli.Command, args ...string) (string, error) {
	t.Helper()

	return RunCommandWithContext(context.Background(), t, command, args...)
}

// RunCommandWithContext is RunCommand with a custom context.
func RunCommandWithContext(ctx context.Context, t *testing.T, command *cli.Command, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	setWriters(command, &out)

	app := &cli.Command{
		Name:      "sqlchanges",
		Writer:    &out,
		ErrWriter: &out,
		Commands:  []*cli.Command{command},
	}

	err := app.Run(ctx, append([]string{"sqlchanges", command.Name}, args...))
	return out.String(), err
}

func setWriters(cmd *cli.Command, w io.Writer) {
	cmd.Writer = w
	cmd.ErrWriter = w
	for _, sub := range cmd.Commands {
		setWriters(sub, w)
	}
}
