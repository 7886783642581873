package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/pseudomuto/sqlchanges/pkg/change"
	"github.com/pseudomuto/sqlchanges/pkg/event"
	"github.com/pseudomuto/sqlchanges/pkg/executor"
	"github.com/pseudomuto/sqlchanges/pkg/history"
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	faint  = color.New(color.Faint).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
)

// progress prints one line per executed file as a change runs.
func progress(w io.Writer) event.Observer {
	return event.ObserverFunc(func(_ context.Context, e event.Event) {
		switch e.Kind {
		case event.LockBlocked:
			fmt.Fprintf(w, "%s waiting for lock: %s\n", yellow("…"), e.Reason)
		case event.ChangeFile:
			fmt.Fprintf(w, "  %s %s %s\n", marker(history.Status(e.Status)), e.File, faint(e.Duration.Round(time.Millisecond)))
		}
	})
}

func marker(s history.Status) string {
	switch s {
	case history.StatusSuccess:
		return green("✓")
	case history.StatusFailed:
		return red("✗")
	case history.StatusReverted:
		return yellow("↺")
	case history.StatusPending:
		return yellow("…")
	default:
		return faint("-")
	}
}

// printResult summarises a change execution.
func printResult(w io.Writer, res *executor.Result) {
	switch {
	case res.Skipped:
		fmt.Fprintf(w, "%s %s %s\n", faint("-"), res.Name, faint("("+res.Reason+")"))
		return
	case res.Mode != executor.ModeExecute:
		printRendered(w, res)
		return
	}

	verb := "applied"
	if res.Direction == change.Reverse {
		verb = "reverted"
	}

	if res.Succeeded() {
		fmt.Fprintf(w, "%s %s %s %s\n", green("✓"), bold(res.Name), verb, faint(res.Duration.Round(time.Millisecond)))
		return
	}

	fmt.Fprintf(w, "%s %s failed: %v\n", red("✗"), bold(res.Name), res.Error)
	for _, f := range res.Files {
		if f.Status == history.StatusSkipped {
			fmt.Fprintf(w, "  %s %s %s\n", marker(f.Status), f.RelPath, faint("(skipped)"))
		}
	}
}

func printRendered(w io.Writer, res *executor.Result) {
	if !res.Succeeded() {
		fmt.Fprintf(w, "%s %s %s failed: %v\n", red("✗"), bold(res.Name), res.Mode, res.Error)
		return
	}

	if res.Mode == executor.ModeDryRun {
		paths := make([]string, 0, len(res.Files))
		for _, f := range res.Files {
			paths = append(paths, "  "+f.OutputPath)
		}

		fmt.Fprintf(w, "%s %s rendered %d file(s):\n%s\n", green("✓"), bold(res.Name), len(res.Files), strings.Join(paths, "\n"))
	}
}
