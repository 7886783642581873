package executor

import (
	"fmt"
	"time"

	"github.com/pseudomuto/sqlchanges/pkg/change"
	"github.com/pseudomuto/sqlchanges/pkg/history"
)

type (
	// ExecutionStatus represents the outcome of an execution.
	ExecutionStatus string

	// Mode records how an execution was carried out.
	Mode string

	// FileResult is the outcome of a single file.
	FileResult struct {
		// Name is the filename, or the schema relative path of a manifest entry
		Name string

		// RelPath is the path recorded in history, e.g. change/001_create.sql
		RelPath string

		// Path is the absolute path that was rendered
		Path string

		// Type is the type of the change file the step came from
		Type change.FileType

		// Checksum is the hash of the file content
		Checksum string

		// Status is success, failed or skipped
		Status history.Status

		// Error is the render or SQL error for a failed file
		Error error

		// SkipReason explains why a file never ran
		SkipReason string

		// Duration is the time spent rendering and executing
		Duration time.Duration

		// SQL is the rendered SQL (dry run and preview only)
		SQL string

		// OutputPath is where a dry run wrote the rendered SQL
		OutputPath string
	}

	// Result contains the outcome of executing a change or a set of files.
	//
	// Per-file SQL and render failures are reported here rather than as errors
	// so history and Result always agree about what happened.
	Result struct {
		// Name is the change (or run/build) name
		Name string

		// Kind is the change_type recorded in history
		Kind history.Kind

		// Direction is change or revert
		Direction change.Direction

		// Mode is execute, dry-run or preview
		Mode Mode

		// Status is the aggregate outcome
		Status ExecutionStatus

		// Skipped is set when history showed nothing needed to run
		Skipped bool

		// Reason is why the change ran (or didn't)
		Reason string

		// Checksum is the combined checksum of every file in the plan
		Checksum string

		// OperationID is the history row, empty when nothing was recorded
		OperationID string

		// Files has one entry per planned file that was considered
		Files []*FileResult

		// Duration is the time spent executing files
		Duration time.Duration

		// Error names the first failing file and any history write failures
		Error error

		// Output is the concatenated preview
		Output string
	}
)

const (
	// StatusSuccess indicates every file executed successfully (or nothing needed to run)
	StatusSuccess ExecutionStatus = "success"

	// StatusFailed indicates a file failed or the outcome couldn't be recorded
	StatusFailed ExecutionStatus = "failed"

	// ModeExecute runs SQL against the database
	ModeExecute Mode = "execute"

	// ModeDryRun renders files to the tmp directory
	ModeDryRun Mode = "dry-run"

	// ModePreview renders files to the output writer
	ModePreview Mode = "preview"
)

// Succeeded reports whether the result is a success.
func (r *Result) Succeeded() bool {
	return r.Status == StatusSuccess
}

// Counts returns the number of files per status.
func (r *Result) Counts() map[history.Status]int {
	counts := make(map[history.Status]int, 3)
	for _, f := range r.Files {
		counts[f.Status]++
	}
	return counts
}

// String summarises the result on one line.
func (r *Result) String() string {
	switch {
	case r.Skipped:
		return fmt.Sprintf("%s %s skipped (%s)", r.Name, r.Direction, r.Reason)
	case r.Error != nil:
		return fmt.Sprintf("%s %s %s: %v", r.Name, r.Direction, r.Status, r.Error)
	default:
		return fmt.Sprintf("%s %s %s (%d files in %s)", r.Name, r.Direction, r.Status, len(r.Files), r.Duration.Round(time.Millisecond))
	}
}
