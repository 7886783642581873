// Package executor applies and reverts changes.
//
// One engine handles every kind of execution. A job (forward change, revert,
// or an ad-hoc run/build of files) goes through the same steps:
//
//  1. Structural validation: duplicate filenames, no files to run, or nothing
//     but placeholder SQL are returned as errors before anything else happens.
//  2. The files are expanded into a change.Plan (manifests resolved against
//     the schema directory) and the combined checksum computed.
//  3. Dry runs render the plan into the tmp directory; previews render it to
//     a writer. Neither takes the lock or writes history.
//  4. Otherwise history is consulted (NeedsRun for changes, CanRevert for
//     reverts), the lock is acquired with the change name as its reason, and
//     history is consulted again in case another process got there first.
//  5. An Operation and one pending FileExecution per file are recorded, then
//     the files run one at a time. The first failure stops the run; the
//     remaining files are marked skipped with the failing file in the reason.
//  6. The Operation is finalized and the lock released, whatever happened.
//
// # Error Routing
//
// Errors returned from ExecuteChange and RevertChange mean nothing ran:
// *change.ValidationError, *RevertNotAllowedError and the lock package's
// errors. SQL and render failures are part of the Result (Status failed,
// Error naming the file) and of history. Failures writing history are logged
// and folded into Result.Error after the execution failure, if any.
//
// # Usage Example
//
//	exec := executor.New(executor.Config{
//		DB:       db,
//		History:  store,
//		Locks:    locks,
//		Identity: "jane@build-01",
//		Observer: event.LogObserver{},
//	})
//
//	changes, err := change.DiscoverAll("changes", slog.Default())
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	results, err := exec.FastForward(ctx, changes, executor.Options{})
//	for _, result := range results {
//		switch {
//		case result.Skipped:
//			fmt.Printf("- %s already applied\n", result.Name)
//		case result.Succeeded():
//			fmt.Printf("✓ %s completed in %v\n", result.Name, result.Duration)
//		default:
//			fmt.Printf("✗ %s failed: %v\n", result.Name, result.Error)
//		}
//	}
package executor
