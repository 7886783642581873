// Package cmd provides the sqlchanges command line interface.
//
// Commands are urfave/cli commands registered with fx through the
// "commands" value group (see Module) and share a runtime that the root
// command resolves from the global flags before any subcommand runs.
//
// # Available Commands
//
//   - init: create sqlchanges.yaml, changes/ and schema/
//   - new: scaffold a dated change folder
//   - apply, revert: run one change forward or backward
//   - ff: apply every change that needs to run, stopping at the first failure
//   - run: execute ad-hoc files, recorded as a run or build
//   - status, history: compare disk with history and browse past executions
//   - sum: print the checksums history compares against
//   - lock status|release|force-release: inspect the execution lock
//   - purge: delete recorded history
//
// # Global Options
//
//   - --dir, -d: project directory (defaults to current directory)
//   - --dsn: database DSN, overriding sqlchanges.yaml ($SQLCHANGES_DSN)
//   - --log-level: slog level for diagnostics written to stderr
//
// apply, revert, ff and run accept --dry-run (render into tmp/) and
// --preview (print the rendered SQL); apply, revert and ff accept --force.
// apply and ff also accept --docker, which targets a throwaway ClickHouse
// container instead of the configured database.
package cmd
