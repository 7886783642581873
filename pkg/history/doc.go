// Package history records every operation sqlchanges performs and answers
// the questions the executor asks before doing work: does this change need
// to run, and may it be reverted?
//
// Each apply or revert creates one Operation row in <prefix>_changeset and
// one FileExecution row per file in <prefix>_executions. Rows are created
// pending before any SQL runs, so an interrupted run leaves a durable partial
// record. History is scoped by config name; two configs sharing a database
// never see each other's rows.
//
// # Change Detection
//
// NeedsRun looks at the most recent forward operation of kind "change":
//
//   - force requested: run ("force")
//   - no prior operation: run ("new")
//   - failed: run ("failed")
//   - reverted: run ("reverted")
//   - pending (interrupted): run ("pending")
//   - checksum differs: run ("changed")
//   - success with the same checksum: skip
//
// A failed history query also answers run ("error") after logging a warning.
//
// # Usage Example
//
//	store := history.NewStore(db, history.Config{ConfigName: "default"})
//
//	decision := store.NeedsRun(ctx, "2024-01-15-add-users", sum, false)
//	if !decision.Run {
//		return nil
//	}
package history
