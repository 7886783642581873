// Package lock provides table-backed mutual exclusion for sqlchanges.
//
// A lock is a row in the <prefix>_lock table keyed by config name. At most
// one unexpired row exists per config name; an expired row is swept by the
// next caller that tries to acquire. Holders are identified by their
// formatted identity, so re-acquiring a lock you already hold extends it.
//
// Acquisition inserts a row and then re-reads the table to confirm it won,
// which keeps the algorithm identical on databases without primary key
// enforcement (ClickHouse).
//
// # Usage Example
//
//	mgr := lock.NewManager(db, lock.Config{Observer: event.LogObserver{}})
//
//	err := mgr.WithLock(ctx, "default", "jane@build-01", lock.Options{Reason: "deploy"}, func(ctx context.Context) error {
//		return applyChanges(ctx)
//	})
//
//	var blocked *lock.AcquireError
//	if errors.As(err, &blocked) {
//		fmt.Printf("held by %s since %s\n", blocked.Holder, blocked.HeldSince)
//	}
package lock
