package lock

import (
	"fmt"
	"time"

	"github.com/pseudomuto/sqlchanges/pkg/consts"
)

type (
	// Lock is a lock row as stored in the lock table.
	Lock struct {
		ConfigName string
		LockedBy   string
		LockedAt   time.Time
		ExpiresAt  time.Time
		Reason     string
	}

	// Options control acquisition.
	Options struct {
		// Timeout is how long the lock is held before it expires
		Timeout time.Duration

		// Wait polls for a held lock instead of failing immediately
		Wait bool

		// WaitTimeout bounds the total time spent waiting
		WaitTimeout time.Duration

		// PollInterval is the fixed delay between attempts while waiting
		PollInterval time.Duration

		// Reason is stored with the lock and shown to blocked callers
		Reason string
	}

	// AcquireError is returned when another identity holds the lock.
	AcquireError struct {
		ConfigName string
		Holder     string
		HeldSince  time.Time
		ExpiresAt  time.Time
		Reason     string
		Waited     time.Duration
	}

	// ExpiredError is returned by Validate when the caller's lock has expired.
	ExpiredError struct {
		ConfigName string
		Holder     string
		ExpiredAt  time.Time
	}

	// NotFoundError is returned when no lock exists for the config name.
	NotFoundError struct {
		ConfigName string
	}

	// OwnershipError is returned when the lock belongs to someone else.
	OwnershipError struct {
		ConfigName string
		Holder     string
		Requester  string
	}
)

// Expired reports whether the lock has expired at now.
func (l *Lock) Expired(now time.Time) bool {
	return now.After(l.ExpiresAt)
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = consts.DefaultLockTimeout
	}
	if o.WaitTimeout <= 0 {
		o.WaitTimeout = consts.DefaultLockWaitTimeout
	}
	if o.PollInterval <= 0 {
		o.PollInterval = consts.DefaultLockPollInterval
	}
	return o
}

func (e *AcquireError) Error() string {
	msg := fmt.Sprintf(
		"lock %q is held by %s since %s (expires %s)",
		e.ConfigName,
		e.Holder,
		e.HeldSince.Format(time.RFC3339),
		e.ExpiresAt.Format(time.RFC3339),
	)

	if e.Reason != "" {
		msg += ": " + e.Reason
	}

	if e.Waited > 0 {
		msg += fmt.Sprintf(" (gave up after %s)", e.Waited.Round(time.Millisecond))
	}

	return msg
}

func (e *ExpiredError) Error() string {
	return fmt.Sprintf("lock %q held by %s expired at %s", e.ConfigName, e.Holder, e.ExpiredAt.Format(time.RFC3339))
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no lock held for %q", e.ConfigName)
}

func (e *OwnershipError) Error() string {
	return fmt.Sprintf("lock %q is held by %s, not %s", e.ConfigName, e.Holder, e.Requester)
}
