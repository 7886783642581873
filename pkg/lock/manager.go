package lock

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
	"github.com/pseudomuto/sqlchanges/pkg/database"
	"github.com/pseudomuto/sqlchanges/pkg/event"
)

type (
	// Config holds the optional collaborators of a Manager.
	Config struct {
		Logger   *slog.Logger
		Observer event.Observer

		// Clock returns the current time; defaults to time.Now
		Clock func() time.Time
	}

	// Manager acquires and releases locks stored in the lock table.
	Manager struct {
		db       *database.DB
		logger   *slog.Logger
		observer event.Observer
		now      func() time.Time
	}
)

// NewManager creates a Manager backed by db. The tracking tables must
// already exist (see database.DB.Bootstrap).
func NewManager(db *database.DB, cfg Config) *Manager {
	m := &Manager{
		db:       db,
		logger:   cfg.Logger,
		observer: event.OrNop(cfg.Observer),
		now:      cfg.Clock,
	}

	if m.logger == nil {
		m.logger = slog.Default()
	}

	if m.now == nil {
		m.now = time.Now
	}

	return m
}

// Acquire takes the lock for configName on behalf of who.
//
// Expired locks are swept first. If who already holds the lock its expiry is
// extended. If someone else holds it, Acquire fails immediately with an
// *AcquireError unless opts.Wait is set, in which case it polls every
// opts.PollInterval until the lock frees up or opts.WaitTimeout elapses.
func (m *Manager) Acquire(ctx context.Context, configName, who string, opts Options) (*Lock, error) {
	opts = opts.withDefaults()
	m.observer.Notify(ctx, event.Event{Kind: event.LockAcquiring, Name: configName, Reason: opts.Reason})

	if !opts.Wait {
		l, err := m.tryAcquire(ctx, configName, who, opts)
		if err != nil {
			m.notifyBlocked(ctx, configName, err)
			return nil, err
		}

		m.observer.Notify(ctx, event.Event{Kind: event.LockAcquired, Name: configName, Reason: opts.Reason})
		return l, nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = opts.PollInterval
	b.MaxInterval = opts.PollInterval
	b.Multiplier = 1
	b.RandomizationFactor = 0
	b.MaxElapsedTime = opts.WaitTimeout

	var (
		start = time.Now()
		l     *Lock
	)

	err := backoff.RetryNotify(
		func() error {
			var err error
			l, err = m.tryAcquire(ctx, configName, who, opts)

			var blocked *AcquireError
			if err != nil && !errors.As(err, &blocked) {
				return backoff.Permanent(err)
			}
			return err
		},
		backoff.WithContext(b, ctx),
		func(err error, next time.Duration) {
			m.notifyBlocked(ctx, configName, err)
			m.logger.Debug("Waiting for lock", "config", configName, "retry_in", next)
		},
	)
	if err != nil {
		var blocked *AcquireError
		if errors.As(err, &blocked) {
			blocked.Waited = time.Since(start)
		}
		return nil, err
	}

	m.observer.Notify(ctx, event.Event{Kind: event.LockAcquired, Name: configName, Reason: opts.Reason})
	return l, nil
}

// Release deletes the lock held by who.
func (m *Manager) Release(ctx context.Context, configName, who string) error {
	l, err := m.read(ctx, configName)
	if err != nil {
		return err
	}

	if l == nil {
		return &NotFoundError{ConfigName: configName}
	}

	if l.LockedBy != who {
		return &OwnershipError{ConfigName: configName, Holder: l.LockedBy, Requester: who}
	}

	if err := m.delete(ctx, configName, who); err != nil {
		return err
	}

	m.observer.Notify(ctx, event.Event{Kind: event.LockReleased, Name: configName})
	return nil
}

// ForceRelease deletes the lock for configName regardless of who holds it.
// It reports whether a lock existed.
func (m *Manager) ForceRelease(ctx context.Context, configName string) (bool, error) {
	l, err := m.read(ctx, configName)
	if err != nil {
		return false, err
	}

	if l == nil {
		return false, nil
	}

	if err := m.delete(ctx, configName, ""); err != nil {
		return false, err
	}

	m.logger.Warn("Force released lock", "config", configName, "holder", l.LockedBy)
	m.observer.Notify(ctx, event.Event{Kind: event.LockReleased, Name: configName, Reason: "forced"})
	return true, nil
}

// Validate checks that who still holds an unexpired lock. An expired lock is
// removed before the *ExpiredError is returned.
func (m *Manager) Validate(ctx context.Context, configName, who string) error {
	l, err := m.read(ctx, configName)
	if err != nil {
		return err
	}

	if l == nil {
		return &NotFoundError{ConfigName: configName}
	}

	if l.LockedBy != who {
		return &OwnershipError{ConfigName: configName, Holder: l.LockedBy, Requester: who}
	}

	if l.Expired(m.now()) {
		if err := m.delete(ctx, configName, who); err != nil {
			return err
		}

		m.observer.Notify(ctx, event.Event{Kind: event.LockExpired, Name: configName})
		return &ExpiredError{ConfigName: configName, Holder: l.LockedBy, ExpiredAt: l.ExpiresAt}
	}

	return nil
}

// Extend pushes the expiry of who's lock out by opts.Timeout from now.
func (m *Manager) Extend(ctx context.Context, configName, who string, opts Options) (*Lock, error) {
	if err := m.Validate(ctx, configName, who); err != nil {
		return nil, err
	}

	return m.extend(ctx, configName, who, opts.withDefaults())
}

// WithLock acquires the lock, runs fn and always releases the lock
// afterwards. A failed release is logged and does not change the result.
func (m *Manager) WithLock(ctx context.Context, configName, who string, opts Options, fn func(context.Context) error) error {
	if _, err := m.Acquire(ctx, configName, who, opts); err != nil {
		return err
	}

	defer func() {
		// the caller's context may already be cancelled
		if err := m.Release(context.WithoutCancel(ctx), configName, who); err != nil {
			m.logger.Error("Failed to release lock", "config", configName, "error", err)
		}
	}()

	return fn(ctx)
}

// Status returns the current unexpired lock for configName, or nil when the
// lock is free.
func (m *Manager) Status(ctx context.Context, configName string) (*Lock, error) {
	l, err := m.read(ctx, configName)
	if err != nil || l == nil {
		return nil, err
	}

	if l.Expired(m.now()) {
		return nil, nil
	}

	return l, nil
}

func (m *Manager) tryAcquire(ctx context.Context, configName, who string, opts Options) (*Lock, error) {
	if err := m.sweep(ctx, configName); err != nil {
		return nil, err
	}

	current, err := m.read(ctx, configName)
	if err != nil {
		return nil, err
	}

	if current != nil {
		if current.LockedBy == who {
			return m.extend(ctx, configName, who, opts)
		}
		return nil, blockedBy(current)
	}

	now := m.now().UTC()
	l := &Lock{
		ConfigName: configName,
		LockedBy:   who,
		LockedAt:   now,
		ExpiresAt:  now.Add(opts.Timeout),
		Reason:     opts.Reason,
	}

	d := m.db.Dialect()
	_, err = m.db.Exec(
		ctx,
		"INSERT INTO "+m.db.Tables().Lock+" (config_name, locked_by, locked_at, expires_at, reason) VALUES (?, ?, ?, ?, ?)",
		l.ConfigName,
		l.LockedBy,
		d.EncodeTime(l.LockedAt),
		d.EncodeTime(l.ExpiresAt),
		l.Reason,
	)
	if err != nil {
		// most likely a primary key conflict with a concurrent acquirer
		holder, readErr := m.read(ctx, configName)
		if readErr == nil && holder != nil && holder.LockedBy != who {
			return nil, blockedBy(holder)
		}
		return nil, errors.Wrapf(err, "failed to acquire lock %q", configName)
	}

	// databases without key enforcement may now hold several rows; the
	// earliest one wins
	winner, err := m.read(ctx, configName)
	if err != nil {
		return nil, err
	}

	if winner != nil && winner.LockedBy != who {
		if err := m.delete(ctx, configName, who); err != nil {
			m.logger.Warn("Failed to remove losing lock row", "config", configName, "error", err)
		}
		return nil, blockedBy(winner)
	}

	return l, nil
}

func (m *Manager) extend(ctx context.Context, configName, who string, opts Options) (*Lock, error) {
	l, err := m.read(ctx, configName)
	if err != nil {
		return nil, err
	}

	if l == nil {
		return nil, &NotFoundError{ConfigName: configName}
	}

	l.ExpiresAt = m.now().UTC().Add(opts.Timeout)
	if opts.Reason != "" {
		l.Reason = opts.Reason
	}

	d := m.db.Dialect()
	_, err = m.db.Exec(
		ctx,
		d.Update(m.db.Tables().Lock, "expires_at = ?, reason = ?", "config_name = ? AND locked_by = ?"),
		d.EncodeTime(l.ExpiresAt),
		l.Reason,
		configName,
		who,
	)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to extend lock %q", configName)
	}

	return l, nil
}

func (m *Manager) sweep(ctx context.Context, configName string) error {
	d := m.db.Dialect()
	res, err := m.db.Exec(
		ctx,
		d.Delete(m.db.Tables().Lock, "config_name = ? AND expires_at < ?"),
		configName,
		d.EncodeTime(m.now()),
	)
	if err != nil {
		return errors.Wrapf(err, "failed to sweep expired locks for %q", configName)
	}

	if n, err := res.RowsAffected(); err == nil && n > 0 {
		m.logger.Info("Removed expired lock", "config", configName)
		m.observer.Notify(ctx, event.Event{Kind: event.LockExpired, Name: configName})
	}

	return nil
}

// delete removes the lock rows for configName, limited to who when set.
func (m *Manager) delete(ctx context.Context, configName, who string) error {
	where := "config_name = ?"
	args := []any{configName}
	if who != "" {
		where += " AND locked_by = ?"
		args = append(args, who)
	}

	_, err := m.db.Exec(ctx, m.db.Dialect().Delete(m.db.Tables().Lock, where), args...)
	return errors.Wrapf(err, "failed to delete lock %q", configName)
}

func (m *Manager) read(ctx context.Context, configName string) (*Lock, error) {
	var (
		l                   = &Lock{ConfigName: configName}
		lockedAt, expiresAt any
	)

	err := m.db.QueryRow(
		ctx,
		"SELECT locked_by, locked_at, expires_at, reason FROM "+m.db.Tables().Lock+
			" WHERE config_name = ? ORDER BY locked_at, locked_by LIMIT 1",
		configName,
	).Scan(&l.LockedBy, &lockedAt, &expiresAt, &l.Reason)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read lock %q", configName)
	}

	d := m.db.Dialect()
	if l.LockedAt, err = d.DecodeTime(lockedAt); err != nil {
		return nil, err
	}
	if l.ExpiresAt, err = d.DecodeTime(expiresAt); err != nil {
		return nil, err
	}

	return l, nil
}

func (m *Manager) notifyBlocked(ctx context.Context, configName string, err error) {
	var blocked *AcquireError
	if errors.As(err, &blocked) {
		m.observer.Notify(ctx, event.Event{
			Kind:   event.LockBlocked,
			Name:   configName,
			Reason: "held by " + blocked.Holder,
		})
	}
}

func blockedBy(l *Lock) *AcquireError {
	return &AcquireError{
		ConfigName: l.ConfigName,
		Holder:     l.LockedBy,
		HeldSince:  l.LockedAt,
		ExpiresAt:  l.ExpiresAt,
		Reason:     l.Reason,
	}
}
