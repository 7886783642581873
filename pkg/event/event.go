// Package event defines the lifecycle notifications emitted while changes
// are applied and locks are taken.
//
// Observers are optional everywhere; a nil Observer is treated as Nop.
package event

import (
	"context"
	"log/slog"
	"time"
)

// Kind identifies an event.
type Kind string

const (
	ChangeStart    Kind = "change:start"
	ChangeFile     Kind = "change:file"
	ChangeComplete Kind = "change:complete"
	ChangeSkip     Kind = "change:skip"
	LockAcquiring  Kind = "lock:acquiring"
	LockAcquired   Kind = "lock:acquired"
	LockBlocked    Kind = "lock:blocked"
	LockExpired    Kind = "lock:expired"
	LockReleased   Kind = "lock:released"
	Error          Kind = "error"
)

type (
	// Event is a single notification. Fields not relevant to Kind are zero.
	Event struct {
		Kind      Kind
		Name      string
		Direction string
		File      string
		Status    string
		Reason    string
		Duration  time.Duration
		Err       error
	}

	// Observer receives events. Implementations must not block for long;
	// they are called synchronously.
	Observer interface {
		Notify(ctx context.Context, e Event)
	}

	// ObserverFunc adapts a function to an Observer.
	ObserverFunc func(ctx context.Context, e Event)

	// Multi fans an event out to every observer in order.
	Multi []Observer

	nop struct{}
)

// Nop discards every event.
var Nop Observer = nop{}

func (nop) Notify(context.Context, Event) {}

func (f ObserverFunc) Notify(ctx context.Context, e Event) { f(ctx, e) }

func (m Multi) Notify(ctx context.Context, e Event) {
	for _, o := range m {
		if o != nil {
			o.Notify(ctx, e)
		}
	}
}

// OrNop returns o, or Nop when o is nil.
func OrNop(o Observer) Observer {
	if o == nil {
		return Nop
	}
	return o
}

// LogObserver writes events to a slog.Logger. Errors are logged at error
// level, blocked and expired locks at warn, file events at debug, the rest
// at info.
type LogObserver struct {
	Logger *slog.Logger
}

func (l LogObserver) Notify(ctx context.Context, e Event) {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}

	attrs := []any{"event", string(e.Kind)}
	if e.Name != "" {
		attrs = append(attrs, "name", e.Name)
	}
	if e.Direction != "" {
		attrs = append(attrs, "direction", e.Direction)
	}
	if e.File != "" {
		attrs = append(attrs, "file", e.File)
	}
	if e.Status != "" {
		attrs = append(attrs, "status", e.Status)
	}
	if e.Reason != "" {
		attrs = append(attrs, "reason", e.Reason)
	}
	if e.Duration > 0 {
		attrs = append(attrs, "duration", e.Duration)
	}
	if e.Err != nil {
		attrs = append(attrs, "error", e.Err)
	}

	logger.Log(ctx, levelFor(e.Kind), message(e.Kind), attrs...)
}

func levelFor(k Kind) slog.Level {
	switch k {
	case Error:
		return slog.LevelError
	case LockBlocked, LockExpired:
		return slog.LevelWarn
	case ChangeFile, LockAcquiring:
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}

func message(k Kind) string {
	switch k {
	case ChangeStart:
		return "Starting change"
	case ChangeFile:
		return "Executed file"
	case ChangeComplete:
		return "Change complete"
	case ChangeSkip:
		return "Skipping change"
	case LockAcquiring:
		return "Acquiring lock"
	case LockAcquired:
		return "Lock acquired"
	case LockBlocked:
		return "Lock held by another process"
	case LockExpired:
		return "Swept expired lock"
	case LockReleased:
		return "Lock released"
	default:
		return "Error"
	}
}
