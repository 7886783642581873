package history

import (
	"time"

	"github.com/pseudomuto/sqlchanges/pkg/change"
)

// Kind is the change_type column: what produced an operation.
type Kind string

const (
	// KindChange is a change folder applied or reverted
	KindChange Kind = "change"

	// KindRun is an ad-hoc run of individual files
	KindRun Kind = "run"

	// KindBuild is a build of schema files
	KindBuild Kind = "build"
)

// Status is the state of an operation or file execution.
type Status string

const (
	StatusPending  Status = "pending"
	StatusSuccess  Status = "success"
	StatusFailed   Status = "failed"
	StatusReverted Status = "reverted"
	StatusSkipped  Status = "skipped"
)

// Run reasons reported by NeedsRun.
const (
	ReasonForce    = "force"
	ReasonNew      = "new"
	ReasonFailed   = "failed"
	ReasonReverted = "reverted"
	ReasonPending  = "pending"
	ReasonChanged  = "changed"
	ReasonError    = "error"
	ReasonApplied  = "already applied"
)

// Revert reasons reported by CanRevert.
const (
	ReasonNotApplied      = "not applied"
	ReasonInProgress      = "in progress"
	ReasonAlreadyReverted = "already reverted"
)

type (
	// Operation is a row in the changeset table.
	Operation struct {
		ID           string
		Name         string
		Kind         Kind
		Direction    change.Direction
		Status       Status
		ConfigName   string
		ExecutedBy   string
		ExecutedAt   time.Time
		Duration     time.Duration
		Checksum     string
		ErrorMessage string
	}

	// FileExecution is a row in the executions table.
	FileExecution struct {
		ID           string
		OperationID  string
		Position     int
		Path         string
		FileType     change.FileType
		Checksum     string
		Status       Status
		SkipReason   string
		ErrorMessage string
		Duration     time.Duration
	}

	// RunDecision is the answer to NeedsRun.
	RunDecision struct {
		Run    bool
		Reason string
	}

	// RevertDecision is the answer to CanRevert.
	RevertDecision struct {
		Allowed bool
		Reason  string
	}
)

// Terminal reports whether s is a final status.
func (s Status) Terminal() bool {
	return s != StatusPending && s != ""
}
