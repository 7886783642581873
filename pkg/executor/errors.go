package executor

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/pseudomuto/sqlchanges/pkg/history"
)

// RevertNotAllowedError is returned when history doesn't permit a revert.
type RevertNotAllowedError struct {
	Name   string
	Reason string
}

func (e *RevertNotAllowedError) Error() string {
	return fmt.Sprintf("cannot revert %s: %s", e.Name, e.Reason)
}

// IsNotApplied reports whether err is a revert refused because the change
// was never applied.
func IsNotApplied(err error) bool {
	var notAllowed *RevertNotAllowedError
	return errors.As(err, &notAllowed) && notAllowed.Reason == history.ReasonNotApplied
}
