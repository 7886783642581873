package change

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// ErrNotFound is the cause of errors returned when a change folder doesn't exist.
var ErrNotFound = errors.New("change not found")

type (
	// ValidationError reports a change folder that is structurally unusable.
	// It is returned before any lock or history interaction happens.
	ValidationError struct {
		Path     string
		Problems []string
	}

	// ManifestError reports a manifest referencing a file that can't be read.
	// Manifests are validated all-or-nothing; Missing names the first
	// unreadable entry.
	ManifestError struct {
		Manifest string
		Missing  string
		Err      error
	}
)

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid change %s: %s", e.Path, strings.Join(e.Problems, "; "))
}

func (e *ManifestError) Error() string {
	return fmt.Sprintf("manifest %s references unreadable file %s: %v", e.Manifest, e.Missing, e.Err)
}

func (e *ManifestError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err was caused by a missing change folder.
func IsNotFound(err error) bool {
	return errors.Cause(err) == ErrNotFound
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
