// Package identity describes who is running sqlchanges. The formatted
// identity is written to the lock table and to every history record.
package identity

import (
	"os"
	"os/user"
	"strings"
)

// Identity is the operator recorded as locked_by and executed_by.
type Identity struct {
	Name  string
	Email string
	Host  string
}

// Format renders the identity for storage.
//
// Examples:
//   - {Name: "Jane", Email: "jane@example.com"} -> "Jane <jane@example.com>"
//   - {Name: "jane", Host: "build-01"} -> "jane@build-01"
//   - {Name: "jane"} -> "jane"
func (i Identity) Format() string {
	name := strings.TrimSpace(i.Name)
	if name == "" {
		name = "unknown"
	}

	switch {
	case i.Email != "":
		return name + " <" + strings.TrimSpace(i.Email) + ">"
	case i.Host != "":
		return name + "@" + i.Host
	default:
		return name
	}
}

func (i Identity) String() string { return i.Format() }

// Detect fills in whatever the configured identity leaves empty. The name
// falls back to $USER and then the current OS user; the host is always
// detected.
func Detect(configured Identity) Identity {
	id := configured

	if id.Name == "" {
		id.Name = os.Getenv("USER")
	}

	if id.Name == "" {
		if u, err := user.Current(); err == nil {
			id.Name = u.Username
		}
	}

	if id.Host == "" {
		if host, err := os.Hostname(); err == nil {
			id.Host = host
		}
	}

	return id
}
