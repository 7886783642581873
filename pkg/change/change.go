package change

import (
	"regexp"
	"strings"
	"time"
)

const (
	// SQL marks a file that is executed directly (optionally rendered as a template).
	SQL FileType = "sql"

	// Manifest marks a file that lists other SQL files to execute.
	Manifest FileType = "manifest"

	// Forward is the direction that applies a change.
	Forward Direction = "change"

	// Reverse is the direction that undoes a change.
	Reverse Direction = "revert"

	// ChangelogFile is the optional free-form description kept next to the SQL folders.
	ChangelogFile = "changelog.md"

	// TemplateExt is the suffix that marks a SQL file as a template.
	TemplateExt = ".tmpl"
)

var datePrefix = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})-(.+)$`)

type (
	// FileType identifies how a change file is processed.
	FileType string

	// Direction selects which side of a change is run.
	Direction string

	// File is a single file in a change folder.
	File struct {
		// Filename is the base name, e.g. 001_create_users.sql
		Filename string

		// Path is the absolute path to the file
		Path string

		// Type is derived from the file extension
		Type FileType
	}

	// Change is a named unit of forward SQL and optional reverse SQL.
	//
	// Changes are immutable once parsed and are re-read from disk on every
	// invocation; nothing about them is cached between runs.
	Change struct {
		// Name is the folder name and the identifier used in history
		Name string

		// Date is parsed from a YYYY-MM-DD- prefix, zero when absent
		Date time.Time

		// Slug is the name without its date prefix
		Slug string

		// Forward holds the files under change/ in execution order
		Forward []File

		// Revert holds the files under revert/ in execution order
		Revert []File

		// HasChangelog is set when changelog.md exists in the folder
		HasChangelog bool

		// Path is the absolute path to the change folder
		Path string
	}
)

// String returns the direction name.
func (d Direction) String() string {
	return string(d)
}

// Folder returns the sub-folder holding the files for this direction.
func (d Direction) Folder() string {
	if d == Reverse {
		return "revert"
	}
	return "change"
}

// TypeOf derives a FileType from a filename. The second return value is false
// for files that should be ignored.
func TypeOf(filename string) (FileType, bool) {
	lower := strings.ToLower(filename)
	switch {
	case strings.HasSuffix(lower, ".sql"), strings.HasSuffix(lower, ".sql"+TemplateExt):
		return SQL, true
	case strings.HasSuffix(lower, ".txt"):
		return Manifest, true
	default:
		return "", false
	}
}

// IsTemplate reports whether the file must be rendered before execution.
func (f File) IsTemplate() bool {
	return IsTemplate(f.Filename)
}

// IsTemplate reports whether path names a template, ignoring case.
func IsTemplate(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), TemplateExt)
}

// Files returns the files for the given direction.
func (c *Change) Files(dir Direction) []File {
	if dir == Reverse {
		return c.Revert
	}
	return c.Forward
}

// HasRevert reports whether the change can be undone.
func (c *Change) HasRevert() bool {
	return len(c.Revert) > 0
}

// Validate checks the structural invariants of a change: it must have files
// in at least one direction and no folder may contain two files that resolve
// to the same SQL name.
func (c *Change) Validate() error {
	if len(c.Forward) == 0 && len(c.Revert) == 0 {
		return &ValidationError{Path: c.Path, Problems: []string{"no .sql, .sql.tmpl or .txt files in change/ or revert/"}}
	}

	var problems []string
	problems = append(problems, duplicates(Forward, c.Forward)...)
	problems = append(problems, duplicates(Reverse, c.Revert)...)
	if len(problems) > 0 {
		return &ValidationError{Path: c.Path, Problems: problems}
	}

	return nil
}

// splitName separates an optional date prefix from the slug.
func splitName(name string) (time.Time, string) {
	m := datePrefix.FindStringSubmatch(name)
	if m == nil {
		return time.Time{}, name
	}

	date, err := time.Parse(time.DateOnly, m[1])
	if err != nil {
		return time.Time{}, name
	}

	return date, m[2]
}

// duplicates reports files that collide once the template suffix is dropped
// and case is ignored (001_a.sql and 001_A.sql.tmpl both produce 001_a.sql).
func duplicates(dir Direction, files []File) []string {
	seen := make(map[string]string, len(files))

	var problems []string
	for _, f := range files {
		key := strings.TrimSuffix(strings.ToLower(f.Filename), TemplateExt)
		if prev, ok := seen[key]; ok {
			problems = append(problems, "duplicate filename in "+dir.Folder()+"/: "+prev+" and "+f.Filename)
			continue
		}
		seen[key] = f.Filename
	}

	return problems
}
