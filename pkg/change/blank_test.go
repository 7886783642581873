package change_test

import (
	"path/filepath"
	"testing"

	"github.com/pseudomuto/sqlchanges/pkg/change"
	"github.com/stretchr/testify/require"
)

func TestIsBlank(t *testing.T) {
	tests := []struct {
		name    string
		content string
		blank   bool
	}{
		{name: "empty", content: "", blank: true},
		{name: "whitespace", content: " \n\t\n", blank: true},
		{name: "line comments", content: "-- 001_create.sql\n-- Write your SQL here\n", blank: true},
		{name: "block comment", content: "/* placeholder\n spanning lines */\n", blank: true},
		{name: "statement", content: "CREATE TABLE users(id INT)", blank: false},
		{name: "statement after comment", content: "-- create\nCREATE TABLE users(id INT);", blank: false},
		{name: "unterminated block comment", content: "/* oops", blank: false},
		{name: "template action", content: "{{ include \"views/a.sql\" }}", blank: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.blank, change.IsBlank(tt.content))
		})
	}
}

func TestCheckContent(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"blank/change/001_a.sql":      "-- TODO",
		"blank/change/002_b.sql":      "",
		"mixed/change/001_a.sql":      "-- TODO",
		"mixed/change/002_b.sql":      "SELECT 1",
		"manifest/change/001_a.sql":   "",
		"manifest/change/002_all.txt": "a.sql",
	})

	parse := func(name string) *change.Change {
		ch, err := change.Parse(filepath.Join(root, name))
		require.NoError(t, err)
		return ch
	}

	err := change.CheckContent(parse("blank").Forward)
	require.Error(t, err)
	require.True(t, change.IsValidation(err))

	require.NoError(t, change.CheckContent(parse("mixed").Forward))
	require.NoError(t, change.CheckContent(parse("manifest").Forward))
	require.NoError(t, change.CheckContent(nil))
}
