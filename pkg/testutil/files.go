package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pseudomuto/sqlchanges/pkg/consts"
	"github.com/stretchr/testify/require"
)

// WriteFiles writes files (slash separated relative path -> content) beneath
// root, creating directories as needed.
func WriteFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()

	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), consts.ModeDir), "Failed to create directory for %s", rel)
		require.NoError(t, os.WriteFile(path, []byte(content), consts.ModeFile), "Failed to write %s", rel)
	}
}
