package change_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/pseudomuto/sqlchanges/pkg/change"
	"github.com/pseudomuto/sqlchanges/pkg/checksum"
	"github.com/stretchr/testify/require"
)

func TestResolveManifest(t *testing.T) {
	root := t.TempDir()
	schema := filepath.Join(root, "schema")
	writeTree(t, root, map[string]string{
		"schema/views/b.sql":   "CREATE VIEW b AS SELECT 1",
		"schema/views/a.sql":   "CREATE VIEW a AS SELECT 1",
		"change/001_views.txt": "# views\n\nviews/b.sql\n  views/a.sql  \n",
		"change/002_bad.txt":   "views/a.sql\nviews/missing.sql\nviews/also-missing.sql\n",
		"change/003_dir.txt":   "views\n",
	})

	t.Run("sorted, comments and blanks skipped", func(t *testing.T) {
		paths, err := change.ResolveManifest(filepath.Join(root, "change/001_views.txt"), schema)
		require.NoError(t, err)
		require.Equal(t, []string{
			filepath.Join(schema, "views/a.sql"),
			filepath.Join(schema, "views/b.sql"),
		}, paths)
	})

	t.Run("round trip is stable", func(t *testing.T) {
		first, err := change.ResolveManifest(filepath.Join(root, "change/001_views.txt"), schema)
		require.NoError(t, err)
		second, err := change.ResolveManifest(filepath.Join(root, "change/001_views.txt"), schema)
		require.NoError(t, err)
		require.Equal(t, first, second)
	})

	t.Run("first missing file fails the manifest", func(t *testing.T) {
		_, err := change.ResolveManifest(filepath.Join(root, "change/002_bad.txt"), schema)
		require.Error(t, err)

		var me *change.ManifestError
		require.True(t, errors.As(err, &me))
		require.Equal(t, filepath.Join(schema, "views/missing.sql"), me.Missing)
	})

	t.Run("directories are rejected", func(t *testing.T) {
		_, err := change.ResolveManifest(filepath.Join(root, "change/003_dir.txt"), schema)
		require.Error(t, err)
	})

	t.Run("missing manifest", func(t *testing.T) {
		_, err := change.ResolveManifest(filepath.Join(root, "change/nope.txt"), schema)
		require.Error(t, err)
	})
}

func TestNewPlan(t *testing.T) {
	root := t.TempDir()
	schema := filepath.Join(root, "schema")
	writeTree(t, root, map[string]string{
		"schema/views/a.sql":       "CREATE VIEW a AS SELECT 1",
		"schema/views/b.sql":       "CREATE VIEW b AS SELECT 2",
		"ch/change/001_create.sql": "CREATE TABLE users(id INT)",
		"ch/change/002_views.txt":  "views/b.sql\nviews/a.sql\n",
	})

	ch, err := change.Parse(filepath.Join(root, "ch"))
	require.NoError(t, err)

	plan, err := change.NewPlan(ch.Forward, schema)
	require.NoError(t, err)

	require.Len(t, plan.Steps, 3)
	require.Equal(t, "001_create.sql", plan.Steps[0].Name)
	require.Equal(t, change.SQL, plan.Steps[0].Type)
	require.Equal(t, "views/a.sql", plan.Steps[1].Name)
	require.Equal(t, change.Manifest, plan.Steps[1].Type)
	require.Equal(t, "002_views.txt", plan.Steps[1].Source.Filename)
	require.Equal(t, "views/b.sql", plan.Steps[2].Name)
	require.Equal(t, checksum.Bytes([]byte("CREATE VIEW a AS SELECT 1")), plan.Steps[1].Checksum)

	// manifest bytes are part of the sum as well as each target
	require.Equal(t, 4, plan.Sum().Files())
	require.Equal(t, plan.Sum().Total(), plan.Checksum())

	t.Run("expansion is identical across plans", func(t *testing.T) {
		again, err := change.NewPlan(ch.Forward, schema)
		require.NoError(t, err)
		require.Equal(t, plan.Paths(), again.Paths())
		require.Equal(t, plan.Checksum(), again.Checksum())
	})

	t.Run("editing a manifest target changes the checksum", func(t *testing.T) {
		target := filepath.Join(schema, "views/b.sql")
		require.NoError(t, os.WriteFile(target, []byte("CREATE VIEW b AS SELECT 3"), 0o644))

		edited, err := change.NewPlan(ch.Forward, schema)
		require.NoError(t, err)
		require.NotEqual(t, plan.Checksum(), edited.Checksum())

		require.NoError(t, os.WriteFile(target, []byte("CREATE VIEW b AS SELECT 2"), 0o644))
		restored, err := change.NewPlan(ch.Forward, schema)
		require.NoError(t, err)
		require.Equal(t, plan.Checksum(), restored.Checksum())
	})

	t.Run("editing the manifest list changes the checksum", func(t *testing.T) {
		manifest := filepath.Join(root, "ch/change/002_views.txt")
		require.NoError(t, os.WriteFile(manifest, []byte("# reordered\nviews/b.sql\nviews/a.sql\n"), 0o644))
		t.Cleanup(func() {
			_ = os.WriteFile(manifest, []byte("views/b.sql\nviews/a.sql\n"), 0o644)
		})

		edited, err := change.NewPlan(ch.Forward, schema)
		require.NoError(t, err)
		require.Equal(t, plan.Paths(), edited.Paths())
		require.NotEqual(t, plan.Checksum(), edited.Checksum())
	})
}
