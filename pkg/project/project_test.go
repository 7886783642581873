package project_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pseudomuto/sqlchanges/pkg/change"
	"github.com/pseudomuto/sqlchanges/pkg/consts"
	"github.com/pseudomuto/sqlchanges/pkg/project"
	"github.com/pseudomuto/sqlchanges/pkg/testutil"
	"github.com/stretchr/testify/require"
)

func TestInitialize(t *testing.T) {
	t.Setenv(consts.EnvDSN, "")

	t.Run("creates the layout", func(t *testing.T) {
		dir := t.TempDir()
		proj := project.New(project.ProjectParams{Dir: dir})

		require.NoError(t, proj.Initialize(project.InitOptions{}))
		require.DirExists(t, filepath.Join(dir, "changes"))
		require.DirExists(t, filepath.Join(dir, "schema"))
		require.FileExists(t, filepath.Join(dir, ".gitignore"))
		require.FileExists(t, filepath.Join(dir, consts.ConfigFile))

		cfg := proj.Config()
		require.NotNil(t, cfg)
		require.Equal(t, consts.DefaultConfigName, cfg.Name)
		require.Equal(t, "sqlite", cfg.Database.Dialect)
		require.Equal(t, "sqlchanges.db", cfg.Database.DSN)
		require.True(t, cfg.LockOptions().Wait)
		require.Empty(t, cfg.Vars)

		require.Equal(t, filepath.Join(dir, "changes"), proj.ChangesDir())
		require.Equal(t, filepath.Join(dir, "schema"), proj.SchemaDir())
		require.Equal(t, filepath.Join(dir, "tmp"), proj.TmpDir())
	})

	t.Run("with options", func(t *testing.T) {
		dir := t.TempDir()
		proj := project.New(project.ProjectParams{Dir: dir})

		require.NoError(t, proj.Initialize(project.InitOptions{
			Name:    "billing",
			Dialect: "postgres",
			DSN:     "postgres://app:pw@localhost:5432/billing?sslmode=disable",
		}))

		cfg := proj.Config()
		require.Equal(t, "billing", cfg.Name)
		require.Equal(t, "postgres", cfg.Database.Dialect)
		require.Equal(t, "postgres://app:pw@localhost:5432/billing?sslmode=disable", cfg.Database.DSN)
	})

	t.Run("is idempotent", func(t *testing.T) {
		dir := t.TempDir()
		testutil.WriteFiles(t, dir, map[string]string{
			consts.ConfigFile:       "name: existing\ndatabase:\n  dialect: clickhouse\nchanges_dir: db/changes\n",
			"db/changes/keep/x.txt": "keep me",
		})

		proj := project.New(project.ProjectParams{Dir: dir})
		require.NoError(t, proj.Initialize(project.InitOptions{Name: "ignored"}))
		require.NoError(t, proj.Initialize(project.InitOptions{}))

		require.Equal(t, "existing", proj.Config().Name)
		require.Equal(t, filepath.Join(dir, "db", "changes"), proj.ChangesDir())
		require.FileExists(t, filepath.Join(dir, "db", "changes", "keep", "x.txt"))
	})

	t.Run("missing directory", func(t *testing.T) {
		proj := project.New(project.ProjectParams{Dir: filepath.Join(t.TempDir(), "nope")})
		require.ErrorContains(t, proj.Initialize(project.InitOptions{}), "failed to stat dir")
	})

	t.Run("not a directory", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "file")
		require.NoError(t, os.WriteFile(file, nil, consts.ModeFile))

		proj := project.New(project.ProjectParams{Dir: file})
		require.ErrorContains(t, proj.Initialize(project.InitOptions{}), "is not a directory")
	})
}

func TestLoad(t *testing.T) {
	proj := project.New(project.ProjectParams{Dir: t.TempDir()})
	require.Error(t, proj.Load())
	require.Nil(t, proj.Config())
}

func TestChanges(t *testing.T) {
	t.Setenv(consts.EnvDSN, "")

	t.Run("discovers changes in order", func(t *testing.T) {
		dir := t.TempDir()
		testutil.WriteFiles(t, dir, map[string]string{
			"changes/2024-02-01-orders/change/001.sql": "CREATE TABLE orders(id INT)",
			"changes/2024-01-15-users/change/001.sql":  "CREATE TABLE users(id INT)",
			"changes/2024-03-01-empty/notes.md":        "nothing to run",
		})

		proj := project.New(project.ProjectParams{Dir: dir})
		require.NoError(t, proj.Initialize(project.InitOptions{}))

		changes, err := proj.Changes()
		require.NoError(t, err)
		require.Equal(t, []string{"2024-01-15-users", "2024-02-01-orders"}, change.Names(changes))

		c, err := proj.Change("2024-02-01-orders")
		require.NoError(t, err)
		require.Equal(t, "orders", c.Slug)

		_, err = proj.Change("2024-12-31-missing")
		require.True(t, change.IsNotFound(err))

		_, err = proj.Change("../outside")
		require.ErrorContains(t, err, "invalid change name")
	})

	t.Run("missing changes directory", func(t *testing.T) {
		proj := project.New(project.ProjectParams{Dir: t.TempDir()})

		changes, err := proj.Changes()
		require.NoError(t, err)
		require.Empty(t, changes)
	})
}

func TestNewChange(t *testing.T) {
	t.Setenv(consts.EnvDSN, "")

	dir := t.TempDir()
	proj := project.New(project.ProjectParams{Dir: dir})
	require.NoError(t, proj.Initialize(project.InitOptions{}))

	date := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	c, err := proj.NewChange("Add-Users", date)
	require.NoError(t, err)
	require.Equal(t, "2024-01-15-add-users", c.Name)
	require.Len(t, c.Forward, 1)
	require.Len(t, c.Revert, 1)
	require.Equal(t, "001_add_users.sql", c.Forward[0].Filename)

	// scaffolding is all comments so it can't be applied by accident
	require.True(t, change.IsValidation(change.CheckContent(c.Forward)))

	_, err = proj.NewChange("add-users", date)
	require.ErrorContains(t, err, "change already exists")

	_, err = proj.NewChange("no spaces please", date)
	require.ErrorContains(t, err, "invalid change slug")
}
