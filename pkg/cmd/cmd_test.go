package cmd

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/pseudomuto/sqlchanges/pkg/config"
	"github.com/pseudomuto/sqlchanges/pkg/consts"
	"github.com/pseudomuto/sqlchanges/pkg/database"
	"github.com/pseudomuto/sqlchanges/pkg/lock"
	"github.com/pseudomuto/sqlchanges/pkg/testutil"
	"github.com/stretchr/testify/require"
)

const (
	users  = "2024-01-15-users"
	orders = "2024-02-01-orders"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

func testProject(t *testing.T) (*testutil.ProjectFixture, *runtime) {
	t.Helper()

	fixture := testutil.TestProject(t).
		WithoutLockWait().
		WithChanges(map[string]string{
			users + "/change/001_create.sql":  "CREATE TABLE users (id INT)",
			users + "/revert/001_drop.sql":    "DROP TABLE users",
			orders + "/change/001_create.sql": "CREATE TABLE orders (id INT, user_id INT)",
		})

	rt := newRuntime(config.Load)
	rt.dir = fixture.Dir
	rt.project = fixture.Project
	return fixture, rt
}

func TestInitCommand(t *testing.T) {
	t.Setenv(consts.EnvDSN, "")

	t.Run("creates a project", func(t *testing.T) {
		dir := t.TempDir()
		rt := newRuntime(config.Load)
		require.NoError(t, rt.resolve(dir))
		require.Nil(t, rt.project)

		out, err := testutil.RunCommand(t, initCmd(rt), "--name", "billing", "--dialect", "postgres", "--dsn", "postgres://localhost/billing")
		require.NoError(t, err)
		require.Contains(t, out, "Initialized sqlchanges project")

		require.DirExists(t, filepath.Join(dir, "changes"))
		require.DirExists(t, filepath.Join(dir, "schema"))

		cfg, err := config.LoadConfigFile(filepath.Join(dir, consts.ConfigFile))
		require.NoError(t, err)
		require.Equal(t, "billing", cfg.Name)
		require.Equal(t, "postgres", cfg.Database.Dialect)
		require.Equal(t, "postgres://localhost/billing", cfg.Database.DSN)
	})

	t.Run("rejects unknown dialects", func(t *testing.T) {
		rt := newRuntime(config.Load)
		require.NoError(t, rt.resolve(t.TempDir()))

		_, err := testutil.RunCommand(t, initCmd(rt), "--dialect", "oracle")
		require.ErrorContains(t, err, "unsupported dialect")
	})
}

func TestNewCommand(t *testing.T) {
	fixture, rt := testProject(t)

	out, err := testutil.RunCommand(t, newCmd(rt), "--date", "2024-03-09", "add-invoices")
	require.NoError(t, err)
	require.Contains(t, out, "2024-03-09-add-invoices")
	require.FileExists(t, filepath.Join(fixture.Dir, "changes", "2024-03-09-add-invoices", "change", "001_add_invoices.sql"))

	_, err = testutil.RunCommand(t, newCmd(rt), "--date", "March 9th", "nope")
	require.ErrorContains(t, err, "invalid date")

	_, err = testutil.RunCommand(t, newCmd(rt))
	require.ErrorContains(t, err, "exactly one slug is required")
}

func TestRequireProject(t *testing.T) {
	rt := newRuntime(config.Load)
	require.NoError(t, rt.resolve(t.TempDir()))

	_, err := testutil.RunCommand(t, applyCmd(rt), users)
	require.ErrorContains(t, err, "sqlchanges.yaml not found")

	_, err = testutil.RunCommand(t, status(rt))
	require.ErrorContains(t, err, "sqlchanges.yaml not found")

	_, err = testutil.RunCommand(t, newCmd(rt), "add-users")
	require.ErrorContains(t, err, "sqlchanges.yaml not found")
}

func TestApplyCommand(t *testing.T) {
	t.Run("applies once", func(t *testing.T) {
		_, rt := testProject(t)

		out, err := testutil.RunCommand(t, applyCmd(rt), users)
		require.NoError(t, err)
		require.Contains(t, out, "change/001_create.sql")
		require.Contains(t, out, "✓ "+users+" applied")

		out, err = testutil.RunCommand(t, applyCmd(rt), users)
		require.NoError(t, err)
		require.Contains(t, out, users+" (already applied)")
	})

	t.Run("failures exit non-zero", func(t *testing.T) {
		fixture, rt := testProject(t)
		fixture.WithChanges(map[string]string{
			"2024-04-01-broken/change/001.sql": "CREATE TABLE (",
			"2024-04-01-broken/change/002.sql": "SELECT 1",
		})

		out, err := testutil.RunCommand(t, applyCmd(rt), "2024-04-01-broken")
		require.ErrorIs(t, err, errFailed)
		require.Contains(t, out, "2024-04-01-broken failed")
		require.Contains(t, out, "change/002.sql (skipped)")
	})

	t.Run("unknown change", func(t *testing.T) {
		_, rt := testProject(t)

		_, err := testutil.RunCommand(t, applyCmd(rt), "2099-01-01-nope")
		require.ErrorContains(t, err, "change not found")

		_, err = testutil.RunCommand(t, applyCmd(rt))
		require.ErrorContains(t, err, "exactly one change name is required")
	})

	t.Run("preview", func(t *testing.T) {
		fixture, rt := testProject(t)

		out, err := testutil.RunCommand(t, applyCmd(rt), "--preview", users)
		require.NoError(t, err)
		require.Contains(t, out, "-- ==> "+users+"/change/001_create.sql\nCREATE TABLE users (id INT)\n")
		require.NoFileExists(t, fixture.DSN(), "previews never connect")

		out, err = testutil.RunCommand(t, status(rt))
		require.NoError(t, err)
		require.Contains(t, out, "(new)")
	})

	t.Run("dry run", func(t *testing.T) {
		fixture, rt := testProject(t)

		out, err := testutil.RunCommand(t, applyCmd(rt), "--dry-run", users)
		require.NoError(t, err)
		require.Contains(t, out, "rendered 1 file(s)")
		require.FileExists(t, filepath.Join(fixture.Dir, "tmp", "changes", users, "change", "001_create.sql"))
		require.NoFileExists(t, fixture.DSN(), "dry runs never connect")
	})

	t.Run("docker requires clickhouse", func(t *testing.T) {
		_, rt := testProject(t)

		_, err := testutil.RunCommand(t, applyCmd(rt), "--docker", users)
		require.ErrorContains(t, err, "--docker requires the clickhouse dialect")
	})
}

func TestRevertCommand(t *testing.T) {
	_, rt := testProject(t)

	_, err := testutil.RunCommand(t, revert(rt), users)
	require.ErrorContains(t, err, "cannot revert "+users+": not applied")

	_, err = testutil.RunCommand(t, applyCmd(rt), users)
	require.NoError(t, err)

	out, err := testutil.RunCommand(t, revert(rt), users)
	require.NoError(t, err)
	require.Contains(t, out, users+" reverted")

	_, err = testutil.RunCommand(t, revert(rt), users)
	require.ErrorContains(t, err, "already reverted")
}

func TestFastForwardCommand(t *testing.T) {
	_, rt := testProject(t)

	out, err := testutil.RunCommand(t, fastForward(rt))
	require.NoError(t, err)
	require.Contains(t, out, users+" applied")
	require.Contains(t, out, orders+" applied")

	out, err = testutil.RunCommand(t, fastForward(rt))
	require.NoError(t, err)
	require.Contains(t, out, "Everything is up to date")
}

func TestStatusCommand(t *testing.T) {
	fixture, rt := testProject(t)
	fixture.WithChanges(map[string]string{
		"2024-01-01-gone/change/001.sql": "CREATE TABLE gone (id INT)",
	})

	_, err := testutil.RunCommand(t, applyCmd(rt), users)
	require.NoError(t, err)
	_, err = testutil.RunCommand(t, applyCmd(rt), "2024-01-01-gone")
	require.NoError(t, err)
	require.NoError(t, os.RemoveAll(filepath.Join(fixture.Dir, "changes", "2024-01-01-gone")))

	out, err := testutil.RunCommand(t, status(rt))
	require.NoError(t, err)
	require.Contains(t, out, "Config: default")
	require.Regexp(t, `✓ 2024-01-15-users\s+success`, out)
	require.Regexp(t, `… 2024-02-01-orders\s+pending\s+\(new\)`, out)
	require.Contains(t, out, "In history but not on disk:")
	require.Contains(t, out, "2024-01-01-gone")
	require.Contains(t, out, "1 change(s) to apply")
}

func TestHistoryCommand(t *testing.T) {
	fixture, rt := testProject(t)
	fixture.WithSchemaFiles(map[string]string{
		"views.sql": "CREATE VIEW user_ids AS SELECT id FROM users",
	})

	out, err := testutil.RunCommand(t, historyCmd(rt))
	require.NoError(t, err)
	require.Contains(t, out, "No history found.")

	_, err = testutil.RunCommand(t, applyCmd(rt), users)
	require.NoError(t, err)
	_, err = testutil.RunCommand(t, runCmd(rt), "--build", "views", "schema/views.sql")
	require.NoError(t, err)

	out, err = testutil.RunCommand(t, historyCmd(rt), "--files", users)
	require.NoError(t, err)
	require.Contains(t, out, users)
	require.Contains(t, out, "change/001_create.sql")
	require.NotContains(t, out, "build views")

	out, err = testutil.RunCommand(t, historyCmd(rt), "--all")
	require.NoError(t, err)
	require.Contains(t, out, "build views")
	require.Contains(t, out, users)
}

func TestRunCommand(t *testing.T) {
	_, rt := testProject(t)

	_, err := testutil.RunCommand(t, runCmd(rt), "only-a-name")
	require.ErrorContains(t, err, "a name and at least one file are required")

	_, err = testutil.RunCommand(t, runCmd(rt), "notes", "README.md")
	require.ErrorContains(t, err, "unsupported file type")
}

func TestSumCommand(t *testing.T) {
	_, rt := testProject(t)

	out, err := testutil.RunCommand(t, sum(rt), users)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	require.True(t, strings.HasPrefix(lines[0], "h1:"))
	require.True(t, strings.HasPrefix(lines[1], "001_create.sql h1:"))

	out, err = testutil.RunCommand(t, sum(rt), "--revert", users)
	require.NoError(t, err)
	require.Contains(t, out, "001_drop.sql h1:")

	_, err = testutil.RunCommand(t, sum(rt), "--revert", orders)
	require.ErrorContains(t, err, "has no revert files")
}

func TestLockCommand(t *testing.T) {
	fixture, rt := testProject(t)

	out, err := testutil.RunCommand(t, lockCmd(rt), "status")
	require.NoError(t, err)
	require.Contains(t, out, "default is not locked")

	db, err := database.Open(context.Background(), "sqlite", fixture.DSN(), database.Options{})
	require.NoError(t, err)
	defer db.Close()

	_, err = lock.NewManager(db, lock.Config{}).Acquire(context.Background(), "default", "deploy-bot", lock.Options{Reason: "deploying"})
	require.NoError(t, err)

	out, err = testutil.RunCommand(t, lockCmd(rt), "status")
	require.NoError(t, err)
	require.Contains(t, out, "default is locked by deploy-bot")
	require.Contains(t, out, "reason: deploying")

	_, err = testutil.RunCommand(t, applyCmd(rt), users)
	var blocked *lock.AcquireError
	require.ErrorAs(t, err, &blocked)

	_, err = testutil.RunCommand(t, lockCmd(rt), "release")
	var notOwner *lock.OwnershipError
	require.ErrorAs(t, err, &notOwner)

	out, err = testutil.RunCommand(t, lockCmd(rt), "force-release")
	require.NoError(t, err)
	require.Contains(t, out, "Force released default")

	out, err = testutil.RunCommand(t, lockCmd(rt), "force-release")
	require.NoError(t, err)
	require.Contains(t, out, "default was not locked")
}

func TestPurgeCommand(t *testing.T) {
	_, rt := testProject(t)

	_, err := testutil.RunCommand(t, purge(rt))
	require.ErrorContains(t, err, "a change name or --all is required")

	_, err = testutil.RunCommand(t, fastForward(rt))
	require.NoError(t, err)

	out, err := testutil.RunCommand(t, purge(rt), users)
	require.NoError(t, err)
	require.Contains(t, out, "Purged 1 operation(s)")

	out, err = testutil.RunCommand(t, purge(rt), "--all")
	require.NoError(t, err)
	require.Contains(t, out, "Purged 1 operation(s)")

	out, err = testutil.RunCommand(t, status(rt))
	require.NoError(t, err)
	require.Contains(t, out, "2 change(s) to apply")
}
