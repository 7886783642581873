package testutil

import (
	"path/filepath"
	"testing"

	"github.com/pseudomuto/sqlchanges/pkg/config"
	"github.com/pseudomuto/sqlchanges/pkg/consts"
	"github.com/pseudomuto/sqlchanges/pkg/project"
	"github.com/stretchr/testify/require"
)

// ProjectFixture is an initialized project in a temp directory, configured
// for a SQLite database that lives alongside it.
type ProjectFixture struct {
	Dir     string
	Config  *config.Config
	Project *project.Project
	t       *testing.T
}

// TestProject creates an isolated temp directory with an initialized
// sqlchanges project.
func TestProject(t *testing.T) *ProjectFixture {
	t.Helper()
	t.Setenv(consts.EnvDSN, "")

	dir := t.TempDir()
	proj := project.New(project.ProjectParams{Dir: dir})
	require.NoError(t, proj.Initialize(project.InitOptions{
		Dialect: "sqlite",
		DSN:     filepath.Join(dir, "sqlchanges.db"),
	}), "Failed to initialize test project")

	return &ProjectFixture{
		Dir:     dir,
		Config:  proj.Config(),
		Project: proj,
		t:       t,
	}
}

// WithChanges writes files beneath the changes directory, keyed by their path
// relative to it (e.g. 2024-01-15-users/change/001.sql).
func (p *ProjectFixture) WithChanges(files map[string]string) *ProjectFixture {
	p.t.Helper()

	WriteFiles(p.t, p.Project.ChangesDir(), files)
	return p
}

// WithSchemaFiles writes files beneath the schema directory.
func (p *ProjectFixture) WithSchemaFiles(files map[string]string) *ProjectFixture {
	p.t.Helper()

	WriteFiles(p.t, p.Project.SchemaDir(), files)
	return p
}

// WithoutLockWait disables waiting for a held lock so tests fail fast.
func (p *ProjectFixture) WithoutLockWait() *ProjectFixture {
	wait := false
	p.Config.Lock.Wait = &wait
	return p
}

// DSN returns the fixture's SQLite database path.
func (p *ProjectFixture) DSN() string {
	return p.Config.Database.DSN
}
