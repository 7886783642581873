package executor

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/pseudomuto/sqlchanges/pkg/change"
	"github.com/pseudomuto/sqlchanges/pkg/consts"
	"github.com/pseudomuto/sqlchanges/pkg/database"
	"github.com/pseudomuto/sqlchanges/pkg/event"
	"github.com/pseudomuto/sqlchanges/pkg/history"
	"github.com/pseudomuto/sqlchanges/pkg/lock"
	"github.com/pseudomuto/sqlchanges/pkg/render"
)

type (
	// Executor applies and reverts changes.
	//
	// Every mutating execution happens while holding the config's lock, and is
	// recorded in history before the first file runs. Dry runs and previews
	// never touch the lock or history.
	//
	// Example usage:
	//
	//	exec := executor.New(executor.Config{
	//		DB:       db,
	//		History:  history.NewStore(db, history.Config{ConfigName: "default"}),
	//		Locks:    lock.NewManager(db, lock.Config{}),
	//		Identity: identity.Detect(identity.Identity{}).Format(),
	//	})
	//
	//	result, err := exec.ExecuteChange(ctx, c, executor.Options{})
	//	if err != nil {
	//		log.Fatal(err) // invalid change or lock unavailable
	//	}
	//
	//	if !result.Succeeded() {
	//		fmt.Println(result.Error) // names the first failing file
	//	}
	Executor struct {
		db         *database.DB
		history    *history.Store
		locks      *lock.Manager
		renderer   render.Renderer
		observer   event.Observer
		logger     *slog.Logger
		identity   string
		configName string
		schemaDir  string
		tmpDir     string
		projectDir string
		lockOpts   lock.Options
	}

	// Config contains the collaborators of an Executor.
	Config struct {
		// DB is where change SQL is executed
		DB *database.DB

		// History records operations; its config name is also the lock scope
		History *history.Store

		// Locks serializes executions across processes
		Locks *lock.Manager

		// Renderer turns files into SQL; defaults to a render.Template
		Renderer render.Renderer

		Observer event.Observer
		Logger   *slog.Logger

		// Identity is recorded as executed_by and locked_by
		Identity string

		// SchemaDir is the root manifest entries resolve against
		SchemaDir string

		// ProjectDir anchors the mirrored paths written by dry runs
		ProjectDir string

		// TmpDir receives dry run output; relative paths are joined to ProjectDir
		TmpDir string

		// Lock controls how the lock is acquired; Reason is always the change name
		Lock lock.Options
	}

	// Options control a single execution.
	Options struct {
		// Force runs a change regardless of history
		Force bool

		// DryRun renders files to the tmp directory without executing them
		DryRun bool

		// Preview renders files to Output without executing them
		Preview bool

		// Output receives the preview; may be nil
		Output io.Writer
	}

	// gate decides whether a planned execution should go ahead.
	gate func(ctx context.Context, plan *change.Plan) (run bool, reason string, err error)

	job struct {
		name   string
		kind   history.Kind
		dir    change.Direction
		files  []change.File
		prefix string
		path   string
		gate   gate
	}
)

// New creates an Executor from cfg.
func New(cfg Config) *Executor {
	e := &Executor{
		db:         cfg.DB,
		history:    cfg.History,
		locks:      cfg.Locks,
		renderer:   cfg.Renderer,
		observer:   event.OrNop(cfg.Observer),
		logger:     cfg.Logger,
		identity:   cfg.Identity,
		schemaDir:  cfg.SchemaDir,
		tmpDir:     cfg.TmpDir,
		projectDir: cfg.ProjectDir,
		lockOpts:   cfg.Lock,
	}

	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.identity == "" {
		e.identity = "unknown"
	}
	if e.history != nil {
		e.configName = e.history.ConfigName()
	}
	if e.projectDir == "" {
		e.projectDir, _ = os.Getwd()
	}
	if e.tmpDir == "" {
		e.tmpDir = consts.DefaultTmpDir
	}
	if !filepath.IsAbs(e.tmpDir) {
		e.tmpDir = filepath.Join(e.projectDir, e.tmpDir)
	}
	if e.renderer == nil {
		opts := render.Options{SchemaDir: cfg.SchemaDir, ConfigName: e.configName}
		if cfg.DB != nil {
			opts.Dialect = cfg.DB.Dialect().Name()
		}
		e.renderer = render.New(opts)
	}

	return e
}

// ExecuteChange applies the forward files of c.
//
// Structural problems (duplicate filenames, no forward files, nothing but
// placeholder SQL) and lock failures are returned as errors alongside a
// failed Result. A file that fails to render or execute is not an error: it
// is reported in the Result and in history, later files are skipped.
//
// Unless opts.Force is set, a change whose last successful application has
// the same checksum is skipped and reported as a success with no files.
func (e *Executor) ExecuteChange(ctx context.Context, c *change.Change, opts Options) (*Result, error) {
	return e.run(ctx, job{
		name:   c.Name,
		kind:   history.KindChange,
		dir:    change.Forward,
		files:  c.Forward,
		prefix: change.Forward.Folder(),
		path:   c.Path,
		gate: func(ctx context.Context, plan *change.Plan) (bool, string, error) {
			decision := e.history.NeedsRun(ctx, c.Name, plan.Checksum(), opts.Force)
			return decision.Run, decision.Reason, nil
		},
	}, c, opts)
}

// RevertChange runs the revert files of c. It is refused with a
// *RevertNotAllowedError when history shows the change was never applied, is
// in progress, or was already reverted (the latter two unless opts.Force is
// set). A successful revert marks the forward operation as reverted.
func (e *Executor) RevertChange(ctx context.Context, c *change.Change, opts Options) (*Result, error) {
	return e.run(ctx, job{
		name:   c.Name,
		kind:   history.KindChange,
		dir:    change.Reverse,
		files:  c.Revert,
		prefix: change.Reverse.Folder(),
		path:   c.Path,
		gate: func(ctx context.Context, _ *change.Plan) (bool, string, error) {
			decision, err := e.history.CanRevert(ctx, c.Name, opts.Force)
			if err != nil {
				return false, "", err
			}

			if !decision.Allowed {
				return false, decision.Reason, &RevertNotAllowedError{Name: c.Name, Reason: decision.Reason}
			}

			return true, decision.Reason, nil
		},
	}, c, opts)
}

// RunFiles executes ad-hoc SQL files under the lock and records them in
// history with the given kind. Files always run; there is no change
// detection for runs and builds.
func (e *Executor) RunFiles(ctx context.Context, kind history.Kind, name string, paths []string, opts Options) (*Result, error) {
	files := make([]change.File, 0, len(paths))
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to resolve %s", p)
		}

		typ, ok := change.TypeOf(filepath.Base(abs))
		if !ok {
			return nil, &change.ValidationError{Path: abs, Problems: []string{"unsupported file type"}}
		}

		files = append(files, change.File{Filename: filepath.Base(abs), Path: abs, Type: typ})
	}

	return e.run(ctx, job{
		name:  name,
		kind:  kind,
		dir:   change.Forward,
		files: files,
		path:  e.projectDir,
	}, nil, opts)
}

// FastForward applies every change in order, skipping the ones history says
// are already applied, and stops at the first failure.
func (e *Executor) FastForward(ctx context.Context, changes []*change.Change, opts Options) ([]*Result, error) {
	results := make([]*Result, 0, len(changes))

	for _, c := range changes {
		result, err := e.ExecuteChange(ctx, c, opts)
		if result != nil {
			results = append(results, result)
		}

		if err != nil {
			return results, err
		}

		if !result.Succeeded() {
			break
		}
	}

	return results, nil
}
