package cmd

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/pkg/errors"
	"github.com/pseudomuto/sqlchanges/pkg/config"
	"github.com/pseudomuto/sqlchanges/pkg/consts"
	"github.com/pseudomuto/sqlchanges/pkg/database"
	"github.com/pseudomuto/sqlchanges/pkg/docker"
	"github.com/pseudomuto/sqlchanges/pkg/event"
	"github.com/pseudomuto/sqlchanges/pkg/executor"
	"github.com/pseudomuto/sqlchanges/pkg/history"
	"github.com/pseudomuto/sqlchanges/pkg/lock"
	"github.com/pseudomuto/sqlchanges/pkg/project"
	"github.com/pseudomuto/sqlchanges/pkg/render"
	"github.com/urfave/cli/v3"
)

type (
	// runtime carries state resolved by the root command's Before hook to the
	// subcommands: the project (when the directory holds one) and the
	// connection overrides from global flags.
	runtime struct {
		load    config.Loader
		dir     string
		dsn     string
		project *project.Project
	}

	// session is an open database with the engine components built on it.
	session struct {
		cfg      *config.Config
		db       *database.DB
		history  *history.Store
		locks    *lock.Manager
		executor *executor.Executor
		identity string
		cleanup  []func(context.Context) error
	}
)

func newRuntime(load config.Loader) *runtime {
	return &runtime{load: load}
}

// resolve loads the project in dir, if there is one.
func (rt *runtime) resolve(dir string) error {
	rt.dir = dir

	cfg, err := rt.load(dir)
	if err != nil {
		return err
	}

	if cfg != nil {
		rt.project = project.New(project.ProjectParams{Dir: dir, Config: cfg})
	}

	return nil
}

func (rt *runtime) requireProject(ctx context.Context, _ *cli.Command) (context.Context, error) {
	if rt.project == nil || rt.project.Config() == nil {
		return ctx, errors.Errorf("%s not found (run 'sqlchanges init' first)", consts.ConfigFile)
	}

	return ctx, nil
}

// open connects to the project's database, creates the tracking tables if
// needed and wires up history, locking and execution. Dry runs and previews
// only render, so they get an executor without a connection.
func (rt *runtime) open(ctx context.Context, cmd *cli.Command) (*session, error) {
	cfg := rt.project.Config()
	s := &session{cfg: cfg, identity: cfg.Operator().Format()}

	if cmd.Bool("dry-run") || cmd.Bool("preview") {
		dialect, err := database.Lookup(cfg.Database.Dialect)
		if err != nil {
			return nil, err
		}

		s.executor = rt.executor(cmd, s, dialect.Name())
		return s, nil
	}

	dsn := cfg.Database.DSN
	if rt.dsn != "" {
		dsn = rt.dsn
	}

	if cmd.Bool("docker") {
		if cfg.Database.Dialect != "clickhouse" {
			return nil, errors.Errorf("--docker requires the clickhouse dialect, not %q", cfg.Database.Dialect)
		}

		ch := docker.New(docker.Options{})
		slog.Info("Starting ClickHouse container")
		if err := ch.Start(ctx); err != nil {
			return nil, err
		}
		s.cleanup = append(s.cleanup, ch.Stop)

		var err error
		if dsn, err = ch.DSN(ctx); err != nil {
			_ = s.Close(ctx)
			return nil, err
		}
	}

	db, err := database.Open(ctx, cfg.Database.Dialect, dsn, cfg.DatabaseOptions())
	if err != nil {
		_ = s.Close(ctx)
		return nil, err
	}
	s.db = db
	s.cleanup = append([]func(context.Context) error{func(context.Context) error { return db.Close() }}, s.cleanup...)

	if err := db.Bootstrap(ctx); err != nil {
		_ = s.Close(ctx)
		return nil, err
	}

	s.history = history.NewStore(db, history.Config{ConfigName: cfg.Name})
	s.locks = lock.NewManager(db, lock.Config{Observer: rt.observer(cmd)})
	s.executor = rt.executor(cmd, s, db.Dialect().Name())

	return s, nil
}

func (rt *runtime) observer(cmd *cli.Command) event.Observer {
	return event.Multi{
		event.LogObserver{Logger: slog.Default()},
		progress(errWriter(cmd)),
	}
}

// executor builds an executor over whatever s has opened. Without a
// database it can only dry run and preview.
func (rt *runtime) executor(cmd *cli.Command, s *session, dialect string) *executor.Executor {
	cfg := executor.Config{
		Observer:   rt.observer(cmd),
		Identity:   s.identity,
		SchemaDir:  rt.project.SchemaDir(),
		ProjectDir: rt.project.Root(),
		TmpDir:     rt.project.TmpDir(),
		Lock:       s.cfg.LockOptions(),
		Renderer: render.New(render.Options{
			SchemaDir:  rt.project.SchemaDir(),
			ConfigName: s.cfg.Name,
			Dialect:    dialect,
			Vars:       s.cfg.Vars,
		}),
	}

	if s.db != nil {
		cfg.DB = s.db
		cfg.History = s.history
		cfg.Locks = s.locks
	}

	return executor.New(cfg)
}

// Close releases the database connection and stops any container started for
// the session.
func (s *session) Close(ctx context.Context) error {
	var first error
	for _, fn := range s.cleanup {
		if err := fn(ctx); err != nil && first == nil {
			first = err
		}
	}

	return first
}

// withSession opens a session for the duration of fn.
func (rt *runtime) withSession(ctx context.Context, cmd *cli.Command, fn func(*session) error) error {
	s, err := rt.open(ctx, cmd)
	if err != nil {
		return err
	}
	defer func() {
		if err := s.Close(context.WithoutCancel(ctx)); err != nil {
			slog.Warn("Failed to close session", "err", err)
		}
	}()

	return fn(s)
}

func writer(cmd *cli.Command) io.Writer {
	if cmd.Writer != nil {
		return cmd.Writer
	}

	if root := cmd.Root(); root != nil && root.Writer != nil {
		return root.Writer
	}

	return os.Stdout
}

func errWriter(cmd *cli.Command) io.Writer {
	if cmd.ErrWriter != nil {
		return cmd.ErrWriter
	}

	if root := cmd.Root(); root != nil && root.ErrWriter != nil {
		return root.ErrWriter
	}

	return os.Stderr
}
