package docker

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/mount"
	"github.com/pkg/errors"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/clickhouse"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	// DefaultVersion is the ClickHouse image tag used when Options.Version is empty
	DefaultVersion = "25.7"

	// DefaultDatabase is the database created for changes and tracking tables
	DefaultDatabase = "sqlchanges"

	startupTimeout = 5 * time.Minute
)

type (
	// Options configure the ClickHouse container.
	Options struct {
		// Version is the clickhouse-server image tag (default: DefaultVersion)
		Version string

		// Database is created on startup and used in the DSN (default: DefaultDatabase)
		Database string

		// ConfigDir is mounted as /etc/clickhouse-server/config.d when set.
		// Relative paths are resolved against the working directory.
		ConfigDir string
	}

	// Container runs a throwaway ClickHouse server, typically for trying
	// changes out or for integration tests.
	Container struct {
		options   Options
		container *clickhouse.ClickHouseContainer
	}
)

// New creates a Container with the given options. Nothing is started until
// Start is called.
//
// Example:
//
//	ch := docker.New(docker.Options{Version: "25.7"})
//	if err := ch.Start(ctx); err != nil {
//		log.Fatal(err)
//	}
//	defer ch.Stop(ctx)
//
//	dsn, _ := ch.DSN(ctx)
//	db, err := database.Open(ctx, "clickhouse", dsn, database.Options{})
func New(opts Options) *Container {
	if opts.Version == "" {
		opts.Version = DefaultVersion
	}
	if opts.Database == "" {
		opts.Database = DefaultDatabase
	}

	return &Container{options: opts}
}

// Start starts the ClickHouse container and waits until its HTTP interface
// responds.
func (c *Container) Start(ctx context.Context) error {
	if c.container != nil {
		return errors.New("container is already running")
	}

	customizers := []testcontainers.ContainerCustomizer{
		clickhouse.WithUsername("default"),
		clickhouse.WithPassword(""),
		clickhouse.WithDatabase(c.options.Database),
		testcontainers.WithEnv(map[string]string{"CLICKHOUSE_DEFAULT_ACCESS_MANAGEMENT": "1"}),
		testcontainers.WithWaitStrategyAndDeadline(
			startupTimeout,
			wait.
				NewHTTPStrategy("/").
				WithPort("8123/tcp").
				WithStatusCodeMatcher(func(status int) bool {
					return status == 200
				}),
		),
	}

	if c.options.ConfigDir != "" {
		configDir, err := filepath.Abs(c.options.ConfigDir)
		if err != nil {
			return errors.Wrapf(err, "failed to get absolute path for ConfigDir: %s", c.options.ConfigDir)
		}

		customizers = append(
			customizers,
			testcontainers.WithHostConfigModifier(func(hostConfig *container.HostConfig) {
				hostConfig.Mounts = []mount.Mount{
					{
						Type:     mount.TypeBind,
						Source:   configDir,
						Target:   "/etc/clickhouse-server/config.d",
						ReadOnly: true,
					},
				}
			}),
		)
	}

	ch, err := clickhouse.Run(ctx,
		fmt.Sprintf("clickhouse/clickhouse-server:%s-alpine", c.options.Version),
		customizers...,
	)
	if err != nil {
		return errors.Wrap(err, "failed to start ClickHouse container")
	}

	c.container = ch
	return nil
}

// Stop stops and removes the container. Stopping a container that isn't
// running is a no-op.
func (c *Container) Stop(ctx context.Context) error {
	if c.container == nil {
		return nil
	}

	err := c.container.Terminate(ctx)
	c.container = nil

	if err != nil {
		return errors.Wrap(err, "failed to stop ClickHouse container")
	}

	return nil
}

// DSN returns a clickhouse:// connection string for the running container,
// suitable for the clickhouse dialect.
func (c *Container) DSN(ctx context.Context) (string, error) {
	if c.container == nil {
		return "", errors.New("container is not running")
	}

	dsn, err := c.container.ConnectionString(ctx)
	if err != nil {
		return "", errors.Wrap(err, "failed to get connection string")
	}

	return dsn, nil
}

// IsRunning returns true if the container is currently running.
func (c *Container) IsRunning() bool {
	return c.container != nil
}
