package testutil

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/pseudomuto/sqlchanges/pkg/database"
	"github.com/pseudomuto/sqlchanges/pkg/docker"
	"github.com/stretchr/testify/require"
)

// SkipIfNoDocker skips the test in -short mode or when Docker isn't available.
func SkipIfNoDocker(t *testing.T) {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping Docker tests in short mode")
	}

	if _, err := exec.LookPath("docker"); err != nil {
		t.Skip("Docker not available")
	}

	cmd := exec.CommandContext(t.Context(), "docker", "ps")
	if err := cmd.Run(); err != nil {
		t.Skip("Docker daemon not running")
	}
}

// ClickHouse starts a ClickHouse container and returns a bootstrapped
// database connected to it. The container is removed on cleanup.
func ClickHouse(t *testing.T) *database.DB {
	t.Helper()

	SkipIfNoDocker(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	ch := docker.New(docker.Options{})
	require.NoError(t, ch.Start(ctx), "Failed to start ClickHouse container")
	t.Cleanup(func() { _ = ch.Stop(context.Background()) })

	dsn, err := ch.DSN(ctx)
	require.NoError(t, err)

	db, err := database.Open(ctx, "clickhouse", dsn, database.Options{})
	require.NoError(t, err, "Failed to connect to ClickHouse")
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, db.Bootstrap(ctx), "Failed to bootstrap tracking tables")
	return db
}
