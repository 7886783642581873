// Package docker runs disposable ClickHouse servers with testcontainers.
//
// It backs the ClickHouse integration tests and the --docker flag of
// sqlchanges apply/ff, which applies changes to a fresh server so they can be
// tried out before touching a real database.
//
//	ch := docker.New(docker.Options{})
//	if err := ch.Start(ctx); err != nil {
//		log.Fatal(err)
//	}
//	defer ch.Stop(ctx)
//
//	dsn, _ := ch.DSN(ctx)
package docker
