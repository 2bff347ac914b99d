// Package store is the sqlite persistence layer: scrape metrics, credit
// counters, and the cross-process data-dir lock. An optional Postgres
// metrics sink lives in pgsink.go.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// DB wraps the sqlite pool so callers do not depend on the driver choice.
type DB struct {
	Pool *sql.DB
}

// Open opens (creating if needed) the engine database at path.
func Open(path string) (*DB, error) {
	// modernc DSN form; busy_timeout covers the flush worker and the HTTP
	// stats reads sharing one file
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", path)

	pool, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	// sqlite allows one writer; more connections just queue on the lock
	pool.SetMaxOpenConns(1)
	pool.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := pool.PingContext(ctx); err != nil {
		_ = pool.Close()
		return nil, fmt.Errorf("sqlite ping %s: %w", path, err)
	}

	return &DB{Pool: pool}, nil
}

func (d *DB) Close() error {
	if d == nil || d.Pool == nil {
		return nil
	}
	return d.Pool.Close()
}
