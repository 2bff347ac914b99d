package store

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Counters implements credits.CounterStore on the counters table. The
// UPSERT makes increments atomic under SQLite's single-writer model.
type Counters struct {
	DB *sql.DB
}

func (c *Counters) Increment(ctx context.Context, key string, amount int64) error {
	_, err := c.DB.ExecContext(ctx, `
INSERT INTO counters(key, value, updated_at)
VALUES(?,?,?)
ON CONFLICT(key) DO UPDATE SET
  value = value + excluded.value,
  updated_at = excluded.updated_at;`,
		key, amount, time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

func (c *Counters) Get(ctx context.Context, key string) (int64, bool, error) {
	var v int64
	err := c.DB.QueryRowContext(ctx, `SELECT value FROM counters WHERE key = ?;`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return v, true, nil
}
