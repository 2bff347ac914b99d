package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"pricehunt-engine/internal/domain"
)

// PGSink is an optional Postgres metrics sink for deployments that already
// run a warehouse; the SQLite sink stays the default. Implements
// metrics.Sink.
type PGSink struct {
	pool   *pgxpool.Pool
	schema string
}

func NewPGSink(ctx context.Context, dsn, schema string) (*PGSink, error) {
	if schema == "" {
		schema = "public"
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pg connect: %w", err)
	}

	s := &PGSink{pool: pool, schema: schema}
	if err := s.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *PGSink) ensureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s.scrape_metrics (
  id BIGSERIAL PRIMARY KEY,
  marketplace TEXT NOT NULL,
  success BOOLEAN NOT NULL,
  duration_ms BIGINT NOT NULL DEFAULT 0,
  error TEXT NOT NULL DEFAULT '',
  recorded_at TIMESTAMPTZ NOT NULL
);`, s.schema))
	if err != nil {
		return fmt.Errorf("pg ensure schema: %w", err)
	}
	return nil
}

func (s *PGSink) WriteSamples(ctx context.Context, samples []domain.MetricsSample) error {
	if len(samples) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	sql := fmt.Sprintf(`
INSERT INTO %s.scrape_metrics(marketplace, success, duration_ms, error, recorded_at)
VALUES($1,$2,$3,$4,$5);`, s.schema)

	for _, sm := range samples {
		at := sm.At
		if at.IsZero() {
			at = time.Now().UTC()
		}
		batch.Queue(sql, sm.Marketplace.String(), sm.Success, sm.Duration.Milliseconds(), sm.Error, at.UTC())
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()
	for range samples {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("pg write samples: %w", err)
		}
	}
	return nil
}

func (s *PGSink) Close() {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
}
