package store

import (
	"context"
	"database/sql"
	"time"

	"pricehunt-engine/internal/domain"
)

// MetricsSink persists batched samples into the scrape_metrics table.
// Implements metrics.Sink.
type MetricsSink struct {
	DB *sql.DB
}

func (s *MetricsSink) WriteSamples(ctx context.Context, samples []domain.MetricsSample) error {
	if len(samples) == 0 {
		return nil
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO scrape_metrics(marketplace, success, duration_ms, error, recorded_at)
VALUES(?,?,?,?,?);`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, sm := range samples {
		ok := 0
		if sm.Success {
			ok = 1
		}
		at := sm.At
		if at.IsZero() {
			at = time.Now().UTC()
		}
		if _, err := stmt.ExecContext(ctx,
			sm.Marketplace.String(),
			ok,
			sm.Duration.Milliseconds(),
			sm.Error,
			at.UTC().Format(time.RFC3339),
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// MarketStats is an aggregate row for one marketplace.
type MarketStats struct {
	Marketplace string  `json:"marketplace"`
	Requests    int64   `json:"requests"`
	Failures    int64   `json:"failures"`
	AvgMillis   float64 `json:"avg_ms"`
}

// StatsSince aggregates recorded samples newer than the cutoff.
func (s *MetricsSink) StatsSince(ctx context.Context, cutoff time.Time) ([]MarketStats, error) {
	rows, err := s.DB.QueryContext(ctx, `
SELECT marketplace,
       COUNT(*),
       SUM(CASE WHEN success = 0 THEN 1 ELSE 0 END),
       AVG(duration_ms)
FROM scrape_metrics
WHERE recorded_at >= ?
GROUP BY marketplace
ORDER BY marketplace;`,
		cutoff.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []MarketStats
	for rows.Next() {
		var st MarketStats
		var avg sql.NullFloat64
		if err := rows.Scan(&st.Marketplace, &st.Requests, &st.Failures, &avg); err != nil {
			return nil, err
		}
		st.AvgMillis = avg.Float64
		out = append(out, st)
	}
	return out, rows.Err()
}
