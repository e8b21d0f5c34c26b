// Package aggregator persists periodic snapshots of the aggregated search
// analytics to PostgreSQL. The searcher and the analytics service may share
// a database; each writes under its own source name.
package aggregator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/postgres"
)

const schema = `
CREATE TABLE IF NOT EXISTS analytics_snapshots (
	id             BIGSERIAL PRIMARY KEY,
	source         TEXT NOT NULL,
	total_searches BIGINT NOT NULL,
	total_reloads  BIGINT NOT NULL,
	data           JSONB NOT NULL,
	captured_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS analytics_snapshots_source_time
	ON analytics_snapshots (source, captured_at DESC);`

// StatsSource produces the stats to snapshot. *analytics.Aggregator
// satisfies it.
type StatsSource interface {
	Stats() analytics.AggregatedStats
}

type Store struct {
	db     *postgres.Client
	source string
	logger *slog.Logger
}

// NewStore writes and reads snapshots tagged with source, e.g. "searcher".
func NewStore(db *postgres.Client, source string) *Store {
	return &Store{
		db:     db,
		source: source,
		logger: slog.Default().With("component", "analytics-store", "source", source),
	}
}

func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.DB.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating analytics_snapshots table: %w", err)
	}
	return nil
}

func (s *Store) SaveSnapshot(ctx context.Context, stats analytics.AggregatedStats) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	_, err = s.db.DB.ExecContext(ctx,
		`INSERT INTO analytics_snapshots (source, total_searches, total_reloads, data, captured_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		s.source, stats.TotalSearches, stats.TotalReloads, data, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("saving analytics snapshot: %w", err)
	}
	s.logger.Debug("analytics snapshot saved",
		"total_searches", stats.TotalSearches,
		"total_reloads", stats.TotalReloads,
	)
	return nil
}

// ListSnapshots returns this source's last limit snapshots, newest first.
func (s *Store) ListSnapshots(ctx context.Context, limit int) ([]analytics.Snapshot, error) {
	rows, err := s.db.DB.QueryContext(ctx,
		`SELECT captured_at, data FROM analytics_snapshots
		 WHERE source = $1 ORDER BY captured_at DESC LIMIT $2`,
		s.source, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}
	defer rows.Close()

	snapshots := []analytics.Snapshot{}
	for rows.Next() {
		var (
			snap analytics.Snapshot
			data []byte
		)
		if err := rows.Scan(&snap.CapturedAt, &data); err != nil {
			return nil, fmt.Errorf("scanning snapshot row: %w", err)
		}
		if err := json.Unmarshal(data, &snap.Stats); err != nil {
			s.logger.Warn("skipping corrupt snapshot", "captured_at", snap.CapturedAt, "error", err)
			continue
		}
		snapshots = append(snapshots, snap)
	}
	return snapshots, rows.Err()
}

// StartPeriodicSave snapshots src every interval, skipping intervals with
// no new searches or reloads, and once more when ctx ends.
func (s *Store) StartPeriodicSave(ctx context.Context, src StatsSource, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	s.logger.Info("periodic snapshot started", "interval", interval)
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		var last [2]int64
		save := func(ctx context.Context) {
			stats := src.Stats()
			cur := [2]int64{stats.TotalSearches, stats.TotalReloads}
			if cur == last {
				return
			}
			if err := s.SaveSnapshot(ctx, stats); err != nil {
				s.logger.Error("snapshot failed", "error", err)
				return
			}
			last = cur
		}
		for {
			select {
			case <-ticker.C:
				save(ctx)
			case <-ctx.Done():
				final, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
				save(final)
				cancel()
				return
			}
		}
	}()
}
