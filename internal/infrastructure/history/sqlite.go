// Package history persists price observations in SQLite.
//
// The table is append-only: rows are inserted per run and never updated, so the
// previous best price of a group is always derivable from everything recorded.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Glx28/billigst-mat/internal/domain"
	_ "modernc.org/sqlite"
)

// DefaultHistoryLimit caps History when the caller passes no limit
const DefaultHistoryLimit = 30

const schema = `
CREATE TABLE IF NOT EXISTS observations (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    group_name   TEXT    NOT NULL,
    observed_at  INTEGER NOT NULL, -- unix nanoseconds, UTC
    position     INTEGER NOT NULL,
    store_name   TEXT    NOT NULL,
    product_name TEXT    NOT NULL,
    unit_price   REAL    NOT NULL,
    raw_price    REAL    NOT NULL,
    base_unit    TEXT    NOT NULL,
    url          TEXT    NOT NULL DEFAULT '',
    source_id    TEXT    NOT NULL DEFAULT '',
    dedup_key    TEXT    NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_observations_group
    ON observations(group_name, observed_at);
`

// Store is a HistoryStore over a SQLite database
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and applies the schema
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// one writer; also keeps ":memory:" databases on a single connection
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA busy_timeout=10000",
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// GetPreviousBest returns the lowest unit price ever recorded for the group, or nil
func (s *Store) GetPreviousBest(ctx context.Context, groupName string) (*float64, error) {
	var best sql.NullFloat64
	err := s.db.QueryRowContext(ctx,
		`SELECT MIN(unit_price) FROM observations WHERE group_name = ?`,
		groupName,
	).Scan(&best)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSinkUnavailable, err)
	}
	if !best.Valid {
		return nil, nil
	}
	return &best.Float64, nil
}

// RecordObservation appends offers in rank order, all in one transaction.
// Recording nothing is a no-op.
func (s *Store) RecordObservation(ctx context.Context, groupName string, offers []domain.DedupedOffer, ts time.Time) error {
	if len(offers) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %v", domain.ErrSinkUnavailable, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO observations
		    (group_name, observed_at, position, store_name, product_name, unit_price, raw_price, base_unit, url, source_id, dedup_key)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("%w: prepare: %v", domain.ErrSinkUnavailable, err)
	}
	defer stmt.Close()

	observedAt := ts.UTC().UnixNano()
	for i, o := range offers {
		_, err := stmt.ExecContext(ctx,
			groupName, observedAt, i+1,
			o.StoreName, o.ProductName, o.UnitPrice, o.RawPrice,
			string(o.BaseUnit), o.URL, o.SourceID, o.Key,
		)
		if err != nil {
			return fmt.Errorf("%w: insert: %v", domain.ErrSinkUnavailable, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", domain.ErrSinkUnavailable, err)
	}
	return nil
}

// History returns the best observation of each recorded run, newest first
func (s *Store) History(ctx context.Context, groupName string, limit int) ([]domain.Observation, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT group_name, observed_at, position, store_name, product_name, unit_price, raw_price, base_unit, url
		FROM observations
		WHERE group_name = ? AND position = 1
		ORDER BY observed_at DESC, id DESC
		LIMIT ?`,
		groupName, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSinkUnavailable, err)
	}
	defer rows.Close()

	observations := []domain.Observation{}
	for rows.Next() {
		var (
			o        domain.Observation
			nanos    int64
			baseUnit string
		)
		if err := rows.Scan(&o.GroupName, &nanos, &o.Rank, &o.StoreName, &o.ProductName,
			&o.UnitPrice, &o.RawPrice, &baseUnit, &o.URL); err != nil {
			return nil, fmt.Errorf("%w: scan: %v", domain.ErrSinkUnavailable, err)
		}
		o.ObservedAt = time.Unix(0, nanos).UTC()
		o.BaseUnit = domain.BaseUnit(baseUnit)
		observations = append(observations, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSinkUnavailable, err)
	}
	return observations, nil
}
