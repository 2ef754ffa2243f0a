// Package pricelog keeps an append-only price history table used to backfill
// indicator windows and audit valuations.
package pricelog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

// Tick is one recorded observation.
type Tick struct {
	Symbol   string
	Price    float64
	AtMillis int64
}

type Store struct {
	db *sql.DB
}

func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("pricelog: path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if err := ensureSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func ensureSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS price_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			symbol TEXT NOT NULL,
			price REAL NOT NULL,
			observed_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_price_history_symbol_time
			ON price_history (symbol, observed_at DESC);
	`)
	return err
}

func (s *Store) Close() error { return s.db.Close() }

// RecordPrice appends one observation. Satisfies market.PriceRecorder.
func (s *Store) RecordPrice(sym string, price float64, atMillis int64) error {
	_, err := s.db.Exec(
		`INSERT INTO price_history (symbol, price, observed_at) VALUES (?, ?, ?)`,
		strings.ToUpper(strings.TrimSpace(sym)), price, atMillis,
	)
	return err
}

// History returns up to limit observations for a symbol, oldest first.
func (s *Store) History(ctx context.Context, sym string, limit int) ([]Tick, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT symbol, price, observed_at
		FROM price_history
		WHERE symbol = ?
		ORDER BY observed_at DESC
		LIMIT ?`,
		strings.ToUpper(strings.TrimSpace(sym)), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ticks []Tick
	for rows.Next() {
		var t Tick
		if err := rows.Scan(&t.Symbol, &t.Price, &t.AtMillis); err != nil {
			return nil, err
		}
		ticks = append(ticks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// Reverse into chronological order.
	for i, j := 0, len(ticks)-1; i < j; i, j = i+1, j-1 {
		ticks[i], ticks[j] = ticks[j], ticks[i]
	}
	return ticks, nil
}

// Prune deletes observations older than cutoffMillis and reports how many
// rows were removed.
func (s *Store) Prune(ctx context.Context, cutoffMillis int64) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM price_history WHERE observed_at < ?`, cutoffMillis)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
