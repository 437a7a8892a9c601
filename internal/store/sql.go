package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"  // PostgreSQL driver
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

const schema = `CREATE TABLE IF NOT EXISTS dotweb_snapshots (
	id TEXT PRIMARY KEY,
	source TEXT NOT NULL,
	created_at BIGINT NOT NULL
)`

// SQLStore keeps snapshots in a SQLite or PostgreSQL table.
type SQLStore struct {
	db     *sql.DB
	driver string
	now    func() time.Time
}

// OpenSQL connects to the database and creates the snapshot table if needed.
func OpenSQL(driver, dsn string) (*SQLStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("%s store: dsn is required", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("%s store: failed to open database: %w", driver, err)
	}

	if driver == "postgres" {
		db.SetMaxOpenConns(5)
		db.SetMaxIdleConns(2)
		db.SetConnMaxLifetime(5 * time.Minute)
	} else {
		// SQLite allows a single writer.
		db.SetMaxOpenConns(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := withRetry(ctx, driver+" ping", DefaultRetryConfig(), db.PingContext); err != nil {
		db.Close()
		return nil, fmt.Errorf("%s store: failed to connect: %w", driver, err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("%s store: failed to create table: %w", driver, err)
	}

	log.Printf("[Store] Using %s snapshot store", driver)
	return &SQLStore{db: db, driver: driver, now: time.Now}, nil
}

// rebind rewrites ? placeholders to $n for PostgreSQL.
func (s *SQLStore) rebind(query string) string {
	if s.driver != "postgres" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Save stores source and returns its id.
func (s *SQLStore) Save(ctx context.Context, source string) (string, error) {
	id := ID(source)
	query := s.rebind(`INSERT INTO dotweb_snapshots (id, source, created_at) VALUES (?, ?, ?) ON CONFLICT (id) DO NOTHING`)
	if _, err := s.db.ExecContext(ctx, query, id, source, s.now().UnixMilli()); err != nil {
		return "", fmt.Errorf("%s store: save failed: %w", s.driver, err)
	}
	return id, nil
}

// Load returns the snapshot with id.
func (s *SQLStore) Load(ctx context.Context, id string) (*Snapshot, error) {
	query := s.rebind(`SELECT id, source, created_at FROM dotweb_snapshots WHERE id = ?`)

	var snap Snapshot
	var created int64
	err := s.db.QueryRowContext(ctx, query, id).Scan(&snap.ID, &snap.Source, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%s store: load failed: %w", s.driver, err)
	}
	snap.CreatedAt = time.UnixMilli(created)
	return &snap, nil
}

// Recent returns up to limit snapshots, newest first.
func (s *SQLStore) Recent(ctx context.Context, limit int) ([]*Snapshot, error) {
	if limit <= 0 {
		limit = defaultRecent
	}
	query := s.rebind(`SELECT id, source, created_at FROM dotweb_snapshots ORDER BY created_at DESC, id ASC LIMIT ?`)
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("%s store: query failed: %w", s.driver, err)
	}
	defer rows.Close()

	var out []*Snapshot
	for rows.Next() {
		var snap Snapshot
		var created int64
		if err := rows.Scan(&snap.ID, &snap.Source, &created); err != nil {
			return nil, err
		}
		snap.CreatedAt = time.UnixMilli(created)
		out = append(out, &snap)
	}
	return out, rows.Err()
}

// Close releases the database connection
func (s *SQLStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
