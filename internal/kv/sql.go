package kv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

var (
	_ Store   = (*SQLStore)(nil)
	_ Swapper = (*SQLStore)(nil)
)

// Dialect captures the differences between the supported SQL engines.
type Dialect struct {
	Name string

	// Schema creates the entries table if it does not exist.
	Schema string

	// numbered placeholders ($1, $2) instead of ?
	numbered bool
}

var (
	// DialectSQLite targets modernc.org/sqlite.
	DialectSQLite = Dialect{
		Name: "sqlite",
		Schema: `CREATE TABLE IF NOT EXISTS kv_entries (
	entry_key   TEXT PRIMARY KEY,
	entry_value BLOB NOT NULL,
	updated_at  INTEGER NOT NULL
)`,
	}

	// DialectPostgres targets github.com/lib/pq.
	DialectPostgres = Dialect{
		Name: "postgres",
		Schema: `CREATE TABLE IF NOT EXISTS kv_entries (
	entry_key   TEXT PRIMARY KEY,
	entry_value BYTEA NOT NULL,
	updated_at  BIGINT NOT NULL
)`,
		numbered: true,
	}
)

// Rebind rewrites ? placeholders into the dialect's form.
func (d Dialect) Rebind(query string) string {
	if !d.numbered {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

const (
	getQuery  = `SELECT entry_value FROM kv_entries WHERE entry_key = ?`
	putQuery  = `INSERT INTO kv_entries (entry_key, entry_value, updated_at) VALUES (?, ?, ?) ON CONFLICT (entry_key) DO UPDATE SET entry_value = excluded.entry_value, updated_at = excluded.updated_at`
	swapQuery = `UPDATE kv_entries SET entry_value = ?, updated_at = ? WHERE entry_key = ? AND entry_value = ?`
)

// SQLStore implements Store on a single table in a SQL database.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
	now     func() time.Time

	get, put, swap string
}

// OpenSQLite opens (or creates) a SQLite database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	dsn := filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// SQLite allows a single writer; serialize through one connection.
	db.SetMaxOpenConns(1)

	return initSQLStore(ctx, db, DialectSQLite)
}

// OpenPostgres connects to the PostgreSQL database at dsn.
func OpenPostgres(ctx context.Context, dsn string) (*SQLStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres db: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return initSQLStore(ctx, db, DialectPostgres)
}

func initSQLStore(ctx context.Context, db *sql.DB, d Dialect) (*SQLStore, error) {
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s db: %w", d.Name, err)
	}

	s, err := NewSQLStore(ctx, db, d)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLStore wraps db and creates the entries table when missing.
func NewSQLStore(ctx context.Context, db *sql.DB, d Dialect) (*SQLStore, error) {
	if _, err := db.ExecContext(ctx, d.Schema); err != nil {
		return nil, fmt.Errorf("create %s schema: %w", d.Name, err)
	}
	return &SQLStore{
		db:      db,
		dialect: d,
		now:     time.Now,
		get:     d.Rebind(getQuery),
		put:     d.Rebind(putQuery),
		swap:    d.Rebind(swapQuery),
	}, nil
}

// Get returns the value stored at key.
func (s *SQLStore) Get(ctx context.Context, key string) ([]byte, error) {
	var v []byte
	err := s.db.QueryRowContext(ctx, s.get, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return v, nil
}

// Put upserts value at key.
func (s *SQLStore) Put(ctx context.Context, key string, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	if _, err := s.db.ExecContext(ctx, s.put, key, value, s.now().UnixMilli()); err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

// CompareAndSwap updates the row only if its value still equals prev.
func (s *SQLStore) CompareAndSwap(ctx context.Context, key string, prev, next []byte) (bool, error) {
	if next == nil {
		next = []byte{}
	}
	res, err := s.db.ExecContext(ctx, s.swap, next, s.now().UnixMilli(), key, prev)
	if err != nil {
		return false, fmt.Errorf("swap %s: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("swap %s: %w", key, err)
	}
	return n == 1, nil
}

// Ping checks the database connection.
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the underlying database.
func (s *SQLStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
