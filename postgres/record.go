// Package postgres provides a Postgres-backed record sink.
package postgres

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/fwojciec/sitecrawl"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DefaultTable is the table records are written to when none is configured.
const DefaultTable = "crawl_records"

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Config controls the Postgres connection pool used for records.
type Config struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

// Pool is the subset of *pgxpool.Pool the store uses.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Close()
}

// Compile-time interface verification.
var _ sitecrawl.Sink = (*RecordStore)(nil)

// RecordStore appends records to a Postgres table.
type RecordStore struct {
	pool  Pool
	table string

	// Now returns the time stamped on records without one. Defaults to time.Now.
	Now func() time.Time
}

// NewRecordStore connects to Postgres using cfg.
func NewRecordStore(ctx context.Context, cfg Config) (*RecordStore, error) {
	if cfg.DSN == "" {
		return nil, sitecrawl.Errorf(sitecrawl.EINVALID, "postgres DSN required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, sitecrawl.WrapError(sitecrawl.EINVALID, err, "parse postgres DSN")
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	store, err := NewRecordStoreWithPool(pool, cfg.Table)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return store, nil
}

// NewRecordStoreWithPool constructs a store from an existing pool.
func NewRecordStoreWithPool(pool Pool, table string) (*RecordStore, error) {
	if pool == nil {
		return nil, sitecrawl.Errorf(sitecrawl.EINVALID, "pool required")
	}
	if table == "" {
		table = DefaultTable
	}
	if !validTableName.MatchString(table) {
		return nil, sitecrawl.Errorf(sitecrawl.EINVALID, "invalid table name %q", table)
	}
	return &RecordStore{pool: pool, table: table, Now: time.Now}, nil
}

// EnsureSchema creates the records table if it does not exist.
func (s *RecordStore) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	id TEXT PRIMARY KEY,
	url TEXT NOT NULL,
	title TEXT NOT NULL DEFAULT '',
	content_hash TEXT NOT NULL DEFAULT '',
	crawled_at TIMESTAMPTZ NOT NULL
)`, s.table)
	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("create table %s: %w", s.table, err)
	}
	return nil
}

// Append inserts record, assigning an ID and crawl time when unset.
func (s *RecordStore) Append(ctx context.Context, record *sitecrawl.Record) error {
	if err := record.Validate(); err != nil {
		return err
	}
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	if record.CrawledAt.IsZero() {
		record.CrawledAt = s.Now()
	}
	record.CrawledAt = record.CrawledAt.UTC()

	query := fmt.Sprintf(`
INSERT INTO %s (id, url, title, content_hash, crawled_at)
VALUES ($1, $2, $3, $4, $5)`, s.table)

	if _, err := s.pool.Exec(ctx, query, record.ID, record.URL, record.Title, record.ContentHash, record.CrawledAt); err != nil {
		return fmt.Errorf("insert record: %w", err)
	}
	return nil
}

// Close releases the underlying pool resources.
func (s *RecordStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}
