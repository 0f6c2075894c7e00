package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/fwojciec/sitecrawl"
	"github.com/google/uuid"
)

// Compile-time interface verification.
var _ sitecrawl.RecordService = (*RecordService)(nil)

// RecordService implements sitecrawl.RecordService using SQLite.
type RecordService struct {
	db *DB

	// Now returns the time stamped on records without one. Defaults to time.Now.
	Now func() time.Time
}

// NewRecordService creates a new RecordService.
func NewRecordService(db *DB) *RecordService {
	return &RecordService{db: db, Now: time.Now}
}

// Append inserts record, assigning an ID and crawl time when unset.
func (s *RecordService) Append(ctx context.Context, record *sitecrawl.Record) error {
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

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO records (id, url, title, content_hash, crawled_at)
		VALUES (?, ?, ?, ?, ?)
	`, record.ID, record.URL, record.Title, record.ContentHash, formatTime(record.CrawledAt))

	return err
}

// FindRecordByID retrieves a record by ID.
func (s *RecordService) FindRecordByID(ctx context.Context, id string) (*sitecrawl.Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, url, title, content_hash, crawled_at
		FROM records
		WHERE id = ?
	`, id)

	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sitecrawl.Errorf(sitecrawl.ENOTFOUND, "record not found")
	}
	return record, err
}

// FindRecords retrieves records matching the filter, newest first.
func (s *RecordService) FindRecords(ctx context.Context, filter sitecrawl.RecordFilter) ([]*sitecrawl.Record, error) {
	var query strings.Builder
	var args []any

	query.WriteString("SELECT id, url, title, content_hash, crawled_at FROM records WHERE 1=1")

	if filter.URL != nil {
		query.WriteString(" AND url = ?")
		args = append(args, *filter.URL)
	}

	query.WriteString(" ORDER BY crawled_at DESC, rowid DESC")
	appendPagination(&query, &args, filter.Limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []*sitecrawl.Record{}
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	return records, rows.Err()
}

// scanner is implemented by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*sitecrawl.Record, error) {
	var record sitecrawl.Record
	var crawledAt string

	if err := row.Scan(&record.ID, &record.URL, &record.Title, &record.ContentHash, &crawledAt); err != nil {
		return nil, err
	}

	var err error
	record.CrawledAt, err = parseTime(crawledAt, "crawled_at")
	if err != nil {
		return nil, err
	}
	return &record, nil
}
