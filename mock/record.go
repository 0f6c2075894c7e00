package mock

import (
	"context"

	"github.com/fwojciec/sitecrawl"
)

var _ sitecrawl.Sink = (*Sink)(nil)

// Sink is a mock implementation of sitecrawl.Sink.
type Sink struct {
	AppendFn func(ctx context.Context, record *sitecrawl.Record) error
}

func (s *Sink) Append(ctx context.Context, record *sitecrawl.Record) error {
	return s.AppendFn(ctx, record)
}

var _ sitecrawl.RecordService = (*RecordService)(nil)

// RecordService is a mock implementation of sitecrawl.RecordService.
type RecordService struct {
	AppendFn      func(ctx context.Context, record *sitecrawl.Record) error
	FindRecordsFn func(ctx context.Context, filter sitecrawl.RecordFilter) ([]*sitecrawl.Record, error)
}

func (s *RecordService) Append(ctx context.Context, record *sitecrawl.Record) error {
	return s.AppendFn(ctx, record)
}

func (s *RecordService) FindRecords(ctx context.Context, filter sitecrawl.RecordFilter) ([]*sitecrawl.Record, error) {
	return s.FindRecordsFn(ctx, filter)
}
