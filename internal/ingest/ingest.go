// Package ingest validates incoming records against the active catalog and
// appends them to the record store.
package ingest

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/goccy/go-json"

	"github.com/aleics/gql-dyn/internal/compiler"
	"github.com/aleics/gql-dyn/internal/events"
	"github.com/aleics/gql-dyn/internal/idgen"
	"github.com/aleics/gql-dyn/internal/ir"
	"github.com/aleics/gql-dyn/internal/store"
)

// Service is the single write path into a RecordStore. HTTP appends and
// the NATS ingest subscriber both go through Append.
type Service struct {
	provider  compiler.Provider
	store     *store.RecordStore
	ids       idgen.Generator
	publisher events.Publisher
	logger    *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithIDs overrides the id generator used for records without an id.
func WithIDs(g idgen.Generator) Option {
	return func(s *Service) { s.ids = g }
}

// WithPublisher sets where append notifications go.
func WithPublisher(p events.Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// New creates a Service appending to st, validating against provider.
func New(provider compiler.Provider, st *store.RecordStore, opts ...Option) *Service {
	s := &Service{
		provider:  provider,
		store:     st,
		ids:       idgen.Default(),
		publisher: events.NoopPublisher{},
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Append assigns ids to records that lack one, validates the batch against
// the current catalog, and appends it. The batch is all-or-nothing. It
// returns the stored records.
//
// A failed notification is logged; the append itself has already happened.
func (s *Service) Append(ctx context.Context, records []ir.Record) ([]ir.Record, error) {
	cfg, err := s.provider.Provide(ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	batch := make([]ir.Record, len(records))
	for i, rec := range records {
		rec = rec.Clone()
		if rec.ID == "" {
			if rec.ID, err = s.ids.Generate(); err != nil {
				return nil, err
			}
		}
		batch[i] = rec
	}

	if err := ir.ValidateRecords(cfg, batch); err != nil {
		return nil, err
	}
	if err := s.store.Append(batch...); err != nil {
		return nil, err
	}

	fingerprint, err := ir.Fingerprint(cfg)
	if err != nil {
		s.logger.Warn("fingerprint catalog", "error", err)
	}
	event := events.RecordsAppended{Records: batch, Fingerprint: fingerprint}
	if err := s.publisher.Publish(ctx, events.TopicRecordsAppended, event); err != nil {
		s.logger.Error("publish append", "topic", events.TopicRecordsAppended, "error", err)
	}

	s.logger.Debug("records appended", "count", len(batch), "total", s.store.Len())
	return batch, nil
}

// Consume appends every IngestBatch read from ch until ch is closed or ctx
// is done. Bad payloads and rejected batches are logged and skipped.
func (s *Service) Consume(ctx context.Context, ch <-chan []byte) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case data, ok := <-ch:
			if !ok {
				return nil
			}
			var batch events.IngestBatch
			if err := json.Unmarshal(data, &batch); err != nil {
				s.logger.Warn("ingest: bad payload", "error", err)
				continue
			}
			if _, err := s.Append(ctx, batch.Records); err != nil {
				s.logger.Warn("ingest: batch rejected", "records", len(batch.Records), "error", err)
				continue
			}
		}
	}
}

// Subscribe consumes TopicRecordsIngest from sub until ctx is done.
func (s *Service) Subscribe(ctx context.Context, sub events.Subscriber) error {
	ch, cancel, err := sub.Subscribe(events.TopicRecordsIngest)
	if err != nil {
		return err
	}
	defer cancel()
	s.logger.Info("ingest subscriber started", "topic", events.TopicRecordsIngest)
	return s.Consume(ctx, ch)
}
