// Package events carries record notifications over NATS.
package events

import (
	"context"
	"sync"

	"github.com/aleics/gql-dyn/internal/ir"
)

// Event topic constants
const (
	// TopicRecordsAppended is published after every successful append.
	TopicRecordsAppended = "gqldyn.records.appended"

	// TopicRecordsIngest carries batches to validate and append.
	TopicRecordsIngest = "gqldyn.records.ingest"
)

// RecordsAppended reports a batch that reached the store.
type RecordsAppended struct {
	Records     []ir.Record `json:"records"`
	Fingerprint string      `json:"fingerprint,omitempty"`
}

// IngestBatch is the payload expected on TopicRecordsIngest.
type IngestBatch struct {
	Records []ir.Record `json:"records"`
}

// Publisher is the interface for emitting events.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}

// Subscriber receives events from the event bus.
type Subscriber interface {
	// Subscribe delivers raw event payloads on the returned channel.
	// Call the returned cancel function to unsubscribe and close the channel.
	Subscribe(topic string) (<-chan []byte, func(), error)
	Close() error
}

// NoopPublisher is a Publisher that does nothing (used when NATS is not configured).
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, string, any) error { return nil }

func (NoopPublisher) Close() error { return nil }

// Published is one event captured by a Recorder.
type Published struct {
	Topic string
	Event any
}

// Recorder is an in-process Publisher that keeps every event.
type Recorder struct {
	mu     sync.Mutex
	events []Published
}

func (r *Recorder) Publish(_ context.Context, topic string, event any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Published{Topic: topic, Event: event})
	return nil
}

func (r *Recorder) Close() error { return nil }

// Events returns a copy of the captured events.
func (r *Recorder) Events() []Published {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Published, len(r.events))
	copy(out, r.events)
	return out
}
