package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/goccy/go-json"
	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aleics/gql-dyn/internal/compiler"
	"github.com/aleics/gql-dyn/internal/events"
	"github.com/aleics/gql-dyn/internal/fixtures"
	"github.com/aleics/gql-dyn/internal/ir"
	"github.com/aleics/gql-dyn/internal/store"
	"github.com/aleics/gql-dyn/internal/testutil"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(t *testing.T) (*Service, *store.RecordStore, *events.Recorder) {
	t.Helper()
	st := store.New()
	rec := &events.Recorder{}
	svc := New(
		compiler.StaticProvider{Config: fixtures.DefaultCatalog()},
		st,
		WithIDs(testutil.NewSequentialIDs("id-")),
		WithPublisher(rec),
		WithLogger(quietLogger()),
	)
	return svc, st, rec
}

func cat(id, name string) ir.Record {
	return ir.Record{ID: id, Name: name, Kind: "Cat", Fields: map[string]ir.FieldValue{"fur": ir.StringValue("long")}}
}

func TestAppendAssignsIDsAndPublishes(t *testing.T) {
	svc, st, rec := newTestService(t)

	stored, err := svc.Append(context.Background(), []ir.Record{cat("", "Tom"), cat("mine", "Kit")})
	require.NoError(t, err)
	assert.Equal(t, "id-1", stored[0].ID)
	assert.Equal(t, "mine", stored[1].ID)
	assert.Equal(t, 2, st.Len())

	published := rec.Events()
	require.Len(t, published, 1)
	assert.Equal(t, events.TopicRecordsAppended, published[0].Topic)
	ev := published[0].Event.(events.RecordsAppended)
	assert.Len(t, ev.Records, 2)
	assert.NotEmpty(t, ev.Fingerprint)
}

func TestAppendRejectsInvalidBatch(t *testing.T) {
	svc, st, rec := newTestService(t)

	bad := ir.Record{ID: "x", Name: "Rex", Kind: "Dog", Fields: map[string]ir.FieldValue{"breed": ir.NumberValue(3)}}
	_, err := svc.Append(context.Background(), []ir.Record{cat("", "Tom"), bad})

	var ve *ir.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, ir.ValidationTypeMismatch, ve.Code)
	assert.Equal(t, 0, st.Len())
	assert.Empty(t, rec.Events())
}

func TestAppendUnknownKind(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.Append(context.Background(), []ir.Record{{Name: "Nemo", Kind: "Fish"}})
	assert.True(t, ir.IsValidationError(err))
}

func TestAppendDuplicateAgainstStore(t *testing.T) {
	svc, st, _ := newTestService(t)
	_, err := svc.Append(context.Background(), []ir.Record{cat("a", "Tom")})
	require.NoError(t, err)

	_, err = svc.Append(context.Background(), []ir.Record{cat("a", "Tom again")})
	assert.ErrorIs(t, err, store.ErrDuplicateID)
	assert.Equal(t, 1, st.Len())
}

func TestAppendDoesNotMutateInput(t *testing.T) {
	svc, _, _ := newTestService(t)
	in := []ir.Record{cat("", "Tom")}
	_, err := svc.Append(context.Background(), in)
	require.NoError(t, err)
	assert.Empty(t, in[0].ID)
}

func TestConsume(t *testing.T) {
	svc, st, _ := newTestService(t)
	ch := make(chan []byte, 3)

	good, err := json.Marshal(events.IngestBatch{Records: []ir.Record{cat("", "Tom")}})
	require.NoError(t, err)
	ch <- []byte("{not json")
	ch <- []byte(`{"records":[{"id":"z","name":"Nemo","kind":"Fish"}]}`)
	ch <- good
	close(ch)

	require.NoError(t, svc.Consume(context.Background(), ch))
	assert.Equal(t, 1, st.Len())
}

func TestConsumeStopsOnCancel(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, svc.Consume(ctx, make(chan []byte)), context.Canceled)
}

func TestSubscribeOverNATS(t *testing.T) {
	opts := &natsserver.Options{Host: "127.0.0.1", Port: -1}
	srv, err := natsserver.NewServer(opts)
	require.NoError(t, err)
	srv.Start()
	t.Cleanup(srv.Shutdown)
	require.True(t, srv.ReadyForConnections(5*time.Second))

	sub, err := events.NewNATSSubscriber(srv.ClientURL())
	require.NoError(t, err)
	defer sub.Close()
	pub, err := events.NewNATSPublisher(srv.ClientURL())
	require.NoError(t, err)
	defer pub.Close()

	svc, st, _ := newTestService(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Subscribe(ctx, sub) }()

	// Keep publishing until the subscription is live and the batch lands.
	deadline := time.After(5 * time.Second)
	for i := 0; st.Len() == 0; i++ {
		batch := events.IngestBatch{Records: []ir.Record{cat("", "Tom")}}
		batch.Records[0].ID = "nats-" + string(rune('a'+i%26))
		require.NoError(t, pub.Publish(ctx, events.TopicRecordsIngest, batch))
		require.NoError(t, pub.Flush())
		select {
		case <-deadline:
			t.Fatal("ingest batch never reached the store")
		case <-time.After(50 * time.Millisecond):
		}
	}

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	snap, err := st.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, "Tom", snap[0].Name)
}

func TestSubscribeKeepsBurstsLargerThanTheBuffer(t *testing.T) {
	opts := &natsserver.Options{Host: "127.0.0.1", Port: -1}
	srv, err := natsserver.NewServer(opts)
	require.NoError(t, err)
	srv.Start()
	t.Cleanup(srv.Shutdown)
	require.True(t, srv.ReadyForConnections(5*time.Second))

	sub, err := events.NewNATSSubscriber(srv.ClientURL())
	require.NoError(t, err)
	defer sub.Close()
	pub, err := events.NewNATSPublisher(srv.ClientURL())
	require.NoError(t, err)
	defer pub.Close()

	ch, unsubscribe, err := sub.Subscribe(events.TopicRecordsIngest)
	require.NoError(t, err)
	defer unsubscribe()

	// The whole burst is published before anything consumes it.
	const batches = 200
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	for i := 0; i < batches; i++ {
		batch := events.IngestBatch{Records: []ir.Record{cat(fmt.Sprintf("burst-%03d", i), "Tom")}}
		require.NoError(t, pub.Publish(ctx, events.TopicRecordsIngest, batch))
	}
	require.NoError(t, pub.Flush())

	svc, st, rec := newTestService(t)
	done := make(chan error, 1)
	go func() { done <- svc.Consume(ctx, ch) }()

	require.Eventually(t, func() bool { return st.Len() == batches }, 10*time.Second, 20*time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	snap, err := st.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, "burst-000", snap[0].ID)
	assert.Equal(t, fmt.Sprintf("burst-%03d", batches-1), snap[batches-1].ID)
	assert.Len(t, rec.Events(), batches)
}
