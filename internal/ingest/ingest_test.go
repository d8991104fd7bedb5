package ingest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/streamfabric/streamfabric/pkg/event"
	"github.com/streamfabric/streamfabric/pkg/stream"
)

type fakeConsumer struct {
	events  chan *event.ConsumedEvent
	errs    chan error
	topics  []string
	closeCh chan struct{}
}

func newFakeConsumer() *fakeConsumer {
	return &fakeConsumer{
		events:  make(chan *event.ConsumedEvent, 10),
		errs:    make(chan error, 10),
		closeCh: make(chan struct{}),
	}
}

func (f *fakeConsumer) Subscribe(ctx context.Context, topics []string) error {
	f.topics = topics
	return nil
}

func (f *fakeConsumer) Consume(ctx context.Context) (<-chan *event.ConsumedEvent, <-chan error, error) {
	return f.events, f.errs, nil
}

func (f *fakeConsumer) Commit(ctx context.Context, partition event.PartitionID, offset int64) error {
	return nil
}

func (f *fakeConsumer) Close() error {
	close(f.closeCh)
	return nil
}

type fakeDLQ struct {
	mu        sync.Mutex
	published []string
}

func (f *fakeDLQ) Publish(ctx context.Context, evt *event.CloudEvent, meta event.KafkaMetadata, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, reason)
	return nil
}

func (f *fakeDLQ) Close() error { return nil }

type fakeEnqueuer struct {
	mu      sync.Mutex
	calls   []stream.Descriptor
	failing bool
}

func (f *fakeEnqueuer) AddRecord(ctx context.Context, desc stream.Descriptor, msg stream.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return errors.New("admission failed")
	}
	f.calls = append(f.calls, desc)
	return nil
}

func validEvent(id string, key []byte) *event.ConsumedEvent {
	committed := false
	return &event.ConsumedEvent{
		Event: &event.CloudEvent{
			ID:          id,
			Source:      "test-source",
			Type:        "test.type",
			SpecVersion: "1.0",
		},
		Metadata: event.KafkaMetadata{
			Topic:     "orders",
			Partition: 0,
			Offset:    1,
			Key:       key,
		},
		CommitFunc: func() error {
			committed = true
			_ = committed
			return nil
		},
	}
}

func TestIngesterAdmitsValidEvent(t *testing.T) {
	consumer := newFakeConsumer()
	enqueuer := &fakeEnqueuer{}
	ing := New(Config{Consumer: consumer, Enqueuer: enqueuer, Topics: []string{"orders"}})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ing.Run(ctx) }()

	committed := make(chan struct{})
	msg := validEvent("evt-1", []byte("order-42"))
	msg.CommitFunc = func() error {
		close(committed)
		return nil
	}
	consumer.events <- msg

	select {
	case <-committed:
	case <-time.After(time.Second):
		t.Fatal("event was never committed")
	}

	cancel()
	<-done

	enqueuer.mu.Lock()
	defer enqueuer.mu.Unlock()
	if len(enqueuer.calls) != 1 {
		t.Fatalf("expected 1 AddRecord call, got %d", len(enqueuer.calls))
	}
	if enqueuer.calls[0] != (stream.Descriptor{Namespace: "orders", Name: "order-42"}) {
		t.Errorf("unexpected descriptor: %+v", enqueuer.calls[0])
	}
}

func TestIngesterRejectsInvalidEventToDLQ(t *testing.T) {
	consumer := newFakeConsumer()
	enqueuer := &fakeEnqueuer{}
	dlq := &fakeDLQ{}
	ing := New(Config{Consumer: consumer, Enqueuer: enqueuer, DLQ: dlq, Topics: []string{"orders"}})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ing.Run(ctx) }()

	committed := make(chan struct{})
	invalid := &event.ConsumedEvent{
		Event: &event.CloudEvent{}, // missing required fields
		Metadata: event.KafkaMetadata{
			Topic: "orders",
		},
		CommitFunc: func() error {
			close(committed)
			return nil
		},
	}
	consumer.events <- invalid

	select {
	case <-committed:
	case <-time.After(time.Second):
		t.Fatal("invalid event was never committed (should be skipped)")
	}

	cancel()
	<-done

	enqueuer.mu.Lock()
	calls := len(enqueuer.calls)
	enqueuer.mu.Unlock()
	if calls != 0 {
		t.Errorf("expected no AddRecord calls for an invalid event, got %d", calls)
	}

	dlq.mu.Lock()
	defer dlq.mu.Unlock()
	if len(dlq.published) != 1 || dlq.published[0] != "validation_failed" {
		t.Errorf("expected one validation_failed DLQ publish, got %v", dlq.published)
	}
}

func TestIngesterKeylessFallsBackToPartitionName(t *testing.T) {
	consumer := newFakeConsumer()
	enqueuer := &fakeEnqueuer{}
	ing := New(Config{Consumer: consumer, Enqueuer: enqueuer, Topics: []string{"orders"}})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ing.Run(ctx) }()

	committed := make(chan struct{})
	msg := validEvent("evt-2", nil)
	msg.Metadata.Partition = 3
	msg.CommitFunc = func() error {
		close(committed)
		return nil
	}
	consumer.events <- msg

	<-committed
	cancel()
	<-done

	enqueuer.mu.Lock()
	defer enqueuer.mu.Unlock()
	if len(enqueuer.calls) != 1 || enqueuer.calls[0].Name != "partition-3" {
		t.Errorf("expected partition-3 fallback name, got %+v", enqueuer.calls)
	}
}

func TestIngesterStopsOnContextCancel(t *testing.T) {
	consumer := newFakeConsumer()
	enqueuer := &fakeEnqueuer{}
	ing := New(Config{Consumer: consumer, Enqueuer: enqueuer, Topics: []string{"orders"}})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ing.Run(ctx) }()

	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("expected nil error on cancellation, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not return after context cancellation")
	}
}
