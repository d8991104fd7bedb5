// Package ingest adapts the Kafka consumer side of the pipeline to the
// buffering fabric: it turns consumed CloudEvents into stream.Message
// values and admits them through a pkgbuffer.Enqueuer, routing anything
// that fails validation or admission to the dead letter queue.
package ingest

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/streamfabric/streamfabric/pkg/consumer"
	"github.com/streamfabric/streamfabric/pkg/event"
	"github.com/streamfabric/streamfabric/pkg/stream"

	internalerrors "github.com/streamfabric/streamfabric/internal/errors"
	"github.com/streamfabric/streamfabric/internal/validator"
	pkgbuffer "github.com/streamfabric/streamfabric/pkg/buffer"
)

// Config collects an Ingester's collaborators. DLQ may be nil, in which
// case rejected events are only logged.
type Config struct {
	Consumer  consumer.Consumer
	Enqueuer  pkgbuffer.Enqueuer
	DLQ       consumer.DLQPublisher
	Validator event.Validator
	Topics    []string
	Logger    *slog.Logger
}

// Ingester drains one consumer.Consumer's event channel and feeds every
// valid CloudEvent into the buffering fabric under a stream.Descriptor
// derived from its topic and key.
type Ingester struct {
	consumer  consumer.Consumer
	enqueuer  pkgbuffer.Enqueuer
	dlq       consumer.DLQPublisher
	validator event.Validator
	topics    []string
	logger    *slog.Logger
}

// New builds an Ingester from cfg. A nil Validator defaults to
// validator.NewCloudEventsValidator().
func New(cfg Config) *Ingester {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	eventValidator := cfg.Validator
	if eventValidator == nil {
		eventValidator = validator.NewCloudEventsValidator()
	}
	return &Ingester{
		consumer:  cfg.Consumer,
		enqueuer:  cfg.Enqueuer,
		dlq:       cfg.DLQ,
		validator: eventValidator,
		topics:    cfg.Topics,
		logger:    logger,
	}
}

// Run subscribes to the configured topics and blocks, converting and
// admitting events until ctx is cancelled or the consumer's event channel
// closes. Errors surfaced on the consumer's error channel are logged, not
// returned, matching the teacher's processEvents loop.
func (i *Ingester) Run(ctx context.Context) error {
	if err := i.consumer.Subscribe(ctx, i.topics); err != nil {
		return fmt.Errorf("ingest: subscribe: %w", err)
	}

	eventChan, errorChan, err := i.consumer.Consume(ctx)
	if err != nil {
		return fmt.Errorf("ingest: consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			i.logger.Info("ingester stopping")
			return nil
		case err, ok := <-errorChan:
			if !ok {
				continue
			}
			if err != nil {
				i.logger.Error("consumer error", "error", err)
			}
		case consumedEvent, ok := <-eventChan:
			if !ok {
				i.logger.Info("ingest event channel closed")
				return nil
			}
			i.handle(ctx, consumedEvent)
		}
	}
}

func (i *Ingester) handle(ctx context.Context, consumedEvent *event.ConsumedEvent) {
	if err := i.validator.Validate(consumedEvent.Event); err != nil {
		i.reject(ctx, consumedEvent, "validation_failed", err)
		i.ack(consumedEvent)
		return
	}

	desc := descriptorFor(consumedEvent.Metadata)
	msg := stream.NewRecord(consumedEvent.Event)

	if err := i.enqueuer.AddRecord(ctx, desc, msg); err != nil {
		i.reject(ctx, consumedEvent, "buffer_admission_failed", err)
		return
	}

	i.ack(consumedEvent)
}

func (i *Ingester) reject(ctx context.Context, consumedEvent *event.ConsumedEvent, reason string, cause error) {
	procErr := &internalerrors.ProcessingError{
		PartitionID: event.PartitionID{Topic: consumedEvent.Metadata.Topic, Partition: consumedEvent.Metadata.Partition},
		Offset:      consumedEvent.Metadata.Offset,
		EventID:     eventID(consumedEvent.Event),
		Err:         cause,
	}
	i.logger.Warn("rejecting event", "reason", reason, "error", procErr)

	if i.dlq == nil {
		return
	}
	if err := i.dlq.Publish(ctx, consumedEvent.Event, consumedEvent.Metadata, reason); err != nil {
		i.logger.Error("failed to publish to dlq", "error", err)
	}
}

func (i *Ingester) ack(consumedEvent *event.ConsumedEvent) {
	if consumedEvent.CommitFunc == nil {
		return
	}
	if err := consumedEvent.CommitFunc(); err != nil {
		i.logger.Error("failed to commit offset",
			"topic", consumedEvent.Metadata.Topic,
			"partition", consumedEvent.Metadata.Partition,
			"offset", consumedEvent.Metadata.Offset,
			"error", err,
		)
	}
}

func eventID(e *event.CloudEvent) string {
	if e == nil {
		return ""
	}
	return e.ID
}

// descriptorFor derives a stream.Descriptor from a Kafka message's
// topic and key: the topic namespaces the stream, and the key (when
// present) names it, so records sharing a key land in the same queue and
// batch together. Keyless messages fall back to a per-partition name so
// they still get a stable, bounded set of streams per topic.
func descriptorFor(meta event.KafkaMetadata) stream.Descriptor {
	name := string(meta.Key)
	if name == "" {
		name = fmt.Sprintf("partition-%d", meta.Partition)
	}
	return stream.Descriptor{Namespace: meta.Topic, Name: name}
}
