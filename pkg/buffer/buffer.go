// Package buffer defines the public interfaces satisfied by the buffering
// fabric in internal/buffer.
//
// Buffers are used to admit messages per stream, hold them under a
// byte-accounted capacity, and hand them back out in batches for an upload
// worker to encode and write to storage.
package buffer

import (
	"context"
	"time"

	"github.com/streamfabric/streamfabric/pkg/stream"
)

// Enqueuer admits a message into a stream's queue, applying back-pressure
// (via the caller's ctx) when the stream or the global memory budget is
// full. All implementations must be safe for concurrent use by multiple
// producers.
type Enqueuer interface {
	AddRecord(ctx context.Context, desc stream.Descriptor, msg stream.Message) error
}

// Metadata exposes read-only visibility into the fabric's buffered
// streams, used by telemetry and the HTTP server's /buffers endpoint.
type Metadata interface {
	// ListBuffers returns every stream currently registered.
	ListBuffers() []stream.Descriptor
	// QueueRecordCount returns the number of resident entries for desc.
	QueueRecordCount(desc stream.Descriptor) int
	// QueueByteSize returns the bytes currently resident in desc's queue.
	QueueByteSize(desc stream.Descriptor) int64
	// QueueCapacityBytes returns the current admission capacity of desc's queue.
	QueueCapacityBytes(desc stream.Descriptor) int64
	// TotalByteSize sums QueueByteSize across every registered stream.
	TotalByteSize() int64
	// TimeOfLastRecord returns the time of desc's most recent successful
	// enqueue, and whether it has ever received one.
	TimeOfLastRecord(desc stream.Descriptor) (time.Time, bool)
	// AllocatedBytes returns the global budget's current outstanding allocation.
	AllocatedBytes() int64
}
