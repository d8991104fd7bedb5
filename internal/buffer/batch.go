package buffer

import (
	"sync"

	internalerrors "github.com/streamfabric/streamfabric/internal/errors"
	"github.com/streamfabric/streamfabric/pkg/stream"
)

// BatchState tracks a Batch's position in its OPEN -> DRAINING -> CLOSED
// lifecycle.
type BatchState int

const (
	// BatchOpen is a freshly taken batch nobody has read from yet.
	BatchOpen BatchState = iota
	// BatchDraining has had at least one entry read via Next.
	BatchDraining
	// BatchClosed has had Close called; its bytes have been refunded.
	BatchClosed
)

func (s BatchState) String() string {
	switch s {
	case BatchOpen:
		return "OPEN"
	case BatchDraining:
		return "DRAINING"
	case BatchClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// Batch is a reserved, ordered slice of a stream's queue handed to an
// upload worker by Dequeue.Take. Take has already removed its entries, and
// their bytes, from the queue; Close refunds those bytes to the global
// budget exactly once, however many times it is called.
type Batch struct {
	mu        sync.Mutex
	desc      stream.Descriptor
	entries   []stream.Message
	sizeBytes int64
	pos       int
	state     BatchState
	refund    func(int64)
}

func newBatch(desc stream.Descriptor, entries []stream.Message, sizeBytes int64, refund func(int64)) *Batch {
	return &Batch{desc: desc, entries: entries, sizeBytes: sizeBytes, refund: refund}
}

// Descriptor returns the stream this batch was taken from.
func (b *Batch) Descriptor() stream.Descriptor {
	return b.desc
}

// SizeInBytes returns the total bytes reserved by this batch, the amount
// Close will refund to the budget.
func (b *Batch) SizeInBytes() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sizeBytes
}

// Len returns the number of messages this batch was taken with.
func (b *Batch) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}

// State returns the batch's current lifecycle state.
func (b *Batch) State() BatchState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Next returns the batch's next reserved message. The first call moves an
// OPEN batch to DRAINING. Once every entry has been read, Next returns
// false without error: an exhausted batch is not an invalid one, it still
// needs Close. Calling Next after Close is a ProgrammerError (debug builds
// panic, hardened builds log and return false).
func (b *Batch) Next() (stream.Message, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == BatchClosed {
		internalerrors.Assert(false, "buffer: Next called on a closed batch for stream %s", b.desc)
		return stream.Message{}, false
	}
	if b.state == BatchOpen {
		b.state = BatchDraining
	}
	if b.pos >= len(b.entries) {
		return stream.Message{}, false
	}
	msg := b.entries[b.pos]
	b.pos++
	return msg, true
}

// Close refunds the batch's reserved bytes to the global budget. It is
// idempotent: the second and later calls are no-ops, so a worker can
// safely defer Close after already closing it explicitly on a success
// path, or vice versa.
func (b *Batch) Close() {
	b.mu.Lock()
	if b.state == BatchClosed {
		b.mu.Unlock()
		return
	}
	b.state = BatchClosed
	refund := b.refund
	size := b.sizeBytes
	b.mu.Unlock()

	if refund != nil {
		refund(size)
	}
}
