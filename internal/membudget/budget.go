// Package membudget implements the process-wide byte allocator shared by
// every stream queue in the buffering fabric.
package membudget

import "sync"

// DefaultBlockBytes is the allocator's default unit of growth.
const DefaultBlockBytes = 10 * 1024 * 1024

// Budget is a serialized allocator dispensing memory in fixed-size blocks.
// It never blocks and never fails: RequestBlock returns whatever is left,
// down to zero. Grounded on original_source's GlobalMemoryManager, with
// Free fixed to actually decrement allocatedBytes — the source left it a
// no-op, which wedges the whole fabric after one full cycle (spec.md §9,
// open question 1).
type Budget struct {
	mu         sync.Mutex
	maxBytes   int64
	allocated  int64
	blockBytes int64
	freed      chan struct{}
}

// New creates a budget capped at maxBytes, handing out blockBytes at a
// time. blockBytes <= 0 falls back to DefaultBlockBytes.
func New(maxBytes, blockBytes int64) *Budget {
	if blockBytes <= 0 {
		blockBytes = DefaultBlockBytes
	}
	return &Budget{
		maxBytes:   maxBytes,
		blockBytes: blockBytes,
		freed:      make(chan struct{}),
	}
}

// MaxBytes returns the budget's ceiling.
func (b *Budget) MaxBytes() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.maxBytes
}

// AllocatedBytes returns the current outstanding allocation.
func (b *Budget) AllocatedBytes() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.allocated
}

// RequestBlock hands out up to blockBytes of headroom. It returns 0 when
// the budget is already exhausted; the caller is expected to park on
// Freed() and retry once a consumer releases memory. Never blocks itself.
func (b *Budget) RequestBlock() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.allocated >= b.maxBytes {
		return 0
	}

	free := b.maxBytes - b.allocated
	grant := b.blockBytes
	if free < grant {
		grant = free
	}
	b.allocated += grant
	return grant
}

// Free returns bytes to the budget and wakes any producer parked on
// Freed(). A refund larger than the outstanding allocation is clamped to
// zero rather than going negative. This happens in normal operation: a
// closed Batch refunds its whole size, including bytes that sat in a
// queue's initial capacity, which was never debited from the budget.
func (b *Budget) Free(bytes int64) {
	b.mu.Lock()
	b.allocated -= bytes
	if b.allocated < 0 {
		b.allocated = 0
	}
	ch := b.freed
	b.freed = make(chan struct{})
	b.mu.Unlock()
	close(ch)
}

// Freed returns a channel that is closed the next time Free runs. Callers
// must snapshot this channel *after* observing the budget as exhausted and
// select on it with a bounded timeout — the channel swap in Free closes
// exactly the snapshot a concurrently-parked waiter is holding, so no
// wakeup is lost, but a timeout is still the caller's backstop against the
// narrow window between the exhaustion check and the snapshot.
func (b *Budget) Freed() <-chan struct{} {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.freed
}
