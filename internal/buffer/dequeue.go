package buffer

import (
	"github.com/streamfabric/streamfabric/internal/membudget"
	"github.com/streamfabric/streamfabric/internal/streamqueue"
	"github.com/streamfabric/streamfabric/pkg/stream"
)

// Dequeue extracts batches of resident messages from a stream's queue for
// an upload worker to drain. Grounded on original_source's
// BufferManagerDequeue.take, with the peek-and-retain fix described on
// Batch and DESIGN.md's open question decision 2: an entry that would
// overflow the requested target is left at the head of the queue instead
// of being polled and dropped.
type Dequeue struct {
	registry *Registry
	budget   *membudget.Budget
}

func newDequeue(registry *Registry, budget *membudget.Budget) *Dequeue {
	return &Dequeue{registry: registry, budget: budget}
}

// Take greedily pulls resident entries off descriptor's queue until adding
// the next one would exceed bytesTarget, and returns them as a Batch. The
// very first entry is always taken regardless of size, so a single
// oversized record cannot starve a stream forever; every entry after that
// is subject to bytesTarget. Returns nil if the stream has never been
// registered or currently holds nothing.
func (d *Dequeue) Take(desc stream.Descriptor, bytesTarget int64) *Batch {
	q, ok := d.registry.Get(desc)
	if !ok {
		return nil
	}

	var entries []stream.Message
	var total int64

	for {
		var e streamqueue.Entry
		var popped bool
		if total == 0 {
			e, popped = q.PopFront()
		} else {
			e, popped = q.PopFrontIfWithin(bytesTarget - total)
		}
		if !popped {
			break
		}
		entries = append(entries, e.Message)
		total += e.ByteSize
	}

	if len(entries) == 0 {
		return nil
	}

	return newBatch(desc, entries, total, d.budget.Free)
}
