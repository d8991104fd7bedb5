package buffer

import (
	"sync"

	"github.com/streamfabric/streamfabric/internal/streamqueue"
	"github.com/streamfabric/streamfabric/pkg/stream"
)

// Registry holds one streamqueue.Queue per stream, created lazily on first
// use. Grounded on the teacher's Manager.GetOrCreate double-checked-locking
// pattern, generalized from a map of PartitionID to a map of
// stream.Descriptor.
type Registry struct {
	mu            sync.RWMutex
	queues        map[stream.Descriptor]*streamqueue.Queue
	initialBytes  int64
	maxQueueBytes int64
}

// NewRegistry creates an empty registry; each queue it creates starts at
// initialCapacityBytes and never grows past maxQueueBytes.
func NewRegistry(initialCapacityBytes, maxQueueBytes int64) *Registry {
	return &Registry{
		queues:        make(map[stream.Descriptor]*streamqueue.Queue),
		initialBytes:  initialCapacityBytes,
		maxQueueBytes: maxQueueBytes,
	}
}

// GetOrCreate returns desc's queue, creating it if this is the first time
// desc has been seen. It is the only way a queue enters the registry — there
// is no separate contains/put pair to race against.
func (r *Registry) GetOrCreate(desc stream.Descriptor) *streamqueue.Queue {
	r.mu.RLock()
	q, ok := r.queues[desc]
	r.mu.RUnlock()
	if ok {
		return q
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if q, ok := r.queues[desc]; ok {
		return q
	}

	q = streamqueue.New(r.initialBytes, r.maxQueueBytes)
	r.queues[desc] = q
	return q
}

// Get returns desc's queue without creating one.
func (r *Registry) Get(desc stream.Descriptor) (*streamqueue.Queue, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	q, ok := r.queues[desc]
	return q, ok
}

// List returns the descriptors of every stream currently registered.
func (r *Registry) List() []stream.Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]stream.Descriptor, 0, len(r.queues))
	for d := range r.queues {
		out = append(out, d)
	}
	return out
}

// Each calls fn once per registered stream, holding the read lock for the
// duration. fn must not call back into the registry.
func (r *Registry) Each(fn func(stream.Descriptor, *streamqueue.Queue)) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for d, q := range r.queues {
		fn(d, q)
	}
}

// Clear drops every registered stream's resident entries without
// refunding them to the budget. Used only at fabric shutdown.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, q := range r.queues {
		q.Clear()
	}
}
