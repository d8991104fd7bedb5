package buffer

import (
	"log/slog"
	"time"

	"github.com/streamfabric/streamfabric/internal/estimator"
	"github.com/streamfabric/streamfabric/internal/membudget"
	"github.com/streamfabric/streamfabric/internal/streamqueue"
	pkgbuffer "github.com/streamfabric/streamfabric/pkg/buffer"
	"github.com/streamfabric/streamfabric/pkg/stream"
)

// Ensure the implementations satisfy their public interfaces at compile time.
var (
	_ pkgbuffer.Enqueuer = (*Enqueue)(nil)
	_ pkgbuffer.Metadata = (*Manager)(nil)
)

// Config collects the knobs needed to build a Manager, mirroring the
// BufferFabric section added to the teacher's configuration.
type Config struct {
	// GlobalLimitBytes caps the process-wide memory budget.
	GlobalLimitBytes int64
	// BlockBytes is the unit the budget grants per RequestBlock call.
	BlockBytes int64
	// InitialQueueCapacityBytes is every new stream's starting capacity,
	// not debited from the global budget (open question decision 3).
	InitialQueueCapacityBytes int64
	// MaxQueueBytes is the ceiling a stream's queue will never grow past.
	MaxQueueBytes int64
	// Logger receives debug-level parking events; defaults to
	// slog.Default() if nil.
	Logger *slog.Logger
}

// Manager owns the registry, the shared membudget.Budget, and the size
// estimator, and exposes the Enqueue and Dequeue facades plus the
// read-only metadata the telemetry loop and HTTP server need. It
// implements io.Closer the way the teacher's resources do: Close clears
// every registered queue. It does not refund their bytes to the budget —
// the budget and the process go away together.
type Manager struct {
	registry *Registry
	budget   *membudget.Budget
	Enqueue  *Enqueue
	Dequeue  *Dequeue
}

// NewManager wires a fresh Registry, Budget, and RecordSizeEstimator into
// the Enqueue/Dequeue facades per cfg.
func NewManager(cfg Config) *Manager {
	budget := membudget.New(cfg.GlobalLimitBytes, cfg.BlockBytes)
	registry := NewRegistry(cfg.InitialQueueCapacityBytes, cfg.MaxQueueBytes)
	est := estimator.New()

	return &Manager{
		registry: registry,
		budget:   budget,
		Enqueue:  newEnqueue(registry, budget, est, cfg.Logger),
		Dequeue:  newDequeue(registry, budget),
	}
}

// ListBuffers returns the descriptors of every stream currently registered.
func (m *Manager) ListBuffers() []stream.Descriptor {
	return m.registry.List()
}

// QueueRecordCount returns the number of resident entries for desc, or 0 if
// it has never been registered.
func (m *Manager) QueueRecordCount(desc stream.Descriptor) int {
	q, ok := m.registry.Get(desc)
	if !ok {
		return 0
	}
	return q.Size()
}

// QueueByteSize returns the bytes currently resident in desc's queue.
func (m *Manager) QueueByteSize(desc stream.Descriptor) int64 {
	q, ok := m.registry.Get(desc)
	if !ok {
		return 0
	}
	return q.UsedBytes()
}

// QueueCapacityBytes returns the current admission capacity of desc's
// queue, or 0 if it has never been registered.
func (m *Manager) QueueCapacityBytes(desc stream.Descriptor) int64 {
	q, ok := m.registry.Get(desc)
	if !ok {
		return 0
	}
	return q.CapacityBytes()
}

// TotalByteSize sums UsedBytes across every registered stream. Grounded on
// original_source's BufferManagerDequeue.getTotalGlobalQueueSizeBytes.
func (m *Manager) TotalByteSize() int64 {
	var total int64
	m.registry.Each(func(_ stream.Descriptor, q *streamqueue.Queue) {
		total += q.UsedBytes()
	})
	return total
}

// TimeOfLastRecord returns the time of desc's most recent successful
// enqueue, and whether it has ever received one.
func (m *Manager) TimeOfLastRecord(desc stream.Descriptor) (time.Time, bool) {
	q, ok := m.registry.Get(desc)
	if !ok {
		return time.Time{}, false
	}
	return q.LastEnqueueTime()
}

// AllocatedBytes returns the global budget's current outstanding
// allocation, for the telemetry loop's buffer_fabric_allocated_bytes gauge.
func (m *Manager) AllocatedBytes() int64 {
	return m.budget.AllocatedBytes()
}

// Close clears every registered queue's resident entries.
func (m *Manager) Close() error {
	m.registry.Clear()
	return nil
}
