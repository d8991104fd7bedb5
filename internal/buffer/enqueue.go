package buffer

import (
	"context"
	"log/slog"
	"time"

	internalerrors "github.com/streamfabric/streamfabric/internal/errors"
	"github.com/streamfabric/streamfabric/internal/estimator"
	"github.com/streamfabric/streamfabric/internal/membudget"
	"github.com/streamfabric/streamfabric/pkg/stream"
)

// parkTimeout bounds how long AddRecord waits on a single Freed()
// notification before re-checking ctx and retrying the whole loop. The
// channel-swap Freed() contract is race-free against Free calls, but a
// bounded wakeup is still the caller-side backstop documented on
// membudget.Budget.Freed against the narrow exhaustion-check/snapshot
// window, and it is what lets ctx cancellation actually get noticed.
const parkTimeout = 200 * time.Millisecond

// Enqueue admits messages into the fabric. Grounded on original_source's
// BufferManagerEnqueue.addRecord offer-then-grow-then-retry loop: try to
// offer into the stream's queue; if full, request another block of
// capacity from the global budget and retry; if the budget is exhausted or
// the queue is already at its MaxQueueBytes ceiling, park until either the
// budget frees memory or the context is cancelled.
type Enqueue struct {
	registry  *Registry
	budget    *membudget.Budget
	estimator *estimator.RecordSizeEstimator
	logger    *slog.Logger
}

func newEnqueue(registry *Registry, budget *membudget.Budget, est *estimator.RecordSizeEstimator, logger *slog.Logger) *Enqueue {
	if logger == nil {
		logger = slog.Default()
	}
	return &Enqueue{registry: registry, budget: budget, estimator: est, logger: logger}
}

// AddRecord admits msg into descriptor's queue, blocking subject to ctx
// while the stream's queue is full and cannot grow: it is at its
// MaxQueueBytes ceiling or the global budget is exhausted. It returns
// ErrInterruptedIO if ctx is cancelled before admission succeeds.
func (e *Enqueue) AddRecord(ctx context.Context, desc stream.Descriptor, msg stream.Message) error {
	q := e.registry.GetOrCreate(desc)
	size := e.estimator.EstimateBytes(desc, msg)

	for {
		if q.Offer(msg, size) {
			return nil
		}

		var parkReason error
		if q.AtCeiling() {
			parkReason = internalerrors.CapacityCeilingReached
		} else if grant := e.budget.RequestBlock(); grant > 0 {
			q.SetCapacity(q.CapacityBytes() + grant)
			continue
		} else {
			parkReason = internalerrors.BudgetExhausted
		}
		e.logger.Debug("enqueue parked", "stream", desc, "reason", parkReason)

		select {
		case <-e.budget.Freed():
		case <-time.After(parkTimeout):
		case <-ctx.Done():
			return internalerrors.ErrInterruptedIO
		}
	}
}
