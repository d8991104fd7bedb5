package observability

import (
	"context"
	"log/slog"
	"time"

	"github.com/streamfabric/streamfabric/pkg/buffer"
)

// Telemetry periodically samples a buffer.Metadata source and reports both
// structured log lines and Prometheus gauges for every registered stream.
type Telemetry struct {
	source   buffer.Metadata
	metrics  *Metrics
	interval time.Duration
	logger   *slog.Logger
}

// NewTelemetry builds a sampler over source, reporting through metrics
// every interval. A non-positive interval defaults to 10 seconds.
func NewTelemetry(source buffer.Metadata, metrics *Metrics, interval time.Duration, logger *slog.Logger) *Telemetry {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Telemetry{source: source, metrics: metrics, interval: interval, logger: logger}
}

// Run samples on a fixed interval until ctx is cancelled. It is meant to be
// launched in its own goroutine; it returns once ctx.Done() fires.
func (t *Telemetry) Run(ctx context.Context) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			t.logger.Info("telemetry sampler stopping")
			return
		case <-ticker.C:
			t.sample()
		}
	}
}

func (t *Telemetry) sample() {
	t.metrics.SetBufferFabricAllocatedBytes(float64(t.source.AllocatedBytes()))

	for _, desc := range t.source.ListBuffers() {
		used := t.source.QueueByteSize(desc)
		capacity := t.source.QueueCapacityBytes(desc)
		count := t.source.QueueRecordCount(desc)

		t.metrics.SetStreamQueueStats(desc.Namespace, desc.Name, float64(used), float64(capacity), float64(count))

		fields := []any{
			"namespace", desc.Namespace,
			"name", desc.Name,
			"used_bytes", used,
			"capacity_bytes", capacity,
			"record_count", count,
		}
		if lastRecord, ok := t.source.TimeOfLastRecord(desc); ok {
			fields = append(fields, "last_record_age", time.Since(lastRecord).String())
		}
		t.logger.Debug("stream queue sample", fields...)
	}
}
