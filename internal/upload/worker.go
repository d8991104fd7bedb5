// Package upload drains the buffering fabric's batches, encodes their
// Record messages through the teacher's storage writer, and advances a
// per-stream watermark from their STATE messages.
package upload

import (
	"context"
	"hash/fnv"
	"log/slog"
	"sync"
	"time"

	internalbuffer "github.com/streamfabric/streamfabric/internal/buffer"
	"github.com/streamfabric/streamfabric/pkg/event"
	"github.com/streamfabric/streamfabric/pkg/storage"
	"github.com/streamfabric/streamfabric/pkg/stream"
)

// MetricsCollector is the subset of observability.Metrics a worker reports
// storage outcomes through.
type MetricsCollector interface {
	IncFilesWritten(topic string, partition int32, format string, status string)
	ObserveStorageWriteDuration(topic string, partition int32, duration float64)
	IncStorageErrors(backend string, operation string)
}

// Config collects a worker pool's collaborators and tuning knobs.
type Config struct {
	Manager       *internalbuffer.Manager
	Writer        storage.Writer
	Router        storage.Router
	Policy        storage.RotationPolicy
	Format        event.FileFormat
	NumWorkers    int
	BytesPerBatch int64
	PollInterval  time.Duration
	Backend       string
	Metrics       MetricsCollector
	Logger        *slog.Logger
}

// watermark is a stream's most recently observed control checkpoint.
type watermark struct {
	data      []byte
	observed  time.Time
	recvCount int
}

// Pool is a fixed-size set of upload workers, each consistently owning a
// subset of the fabric's registered streams (by a hash of the descriptor)
// so no two workers ever drain the same queue concurrently.
type Pool struct {
	cfg        Config
	mu         sync.RWMutex
	watermarks map[stream.Descriptor]watermark
}

// NewPool builds a worker pool from cfg. NumWorkers and PollInterval fall
// back to 1 worker / 500ms when left at their zero value.
func NewPool(cfg Config) *Pool {
	if cfg.NumWorkers <= 0 {
		cfg.NumWorkers = 1
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 500 * time.Millisecond
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Pool{cfg: cfg, watermarks: make(map[stream.Descriptor]watermark)}
}

// Run starts every worker and blocks until ctx is cancelled, at which
// point it waits for all workers to finish their current drain before
// returning. Callers that need to guarantee every batch is closed before
// Manager.Close() should wait for Run to return first.
func (p *Pool) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for i := 0; i < p.cfg.NumWorkers; i++ {
		wg.Add(1)
		go func(ownerIndex int) {
			defer wg.Done()
			p.runWorker(ctx, ownerIndex)
		}(i)
	}
	wg.Wait()
	return nil
}

func (p *Pool) runWorker(ctx context.Context, ownerIndex int) {
	ticker := time.NewTicker(p.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.drainOwned(ownerIndex)
			return
		case <-ticker.C:
			p.pollOwned(ctx, ownerIndex)
		}
	}
}

// pollOwned drains every stream this worker owns once.
func (p *Pool) pollOwned(ctx context.Context, ownerIndex int) {
	for _, desc := range p.cfg.Manager.ListBuffers() {
		if ownerOf(desc, p.cfg.NumWorkers) != ownerIndex {
			continue
		}
		p.drainOne(ctx, desc)
	}
}

// drainOwned makes a final best-effort pass over this worker's streams on
// shutdown, so in-flight bytes get written and refunded instead of
// abandoned mid-batch.
func (p *Pool) drainOwned(ownerIndex int) {
	ctx := context.Background()
	for _, desc := range p.cfg.Manager.ListBuffers() {
		if ownerOf(desc, p.cfg.NumWorkers) != ownerIndex {
			continue
		}
		p.drainOne(ctx, desc)
	}
}

func (p *Pool) drainOne(ctx context.Context, desc stream.Descriptor) {
	batch := p.cfg.Manager.Dequeue.Take(desc, p.cfg.BytesPerBatch)
	if batch == nil {
		return
	}
	defer batch.Close()

	var records []event.Record
	for {
		msg, ok := batch.Next()
		if !ok {
			break
		}
		switch msg.Type {
		case stream.Record:
			records = append(records, event.Record{
				Event:       msg.Record,
				ProcessedAt: time.Now(),
			})
		case stream.State:
			p.observeWatermark(desc, msg)
		case stream.Trace:
			// Out-of-band control data; the fabric carries it but the
			// upload path has nothing to do with it.
		}
	}

	if len(records) == 0 {
		return
	}
	p.write(ctx, desc, records)
}

func (p *Pool) write(ctx context.Context, desc stream.Descriptor, records []event.Record) {
	start := time.Now()

	eventTime := records[0].GetEventTimeUnix()
	specVersion := ""
	if records[0].Event != nil {
		specVersion = records[0].Event.SpecVersion
	}

	partitionID := event.PartitionID{Topic: desc.Namespace, Partition: partitionFor(desc)}
	path := p.cfg.Router.Route(partitionID, eventTime, specVersion)

	bytesWritten, err := p.cfg.Writer.Write(ctx, records, path, p.cfg.Format)
	if err != nil {
		p.cfg.Logger.Error("failed to write batch to storage",
			"namespace", desc.Namespace,
			"name", desc.Name,
			"records", len(records),
			"error", err,
		)
		if p.cfg.Metrics != nil {
			p.cfg.Metrics.IncStorageErrors(p.cfg.Backend, "write")
			p.cfg.Metrics.IncFilesWritten(desc.Namespace, partitionID.Partition, string(p.cfg.Format), "failure")
		}
		return
	}

	p.cfg.Logger.Info("wrote batch to storage",
		"namespace", desc.Namespace,
		"name", desc.Name,
		"records", len(records),
		"bytes", bytesWritten,
		"path", path,
	)
	if p.cfg.Metrics != nil {
		p.cfg.Metrics.ObserveStorageWriteDuration(desc.Namespace, partitionID.Partition, time.Since(start).Seconds())
		p.cfg.Metrics.IncFilesWritten(desc.Namespace, partitionID.Partition, string(p.cfg.Format), "success")
	}
}

func (p *Pool) observeWatermark(desc stream.Descriptor, msg stream.Message) {
	p.mu.Lock()
	defer p.mu.Unlock()

	wm := p.watermarks[desc]
	wm.observed = time.Now()
	wm.recvCount++
	if msg.Control != nil {
		wm.data = msg.Control.Data
	}
	p.watermarks[desc] = wm
}

// Watermark returns the most recently observed STATE payload for desc and
// whether one has ever been seen.
func (p *Pool) Watermark(desc stream.Descriptor) ([]byte, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	wm, ok := p.watermarks[desc]
	if !ok {
		return nil, false
	}
	return wm.data, true
}

// ownerOf deterministically assigns desc to one of numWorkers owners so
// the same stream is always drained by the same worker.
func ownerOf(desc stream.Descriptor, numWorkers int) int {
	if numWorkers <= 1 {
		return 0
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(desc.String()))
	return int(h.Sum32() % uint32(numWorkers))
}

// partitionFor derives a stable synthetic partition number for routing
// purposes from a stream's name, since the fabric's streams are keyed by
// descriptor rather than a numeric Kafka partition.
func partitionFor(desc stream.Descriptor) int32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(desc.Name))
	return int32(h.Sum32() % 1000)
}
