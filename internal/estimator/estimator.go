// Package estimator sizes messages for admission into the buffering
// fabric.
package estimator

import (
	"encoding/json"
	"sync"

	"github.com/streamfabric/streamfabric/pkg/event"
	"github.com/streamfabric/streamfabric/pkg/stream"
)

// NominalControlMessageBytes is charged for every non-RECORD message: STATE
// and TRACE payloads carry out-of-band control data whose true size is
// small and not worth measuring precisely.
const NominalControlMessageBytes = 1024

// RecordSizeEstimator maintains a rolling per-stream average of serialized
// RECORD payload size, grounded on the teacher's estimateSize helper and
// the RecordSizeEstimator referenced from Airbyte's BufferManager. A fresh
// stream with no history falls back to measuring the first record exactly.
type RecordSizeEstimator struct {
	mu         sync.Mutex
	runningAvg map[stream.Descriptor]*rollingAverage
}

type rollingAverage struct {
	count int64
	mean  float64
}

// New creates an estimator with no history.
func New() *RecordSizeEstimator {
	return &RecordSizeEstimator{
		runningAvg: make(map[stream.Descriptor]*rollingAverage),
	}
}

// EstimateBytes returns the byte size to charge a message against its
// stream's queue capacity. RECORD messages update the stream's rolling
// average from the serialized CloudEvent size; every other message type is
// charged the fixed nominal size without touching the average.
func (e *RecordSizeEstimator) EstimateBytes(desc stream.Descriptor, msg stream.Message) int64 {
	if msg.Type != stream.Record {
		return NominalControlMessageBytes
	}

	size := int64(serializedSize(msg.Record))

	e.mu.Lock()
	defer e.mu.Unlock()
	avg, ok := e.runningAvg[desc]
	if !ok {
		avg = &rollingAverage{}
		e.runningAvg[desc] = avg
	}
	avg.count++
	avg.mean += (float64(size) - avg.mean) / float64(avg.count)

	return int64(avg.mean)
}

// serializedSize approximates the wire size of a CloudEvent without paying
// for a full JSON encode on every call where avoidable: the Data field
// already carries its serialized form, everything else is bounded string
// fields.
func serializedSize(e *event.CloudEvent) int {
	if e == nil {
		return 0
	}

	size := len(e.ID) + len(e.Source) + len(e.SpecVersion) + len(e.Type) + len(e.Data)
	if e.DataContentType != nil {
		size += len(*e.DataContentType)
	}
	if e.DataSchema != nil {
		size += len(*e.DataSchema)
	}
	if e.Subject != nil {
		size += len(*e.Subject)
	}
	for k, v := range e.Extensions {
		size += len(k)
		if b, err := json.Marshal(v); err == nil {
			size += len(b)
		}
	}
	return size
}
