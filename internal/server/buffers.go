package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/streamfabric/streamfabric/pkg/buffer"
)

// BufferStats is the JSON shape of one stream's entry in the /buffers response.
type BufferStats struct {
	Namespace      string `json:"namespace"`
	Name           string `json:"name"`
	RecordCount    int    `json:"record_count"`
	ByteSize       int64  `json:"byte_size"`
	LastRecordTime string `json:"last_record_time,omitempty"`
}

// BuffersResponse is the JSON body returned by BuffersHandler.
type BuffersResponse struct {
	TotalByteSize int64         `json:"total_byte_size"`
	AllocatedSize int64         `json:"allocated_bytes"`
	Streams       []BufferStats `json:"streams"`
}

// BuffersHandler returns a handler exposing the buffering fabric's
// per-stream metadata, the way LivenessHandler exposes HealthChecker.
func BuffersHandler(meta buffer.Metadata, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		descs := meta.ListBuffers()
		streams := make([]BufferStats, 0, len(descs))
		for _, desc := range descs {
			stats := BufferStats{
				Namespace:   desc.Namespace,
				Name:        desc.Name,
				RecordCount: meta.QueueRecordCount(desc),
				ByteSize:    meta.QueueByteSize(desc),
			}
			if lastRecord, ok := meta.TimeOfLastRecord(desc); ok {
				stats.LastRecordTime = lastRecord.UTC().Format("2006-01-02T15:04:05Z07:00")
			}
			streams = append(streams, stats)
		}

		response := BuffersResponse{
			TotalByteSize: meta.TotalByteSize(),
			AllocatedSize: meta.AllocatedBytes(),
			Streams:       streams,
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(response); err != nil {
			logger.Error("failed to encode buffers response", "error", err)
		}
	}
}
