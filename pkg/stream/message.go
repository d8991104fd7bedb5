package stream

import "github.com/streamfabric/streamfabric/pkg/event"

// Type discriminates the kind of payload a Message carries.
type Type int

const (
	// Record carries a decoded CloudEvent bound for a destination table.
	Record Type = iota
	// State carries a checkpoint/watermark the upload worker uses to know
	// what has been durably committed.
	State
	// Trace carries out-of-band control data (status, metrics, traces)
	// that does not participate in destination writes.
	Trace
)

func (t Type) String() string {
	switch t {
	case Record:
		return "RECORD"
	case State:
		return "STATE"
	case Trace:
		return "TRACE"
	default:
		return "UNKNOWN"
	}
}

// ControlPayload is the opaque body of a non-RECORD message. The fabric
// never inspects Data; only its presence and fixed nominal size matter for
// admission.
type ControlPayload struct {
	Data []byte
}

// Message is the unit of data the fabric moves. It is treated as an
// immutable value once constructed: the fabric inspects only its Type (to
// pick a byte-size rule) and, for Record messages, hands the CloudEvent to
// the estimator. Everything else about the payload is opaque to the core
// and meaningful only to the ingester that built it and the upload worker
// that eventually reads it back out of a Batch.
type Message struct {
	Type    Type
	Record  *event.CloudEvent
	Control *ControlPayload
}

// NewRecord wraps a CloudEvent as a RECORD message.
func NewRecord(e *event.CloudEvent) Message {
	return Message{Type: Record, Record: e}
}

// NewState wraps a control payload as a STATE message.
func NewState(data []byte) Message {
	return Message{Type: State, Control: &ControlPayload{Data: data}}
}

// NewTrace wraps a control payload as a TRACE message.
func NewTrace(data []byte) Message {
	return Message{Type: Trace, Control: &ControlPayload{Data: data}}
}
