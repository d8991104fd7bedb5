// Package stream provides the identity (Descriptor) and payload (Message)
// types shared between producers feeding the buffering fabric and the
// upload workers draining it.
//
// # Descriptors
//
// A Descriptor is the key the fabric partitions queues by:
//
//	d := stream.Descriptor{Namespace: "public", Name: "orders"}
//
// # Messages
//
// A Message is either a RECORD (a decoded CloudEvent) or control data
// (STATE/TRACE):
//
//	m := stream.NewRecord(cloudEvent)
//	s := stream.NewState(checkpointBytes)
//
// The fabric treats Message as opaque beyond its Type; only the estimator
// (for RECORD) and a fixed nominal size (for everything else) are used to
// charge admission.
package stream
