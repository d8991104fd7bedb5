// Package stream defines the identity and message types the buffering
// fabric partitions and accounts by. It has no dependency on the fabric
// itself so producers and consumers can share it without pulling in
// queueing or budget internals.
package stream

import "fmt"

// Descriptor is the opaque identity of a logical stream. Two descriptors
// with equal Namespace and Name refer to the same queue; the zero value is
// a valid descriptor (the default, unnamespaced stream).
type Descriptor struct {
	Namespace string
	Name      string
}

// String renders the descriptor as "namespace.name", or just "name" when
// Namespace is empty.
func (d Descriptor) String() string {
	if d.Namespace == "" {
		return d.Name
	}
	return fmt.Sprintf("%s.%s", d.Namespace, d.Name)
}
