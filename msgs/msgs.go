// Package msgs defines the message-type abstraction used when decoding
// recorded message bodies: a serializable message value and the type
// support resolved once per export by full ROS 2 type name.
package msgs

import (
	"sort"
	"sync"
)

// Message is implemented by all supported message types.
type Message interface {
	// TypeName returns the full ROS 2 type name, e.g. "std_msgs/msg/String".
	TypeName() string

	// SerializeCDR serializes the message into a CDR body.
	SerializeCDR() ([]byte, error)

	// DeserializeCDR deserializes a CDR body into the message.
	DeserializeCDR(data []byte) error
}

// TextPayload is implemented by message types whose decoded payload is a
// single piece of text, which is what the exporter emits.
type TextPayload interface {
	Payload() string
}

// TypeSupport creates message values for one type. Resolving a TypeSupport
// is the per-export setup step; decoding uses it once per record.
type TypeSupport interface {
	TypeName() string
	New() Message
}

var (
	registryMu sync.RWMutex
	registry   = map[string]TypeSupport{}
)

// Register makes a type resolvable by name. Message packages register
// their type supports during init.
func Register(ts TypeSupport) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[ts.TypeName()] = ts
}

// Resolve looks up the type support for a full type name.
func Resolve(typeName string) (TypeSupport, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	ts, ok := registry[typeName]
	return ts, ok
}

// RegisteredTypeNames returns the names of all registered types in sorted
// order.
func RegisteredTypeNames() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
