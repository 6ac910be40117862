package rosbag

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when the recording path does not exist.
	ErrNotFound = errors.New("recording not found")

	// ErrUnsupportedStorage is returned when the recording exists but is
	// not a readable sqlite3 rosbag2 storage.
	ErrUnsupportedStorage = errors.New("unsupported storage format")

	// ErrSchemaResolution is returned when the configured message type
	// cannot be resolved to a registered type support.
	ErrSchemaResolution = errors.New("schema resolution failed")

	// ErrTypeMismatch marks a record whose declared topic type differs
	// from the type the export decodes with.
	ErrTypeMismatch = errors.New("topic type does not match export type")
)

// DecodeError reports a record body that could not be decoded. Index is the
// zero-based position of the record in storage order.
type DecodeError struct {
	Index int
	Topic string
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode record %d on topic '%s': %v", e.Index, e.Topic, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
