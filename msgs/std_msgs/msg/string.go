// Package std_msgs_msg contains the std_msgs message types supported by the
// exporter. Type names and field layouts follow the ROS 2 interface
// definitions exactly.
package std_msgs_msg

import (
	"github.com/tiiuae/rosbag-data-exporter/internal/cdr"
	"github.com/tiiuae/rosbag-data-exporter/msgs"
)

const StringTypeName = "std_msgs/msg/String"

// StringTypeSupport resolves the std_msgs/msg/String schema.
var StringTypeSupport msgs.TypeSupport = stringTypeSupport{}

func init() {
	msgs.Register(StringTypeSupport)
}

type stringTypeSupport struct{}

func (stringTypeSupport) TypeName() string  { return StringTypeName }
func (stringTypeSupport) New() msgs.Message { return NewString() }

// String is the std_msgs/msg/String message: a single text field.
type String struct {
	Data string
}

func NewString() *String {
	return &String{}
}

func (m *String) TypeName() string {
	return StringTypeName
}

// Payload returns the message's text field.
func (m *String) Payload() string {
	return m.Data
}

func (m *String) SerializeCDR() ([]byte, error) {
	enc := cdr.NewEncoder()
	enc.String(m.Data)
	return enc.Bytes(), nil
}

func (m *String) DeserializeCDR(data []byte) error {
	dec, err := cdr.NewDecoder(data)
	if err != nil {
		return err
	}
	m.Data, err = dec.String()
	return err
}
