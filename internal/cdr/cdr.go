// Package cdr implements the subset of the OMG CDR wire format used by
// ROS 2 serialized message bodies: a 4-byte encapsulation header followed
// by aligned primitive values and length-prefixed strings.
package cdr

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Encapsulation identifiers from the DDS-RTPS serialized payload header.
const (
	encapsulationCDRBE uint16 = 0x0000
	encapsulationCDRLE uint16 = 0x0001

	headerLen = 4
)

var (
	ErrShortBuffer          = errors.New("cdr: buffer too short")
	ErrUnknownEncapsulation = errors.New("cdr: unknown encapsulation identifier")
)

// Decoder reads primitive values from a serialized message body. Alignment
// is computed relative to the end of the encapsulation header, as required
// by the format.
type Decoder struct {
	buf   []byte
	pos   int
	order binary.ByteOrder
}

// NewDecoder parses the encapsulation header of payload and returns a
// decoder positioned at the first value. The payload is not copied; the
// decoder must not outlive it.
func NewDecoder(payload []byte) (*Decoder, error) {
	if len(payload) < headerLen {
		return nil, fmt.Errorf("%w: %d bytes, need at least %d", ErrShortBuffer, len(payload), headerLen)
	}
	var order binary.ByteOrder
	switch id := binary.BigEndian.Uint16(payload); id {
	case encapsulationCDRBE:
		order = binary.BigEndian
	case encapsulationCDRLE:
		order = binary.LittleEndian
	default:
		return nil, fmt.Errorf("%w: %#04x", ErrUnknownEncapsulation, id)
	}
	return &Decoder{buf: payload[headerLen:], order: order}, nil
}

func (d *Decoder) align(n int) {
	if rem := d.pos % n; rem != 0 {
		d.pos += n - rem
	}
}

func (d *Decoder) next(n int) ([]byte, error) {
	if d.pos+n > len(d.buf) {
		return nil, fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrShortBuffer, n, d.pos, len(d.buf)-d.pos)
	}
	b := d.buf[d.pos : d.pos+n]
	d.pos += n
	return b, nil
}

func (d *Decoder) Uint8() (uint8, error) {
	b, err := d.next(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (d *Decoder) Uint16() (uint16, error) {
	d.align(2)
	b, err := d.next(2)
	if err != nil {
		return 0, err
	}
	return d.order.Uint16(b), nil
}

func (d *Decoder) Uint32() (uint32, error) {
	d.align(4)
	b, err := d.next(4)
	if err != nil {
		return 0, err
	}
	return d.order.Uint32(b), nil
}

func (d *Decoder) Uint64() (uint64, error) {
	d.align(8)
	b, err := d.next(8)
	if err != nil {
		return 0, err
	}
	return d.order.Uint64(b), nil
}

func (d *Decoder) Int32() (int32, error) {
	v, err := d.Uint32()
	return int32(v), err
}

// String reads a CDR string: a uint32 length including the terminating NUL,
// followed by the bytes. The returned string is an independent copy and
// excludes the terminator.
func (d *Decoder) String() (string, error) {
	n, err := d.Uint32()
	if err != nil {
		return "", err
	}
	if n == 0 {
		return "", nil
	}
	b, err := d.next(int(n))
	if err != nil {
		return "", err
	}
	if b[n-1] == 0 {
		b = b[:n-1]
	}
	return string(b), nil
}

// Remaining reports the number of unread body bytes. A conforming message
// may leave trailing padding, so a non-zero value is not itself an error.
func (d *Decoder) Remaining() int {
	return len(d.buf) - d.pos
}

// Encoder builds a serialized message body in little-endian CDR. It is used
// by the storage writer and by tests to produce real payloads.
type Encoder struct {
	buf []byte
}

func NewEncoder() *Encoder {
	// Representation identifier CDR_LE plus zero options.
	return &Encoder{buf: []byte{0x00, 0x01, 0x00, 0x00}}
}

func (e *Encoder) align(n int) {
	for (len(e.buf)-headerLen)%n != 0 {
		e.buf = append(e.buf, 0)
	}
}

func (e *Encoder) Uint8(v uint8) {
	e.buf = append(e.buf, v)
}

func (e *Encoder) Uint16(v uint16) {
	e.align(2)
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	e.buf = append(e.buf, b[:]...)
}

func (e *Encoder) Uint32(v uint32) {
	e.align(4)
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	e.buf = append(e.buf, b[:]...)
}

func (e *Encoder) Uint64(v uint64) {
	e.align(8)
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	e.buf = append(e.buf, b[:]...)
}

func (e *Encoder) Int32(v int32) {
	e.Uint32(uint32(v))
}

func (e *Encoder) String(s string) {
	e.Uint32(uint32(len(s)) + 1)
	e.buf = append(e.buf, s...)
	e.buf = append(e.buf, 0)
}

func (e *Encoder) Bytes() []byte {
	return e.buf
}
