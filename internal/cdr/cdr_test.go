package cdr

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestStringRoundTrip(t *testing.T) {
	cases := []string{
		"",
		"ok",
		"/status",
		"payload with spaces and ünicode ✓",
		"embedded\x00null",
	}
	for _, want := range cases {
		enc := NewEncoder()
		enc.String(want)
		dec, err := NewDecoder(enc.Bytes())
		if err != nil {
			t.Fatalf("NewDecoder(%q): %v", want, err)
		}
		got, err := dec.String()
		if err != nil {
			t.Fatalf("String(%q): %v", want, err)
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("round trip mismatch (-want +got):\n%s", diff)
		}
	}
}

func TestAlignment(t *testing.T) {
	enc := NewEncoder()
	enc.Uint8(7)
	enc.Uint32(1234)
	enc.Uint8(9)
	enc.Uint64(1 << 40)
	enc.String("x")

	dec, err := NewDecoder(enc.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	if v, err := dec.Uint8(); err != nil || v != 7 {
		t.Fatalf("Uint8 = %d, %v", v, err)
	}
	if v, err := dec.Uint32(); err != nil || v != 1234 {
		t.Fatalf("Uint32 = %d, %v", v, err)
	}
	if v, err := dec.Uint8(); err != nil || v != 9 {
		t.Fatalf("Uint8 = %d, %v", v, err)
	}
	if v, err := dec.Uint64(); err != nil || v != 1<<40 {
		t.Fatalf("Uint64 = %d, %v", v, err)
	}
	if v, err := dec.String(); err != nil || v != "x" {
		t.Fatalf("String = %q, %v", v, err)
	}
	if dec.Remaining() != 0 {
		t.Fatalf("Remaining = %d, want 0", dec.Remaining())
	}
}

func TestBigEndianDecode(t *testing.T) {
	// Hand-built CDR_BE body: string "hi" with length 3 including NUL.
	payload := []byte{
		0x00, 0x00, 0x00, 0x00, // encapsulation CDR_BE
		0x00, 0x00, 0x00, 0x03,
		'h', 'i', 0x00,
	}
	dec, err := NewDecoder(payload)
	if err != nil {
		t.Fatal(err)
	}
	got, err := dec.String()
	if err != nil {
		t.Fatal(err)
	}
	if got != "hi" {
		t.Fatalf("String = %q, want %q", got, "hi")
	}
}

func TestDecodeErrors(t *testing.T) {
	if _, err := NewDecoder([]byte{0x00}); !errors.Is(err, ErrShortBuffer) {
		t.Errorf("short header: got %v, want ErrShortBuffer", err)
	}
	if _, err := NewDecoder([]byte{0xff, 0xff, 0x00, 0x00}); !errors.Is(err, ErrUnknownEncapsulation) {
		t.Errorf("bad encapsulation: got %v, want ErrUnknownEncapsulation", err)
	}
	dec, err := NewDecoder([]byte{0x00, 0x01, 0x00, 0x00, 0x05, 0x00, 0x00, 0x00})
	if err != nil {
		t.Fatal(err)
	}
	// Declared string length exceeds the body.
	if _, err := dec.String(); !errors.Is(err, ErrShortBuffer) {
		t.Errorf("truncated string: got %v, want ErrShortBuffer", err)
	}
}
