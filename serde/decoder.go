package serde

import (
	"encoding/binary"
	"fmt"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Decoder reads wire encoded values from a byte slice. The first failure is
// kept in Err and every later read returns a zero value.
type Decoder struct {
	b      []byte
	Offset int
	err    error
}

// NewDecoder creates a new Decoder from a byte slice
func NewDecoder(b []byte) Decoder {
	return Decoder{b: b}
}

// Err returns the first error hit while decoding, if any
func (d *Decoder) Err() error {
	return d.err
}

// Fail records err unless an earlier error is already recorded
func (d *Decoder) Fail(err error) {
	if d.err == nil {
		d.err = fmt.Errorf("offset %d: %w", d.Offset, err)
	}
}

// Remaining returns the number of bytes left to decode
func (d *Decoder) Remaining() int {
	return len(d.b) - d.Offset
}

// take returns the next n bytes and advances the offset
func (d *Decoder) take(n int) []byte {
	if d.err != nil {
		return nil
	}
	if n < 0 {
		d.Fail(ErrInvalidLength)
		return nil
	}
	if n > d.Remaining() {
		d.Fail(ErrTruncated)
		return nil
	}
	res := d.b[d.Offset : d.Offset+n]
	d.Offset += n
	return res
}

// Int8 decodes an int8 value from the buffer
func (d *Decoder) Int8() int8 {
	return int8(d.UInt8())
}

// UInt8 decodes a uint8 value from the buffer
func (d *Decoder) UInt8() uint8 {
	b := d.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

// Int16 decodes an int16 value from the buffer
func (d *Decoder) Int16() int16 {
	b := d.take(2)
	if b == nil {
		return 0
	}
	return int16(Encoding.Uint16(b))
}

// Int32 decodes an int32 value from the buffer
func (d *Decoder) Int32() int32 {
	b := d.take(4)
	if b == nil {
		return 0
	}
	return int32(Encoding.Uint32(b))
}

// Int64 decodes an int64 value from the buffer
func (d *Decoder) Int64() int64 {
	b := d.take(8)
	if b == nil {
		return 0
	}
	return int64(Encoding.Uint64(b))
}

// Bool decodes a boolean value from the buffer
func (d *Decoder) Bool() bool {
	return d.UInt8() != 0
}

// Uvarint decodes an unsigned varint
func (d *Decoder) Uvarint() uint64 {
	if d.err != nil {
		return 0
	}
	v, n := binary.Uvarint(d.b[d.Offset:])
	switch {
	case n == 0:
		d.Fail(ErrTruncated)
		return 0
	case n < 0:
		d.Fail(ErrVarintOverflow)
		return 0
	}
	d.Offset += n
	return v
}

// Varint decodes a zigzag signed varint
func (d *Decoder) Varint() int64 {
	if d.err != nil {
		return 0
	}
	v, n := binary.Varint(d.b[d.Offset:])
	switch {
	case n == 0:
		d.Fail(ErrTruncated)
		return 0
	case n < 0:
		d.Fail(ErrVarintOverflow)
		return 0
	}
	d.Offset += n
	return v
}

// UUID decodes a 16-byte UUID from the buffer
func (d *Decoder) UUID() uuid.UUID {
	var id uuid.UUID
	copy(id[:], d.take(16))
	return id
}

func (d *Decoder) str(n int) string {
	b := d.take(n)
	if b == nil {
		return ""
	}
	if !utf8.Valid(b) {
		d.Fail(ErrInvalidUTF8)
		return ""
	}
	return string(b)
}

// String decodes a string with an int16 length
func (d *Decoder) String() string {
	n := d.Int16()
	if n < 0 {
		d.Fail(ErrInvalidLength)
		return ""
	}
	return d.str(int(n))
}

// NullableString decodes a string with an int16 length, -1 being nil
func (d *Decoder) NullableString() *string {
	n := d.Int16()
	if n < 0 || d.err != nil {
		return nil
	}
	s := d.str(int(n))
	return &s
}

// CompactString decodes a string with a uvarint length+1
func (d *Decoder) CompactString() string {
	s := d.CompactNullableString()
	if s == nil {
		return ""
	}
	return *s
}

// CompactNullableString decodes a compact string, 0 being nil
func (d *Decoder) CompactNullableString() *string {
	n := d.CompactArrayLen()
	if n < 0 || d.err != nil {
		return nil
	}
	s := d.str(n)
	return &s
}

// GetNBytes decodes `n` bytes from the buffer
func (d *Decoder) GetNBytes(n int) []byte {
	return d.take(n)
}

// GetRemainingBytes returns every byte not decoded yet
func (d *Decoder) GetRemainingBytes() []byte {
	return d.take(d.Remaining())
}

// CompactBytes decodes a byte blob with a uvarint length+1, 0 being nil
func (d *Decoder) CompactBytes() []byte {
	n := d.CompactArrayLen()
	if n < 0 {
		return nil
	}
	b := d.take(n)
	if b == nil {
		return nil
	}
	return b
}

// CompactArrayLen decodes the length of a compact array. Null arrays return -1.
func (d *Decoder) CompactArrayLen() int {
	n := d.Uvarint()
	if n == 0 || d.err != nil {
		return -1
	}
	if n-1 > uint64(d.Remaining()) {
		// every element takes at least one byte
		d.Fail(ErrTruncated)
		return -1
	}
	return int(n - 1)
}

// SignedArrayLen decodes a signed varint length. Negative lengths return -1.
func (d *Decoder) SignedArrayLen() int {
	n := d.Varint()
	if n < 0 || d.err != nil {
		return -1
	}
	if n > int64(d.Remaining()) {
		d.Fail(ErrTruncated)
		return -1
	}
	return int(n)
}

// ArrayLen decodes the int32 length of a legacy array. Null arrays return -1.
func (d *Decoder) ArrayLen() int {
	n := d.Int32()
	if n < 0 || d.err != nil {
		return -1
	}
	if int64(n) > int64(d.Remaining()) {
		d.Fail(ErrTruncated)
		return -1
	}
	return int(n)
}

// EndStruct consumes the tagged field section closing a structure (KIP-482)
func (d *Decoder) EndStruct() {
	d.TaggedFields()
}
