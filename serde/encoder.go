package serde

import (
	"encoding/binary"

	"github.com/google/uuid"
)

// Encoding is Big Endian as per the protocol
var Encoding = binary.BigEndian

// InitialBufferSize is the capacity a new Encoder starts with
const InitialBufferSize = 1024

// Encoder appends wire encoded values to a byte slice
type Encoder struct {
	b []byte
}

// NewEncoder creates a new Encoder with an initial buffer
func NewEncoder() Encoder {
	return Encoder{b: make([]byte, 0, InitialBufferSize)}
}

// NewSizedEncoder creates an Encoder whose buffer already fits `size` bytes
func NewSizedEncoder(size int) Encoder {
	return Encoder{b: make([]byte, 0, size)}
}

// PutInt8 encodes an int8 value into the buffer
func (e *Encoder) PutInt8(i int8) {
	e.b = append(e.b, byte(i))
}

// PutUInt8 encodes a uint8 value into the buffer
func (e *Encoder) PutUInt8(i uint8) {
	e.b = append(e.b, i)
}

// PutInt16 encodes an int16 value into the buffer
func (e *Encoder) PutInt16(i int16) {
	e.b = Encoding.AppendUint16(e.b, uint16(i))
}

// PutInt32 encodes an int32 value into the buffer
func (e *Encoder) PutInt32(i int32) {
	e.b = Encoding.AppendUint32(e.b, uint32(i))
}

// PutInt64 encodes an int64 value into the buffer
func (e *Encoder) PutInt64(i int64) {
	e.b = Encoding.AppendUint64(e.b, uint64(i))
}

// PutBool encodes a boolean value into the buffer
func (e *Encoder) PutBool(b bool) {
	if b {
		e.b = append(e.b, 1)
		return
	}
	e.b = append(e.b, 0)
}

// PutUvarint encodes an unsigned varint
func (e *Encoder) PutUvarint(v uint64) {
	e.b = binary.AppendUvarint(e.b, v)
}

// PutVarint encodes a zigzag signed varint
func (e *Encoder) PutVarint(v int64) {
	e.b = binary.AppendVarint(e.b, v)
}

// PutUUID writes the 16 raw bytes of a UUID
func (e *Encoder) PutUUID(id uuid.UUID) {
	e.b = append(e.b, id[:]...)
}

// PutString encodes a string with an int16 length
func (e *Encoder) PutString(s string) {
	e.PutInt16(int16(len(s)))
	e.b = append(e.b, s...)
}

// PutNullableString encodes a string with an int16 length, nil being -1
func (e *Encoder) PutNullableString(s *string) {
	if s == nil {
		e.PutInt16(-1)
		return
	}
	e.PutString(*s)
}

// PutCompactString encodes a string with a uvarint length+1
func (e *Encoder) PutCompactString(s string) {
	e.PutUvarint(uint64(len(s)) + 1)
	e.b = append(e.b, s...)
}

// PutCompactNullableString encodes a compact string, nil being 0
func (e *Encoder) PutCompactNullableString(s *string) {
	if s == nil {
		e.PutUvarint(0)
		return
	}
	e.PutCompactString(*s)
}

// PutBytes appends raw bytes without any length
func (e *Encoder) PutBytes(b []byte) {
	e.b = append(e.b, b...)
}

// PutCompactBytes encodes a byte blob with a uvarint length+1, nil being 0
func (e *Encoder) PutCompactBytes(b []byte) {
	if b == nil {
		e.PutUvarint(0)
		return
	}
	e.PutUvarint(uint64(len(b)) + 1)
	e.b = append(e.b, b...)
}

// PutCompactArrayLen encodes the length of a compact array. Negative lengths mean null.
func (e *Encoder) PutCompactArrayLen(l int) {
	if l < 0 {
		e.PutUvarint(0)
		return
	}
	e.PutUvarint(uint64(l) + 1)
}

// PutArrayLen encodes the int32 length of a legacy array. Negative lengths mean null.
func (e *Encoder) PutArrayLen(l int) {
	if l < 0 {
		l = -1
	}
	e.PutInt32(int32(l))
}

// EndStruct writes an empty tagged field section (KIP-482)
func (e *Encoder) EndStruct() {
	e.b = append(e.b, 0)
}

// Len returns the number of bytes encoded so far
func (e *Encoder) Len() int {
	return len(e.b)
}

// Bytes returns the encoded data as a byte slice
func (e *Encoder) Bytes() []byte {
	return e.b
}
