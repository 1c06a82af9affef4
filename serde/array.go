package serde

import "github.com/google/uuid"

// Arrays come in three count conventions:
//   - compact: uvarint count+1, 0 is null (protocol arrays, flexible versions)
//   - signed: zigzag varint count, negative is null (record keys and headers)
//   - legacy: int32 count, -1 is null (non flexible versions, record batch counts)
// A nil slice encodes as null and a non-nil empty slice as an empty array.

func arrayLen[T any](items []T) int {
	if items == nil {
		return -1
	}
	return len(items)
}

// PutCompactArray encodes items as a compact array
func PutCompactArray[T any](e *Encoder, items []T, put func(*Encoder, T)) {
	e.PutCompactArrayLen(arrayLen(items))
	for _, item := range items {
		put(e, item)
	}
}

// CompactArray decodes a compact array. Null arrays decode to nil.
func CompactArray[T any](d *Decoder, get func(*Decoder) T) []T {
	return readArray(d, d.CompactArrayLen(), get)
}

// CompactArraySize returns the encoded size of a compact array
func CompactArraySize[T any](items []T, size func(T) int) int {
	n := CompactArrayLenSize(arrayLen(items))
	for _, item := range items {
		n += size(item)
	}
	return n
}

// PutSignedArray encodes items with a zigzag varint count
func PutSignedArray[T any](e *Encoder, items []T, put func(*Encoder, T)) {
	e.PutVarint(int64(arrayLen(items)))
	for _, item := range items {
		put(e, item)
	}
}

// SignedArray decodes an array with a zigzag varint count. Negative counts decode to nil.
func SignedArray[T any](d *Decoder, get func(*Decoder) T) []T {
	return readArray(d, d.SignedArrayLen(), get)
}

// SignedArraySize returns the encoded size of an array with a zigzag varint count
func SignedArraySize[T any](items []T, size func(T) int) int {
	n := VarintSize(int64(arrayLen(items)))
	for _, item := range items {
		n += size(item)
	}
	return n
}

// PutArray encodes items as a legacy array with an int32 count
func PutArray[T any](e *Encoder, items []T, put func(*Encoder, T)) {
	e.PutArrayLen(arrayLen(items))
	for _, item := range items {
		put(e, item)
	}
}

// Array decodes a legacy array with an int32 count. Null arrays decode to nil.
func Array[T any](d *Decoder, get func(*Decoder) T) []T {
	return readArray(d, d.ArrayLen(), get)
}

// ArraySize returns the encoded size of a legacy array
func ArraySize[T any](items []T, size func(T) int) int {
	n := SizeInt32
	for _, item := range items {
		n += size(item)
	}
	return n
}

func readArray[T any](d *Decoder, n int, get func(*Decoder) T) []T {
	if n < 0 || d.Err() != nil {
		return nil
	}
	items := make([]T, 0, n)
	for i := 0; i < n && d.Err() == nil; i++ {
		items = append(items, get(d))
	}
	if d.Err() != nil {
		return nil
	}
	return items
}

// Element codecs for the arrays above.

// PutInt32Element encodes an int32 array element
func PutInt32Element(e *Encoder, v int32) { e.PutInt32(v) }

// Int32Element decodes an int32 array element
func Int32Element(d *Decoder) int32 { return d.Int32() }

// Int32ElementSize is the encoded size of an int32 array element
func Int32ElementSize(int32) int { return SizeInt32 }

// PutUInt8Element encodes a byte array element
func PutUInt8Element(e *Encoder, v uint8) { e.PutUInt8(v) }

// UInt8Element decodes a byte array element
func UInt8Element(d *Decoder) uint8 { return d.UInt8() }

// UInt8ElementSize is the encoded size of a byte array element
func UInt8ElementSize(uint8) int { return SizeInt8 }

// PutUUIDElement encodes a UUID array element
func PutUUIDElement(e *Encoder, v uuid.UUID) { e.PutUUID(v) }

// UUIDElement decodes a UUID array element
func UUIDElement(d *Decoder) uuid.UUID { return d.UUID() }

// UUIDElementSize is the encoded size of a UUID array element
func UUIDElementSize(uuid.UUID) int { return SizeUUID }
