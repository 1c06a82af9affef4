package serde

import "math/bits"

// Widths of the fixed size primitives
const (
	SizeInt8  = 1
	SizeInt16 = 2
	SizeInt32 = 4
	SizeInt64 = 8
	SizeBool  = 1
	SizeUUID  = 16
)

// UvarintSize returns the number of bytes PutUvarint writes for v
func UvarintSize(v uint64) int {
	return (bits.Len64(v|1) + 6) / 7
}

// VarintSize returns the number of bytes PutVarint writes for v
func VarintSize(v int64) int {
	u := uint64(v) << 1
	if v < 0 {
		u = ^u
	}
	return UvarintSize(u)
}

// StringSize returns the encoded size of an int16 length prefixed string
func StringSize(s string) int {
	return SizeInt16 + len(s)
}

// NullableStringSize returns the encoded size of a nullable int16 length prefixed string
func NullableStringSize(s *string) int {
	if s == nil {
		return SizeInt16
	}
	return StringSize(*s)
}

// CompactStringSize returns the encoded size of a compact string
func CompactStringSize(s string) int {
	return UvarintSize(uint64(len(s))+1) + len(s)
}

// CompactNullableStringSize returns the encoded size of a compact nullable string
func CompactNullableStringSize(s *string) int {
	if s == nil {
		return 1
	}
	return CompactStringSize(*s)
}

// CompactBytesSize returns the encoded size of a compact byte blob
func CompactBytesSize(b []byte) int {
	if b == nil {
		return 1
	}
	return UvarintSize(uint64(len(b))+1) + len(b)
}

// CompactArrayLenSize returns the encoded size of a compact array length
func CompactArrayLenSize(l int) int {
	if l < 0 {
		return 1
	}
	return UvarintSize(uint64(l) + 1)
}
