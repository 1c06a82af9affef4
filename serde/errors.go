package serde

import (
	"errors"
	"fmt"
)

// ErrMalformed is wrapped by every decoding error. Input that fails to decode
// cannot be resynchronized, so callers drop the whole frame or segment.
var ErrMalformed = errors.New("malformed input")

var (
	ErrTruncated      = fmt.Errorf("%w: truncated", ErrMalformed)
	ErrVarintOverflow = fmt.Errorf("%w: varint overflows 64 bits", ErrMalformed)
	ErrInvalidUTF8    = fmt.Errorf("%w: invalid UTF-8 string", ErrMalformed)
	ErrInvalidLength  = fmt.Errorf("%w: invalid length", ErrMalformed)
)
