package protocol

import (
	"github.com/CefBoud/kafkalite/serde"
)

// sizeFieldWidth is the width of the size prefix, which does not count itself
const sizeFieldWidth = serde.SizeInt32

// ResponseHeader is response header v0, or v1 when Flexible is set
type ResponseHeader struct {
	MessageSize   int32
	CorrelationID int32
	Flexible      bool
	TaggedFields  serde.TaggedFields
}

// Encode writes the size prefix followed by the header
func (h ResponseHeader) Encode(e *serde.Encoder) {
	e.PutInt32(h.MessageSize)
	e.PutInt32(h.CorrelationID)
	if h.Flexible {
		h.TaggedFields.Encode(e)
	}
}

// Size returns the encoded size of the size prefix and header
func (h ResponseHeader) Size() int {
	n := sizeFieldWidth + serde.SizeInt32
	if h.Flexible {
		n += h.TaggedFields.Size()
	}
	return n
}

// Response is a complete response frame, size prefix included
type Response interface {
	Encode(e *serde.Encoder)
	Size() int
	header() *ResponseHeader
}

// Finalize patches the size prefix of a fully built response and encodes it.
// The size prefix counts every byte after itself.
func Finalize(r Response) []byte {
	size := r.Size()
	r.header().MessageSize = int32(size - sizeFieldWidth)
	e := serde.NewSizedEncoder(size)
	r.Encode(&e)
	return e.Bytes()
}

// ErrorResponse is the minimal frame sent when a request cannot be answered
// by its handler: the correlation id and an error code.
type ErrorResponse struct {
	Header    ResponseHeader
	ErrorCode int16
}

func newErrorResponse(correlationID int32, errorCode int16) *ErrorResponse {
	return &ErrorResponse{
		Header:    ResponseHeader{CorrelationID: correlationID},
		ErrorCode: errorCode,
	}
}

// Encode implements Response
func (r *ErrorResponse) Encode(e *serde.Encoder) {
	r.Header.Encode(e)
	e.PutInt16(r.ErrorCode)
}

// Size implements Response
func (r *ErrorResponse) Size() int {
	return r.Header.Size() + serde.SizeInt16
}

func (r *ErrorResponse) header() *ResponseHeader {
	return &r.Header
}
