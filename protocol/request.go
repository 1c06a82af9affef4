package protocol

import (
	"errors"
	"fmt"

	"github.com/CefBoud/kafkalite/serde"
	"github.com/CefBoud/kafkalite/types"
)

// ErrMalformedRequest is returned for frames that cannot be decoded. The
// connection that sent them is closed rather than answered.
var ErrMalformedRequest = errors.New("malformed request")

func malformed(err error) error {
	return fmt.Errorf("%w: %w", ErrMalformedRequest, err)
}

// flexibleRequestHeader reports whether a request uses header v2 (v1 plus tagged fields)
func flexibleRequestHeader(apiKey int16, apiVersion int16) bool {
	switch apiKey {
	case APIVersionsKey:
		return apiVersion >= 3
	case FetchKey:
		return apiVersion >= 12
	case DescribeTopicPartitionsKey:
		return true
	}
	return false
}

// flexibleResponseHeader reports whether a response uses header v1 (correlation id plus tagged fields).
// ApiVersions always answers with header v0 so that clients can parse it before negotiating.
func flexibleResponseHeader(apiKey int16, apiVersion int16) bool {
	if apiKey == APIVersionsKey {
		return false
	}
	return flexibleRequestHeader(apiKey, apiVersion)
}

// ParseRequest decodes the size prefix and request header of a frame. The
// remaining bytes are left undecoded in Body.
func ParseRequest(frame []byte, connAddr string) (types.Request, error) {
	d := serde.NewDecoder(frame)
	req := types.Request{
		Length:            d.Int32(),
		RequestAPIKey:     d.Int16(),
		RequestAPIVersion: d.Int16(),
		CorrelationID:     d.Int32(),
		ConnectionAddress: connAddr,
	}
	req.ClientID = d.NullableString()
	if flexibleRequestHeader(req.RequestAPIKey, req.RequestAPIVersion) {
		d.EndStruct()
	}
	if err := d.Err(); err != nil {
		return req, malformed(err)
	}
	if int(req.Length) != len(frame)-serde.SizeInt32 {
		return req, malformed(fmt.Errorf("%w: frame declares %d bytes, has %d", serde.ErrInvalidLength, req.Length, len(frame)-serde.SizeInt32))
	}
	req.Body = d.GetRemainingBytes()
	return req, nil
}

// decodeBody runs decode over the request body and reports a malformed request on failure
func decodeBody(req types.Request, decode func(d *serde.Decoder)) error {
	d := serde.NewDecoder(req.Body)
	decode(&d)
	if err := d.Err(); err != nil {
		return malformed(err)
	}
	return nil
}
