package protocol

import (
	"fmt"

	log "github.com/CefBoud/kafkalite/logging"
	"github.com/CefBoud/kafkalite/serde"
	"github.com/CefBoud/kafkalite/types"
)

// APIVersionsRequest is the body of an ApiVersions request (v3+, empty before)
type APIVersionsRequest struct {
	ClientSoftwareName    string
	ClientSoftwareVersion string
	TaggedFields          serde.TaggedFields
}

// APIVersionsResponse represents the response for API versions request.
// Version selects the layout: v0 legacy array, v1-2 adds throttle time,
// v3+ compact array with tagged fields.
type APIVersionsResponse struct {
	Header         ResponseHeader
	Version        int16
	ErrorCode      int16
	APIKeys        []APIVersion
	ThrottleTimeMs int32
	TaggedFields   serde.TaggedFields
}

func (r *APIVersionsResponse) flexible() bool {
	return r.Version >= 3
}

func putAPIVersion(e *serde.Encoder, v APIVersion) {
	e.PutInt16(v.APIKey)
	e.PutInt16(v.MinVersion)
	e.PutInt16(v.MaxVersion)
}

// Encode implements Response
func (r *APIVersionsResponse) Encode(e *serde.Encoder) {
	r.Header.Encode(e)
	e.PutInt16(r.ErrorCode)
	if r.flexible() {
		serde.PutCompactArray(e, r.APIKeys, func(e *serde.Encoder, v APIVersion) {
			putAPIVersion(e, v)
			e.EndStruct()
		})
	} else {
		serde.PutArray(e, r.APIKeys, putAPIVersion)
	}
	if r.Version >= 1 {
		e.PutInt32(r.ThrottleTimeMs)
	}
	if r.flexible() {
		r.TaggedFields.Encode(e)
	}
}

// Size implements Response
func (r *APIVersionsResponse) Size() int {
	n := r.Header.Size() + serde.SizeInt16
	if r.flexible() {
		n += serde.CompactArraySize(r.APIKeys, func(APIVersion) int { return 3*serde.SizeInt16 + 1 })
	} else {
		n += serde.ArraySize(r.APIKeys, func(APIVersion) int { return 3 * serde.SizeInt16 })
	}
	if r.Version >= 1 {
		n += serde.SizeInt32
	}
	if r.flexible() {
		n += r.TaggedFields.Size()
	}
	return n
}

func (r *APIVersionsResponse) header() *ResponseHeader {
	return &r.Header
}

// APIVersions (Api key = 18)
func (b *Broker) getAPIVersionsResponse(req types.Request) (Response, error) {
	versions, err := b.Versions.APIVersions()
	if err != nil {
		return nil, fmt.Errorf("loading api versions: %w", err)
	}
	response := &APIVersionsResponse{
		Header:    ResponseHeader{CorrelationID: req.CorrelationID},
		Version:   req.RequestAPIVersion,
		ErrorCode: ErrNone,
		APIKeys:   versions,
	}

	supported, ok := versions.Lookup(APIVersionsKey)
	if !ok || !supported.Supports(req.RequestAPIVersion) {
		log.Debug("ApiVersions v%d is not supported, answering with v0", req.RequestAPIVersion)
		// like Kafka brokers, answer unsupported versions with the v0 layout every client can read
		response.Version = 0
		response.ErrorCode = ErrUnsupportedVersion.Code
		return response, nil
	}

	if req.RequestAPIVersion >= 3 {
		var request APIVersionsRequest
		err := decodeBody(req, func(d *serde.Decoder) {
			request.ClientSoftwareName = d.CompactString()
			request.ClientSoftwareVersion = d.CompactString()
			request.TaggedFields = d.TaggedFields()
		})
		if err != nil {
			return nil, err
		}
		log.Debug("ApiVersions from %s %s at %s", request.ClientSoftwareName, request.ClientSoftwareVersion, req.ConnectionAddress)
	}
	return response, nil
}
