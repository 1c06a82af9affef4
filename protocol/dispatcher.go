package protocol

import "github.com/CefBoud/kafkalite/types"

// https://kafka.apache.org/protocol#protocol_api_keys
const (
	FetchKey                   = int16(1)
	APIVersionsKey             = int16(18)
	DescribeTopicPartitionsKey = int16(75)
)

// APIKeyHandler represents a kafka api key with its handler
type APIKeyHandler struct {
	Name    string
	Handler func(req types.Request) (Response, error)
}

// APIDispatcher maps the Request key to its handler. Unknown keys get an
// empty APIKeyHandler.
func (b *Broker) APIDispatcher(requestAPIKey int16) APIKeyHandler {
	switch requestAPIKey {
	case FetchKey:
		return APIKeyHandler{Name: "Fetch", Handler: b.getFetchResponse}
	case APIVersionsKey:
		return APIKeyHandler{Name: "ApiVersions", Handler: b.getAPIVersionsResponse}
	case DescribeTopicPartitionsKey:
		return APIKeyHandler{Name: "DescribeTopicPartitions", Handler: b.getDescribeTopicPartitionsResponse}
	default:
		return APIKeyHandler{}
	}
}
