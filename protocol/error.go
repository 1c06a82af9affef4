package protocol

import (
	"github.com/twmb/franz-go/pkg/kerr"
)

// https://kafka.apache.org/protocol#protocol_error_codes

// ErrNone is the error code of a successful response
const ErrNone = int16(0)

// Errors answered by this broker
var (
	ErrUnknownServerError      = kerr.UnknownServerError
	ErrUnknownTopicOrPartition = kerr.UnknownTopicOrPartition
	ErrUnsupportedVersion      = kerr.UnsupportedVersion
	ErrKafkaStorageError       = kerr.KafkaStorageError
	ErrUnknownTopicID          = kerr.UnknownTopicID
)

// ErrorName returns the protocol name of an error code, for logging
func ErrorName(code int16) string {
	if code == ErrNone {
		return "NONE"
	}
	// unknown codes map to UNKNOWN_SERVER_ERROR in kerr
	if err, ok := kerr.ErrorForCode(code).(*kerr.Error); ok && err.Code == code {
		return err.Message
	}
	return "UNKNOWN"
}
