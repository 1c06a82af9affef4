package types

// Request is the TCP request sent by Kafka clients, header decoded
type Request struct {
	Length            int32
	RequestAPIKey     int16
	RequestAPIVersion int16
	CorrelationID     int32
	ClientID          *string
	ConnectionAddress string
	Body              []byte
}
