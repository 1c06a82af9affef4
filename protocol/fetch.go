package protocol

import (
	"github.com/google/uuid"

	log "github.com/CefBoud/kafkalite/logging"
	"github.com/CefBoud/kafkalite/serde"
	"github.com/CefBoud/kafkalite/storage"
	"github.com/CefBoud/kafkalite/types"
)

// Fetch versions keyed by topic id
const (
	minFetchVersion = 13
	maxFetchVersion = 16
)

var fetchVersions = APIVersion{APIKey: FetchKey, MinVersion: minFetchVersion, MaxVersion: maxFetchVersion}

// FetchRequest represents the details of a FetchRequest (Version: 13-16).
type FetchRequest struct {
	ReplicaID       int32 // v13-14 only, moved to a tagged field in v15
	MaxWaitMs       int32
	MinBytes        int32
	MaxBytes        int32
	IsolationLevel  int8
	SessionID       int32
	SessionEpoch    int32
	Topics          []FetchRequestTopic
	ForgottenTopics []FetchRequestForgottenTopic
	RackID          string
	TaggedFields    serde.TaggedFields
}

// FetchRequestTopic represents the topic-level data in a FetchRequest.
type FetchRequestTopic struct {
	TopicID    uuid.UUID
	Partitions []FetchRequestPartition
}

// FetchRequestPartition represents the partition-level data in a FetchRequest.
type FetchRequestPartition struct {
	PartitionIndex     int32
	CurrentLeaderEpoch int32
	FetchOffset        int64
	LastFetchedEpoch   int32
	LogStartOffset     int64
	PartitionMaxBytes  int32
}

// FetchRequestForgottenTopic represents the forgotten topic data in a FetchRequest.
type FetchRequestForgottenTopic struct {
	TopicID    uuid.UUID
	Partitions []int32
}

// FetchResponse represents the response to a fetch request.
type FetchResponse struct {
	Header         ResponseHeader
	ThrottleTimeMs int32
	ErrorCode      int16
	SessionID      int32
	Responses      []FetchTopicResponse
	TaggedFields   serde.TaggedFields
}

// FetchTopicResponse represents the response for a topic in a fetch request.
type FetchTopicResponse struct {
	TopicID    uuid.UUID
	Partitions []FetchPartitionResponse
}

// FetchPartitionResponse represents the response for a partition in a fetch request.
type FetchPartitionResponse struct {
	PartitionIndex       int32
	ErrorCode            int16
	HighWatermark        int64
	LastStableOffset     int64
	LogStartOffset       int64
	AbortedTransactions  []AbortedTransaction
	PreferredReadReplica int32
	Records              []byte // raw record batches, nil when there are none
}

// AbortedTransaction represents an aborted transaction in the fetch response.
type AbortedTransaction struct {
	ProducerID  int64
	FirstOffset int64
}

// Decode reads a fetch request body of the given version
func (r *FetchRequest) Decode(d *serde.Decoder, version int16) {
	if version < 15 {
		r.ReplicaID = d.Int32()
	}
	r.MaxWaitMs = d.Int32()
	r.MinBytes = d.Int32()
	r.MaxBytes = d.Int32()
	r.IsolationLevel = d.Int8()
	r.SessionID = d.Int32()
	r.SessionEpoch = d.Int32()
	r.Topics = serde.CompactArray(d, func(d *serde.Decoder) FetchRequestTopic {
		topic := FetchRequestTopic{TopicID: d.UUID()}
		topic.Partitions = serde.CompactArray(d, func(d *serde.Decoder) FetchRequestPartition {
			p := FetchRequestPartition{
				PartitionIndex:     d.Int32(),
				CurrentLeaderEpoch: d.Int32(),
				FetchOffset:        d.Int64(),
				LastFetchedEpoch:   d.Int32(),
				LogStartOffset:     d.Int64(),
				PartitionMaxBytes:  d.Int32(),
			}
			d.EndStruct()
			return p
		})
		d.EndStruct()
		return topic
	})
	r.ForgottenTopics = serde.CompactArray(d, func(d *serde.Decoder) FetchRequestForgottenTopic {
		topic := FetchRequestForgottenTopic{
			TopicID:    d.UUID(),
			Partitions: serde.CompactArray(d, serde.Int32Element),
		}
		d.EndStruct()
		return topic
	})
	r.RackID = d.CompactString()
	r.TaggedFields = d.TaggedFields()
}

func putAbortedTransaction(e *serde.Encoder, t AbortedTransaction) {
	e.PutInt64(t.ProducerID)
	e.PutInt64(t.FirstOffset)
	e.EndStruct()
}

func abortedTransactionSize(AbortedTransaction) int {
	return 2*serde.SizeInt64 + 1
}

func (p FetchPartitionResponse) encode(e *serde.Encoder) {
	e.PutInt32(p.PartitionIndex)
	e.PutInt16(p.ErrorCode)
	e.PutInt64(p.HighWatermark)
	e.PutInt64(p.LastStableOffset)
	e.PutInt64(p.LogStartOffset)
	serde.PutCompactArray(e, p.AbortedTransactions, putAbortedTransaction)
	e.PutInt32(p.PreferredReadReplica)
	e.PutCompactBytes(p.Records)
	e.EndStruct()
}

func (p FetchPartitionResponse) size() int {
	return serde.SizeInt32 + serde.SizeInt16 + 3*serde.SizeInt64 +
		serde.CompactArraySize(p.AbortedTransactions, abortedTransactionSize) +
		serde.SizeInt32 +
		serde.CompactBytesSize(p.Records) +
		1
}

func (t FetchTopicResponse) encode(e *serde.Encoder) {
	e.PutUUID(t.TopicID)
	serde.PutCompactArray(e, t.Partitions, func(e *serde.Encoder, p FetchPartitionResponse) { p.encode(e) })
	e.EndStruct()
}

func (t FetchTopicResponse) size() int {
	return serde.SizeUUID + serde.CompactArraySize(t.Partitions, FetchPartitionResponse.size) + 1
}

// Encode implements Response
func (r *FetchResponse) Encode(e *serde.Encoder) {
	r.Header.Encode(e)
	e.PutInt32(r.ThrottleTimeMs)
	e.PutInt16(r.ErrorCode)
	e.PutInt32(r.SessionID)
	serde.PutCompactArray(e, r.Responses, func(e *serde.Encoder, t FetchTopicResponse) { t.encode(e) })
	r.TaggedFields.Encode(e)
}

// Size implements Response
func (r *FetchResponse) Size() int {
	return r.Header.Size() + serde.SizeInt32 + serde.SizeInt16 + serde.SizeInt32 +
		serde.CompactArraySize(r.Responses, FetchTopicResponse.size) +
		r.TaggedFields.Size()
}

func (r *FetchResponse) header() *ResponseHeader {
	return &r.Header
}

// Fetch (Api key = 1)
func (b *Broker) getFetchResponse(req types.Request) (Response, error) {
	if err := b.checkVersion(req, fetchVersions); err != nil {
		return nil, err
	}
	fetchRequest := &FetchRequest{}
	err := decodeBody(req, func(d *serde.Decoder) { fetchRequest.Decode(d, req.RequestAPIVersion) })
	if err != nil {
		return nil, err
	}
	log.Debug("fetchRequest %+v", fetchRequest)

	index, err := b.loadIndex()
	if err != nil {
		return nil, err
	}

	response := &FetchResponse{
		Header:    ResponseHeader{CorrelationID: req.CorrelationID, Flexible: flexibleResponseHeader(req.RequestAPIKey, req.RequestAPIVersion)},
		ErrorCode: ErrNone,
		SessionID: fetchRequest.SessionID,
		Responses: make([]FetchTopicResponse, 0, len(fetchRequest.Topics)),
	}
	for _, tp := range fetchRequest.Topics {
		fetchTopicResponse := FetchTopicResponse{
			TopicID:    tp.TopicID,
			Partitions: make([]FetchPartitionResponse, 0, len(tp.Partitions)),
		}
		name, known := index.TopicName(tp.TopicID)
		for _, p := range tp.Partitions {
			var partition FetchPartitionResponse
			if known {
				topic, _ := index.Topic(name)
				partition = b.fetchPartition(topic, p.PartitionIndex)
			} else {
				partition = unknownTopicPartition(p.PartitionIndex)
			}
			fetchTopicResponse.Partitions = append(fetchTopicResponse.Partitions, partition)
		}
		response.Responses = append(response.Responses, fetchTopicResponse)
	}
	return response, nil
}

func emptyPartitionResponse(partitionIndex int32, errorCode int16) FetchPartitionResponse {
	return FetchPartitionResponse{
		PartitionIndex:       partitionIndex,
		ErrorCode:            errorCode,
		AbortedTransactions:  []AbortedTransaction{},
		PreferredReadReplica: -1,
	}
}

func unknownTopicPartition(partitionIndex int32) FetchPartitionResponse {
	return emptyPartitionResponse(partitionIndex, ErrUnknownTopicID.Code)
}

// fetchPartition returns the whole first segment of a partition as an opaque record set
func (b *Broker) fetchPartition(topic types.TopicMetadata, partitionIndex int32) FetchPartitionResponse {
	if partitionIndex < 0 || int(partitionIndex) >= len(topic.Partitions) {
		log.Debug("%v has no partition %d, answering %s", topic.Name, partitionIndex, ErrorName(ErrUnknownTopicOrPartition.Code))
		return emptyPartitionResponse(partitionIndex, ErrUnknownTopicOrPartition.Code)
	}
	recordBytes, err := storage.ReadPartitionSegment(b.Config.LogDir, topic.Name, partitionIndex)
	if err != nil {
		log.Error("Error while reading segment of %v-%v, answering %s: %v", topic.Name, partitionIndex, ErrorName(ErrKafkaStorageError.Code), err)
		return emptyPartitionResponse(partitionIndex, ErrKafkaStorageError.Code)
	}
	offsets, err := storage.ScanOffsets(recordBytes)
	if err != nil {
		log.Error("Corrupt segment for %v-%v, answering %s: %v", topic.Name, partitionIndex, ErrorName(ErrKafkaStorageError.Code), err)
		return emptyPartitionResponse(partitionIndex, ErrKafkaStorageError.Code)
	}

	partition := emptyPartitionResponse(partitionIndex, ErrNone)
	partition.HighWatermark = offsets.HighWatermark
	partition.LastStableOffset = offsets.HighWatermark
	partition.LogStartOffset = offsets.LogStartOffset
	if len(recordBytes) > 0 {
		partition.Records = recordBytes
	}
	return partition
}
