package protocol

import (
	"fmt"
	"slices"

	log "github.com/CefBoud/kafkalite/logging"
	"github.com/CefBoud/kafkalite/serde"
	"github.com/CefBoud/kafkalite/state"
	"github.com/CefBoud/kafkalite/types"
)

// DescribeTopicPartitionsRequest represents the details of a DescribeTopicPartitionsRequest (Version: 0).
// An empty topic list describes every topic.
type DescribeTopicPartitionsRequest struct {
	Topics                 []string
	ResponsePartitionLimit int32
	Cursor                 *Cursor
	TaggedFields           serde.TaggedFields
}

// Cursor is the topic and partition where a paginated description resumes
type Cursor struct {
	TopicName      string
	PartitionIndex int32
	TaggedFields   serde.TaggedFields
}

// DescribeTopicPartitionsResponse represents the response to a DescribeTopicPartitionsRequest
type DescribeTopicPartitionsResponse struct {
	Header         ResponseHeader
	ThrottleTimeMs int32
	Topics         []types.TopicMetadata
	NextCursor     *Cursor
	TaggedFields   serde.TaggedFields
}

// Decode reads the request body
func (r *DescribeTopicPartitionsRequest) Decode(d *serde.Decoder) {
	r.Topics = serde.CompactArray(d, func(d *serde.Decoder) string {
		name := d.CompactString()
		d.EndStruct()
		return name
	})
	r.ResponsePartitionLimit = d.Int32()
	r.Cursor = decodeCursor(d)
	r.TaggedFields = d.TaggedFields()
}

// Encode writes the request body
func (r *DescribeTopicPartitionsRequest) Encode(e *serde.Encoder) {
	serde.PutCompactArray(e, r.Topics, func(e *serde.Encoder, name string) {
		e.PutCompactString(name)
		e.EndStruct()
	})
	e.PutInt32(r.ResponsePartitionLimit)
	encodeCursor(e, r.Cursor)
	r.TaggedFields.Encode(e)
}

// nullable structs are prefixed by -1 (null) or 1 (present)
func decodeCursor(d *serde.Decoder) *Cursor {
	switch marker := d.Int8(); marker {
	case -1:
		return nil
	case 1:
		return &Cursor{
			TopicName:      d.CompactString(),
			PartitionIndex: d.Int32(),
			TaggedFields:   d.TaggedFields(),
		}
	default:
		d.Fail(fmt.Errorf("%w: cursor marker %d", serde.ErrMalformed, marker))
		return nil
	}
}

func encodeCursor(e *serde.Encoder, c *Cursor) {
	if c == nil {
		e.PutInt8(-1)
		return
	}
	e.PutInt8(1)
	e.PutCompactString(c.TopicName)
	e.PutInt32(c.PartitionIndex)
	c.TaggedFields.Encode(e)
}

func cursorSize(c *Cursor) int {
	if c == nil {
		return serde.SizeInt8
	}
	return serde.SizeInt8 + serde.CompactStringSize(c.TopicName) + serde.SizeInt32 + c.TaggedFields.Size()
}

// Encode implements Response
func (r *DescribeTopicPartitionsResponse) Encode(e *serde.Encoder) {
	r.Header.Encode(e)
	e.PutInt32(r.ThrottleTimeMs)
	serde.PutCompactArray(e, r.Topics, func(e *serde.Encoder, t types.TopicMetadata) { t.Encode(e) })
	encodeCursor(e, r.NextCursor)
	r.TaggedFields.Encode(e)
}

// Size implements Response
func (r *DescribeTopicPartitionsResponse) Size() int {
	return r.Header.Size() +
		serde.SizeInt32 +
		serde.CompactArraySize(r.Topics, types.TopicMetadata.Size) +
		cursorSize(r.NextCursor) +
		r.TaggedFields.Size()
}

func (r *DescribeTopicPartitionsResponse) header() *ResponseHeader {
	return &r.Header
}

var describeTopicPartitionsVersions = APIVersion{APIKey: DescribeTopicPartitionsKey, MinVersion: 0, MaxVersion: 0}

// DescribeTopicPartitions (Api key = 75)
func (b *Broker) getDescribeTopicPartitionsResponse(req types.Request) (Response, error) {
	if err := b.checkVersion(req, describeTopicPartitionsVersions); err != nil {
		return nil, err
	}
	request := &DescribeTopicPartitionsRequest{}
	if err := decodeBody(req, request.Decode); err != nil {
		return nil, err
	}
	log.Debug("DescribeTopicPartitionsRequest %+v", request)

	index, err := b.loadIndex()
	if err != nil {
		return nil, err
	}

	topics, nextCursor := describeTopics(index, request)
	return &DescribeTopicPartitionsResponse{
		Header:     ResponseHeader{CorrelationID: req.CorrelationID, Flexible: flexibleResponseHeader(req.RequestAPIKey, req.RequestAPIVersion)},
		Topics:     topics,
		NextCursor: nextCursor,
	}, nil
}

// describeTopics selects the topics of a response in name order, starting at
// the request cursor and stopping once the partition limit is reached.
func describeTopics(index *state.MetadataIndex, request *DescribeTopicPartitionsRequest) ([]types.TopicMetadata, *Cursor) {
	var candidates []types.TopicMetadata
	if len(request.Topics) == 0 {
		from := ""
		if request.Cursor != nil {
			from = request.Cursor.TopicName
		}
		index.AscendFrom(from, func(topic types.TopicMetadata) bool {
			candidates = append(candidates, topic)
			return true
		})
	} else {
		names := slices.Clone(request.Topics)
		slices.Sort(names)
		for _, name := range slices.Compact(names) {
			topic, ok := index.Topic(name)
			if !ok {
				topic = types.UnknownTopic(name, ErrUnknownTopicOrPartition.Code)
			}
			candidates = append(candidates, topic)
		}
	}

	limit := int(request.ResponsePartitionLimit)
	if limit <= 0 {
		limit = int(^uint(0) >> 1)
	}
	topics := []types.TopicMetadata{}
	for _, topic := range candidates {
		if c := request.Cursor; c != nil {
			if topic.Name < c.TopicName {
				continue
			}
			if topic.Name == c.TopicName {
				topic.Partitions = slices.DeleteFunc(slices.Clone(topic.Partitions), func(p types.PartitionMetadata) bool {
					return p.PartitionIndex < c.PartitionIndex
				})
			}
		}
		if len(topic.Partitions) > limit {
			next := &Cursor{TopicName: topic.Name, PartitionIndex: topic.Partitions[limit].PartitionIndex}
			if limit > 0 {
				topic.Partitions = topic.Partitions[:limit]
				topics = append(topics, topic)
			}
			return topics, next
		}
		limit -= len(topic.Partitions)
		topics = append(topics, topic)
	}
	return topics, nil
}
