package types

import (
	"github.com/google/uuid"

	"github.com/CefBoud/kafkalite/serde"
)

// DefaultTopicAuthorizedOperations is the capability mask reported for every topic
// (READ, WRITE, CREATE, DELETE, ALTER, DESCRIBE, DESCRIBE_CONFIGS, ALTER_CONFIGS)
const DefaultTopicAuthorizedOperations = int32(0x00000df8)

// TopicMetadata is a topic as reported by DescribeTopicPartitions
type TopicMetadata struct {
	ErrorCode            int16
	Name                 string
	TopicID              uuid.UUID
	IsInternal           bool
	Partitions           []PartitionMetadata
	AuthorizedOperations int32
	TaggedFields         serde.TaggedFields
}

// PartitionMetadata is a partition as reported by DescribeTopicPartitions
type PartitionMetadata struct {
	ErrorCode              int16
	PartitionIndex         int32
	LeaderID               int32
	LeaderEpoch            int32
	ReplicaNodes           []int32
	IsrNodes               []int32
	EligibleLeaderReplicas []int32
	LastKnownELR           []int32
	OfflineReplicas        []int32
	TaggedFields           serde.TaggedFields
}

// Encode writes the topic in the DescribeTopicPartitions v0 layout
func (t TopicMetadata) Encode(e *serde.Encoder) {
	e.PutInt16(t.ErrorCode)
	e.PutCompactString(t.Name)
	e.PutUUID(t.TopicID)
	e.PutBool(t.IsInternal)
	serde.PutCompactArray(e, t.Partitions, func(e *serde.Encoder, p PartitionMetadata) { p.Encode(e) })
	e.PutInt32(t.AuthorizedOperations)
	t.TaggedFields.Encode(e)
}

// Size returns the encoded size of the topic
func (t TopicMetadata) Size() int {
	return serde.SizeInt16 +
		serde.CompactStringSize(t.Name) +
		serde.SizeUUID +
		serde.SizeBool +
		serde.CompactArraySize(t.Partitions, PartitionMetadata.Size) +
		serde.SizeInt32 +
		t.TaggedFields.Size()
}

// Encode writes the partition in the DescribeTopicPartitions v0 layout
func (p PartitionMetadata) Encode(e *serde.Encoder) {
	e.PutInt16(p.ErrorCode)
	e.PutInt32(p.PartitionIndex)
	e.PutInt32(p.LeaderID)
	e.PutInt32(p.LeaderEpoch)
	serde.PutCompactArray(e, p.ReplicaNodes, serde.PutInt32Element)
	serde.PutCompactArray(e, p.IsrNodes, serde.PutInt32Element)
	serde.PutCompactArray(e, p.EligibleLeaderReplicas, serde.PutInt32Element)
	serde.PutCompactArray(e, p.LastKnownELR, serde.PutInt32Element)
	serde.PutCompactArray(e, p.OfflineReplicas, serde.PutInt32Element)
	p.TaggedFields.Encode(e)
}

// Size returns the encoded size of the partition
func (p PartitionMetadata) Size() int {
	return serde.SizeInt16 + 3*serde.SizeInt32 +
		serde.CompactArraySize(p.ReplicaNodes, serde.Int32ElementSize) +
		serde.CompactArraySize(p.IsrNodes, serde.Int32ElementSize) +
		serde.CompactArraySize(p.EligibleLeaderReplicas, serde.Int32ElementSize) +
		serde.CompactArraySize(p.LastKnownELR, serde.Int32ElementSize) +
		serde.CompactArraySize(p.OfflineReplicas, serde.Int32ElementSize) +
		p.TaggedFields.Size()
}

// DecodeTopicMetadata reads a topic in the DescribeTopicPartitions v0 layout
func DecodeTopicMetadata(d *serde.Decoder) TopicMetadata {
	return TopicMetadata{
		ErrorCode:  d.Int16(),
		Name:       d.CompactString(),
		TopicID:    d.UUID(),
		IsInternal: d.Bool(),
		Partitions: serde.CompactArray(d, func(d *serde.Decoder) PartitionMetadata {
			return PartitionMetadata{
				ErrorCode:              d.Int16(),
				PartitionIndex:         d.Int32(),
				LeaderID:               d.Int32(),
				LeaderEpoch:            d.Int32(),
				ReplicaNodes:           serde.CompactArray(d, serde.Int32Element),
				IsrNodes:               serde.CompactArray(d, serde.Int32Element),
				EligibleLeaderReplicas: serde.CompactArray(d, serde.Int32Element),
				LastKnownELR:           serde.CompactArray(d, serde.Int32Element),
				OfflineReplicas:        serde.CompactArray(d, serde.Int32Element),
				TaggedFields:           d.TaggedFields(),
			}
		}),
		AuthorizedOperations: d.Int32(),
		TaggedFields:         d.TaggedFields(),
	}
}

// UnknownTopic is the placeholder returned for a topic name that has no Topic record
func UnknownTopic(name string, errorCode int16) TopicMetadata {
	return TopicMetadata{
		ErrorCode:            errorCode,
		Name:                 name,
		Partitions:           []PartitionMetadata{},
		AuthorizedOperations: DefaultTopicAuthorizedOperations,
	}
}
