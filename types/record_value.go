package types

import (
	"github.com/google/uuid"

	"github.com/CefBoud/kafkalite/serde"
)

// RecordType is the 1-byte tag selecting the metadata record variant
type RecordType uint8

// https://github.com/apache/kafka/tree/trunk/metadata/src/main/resources/common/metadata
const (
	TopicRecordType        RecordType = 2
	PartitionRecordType    RecordType = 3
	FeatureLevelRecordType RecordType = 12
)

// RecordValue is the typed payload of a metadata record
type RecordValue interface {
	Type() RecordType
	RecordVersion() uint8
	encode(e *serde.Encoder)
	size() int
}

// TopicRecord announces a topic and its id
type TopicRecord struct {
	Version      uint8
	Name         string
	TopicID      uuid.UUID
	TaggedFields serde.TaggedFields
}

// PartitionRecord describes one partition of a topic
type PartitionRecord struct {
	Version          uint8
	PartitionID      int32
	TopicID          uuid.UUID
	Replicas         []int32
	ISR              []int32
	RemovingReplicas []int32
	AddingReplicas   []int32
	Leader           int32
	LeaderEpoch      int32
	PartitionEpoch   int32
	Directories      []uuid.UUID
	TaggedFields     serde.TaggedFields
}

// FeatureLevelRecord sets the level of a cluster feature such as metadata.version
type FeatureLevelRecord struct {
	Version      uint8
	Name         string
	FeatureLevel int16
	TaggedFields serde.TaggedFields
}

// UnknownRecord is any record type without a decoder. Nothing after its
// type and version bytes is consumed.
type UnknownRecord struct {
	RecordType RecordType
	Version    uint8
}

// Type implements RecordValue
func (TopicRecord) Type() RecordType { return TopicRecordType }

// Type implements RecordValue
func (PartitionRecord) Type() RecordType { return PartitionRecordType }

// Type implements RecordValue
func (FeatureLevelRecord) Type() RecordType { return FeatureLevelRecordType }

// Type implements RecordValue
func (u UnknownRecord) Type() RecordType { return u.RecordType }

// RecordVersion implements RecordValue
func (t TopicRecord) RecordVersion() uint8 { return t.Version }

// RecordVersion implements RecordValue
func (p PartitionRecord) RecordVersion() uint8 { return p.Version }

// RecordVersion implements RecordValue
func (f FeatureLevelRecord) RecordVersion() uint8 { return f.Version }

// RecordVersion implements RecordValue
func (u UnknownRecord) RecordVersion() uint8 { return u.Version }

// DecodeRecordValue reads the type tag and version then dispatches to the matching variant
func DecodeRecordValue(d *serde.Decoder) RecordValue {
	recordType := RecordType(d.UInt8())
	version := d.UInt8()
	if d.Err() != nil {
		return nil
	}
	switch recordType {
	case FeatureLevelRecordType:
		return FeatureLevelRecord{
			Version:      version,
			Name:         d.CompactString(),
			FeatureLevel: d.Int16(),
			TaggedFields: d.TaggedFields(),
		}
	case TopicRecordType:
		return TopicRecord{
			Version:      version,
			Name:         d.CompactString(),
			TopicID:      d.UUID(),
			TaggedFields: d.TaggedFields(),
		}
	case PartitionRecordType:
		return PartitionRecord{
			Version:          version,
			PartitionID:      d.Int32(),
			TopicID:          d.UUID(),
			Replicas:         serde.CompactArray(d, serde.Int32Element),
			ISR:              serde.CompactArray(d, serde.Int32Element),
			RemovingReplicas: serde.CompactArray(d, serde.Int32Element),
			AddingReplicas:   serde.CompactArray(d, serde.Int32Element),
			Leader:           d.Int32(),
			LeaderEpoch:      d.Int32(),
			PartitionEpoch:   d.Int32(),
			Directories:      serde.CompactArray(d, serde.UUIDElement),
			TaggedFields:     d.TaggedFields(),
		}
	default:
		// TODO: decode the remaining metadata record types (RegisterBroker,
		// ProducerIds, ...) so that a log containing them stays in sync.
		return UnknownRecord{RecordType: recordType, Version: version}
	}
}

// EncodeRecordValue writes the type tag, version and body of v
func EncodeRecordValue(e *serde.Encoder, v RecordValue) {
	e.PutUInt8(uint8(v.Type()))
	e.PutUInt8(v.RecordVersion())
	v.encode(e)
}

// RecordValueSize returns the encoded size of v including its type tag and version
func RecordValueSize(v RecordValue) int {
	return 2 + v.size()
}

func (f FeatureLevelRecord) encode(e *serde.Encoder) {
	e.PutCompactString(f.Name)
	e.PutInt16(f.FeatureLevel)
	f.TaggedFields.Encode(e)
}

func (f FeatureLevelRecord) size() int {
	return serde.CompactStringSize(f.Name) + serde.SizeInt16 + f.TaggedFields.Size()
}

func (t TopicRecord) encode(e *serde.Encoder) {
	e.PutCompactString(t.Name)
	e.PutUUID(t.TopicID)
	t.TaggedFields.Encode(e)
}

func (t TopicRecord) size() int {
	return serde.CompactStringSize(t.Name) + serde.SizeUUID + t.TaggedFields.Size()
}

func (p PartitionRecord) encode(e *serde.Encoder) {
	e.PutInt32(p.PartitionID)
	e.PutUUID(p.TopicID)
	serde.PutCompactArray(e, p.Replicas, serde.PutInt32Element)
	serde.PutCompactArray(e, p.ISR, serde.PutInt32Element)
	serde.PutCompactArray(e, p.RemovingReplicas, serde.PutInt32Element)
	serde.PutCompactArray(e, p.AddingReplicas, serde.PutInt32Element)
	e.PutInt32(p.Leader)
	e.PutInt32(p.LeaderEpoch)
	e.PutInt32(p.PartitionEpoch)
	serde.PutCompactArray(e, p.Directories, serde.PutUUIDElement)
	p.TaggedFields.Encode(e)
}

func (p PartitionRecord) size() int {
	return serde.SizeInt32 + serde.SizeUUID +
		serde.CompactArraySize(p.Replicas, serde.Int32ElementSize) +
		serde.CompactArraySize(p.ISR, serde.Int32ElementSize) +
		serde.CompactArraySize(p.RemovingReplicas, serde.Int32ElementSize) +
		serde.CompactArraySize(p.AddingReplicas, serde.Int32ElementSize) +
		3*serde.SizeInt32 +
		serde.CompactArraySize(p.Directories, serde.UUIDElementSize) +
		p.TaggedFields.Size()
}

func (UnknownRecord) encode(*serde.Encoder) {}

func (UnknownRecord) size() int { return 0 }
