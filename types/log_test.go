package types

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CefBoud/kafkalite/serde"
	"github.com/CefBoud/kafkalite/test/fixtures"
)

func decodeBatch(t *testing.T, b []byte) RecordBatch {
	t.Helper()
	var rb RecordBatch
	d := serde.NewDecoder(b)
	rb.Decode(&d)
	require.NoError(t, d.Err())
	require.Zero(t, d.Remaining())
	return rb
}

func TestDecodeFeatureLevelBatch(t *testing.T) {
	rb := decodeBatch(t, fixtures.FeatureLevelBatch)

	assert.Equal(t, int64(0), rb.BaseOffset)
	assert.Equal(t, int32(79), rb.BatchLength)
	assert.Equal(t, int32(1), rb.PartitionLeaderEpoch)
	assert.Equal(t, uint8(2), rb.Magic)
	assert.Equal(t, int32(-1335278212), rb.CRC)
	assert.Equal(t, int16(0), rb.Attributes)
	assert.Equal(t, int32(0), rb.LastOffsetDelta)
	assert.Equal(t, int64(1726045943832), rb.BaseTimestamp)
	assert.Equal(t, int64(1726045943832), rb.MaxTimestamp)
	assert.Equal(t, int64(-1), rb.ProducerID)
	assert.Equal(t, int16(-1), rb.ProducerEpoch)
	assert.Equal(t, int32(-1), rb.BaseSequence)
	require.Len(t, rb.Records, 1)

	record := rb.Records[0]
	assert.Equal(t, int64(29), record.Length)
	assert.Equal(t, int64(0), record.TimestampDelta)
	assert.Equal(t, int64(0), record.OffsetDelta)
	assert.Nil(t, record.Key)
	assert.Equal(t, int64(23), record.ValueLength)
	assert.Equal(t, FeatureLevelRecord{Name: "metadata.version", FeatureLevel: 20}, record.Value)
}

func TestDecodeTopicBatch(t *testing.T) {
	rb := decodeBatch(t, fixtures.TopicBatch)

	assert.Equal(t, int64(1), rb.BaseOffset)
	assert.Equal(t, int32(228), rb.BatchLength)
	assert.Equal(t, int32(618336989), rb.CRC)
	assert.Equal(t, int32(2), rb.LastOffsetDelta)
	assert.Equal(t, int64(1726045957397), rb.BaseTimestamp)
	assert.Equal(t, int64(3), rb.LastOffset())
	require.Len(t, rb.Records, 3)

	assert.Equal(t, int64(30), rb.Records[0].Length)
	assert.Empty(t, rb.Records[0].Key)
	assert.Equal(t, int64(0), rb.Records[0].HeadersCount)
	assert.Equal(t, TopicRecord{Name: "saz", TopicID: fixtures.SazTopicID}, rb.Records[0].Value)

	assert.Equal(t, int64(72), rb.Records[1].Length)
	assert.Equal(t, int64(1), rb.Records[1].OffsetDelta)
	first, ok := rb.Records[1].Value.(PartitionRecord)
	require.True(t, ok)
	assert.Equal(t, PartitionRecord{
		Version:          1,
		PartitionID:      0,
		TopicID:          fixtures.SazTopicID,
		Replicas:         []int32{1},
		ISR:              []int32{1},
		RemovingReplicas: []int32{},
		AddingReplicas:   []int32{},
		Leader:           1,
		LeaderEpoch:      0,
		PartitionEpoch:   0,
		Directories:      []uuid.UUID{uuid.MustParse("10000000-0000-4000-8000-000000000001")},
	}, first)

	second, ok := rb.Records[2].Value.(PartitionRecord)
	require.True(t, ok)
	assert.Equal(t, int32(1), second.PartitionID)
	assert.Equal(t, int32(1), second.Replicas[0])
}

func TestRecordBatchReencodesIdentically(t *testing.T) {
	for _, b := range [][]byte{fixtures.FeatureLevelBatch, fixtures.TopicBatch} {
		rb := decodeBatch(t, b)
		assert.Equal(t, len(b), rb.Size())

		e := serde.NewEncoder()
		rb.Encode(&e)
		assert.Equal(t, b, e.Bytes())
		assert.True(t, rb.ChecksumValid())
	}
}

func TestChecksumDetectsCorruption(t *testing.T) {
	b := append([]byte{}, fixtures.TopicBatch...)
	// flip a byte of the topic name, the layout stays decodable
	b[71] = 'x'
	rb := decodeBatch(t, b)
	assert.Equal(t, "xaz", rb.Records[0].Value.(TopicRecord).Name)
	assert.False(t, rb.ChecksumValid())
}

func TestSealComputesLengthAndCRC(t *testing.T) {
	topicID := uuid.New()
	rb := RecordBatch{
		BaseOffset:           4,
		PartitionLeaderEpoch: 1,
		Magic:                RecordBatchMagic,
		LastOffsetDelta:      1,
		ProducerID:           -1,
		ProducerEpoch:        -1,
		BaseSequence:         -1,
		Records: []Record{
			NewRecord(0, TopicRecord{Name: "orders", TopicID: topicID}),
			NewRecord(1, PartitionRecord{
				Version:     1,
				TopicID:     topicID,
				Replicas:    []int32{1, 2},
				ISR:         []int32{1},
				Leader:      1,
				Directories: []uuid.UUID{},
			}),
		},
	}
	rb.Seal()
	require.True(t, rb.ChecksumValid())

	e := serde.NewEncoder()
	rb.Encode(&e)
	require.Equal(t, rb.Size(), e.Len())
	assert.Equal(t, int32(e.Len()-LogOverhead), rb.BatchLength)

	decoded := decodeBatch(t, e.Bytes())
	assert.Equal(t, rb, decoded)
}

func TestRecordLengthMatchesEncoding(t *testing.T) {
	r := NewRecord(7, FeatureLevelRecord{Name: "kraft.version", FeatureLevel: 1})
	e := serde.NewEncoder()
	r.Encode(&e)
	assert.Equal(t, r.Size(), e.Len())
	assert.Equal(t, int64(e.Len()-serde.VarintSize(r.Length)), r.Length)
}

func TestUnknownRecordConsumesOnlyTypeAndVersion(t *testing.T) {
	d := serde.NewDecoder([]byte{0x15, 0x00, 0xaa, 0xbb})
	v := DecodeRecordValue(&d)
	require.NoError(t, d.Err())
	assert.Equal(t, UnknownRecord{RecordType: 0x15, Version: 0}, v)
	assert.Equal(t, 2, d.Offset)
	assert.Equal(t, 2, RecordValueSize(v))
}

func TestUnsupportedMagic(t *testing.T) {
	b := append([]byte{}, fixtures.FeatureLevelBatch...)
	b[16] = 1
	var rb RecordBatch
	d := serde.NewDecoder(b)
	rb.Decode(&d)
	assert.ErrorIs(t, d.Err(), ErrUnsupportedMagic)
	assert.True(t, IsMalformed(d.Err()))
}

func TestBatchLengthMismatch(t *testing.T) {
	b := append([]byte{}, fixtures.FeatureLevelBatch...)
	b[11] = 80
	var rb RecordBatch
	d := serde.NewDecoder(b)
	rb.Decode(&d)
	assert.ErrorIs(t, d.Err(), ErrBatchLength)
}

func TestTruncatedRecordAbortsBatch(t *testing.T) {
	b := fixtures.TopicBatch[:len(fixtures.TopicBatch)-10]
	var rb RecordBatch
	d := serde.NewDecoder(b)
	rb.Decode(&d)
	assert.ErrorIs(t, d.Err(), serde.ErrTruncated)
	assert.Nil(t, rb.Records)
}

func TestTopicMetadataRoundTrip(t *testing.T) {
	topic := TopicMetadata{
		Name:    "saz",
		TopicID: fixtures.SazTopicID,
		Partitions: []PartitionMetadata{{
			PartitionIndex:         0,
			LeaderID:               1,
			ReplicaNodes:           []int32{1},
			IsrNodes:               []int32{1},
			EligibleLeaderReplicas: []int32{},
			LastKnownELR:           []int32{},
			OfflineReplicas:        []int32{},
		}},
		AuthorizedOperations: DefaultTopicAuthorizedOperations,
	}
	e := serde.NewEncoder()
	topic.Encode(&e)
	require.Equal(t, topic.Size(), e.Len())

	d := serde.NewDecoder(e.Bytes())
	assert.Equal(t, topic, DecodeTopicMetadata(&d))
	require.NoError(t, d.Err())
}

func TestUnknownTopicPlaceholder(t *testing.T) {
	topic := UnknownTopic("missing", 3)
	assert.Equal(t, uuid.Nil, topic.TopicID)
	assert.Empty(t, topic.Partitions)
	assert.Equal(t, int32(0x0df8), topic.AuthorizedOperations)

	e := serde.NewEncoder()
	topic.Encode(&e)
	assert.Equal(t, topic.Size(), e.Len())
}
