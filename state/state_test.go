package state

import (
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CefBoud/kafkalite/serde"
	"github.com/CefBoud/kafkalite/storage"
	"github.com/CefBoud/kafkalite/test/fixtures"
	"github.com/CefBoud/kafkalite/types"
)

func fixtureIndex(t *testing.T) *MetadataIndex {
	t.Helper()
	batches, err := storage.ParseLogSegment(fixtures.ClusterMetadataLog)
	require.NoError(t, err)
	return BuildIndex(batches)
}

func TestBuildIndexFromFixture(t *testing.T) {
	index := fixtureIndex(t)
	require.Equal(t, 1, index.Len())

	topic, ok := index.Topic("saz")
	require.True(t, ok)
	assert.Equal(t, int16(0), topic.ErrorCode)
	assert.Equal(t, fixtures.SazTopicID, topic.TopicID)
	assert.False(t, topic.IsInternal)
	assert.Equal(t, int32(0x00000df8), topic.AuthorizedOperations)
	require.Len(t, topic.Partitions, 2)
	for i, p := range topic.Partitions {
		assert.Equal(t, int32(i), p.PartitionIndex)
		assert.Equal(t, int32(1), p.LeaderID)
		assert.Equal(t, []int32{1}, p.ReplicaNodes)
		assert.Equal(t, []int32{1}, p.IsrNodes)
	}

	name, ok := index.TopicName(fixtures.SazTopicID)
	require.True(t, ok)
	assert.Equal(t, "saz", name)
}

func TestOrphanPartitionsAreDropped(t *testing.T) {
	known := uuid.New()
	orphan := uuid.New()
	batches := []types.RecordBatch{
		storage.NewRecordBatch(0,
			types.PartitionRecord{PartitionID: 0, TopicID: orphan, Leader: 1},
			types.TopicRecord{Name: "known", TopicID: known},
			types.PartitionRecord{PartitionID: 7, TopicID: known, Leader: 2},
			types.PartitionRecord{PartitionID: 3, TopicID: known, Leader: 3},
		),
	}
	index := BuildIndex(batches)

	require.Equal(t, 1, index.Len())
	_, ok := index.TopicName(orphan)
	assert.False(t, ok)

	topic, ok := index.Topic("known")
	require.True(t, ok)
	require.Len(t, topic.Partitions, 2)
	// renumbered from zero in log order, whatever the on-disk id
	assert.Equal(t, int32(0), topic.Partitions[0].PartitionIndex)
	assert.Equal(t, int32(2), topic.Partitions[0].LeaderID)
	assert.Equal(t, int32(1), topic.Partitions[1].PartitionIndex)
	assert.Equal(t, int32(3), topic.Partitions[1].LeaderID)
}

func TestTopicWithoutPartitions(t *testing.T) {
	index := BuildIndex([]types.RecordBatch{
		storage.NewRecordBatch(0, types.TopicRecord{Name: "empty", TopicID: uuid.New()}),
	})
	topic, ok := index.Topic("empty")
	require.True(t, ok)
	assert.NotNil(t, topic.Partitions)
	assert.Empty(t, topic.Partitions)
}

func TestTopicTaggedFieldsAreKept(t *testing.T) {
	id := uuid.New()
	fields := []byte{0xca, 0xfe}
	index := BuildIndex([]types.RecordBatch{
		storage.NewRecordBatch(0, types.TopicRecord{
			Name:         "tagged",
			TopicID:      id,
			TaggedFields: serde.TaggedFields{{Tag: 1, Data: fields}},
		}),
	})
	topic, _ := index.Topic("tagged")
	require.Len(t, topic.TaggedFields, 1)
	assert.Equal(t, fields, topic.TaggedFields[0].Data)
}

func TestTopicsInNameOrder(t *testing.T) {
	var values []types.RecordValue
	for _, name := range []string{"orders", "audit", "payments", "billing"} {
		values = append(values, types.TopicRecord{Name: name, TopicID: uuid.New()})
	}
	index := BuildIndex([]types.RecordBatch{storage.NewRecordBatch(0, values...)})

	var names []string
	for _, topic := range index.Topics() {
		names = append(names, topic.Name)
	}
	assert.Equal(t, []string{"audit", "billing", "orders", "payments"}, names)

	names = names[:0]
	index.AscendFrom("c", func(topic types.TopicMetadata) bool {
		names = append(names, topic.Name)
		return len(names) < 1
	})
	assert.Equal(t, []string{"orders"}, names)
}

func TestLatestTopicRecordWinsName(t *testing.T) {
	first, second := uuid.New(), uuid.New()
	index := BuildIndex([]types.RecordBatch{
		storage.NewRecordBatch(0, types.TopicRecord{Name: "reused", TopicID: first}),
		storage.NewRecordBatch(1, types.TopicRecord{Name: "reused", TopicID: second}),
	})
	topic, ok := index.Topic("reused")
	require.True(t, ok)
	assert.Equal(t, second, topic.TopicID)
	_, ok = index.TopicName(first)
	assert.False(t, ok)
	assert.Len(t, index.Topics(), 1)
}

func TestLoadIndex(t *testing.T) {
	path := filepath.Join(t.TempDir(), "__cluster_metadata-0", "00000000000000000000.log")
	batches, err := storage.ParseLogSegment(fixtures.ClusterMetadataLog)
	require.NoError(t, err)
	require.NoError(t, storage.AppendRecordBatches(path, batches...))

	index, err := LoadIndex(path)
	require.NoError(t, err)
	_, ok := index.Topic("saz")
	assert.True(t, ok)
	_, ok = index.Topic("missing")
	assert.False(t, ok)
}

func TestLoadIndexMissingFile(t *testing.T) {
	_, err := LoadIndex(filepath.Join(t.TempDir(), "nope.log"))
	assert.Error(t, err)
}
