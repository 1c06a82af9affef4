package state

import (
	"github.com/google/btree"
	"github.com/google/uuid"

	"github.com/CefBoud/kafkalite/storage"
	"github.com/CefBoud/kafkalite/types"
)

// MetadataIndex maps topic names to their metadata. It is built from the
// cluster metadata log and never mutated afterwards.
type MetadataIndex struct {
	topics  map[string]*types.TopicMetadata
	byID    map[uuid.UUID]string
	ordered *btree.BTreeG[*types.TopicMetadata]
}

func byName(a, b *types.TopicMetadata) bool {
	return a.Name < b.Name
}

// LoadIndex reads the cluster metadata segment at path and indexes it
func LoadIndex(path string) (*MetadataIndex, error) {
	batches, err := storage.ReadLogSegment(path)
	if err != nil {
		return nil, err
	}
	return BuildIndex(batches), nil
}

// BuildIndex indexes the topics found in the cluster metadata record batches.
// Only topics with a Topic record are known, partitions of other ids are
// dropped. Partitions are numbered from zero in log order within their topic.
func BuildIndex(batches []types.RecordBatch) *MetadataIndex {
	topicRecords := make(map[uuid.UUID]types.TopicRecord)
	var topicOrder []uuid.UUID
	var partitionRecords []types.PartitionRecord
	for _, rb := range batches {
		for _, r := range rb.Records {
			switch v := r.Value.(type) {
			case types.TopicRecord:
				topicRecords[v.TopicID] = v
				topicOrder = append(topicOrder, v.TopicID)
			case types.PartitionRecord:
				partitionRecords = append(partitionRecords, v)
			}
		}
	}

	partitions := make(map[uuid.UUID][]types.PartitionMetadata, len(topicRecords))
	for _, p := range partitionRecords {
		if _, ok := topicRecords[p.TopicID]; !ok {
			continue
		}
		group := partitions[p.TopicID]
		partitions[p.TopicID] = append(group, types.PartitionMetadata{
			PartitionIndex:         int32(len(group)),
			LeaderID:               p.Leader,
			LeaderEpoch:            p.LeaderEpoch,
			ReplicaNodes:           nonNil(p.Replicas),
			IsrNodes:               nonNil(p.ISR),
			EligibleLeaderReplicas: []int32{},
			LastKnownELR:           []int32{},
			OfflineReplicas:        []int32{},
		})
	}

	index := &MetadataIndex{
		topics:  make(map[string]*types.TopicMetadata, len(topicRecords)),
		byID:    make(map[uuid.UUID]string, len(topicRecords)),
		ordered: btree.NewG(8, byName),
	}
	// log order, so that the latest record wins when two ids share a name
	for _, id := range topicOrder {
		t := topicRecords[id]
		topic := &types.TopicMetadata{
			Name:                 t.Name,
			TopicID:              id,
			Partitions:           nonNil(partitions[id]),
			AuthorizedOperations: types.DefaultTopicAuthorizedOperations,
			TaggedFields:         t.TaggedFields,
		}
		if previous, ok := index.topics[t.Name]; ok {
			delete(index.byID, previous.TopicID)
		}
		index.topics[t.Name] = topic
		index.byID[id] = t.Name
		index.ordered.ReplaceOrInsert(topic)
	}
	return index
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// Len returns the number of known topics
func (m *MetadataIndex) Len() int {
	return len(m.topics)
}

// Topic returns the metadata of the named topic
func (m *MetadataIndex) Topic(name string) (types.TopicMetadata, bool) {
	t, ok := m.topics[name]
	if !ok {
		return types.TopicMetadata{}, false
	}
	return *t, true
}

// TopicName returns the name of the topic with the given id
func (m *MetadataIndex) TopicName(id uuid.UUID) (string, bool) {
	name, ok := m.byID[id]
	return name, ok
}

// AscendFrom calls fn for every topic whose name is >= from, in name order,
// until fn returns false
func (m *MetadataIndex) AscendFrom(from string, fn func(types.TopicMetadata) bool) {
	m.ordered.AscendGreaterOrEqual(&types.TopicMetadata{Name: from}, func(t *types.TopicMetadata) bool {
		return fn(*t)
	})
}

// Topics returns every known topic in name order
func (m *MetadataIndex) Topics() []types.TopicMetadata {
	topics := make([]types.TopicMetadata, 0, m.Len())
	m.AscendFrom("", func(t types.TopicMetadata) bool {
		topics = append(topics, t)
		return true
	})
	return topics
}
