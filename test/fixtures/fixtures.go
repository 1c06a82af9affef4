// Package fixtures holds cluster metadata log bytes written by a KRaft broker
// that created the single topic "saz" with two partitions.
package fixtures

import (
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
)

// SazTopicID is the id of the "saz" topic in ClusterMetadataLog
var SazTopicID = uuid.MustParse("00000000-0000-4000-8000-000000000091")

// FeatureLevelBatch holds one FeatureLevel record: metadata.version = 20
var FeatureLevelBatch = mustDecodeHex(`
	00000000 00000000 0000004f 00000001 02b06945 7c000000 00000000 000191e0
	5af81800 000191e0 5af818ff ffffffff ffffffff ffffffff ff000000 013a0000
	00012e01 0c00116d 65746164 6174612e 76657273 696f6e00 140000`)

// TopicBatch holds the Topic record for "saz" and its two Partition records
var TopicBatch = mustDecodeHex(`
	00000000 00000001 000000e4 00000001 0224db12 dd000000 00000200 000191e0
	5b2d1500 000191e0 5b2d15ff ffffffff ffffffff ffffffff ff000000 033c0000
	00013001 02000473 617a0000 00000000 40008000 00000000 00910000 90010000
	02018201 01030100 00000000 00000000 00400080 00000000 00009102 00000001
	02000000 01010100 00000100 00000000 00000002 10000000 00004000 80000000
	00000001 00009001 00000401 82010103 01000000 01000000 00000040 00800000
	00000000 91020000 00010200 00000101 01000000 01000000 00000000 00021000
	00000000 40008000 00000000 00010000`)

// ClusterMetadataLog is a full metadata segment: both batches back to back
var ClusterMetadataLog = append(append([]byte{}, FeatureLevelBatch...), TopicBatch...)

func mustDecodeHex(s string) []byte {
	b, err := hex.DecodeString(strings.Join(strings.Fields(s), ""))
	if err != nil {
		panic(err)
	}
	return b
}
