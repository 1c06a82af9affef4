package storage

import (
	"fmt"

	"github.com/CefBoud/kafkalite/serde"
	"github.com/CefBoud/kafkalite/types"
)

// position of lastOffsetDelta: baseOffset 8 + batchLength 4 + partitionLeaderEpoch 4 + magic 1 + crc 4 + attributes 2
const lastOffsetDeltaPosition = 23

// SegmentOffsets holds the offsets a fetch response reports for a partition
type SegmentOffsets struct {
	LogStartOffset int64
	HighWatermark  int64 // offset of the next record to be written
}

// ScanOffsets walks batch headers without decoding records, so it works on
// segments whose record payloads are opaque.
func ScanOffsets(segment []byte) (SegmentOffsets, error) {
	var offsets SegmentOffsets
	position := 0
	for first := true; position < len(segment); first = false {
		if len(segment)-position < lastOffsetDeltaPosition+serde.SizeInt32 {
			return offsets, fmt.Errorf("%w: batch header at %d", serde.ErrTruncated, position)
		}
		header := serde.NewDecoder(segment[position:])
		baseOffset := header.Int64()
		batchLength := header.Int32()
		header.GetNBytes(lastOffsetDeltaPosition - header.Offset)
		lastOffsetDelta := header.Int32()

		end := position + types.LogOverhead + int(batchLength)
		if batchLength < 0 || end > len(segment) {
			return offsets, fmt.Errorf("%w: batch at %d claims %d bytes", serde.ErrTruncated, position, batchLength)
		}
		if first {
			offsets.LogStartOffset = baseOffset
		}
		offsets.HighWatermark = baseOffset + int64(lastOffsetDelta) + 1
		position = end
	}
	return offsets, nil
}
