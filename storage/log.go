package storage

import (
	"fmt"
	"os"

	log "github.com/CefBoud/kafkalite/logging"
	"github.com/CefBoud/kafkalite/serde"
	"github.com/CefBoud/kafkalite/types"
	"github.com/CefBoud/kafkalite/utils"
)

// ParseLogSegment decodes every record batch of a segment. Any malformed
// batch fails the whole segment, nothing after it is trusted.
func ParseLogSegment(b []byte) ([]types.RecordBatch, error) {
	var batches []types.RecordBatch
	decoder := serde.NewDecoder(b)
	for decoder.Remaining() > 0 {
		var rb types.RecordBatch
		rb.Decode(&decoder)
		if err := decoder.Err(); err != nil {
			return nil, fmt.Errorf("record batch %d: %w", len(batches), err)
		}
		batches = append(batches, rb)
	}
	return batches, nil
}

// ReadLogSegment reads and decodes the segment at path
func ReadLogSegment(path string) ([]types.RecordBatch, error) {
	b, err := ReadSegment(path)
	if err != nil {
		return nil, err
	}
	batches, err := ParseLogSegment(b)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	for _, rb := range batches {
		if !rb.ChecksumValid() {
			log.Warn("record batch at offset %d in %s fails its CRC check", rb.BaseOffset, path)
		}
	}
	log.Trace("read %d record batches from %s", len(batches), path)
	return batches, nil
}

// NewRecordBatch creates a sealed RecordBatch holding records. Offset deltas
// are assigned in order.
func NewRecordBatch(baseOffset int64, values ...types.RecordValue) types.RecordBatch {
	currentTimestamp := utils.NowAsUnixMilli()
	rb := types.RecordBatch{
		BaseOffset: baseOffset,
		Magic:      types.RecordBatchMagic,
		// defaults
		ProducerID:           -1,
		ProducerEpoch:        -1,
		BaseSequence:         -1,
		PartitionLeaderEpoch: -1,
		BaseTimestamp:        currentTimestamp,
		MaxTimestamp:         currentTimestamp,
		LastOffsetDelta:      int32(max(len(values)-1, 0)),
		Records:              make([]types.Record, 0, len(values)),
	}
	for i, v := range values {
		rb.Records = append(rb.Records, types.NewRecord(int64(i), v))
	}
	rb.Seal()
	return rb
}

// WriteRecordBatch encodes a record batch into bytes
func WriteRecordBatch(rb types.RecordBatch) []byte {
	encoder := serde.NewSizedEncoder(rb.Size())
	rb.Encode(&encoder)
	return encoder.Bytes()
}

// AppendRecordBatches appends encoded batches to the segment at path, creating it if needed
func AppendRecordBatches(path string, batches ...types.RecordBatch) error {
	if err := utils.EnsureParentDir(path); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return err
	}
	for _, rb := range batches {
		if _, err := f.Write(WriteRecordBatch(rb)); err != nil {
			f.Close()
			return err
		}
	}
	return f.Close()
}
