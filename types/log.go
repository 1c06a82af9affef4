package types

import (
	"errors"
	"fmt"
	"hash/crc32"

	"github.com/CefBoud/kafkalite/serde"
)

// RecordBatchMagic is the only record batch format version supported
const RecordBatchMagic = 2

// RecordBatchHeaderSize is the size of the fixed header up to and including the record count
const RecordBatchHeaderSize = 61

// LogOverhead is the offset field 8 + length field 4 that precede the counted batch bytes
const LogOverhead = 12

// crcOffset is where the checksummed region starts (attributes field)
const crcOffset = 21

var crc32c = crc32.MakeTable(crc32.Castagnoli)

var (
	// ErrUnsupportedMagic is returned for message sets (magic 0 and 1)
	ErrUnsupportedMagic = fmt.Errorf("%w: unsupported record batch magic", serde.ErrMalformed)
	// ErrBatchLength is returned when a batch does not span its declared length
	ErrBatchLength = fmt.Errorf("%w: batch length mismatch", serde.ErrMalformed)
)

// RecordBatch represents a batch of records in a Kafka partition, with metadata such as offsets, timestamps, and producer information.
type RecordBatch struct {
	BaseOffset           int64
	BatchLength          int32
	PartitionLeaderEpoch int32
	Magic                uint8
	CRC                  int32
	Attributes           int16
	LastOffsetDelta      int32 // delta added to BaseOffset to get the Batch's last offset
	BaseTimestamp        int64
	MaxTimestamp         int64
	ProducerID           int64
	ProducerEpoch        int16
	BaseSequence         int32
	Records              []Record
}

// Record is a single entry of the cluster metadata log
type Record struct {
	Length         int64 // informational, sub-fields are self-delimiting
	Attributes     int8
	TimestampDelta int64
	OffsetDelta    int64
	Key            []byte
	ValueLength    int64
	FrameVersion   uint8
	Value          RecordValue
	HeadersCount   int64
}

// Decode reads a record batch. The record count is an int32 and every
// record must be well formed, otherwise the whole batch is rejected.
func (rb *RecordBatch) Decode(d *serde.Decoder) {
	rb.BaseOffset = d.Int64()
	rb.BatchLength = d.Int32()
	start := d.Offset
	rb.PartitionLeaderEpoch = d.Int32()
	rb.Magic = d.UInt8()
	if d.Err() == nil && rb.Magic != RecordBatchMagic {
		d.Fail(fmt.Errorf("%w: %d", ErrUnsupportedMagic, rb.Magic))
		return
	}
	rb.CRC = d.Int32()
	rb.Attributes = d.Int16()
	rb.LastOffsetDelta = d.Int32()
	rb.BaseTimestamp = d.Int64()
	rb.MaxTimestamp = d.Int64()
	rb.ProducerID = d.Int64()
	rb.ProducerEpoch = d.Int16()
	rb.BaseSequence = d.Int32()
	rb.Records = serde.Array(d, func(d *serde.Decoder) Record {
		var r Record
		r.Decode(d)
		return r
	})
	if d.Err() == nil && d.Offset-start != int(rb.BatchLength) {
		d.Fail(fmt.Errorf("%w: declared %d, decoded %d", ErrBatchLength, rb.BatchLength, d.Offset-start))
	}
}

// Encode writes the batch exactly as stored, without recomputing lengths or the CRC
func (rb RecordBatch) Encode(e *serde.Encoder) {
	e.PutInt64(rb.BaseOffset)
	e.PutInt32(rb.BatchLength)
	e.PutInt32(rb.PartitionLeaderEpoch)
	e.PutUInt8(rb.Magic)
	e.PutInt32(rb.CRC)
	rb.encodeChecksummed(e)
}

// encodeChecksummed writes attributes to the end of the batch, the region covered by the CRC
func (rb RecordBatch) encodeChecksummed(e *serde.Encoder) {
	e.PutInt16(rb.Attributes)
	e.PutInt32(rb.LastOffsetDelta)
	e.PutInt64(rb.BaseTimestamp)
	e.PutInt64(rb.MaxTimestamp)
	e.PutInt64(rb.ProducerID)
	e.PutInt16(rb.ProducerEpoch)
	e.PutInt32(rb.BaseSequence)
	serde.PutArray(e, rb.Records, func(e *serde.Encoder, r Record) { r.Encode(e) })
}

// Size returns the encoded size of the batch
func (rb RecordBatch) Size() int {
	return RecordBatchHeaderSize + rb.recordsSize()
}

func (rb RecordBatch) recordsSize() int {
	n := 0
	for _, r := range rb.Records {
		n += r.Size()
	}
	return n
}

// Checksum computes the CRC32C of the batch from the attributes field onwards
func (rb RecordBatch) Checksum() int32 {
	e := serde.NewSizedEncoder(rb.Size() - crcOffset)
	rb.encodeChecksummed(&e)
	return int32(crc32.Checksum(e.Bytes(), crc32c))
}

// ChecksumValid reports whether the stored CRC matches the batch content
func (rb RecordBatch) ChecksumValid() bool {
	return rb.CRC == rb.Checksum()
}

// Seal sets BatchLength and CRC from the batch content
func (rb *RecordBatch) Seal() {
	rb.BatchLength = int32(rb.Size() - LogOverhead)
	rb.CRC = rb.Checksum()
}

// LastOffset returns the offset of the last record of the batch
func (rb RecordBatch) LastOffset() int64 {
	return rb.BaseOffset + int64(rb.LastOffsetDelta)
}

// Decode reads a record. The key uses a signed varint count, negative meaning null.
func (r *Record) Decode(d *serde.Decoder) {
	r.Length = d.Varint()
	r.Attributes = d.Int8()
	r.TimestampDelta = d.Varint()
	r.OffsetDelta = d.Varint()
	r.Key = serde.SignedArray(d, serde.UInt8Element)
	r.ValueLength = d.Varint()
	r.FrameVersion = d.UInt8()
	r.Value = DecodeRecordValue(d)
	r.HeadersCount = d.Varint()
}

// Encode writes the record with its stored Length and ValueLength
func (r Record) Encode(e *serde.Encoder) {
	e.PutVarint(r.Length)
	r.encodeBody(e)
}

func (r Record) encodeBody(e *serde.Encoder) {
	e.PutInt8(r.Attributes)
	e.PutVarint(r.TimestampDelta)
	e.PutVarint(r.OffsetDelta)
	serde.PutSignedArray(e, r.Key, serde.PutUInt8Element)
	e.PutVarint(r.ValueLength)
	e.PutUInt8(r.FrameVersion)
	EncodeRecordValue(e, r.Value)
	e.PutVarint(r.HeadersCount)
}

// Size returns the encoded size of the record, length varint included
func (r Record) Size() int {
	return serde.VarintSize(r.Length) + r.bodySize()
}

func (r Record) bodySize() int {
	return serde.SizeInt8 +
		serde.VarintSize(r.TimestampDelta) +
		serde.VarintSize(r.OffsetDelta) +
		serde.SignedArraySize(r.Key, serde.UInt8ElementSize) +
		serde.VarintSize(r.ValueLength) +
		serde.SizeInt8 +
		RecordValueSize(r.Value) +
		serde.VarintSize(r.HeadersCount)
}

// NewRecord creates a metadata record with its length fields computed
func NewRecord(offsetDelta int64, value RecordValue) Record {
	r := Record{
		OffsetDelta:  offsetDelta,
		FrameVersion: 1,
		Value:        value,
	}
	r.ValueLength = int64(serde.SizeInt8 + RecordValueSize(value))
	r.Length = int64(r.bodySize())
	return r
}

// IsMalformed reports whether err comes from undecodable input
func IsMalformed(err error) bool {
	return errors.Is(err, serde.ErrMalformed)
}
