package serde

// TaggedField is a single optional field of a flexible version structure
type TaggedField struct {
	Tag  uint64
	Data []byte
}

// TaggedFields is the trailing section of a flexible version structure
// (KIP-482). Fields are kept raw so re-encoding reproduces the input.
type TaggedFields []TaggedField

// Encode writes the field count followed by every field
func (t TaggedFields) Encode(e *Encoder) {
	e.PutUvarint(uint64(len(t)))
	for _, f := range t {
		e.PutUvarint(f.Tag)
		e.PutUvarint(uint64(len(f.Data)))
		e.PutBytes(f.Data)
	}
}

// Size returns the encoded size of the tagged field section
func (t TaggedFields) Size() int {
	n := UvarintSize(uint64(len(t)))
	for _, f := range t {
		n += UvarintSize(f.Tag) + UvarintSize(uint64(len(f.Data))) + len(f.Data)
	}
	return n
}

// TaggedFields decodes a tagged field section
func (d *Decoder) TaggedFields() TaggedFields {
	n := d.Uvarint()
	if n == 0 || d.err != nil {
		return nil
	}
	if n > uint64(d.Remaining()) {
		d.Fail(ErrTruncated)
		return nil
	}
	fields := make(TaggedFields, 0, n)
	for i := uint64(0); i < n; i++ {
		tag := d.Uvarint()
		size := d.Uvarint()
		if size > uint64(d.Remaining()) {
			d.Fail(ErrTruncated)
		}
		data := d.take(int(size))
		if d.err != nil {
			return nil
		}
		fields = append(fields, TaggedField{Tag: tag, Data: data})
	}
	return fields
}
