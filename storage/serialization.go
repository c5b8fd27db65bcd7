// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package storage

import (
	"encoding/json"
	"fmt"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/multiquery/core"
)

// Metadata value type tags. The tag precedes every encoded value.
const (
	tagString byte = iota + 1
	tagInt
	tagUint
	tagFloat
	tagBool
	tagNumber
)

var (
	// IDMUS serializes document IDs.
	IDMUS = idSer{}

	// MetadataValueMUS serializes a scalar metadata value.
	// Signed integers decode as int64, unsigned as uint64 and floats as float64.
	MetadataValueMUS = metadataValueSer{}

	// MetadataMUS serializes a metadata map.
	MetadataMUS = ord.NewMapSer[string, any](ord.String, MetadataValueMUS)

	// VectorMUS serializes an embedding.
	VectorMUS = ord.NewSliceSer[float32](raw.Float32)

	// StoredDocumentMUS serializes a StoredDocument.
	StoredDocumentMUS = storedDocumentSer{}

	// CheckpointMUS serializes a Checkpoint.
	CheckpointMUS = checkpointSer{}
)

type idSer struct{}

func (idSer) Marshal(id core.ID, bs []byte) int {
	return varint.Uint64.Marshal(uint64(id), bs)
}

func (idSer) Unmarshal(bs []byte) (core.ID, int, error) {
	v, n, err := varint.Uint64.Unmarshal(bs)
	return core.ID(v), n, err
}

func (idSer) Size(id core.ID) int {
	return varint.Uint64.Size(uint64(id))
}

func (idSer) Skip(bs []byte) (int, error) {
	return varint.Uint64.Skip(bs)
}

type metadataValueSer struct{}

// Marshal panics on values for which core.IsScalar is false; callers validate
// metadata first.
func (metadataValueSer) Marshal(v any, bs []byte) (n int) {
	tag, val := canonicalValue(v)
	n = raw.Byte.Marshal(tag, bs)
	switch tag {
	case tagString, tagNumber:
		n += ord.String.Marshal(val.(string), bs[n:])
	case tagInt:
		n += varint.Int64.Marshal(val.(int64), bs[n:])
	case tagUint:
		n += varint.Uint64.Marshal(val.(uint64), bs[n:])
	case tagFloat:
		n += raw.Float64.Marshal(val.(float64), bs[n:])
	case tagBool:
		n += ord.Bool.Marshal(val.(bool), bs[n:])
	default:
		panic(fmt.Sprintf("storage: unsupported metadata value %T", v))
	}
	return n
}

func (metadataValueSer) Unmarshal(bs []byte) (v any, n int, err error) {
	tag, n, err := raw.Byte.Unmarshal(bs)
	if err != nil {
		return nil, n, err
	}

	var n1 int
	switch tag {
	case tagString:
		v, n1, err = ord.String.Unmarshal(bs[n:])
	case tagNumber:
		var s string
		s, n1, err = ord.String.Unmarshal(bs[n:])
		v = json.Number(s)
	case tagInt:
		v, n1, err = varint.Int64.Unmarshal(bs[n:])
	case tagUint:
		v, n1, err = varint.Uint64.Unmarshal(bs[n:])
	case tagFloat:
		v, n1, err = raw.Float64.Unmarshal(bs[n:])
	case tagBool:
		v, n1, err = ord.Bool.Unmarshal(bs[n:])
	default:
		return nil, n, fmt.Errorf("%w: unknown metadata tag %d", ErrSerializationFailed, tag)
	}
	return v, n + n1, err
}

func (metadataValueSer) Size(v any) int {
	tag, val := canonicalValue(v)
	size := raw.Byte.Size(tag)
	switch tag {
	case tagString, tagNumber:
		size += ord.String.Size(val.(string))
	case tagInt:
		size += varint.Int64.Size(val.(int64))
	case tagUint:
		size += varint.Uint64.Size(val.(uint64))
	case tagFloat:
		size += raw.Float64.Size(val.(float64))
	case tagBool:
		size += ord.Bool.Size(val.(bool))
	}
	return size
}

func (metadataValueSer) Skip(bs []byte) (n int, err error) {
	tag, n, err := raw.Byte.Unmarshal(bs)
	if err != nil {
		return n, err
	}

	var n1 int
	switch tag {
	case tagString, tagNumber:
		n1, err = ord.String.Skip(bs[n:])
	case tagInt:
		n1, err = varint.Int64.Skip(bs[n:])
	case tagUint:
		n1, err = varint.Uint64.Skip(bs[n:])
	case tagFloat:
		n1, err = raw.Float64.Skip(bs[n:])
	case tagBool:
		n1, err = ord.Bool.Skip(bs[n:])
	default:
		return n, fmt.Errorf("%w: unknown metadata tag %d", ErrSerializationFailed, tag)
	}
	return n + n1, err
}

// canonicalValue widens a scalar to the type it is encoded as. Unsupported
// values yield tag 0.
func canonicalValue(v any) (byte, any) {
	switch val := v.(type) {
	case string:
		return tagString, val
	case json.Number:
		return tagNumber, string(val)
	case bool:
		return tagBool, val
	case int:
		return tagInt, int64(val)
	case int8:
		return tagInt, int64(val)
	case int16:
		return tagInt, int64(val)
	case int32:
		return tagInt, int64(val)
	case int64:
		return tagInt, val
	case uint:
		return tagUint, uint64(val)
	case uint8:
		return tagUint, uint64(val)
	case uint16:
		return tagUint, uint64(val)
	case uint32:
		return tagUint, uint64(val)
	case uint64:
		return tagUint, val
	case float32:
		return tagFloat, float64(val)
	case float64:
		return tagFloat, val
	default:
		return 0, nil
	}
}

type storedDocumentSer struct{}

func (storedDocumentSer) Marshal(d core.StoredDocument, bs []byte) (n int) {
	n = IDMUS.Marshal(d.Id, bs)
	n += ord.String.Marshal(d.Document.Content, bs[n:])
	n += MetadataMUS.Marshal(d.Document.Metadata, bs[n:])
	n += VectorMUS.Marshal(d.Vector, bs[n:])
	n += raw.TimeUnixMicroUTC.Marshal(d.InsertedAt, bs[n:])
	n += raw.TimeUnixMicroUTC.Marshal(d.UpdatedAt, bs[n:])
	return n
}

func (storedDocumentSer) Unmarshal(bs []byte) (d core.StoredDocument, n int, err error) {
	var n1 int
	d.Id, n, err = IDMUS.Unmarshal(bs)
	if err != nil {
		return
	}
	d.Document.Content, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	var md map[string]any
	md, n1, err = MetadataMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	if len(md) > 0 {
		d.Document.Metadata = md
	}
	d.Vector, n1, err = VectorMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	d.InsertedAt, n1, err = raw.TimeUnixMicroUTC.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	d.UpdatedAt, n1, err = raw.TimeUnixMicroUTC.Unmarshal(bs[n:])
	n += n1
	return
}

func (storedDocumentSer) Size(d core.StoredDocument) (size int) {
	size = IDMUS.Size(d.Id)
	size += ord.String.Size(d.Document.Content)
	size += MetadataMUS.Size(d.Document.Metadata)
	size += VectorMUS.Size(d.Vector)
	size += raw.TimeUnixMicroUTC.Size(d.InsertedAt)
	size += raw.TimeUnixMicroUTC.Size(d.UpdatedAt)
	return
}

func (storedDocumentSer) Skip(bs []byte) (n int, err error) {
	var n1 int
	skips := []func([]byte) (int, error){
		IDMUS.Skip,
		ord.String.Skip,
		MetadataMUS.Skip,
		VectorMUS.Skip,
		raw.TimeUnixMicroUTC.Skip,
		raw.TimeUnixMicroUTC.Skip,
	}
	for _, skip := range skips {
		n1, err = skip(bs[n:])
		n += n1
		if err != nil {
			return
		}
	}
	return
}

type checkpointSer struct{}

func (checkpointSer) Marshal(c core.Checkpoint, bs []byte) (n int) {
	n = ord.String.Marshal(c.ProcessorType, bs)
	n += IDMUS.Marshal(c.LastId, bs[n:])
	n += varint.PositiveInt.Marshal(c.Processed, bs[n:])
	n += raw.TimeUnixMicroUTC.Marshal(c.UpdatedAt, bs[n:])
	return n
}

func (checkpointSer) Unmarshal(bs []byte) (c core.Checkpoint, n int, err error) {
	var n1 int
	c.ProcessorType, n, err = ord.String.Unmarshal(bs)
	if err != nil {
		return
	}
	c.LastId, n1, err = IDMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	c.Processed, n1, err = varint.PositiveInt.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	c.UpdatedAt, n1, err = raw.TimeUnixMicroUTC.Unmarshal(bs[n:])
	n += n1
	return
}

func (checkpointSer) Size(c core.Checkpoint) int {
	return ord.String.Size(c.ProcessorType) +
		IDMUS.Size(c.LastId) +
		varint.PositiveInt.Size(c.Processed) +
		raw.TimeUnixMicroUTC.Size(c.UpdatedAt)
}

func (checkpointSer) Skip(bs []byte) (n int, err error) {
	_, n, err = checkpointSer{}.Unmarshal(bs)
	return
}

// MarshalID serializes an ID to bytes.
func MarshalID(id core.ID) []byte {
	buf := make([]byte, IDMUS.Size(id))
	IDMUS.Marshal(id, buf)
	return buf
}

// UnmarshalID deserializes an ID from bytes.
func UnmarshalID(data []byte) (core.ID, error) {
	id, _, err := IDMUS.Unmarshal(data)
	return id, err
}

// MarshalStoredDocument serializes a StoredDocument to bytes.
// Metadata values must be scalars.
func MarshalStoredDocument(doc *core.StoredDocument) ([]byte, error) {
	if err := core.ValidateMetadata(doc.Document.Metadata); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	buf := make([]byte, StoredDocumentMUS.Size(*doc))
	StoredDocumentMUS.Marshal(*doc, buf)
	return buf, nil
}

// UnmarshalStoredDocument deserializes a StoredDocument from bytes.
func UnmarshalStoredDocument(data []byte) (*core.StoredDocument, error) {
	doc, _, err := StoredDocumentMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return &doc, nil
}

// MarshalCheckpoint serializes a Checkpoint to bytes.
func MarshalCheckpoint(checkpoint *core.Checkpoint) []byte {
	buf := make([]byte, CheckpointMUS.Size(*checkpoint))
	CheckpointMUS.Marshal(*checkpoint, buf)
	return buf
}

// UnmarshalCheckpoint deserializes a Checkpoint from bytes.
func UnmarshalCheckpoint(data []byte) (*core.Checkpoint, error) {
	checkpoint, _, err := CheckpointMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return &checkpoint, nil
}
