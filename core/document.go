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


package core

import (
	"encoding/json"
	"fmt"
	"maps"
	"math"
	"slices"
	"strconv"
	"strings"
)

// Metadata maps string keys to string, number or boolean values.
type Metadata map[string]any

// Clone returns a shallow copy of the metadata. A nil map stays nil.
func (m Metadata) Clone() Metadata {
	if m == nil {
		return nil
	}
	return maps.Clone(m)
}

// Document is a unit of indexed or retrieved content.
// Documents are treated as immutable once retrieved.
type Document struct {
	Content  string
	Metadata Metadata
}

// NewDocument creates a document with a copy of the given metadata.
func NewDocument(content string, metadata Metadata) Document {
	return Document{Content: content, Metadata: metadata.Clone()}
}

// DocumentKey is the comparable identity of a Document. Two documents are the
// same document iff their keys are equal.
type DocumentKey struct {
	Content string
	// Metadata is the canonical encoding of the metadata pairs sorted by key.
	Metadata string
}

// Key computes the DocumentKey of the document.
//
// Metadata values are passed through Stringify before comparison, so
// {"a": 1} and {"a": "1"} produce the same key. Each key and value is
// length-prefixed so that no choice of keys or values can collide with a
// different set of pairs.
func (d Document) Key() DocumentKey {
	if len(d.Metadata) == 0 {
		return DocumentKey{Content: d.Content}
	}

	keys := slices.Sorted(maps.Keys(d.Metadata))

	var b strings.Builder
	for _, k := range keys {
		v := Stringify(d.Metadata[k])
		b.WriteString(strconv.Itoa(len(k)))
		b.WriteByte(':')
		b.WriteString(k)
		b.WriteString(strconv.Itoa(len(v)))
		b.WriteByte(':')
		b.WriteString(v)
	}
	return DocumentKey{Content: d.Content, Metadata: b.String()}
}

// Stringify renders a metadata value in its canonical string form.
//
//   - strings are returned as-is
//   - integers are rendered in base 10
//   - floats use the shortest representation that round-trips; integral
//     floats have no fractional part, so 1.0 renders as "1"
//   - json.Number renders like the integer or float it holds
//   - booleans render as "true" or "false"
//   - nil renders as the empty string
//   - anything else is rendered with fmt.Sprint
func Stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.FormatInt(int64(val), 10)
	case int8:
		return strconv.FormatInt(int64(val), 10)
	case int16:
		return strconv.FormatInt(int64(val), 10)
	case int32:
		return strconv.FormatInt(int64(val), 10)
	case int64:
		return strconv.FormatInt(val, 10)
	case uint:
		return strconv.FormatUint(uint64(val), 10)
	case uint8:
		return strconv.FormatUint(uint64(val), 10)
	case uint16:
		return strconv.FormatUint(uint64(val), 10)
	case uint32:
		return strconv.FormatUint(uint64(val), 10)
	case uint64:
		return strconv.FormatUint(val, 10)
	case float32:
		return formatFloat(float64(val), 32)
	case float64:
		return formatFloat(val, 64)
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return strconv.FormatInt(i, 10)
		}
		if f, err := val.Float64(); err == nil {
			return formatFloat(f, 64)
		}
		return val.String()
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}

func formatFloat(f float64, bitSize int) string {
	if !math.IsInf(f, 0) && !math.IsNaN(f) && f == math.Trunc(f) && math.Abs(f) < 1e21 {
		return strconv.FormatFloat(f, 'f', -1, bitSize)
	}
	return strconv.FormatFloat(f, 'g', -1, bitSize)
}
