/*
Copyright 2026 The PulseWave Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package record

import "fmt"

// FieldType names the wire representation of one record field (spec.md §3.3).
type FieldType int

const (
	IntField FieldType = iota
	LongField
	DoubleField
	StringField
	MapField
)

func (t FieldType) String() string {
	switch t {
	case IntField:
		return "Int"
	case LongField:
		return "Long"
	case DoubleField:
		return "Double"
	case StringField:
		return "String"
	case MapField:
		return "Map"
	default:
		return "Unknown"
	}
}

// MaxPredefinedKeys bounds the predefined-key table so an index fits in the
// 12 low bits of the 0xF000|idx map-key tag (spec.md §6.5).
const MaxPredefinedKeys = 4096

// predefinedTagBase is the reserved high-bit prefix distinguishing a
// predefined-key tag from a UTF-8 length prefix (spec.md §3.3, §6.5).
const predefinedTagBase = 0xF000

// Schema describes one record layout: the fixed-area field list, which
// fields are shard/partition-key strings that fold into the rolling hash,
// and the table of predefined map keys.
//
// HashOffset records where the per-record rolling hash word is located
// relative to the record start. Because records here are variable length
// (string and map fields grow the variable area), the hash always lands at
// the last word of the record rather than at a schema-fixed offset; -1 is
// the sentinel meaning "trailing", and both Builder.EndRecord and the
// Reader compute the concrete offset as recordLength-4 at the time they
// need it.
type Schema struct {
	Fields         []FieldType
	FirstPartField int
	PredefinedKeys []string

	HashOffset int

	// fieldOffsets[i] is the byte offset, relative to the start of the
	// fixed area, of field i's slot. Int/String/Map fields get a 4-byte
	// slot (primitive in place, or an offset into the variable area);
	// Long/Double fields get an 8-byte slot so 64-bit values can be
	// stored in place too -- spec.md §3.3 describes a uniform 4-byte
	// slot, which undersizes Long/Double; sizing slots by field width is
	// the natural fix and is recorded as an Open Question resolution in
	// DESIGN.md.
	fieldOffsets []int
	fixedLen     int

	keyIndex map[string]int
}

// NewSchema validates and builds a Schema. firstPartField is the index of
// the first field (in Fields) that participates in the partition-key
// rolling hash; pass len(fields) if none do.
func NewSchema(fields []FieldType, firstPartField int, predefinedKeys []string) (*Schema, error) {
	if firstPartField < 0 || firstPartField > len(fields) {
		return nil, fmt.Errorf("record: firstPartField %d out of range for %d fields", firstPartField, len(fields))
	}
	if len(predefinedKeys) > MaxPredefinedKeys {
		return nil, fmt.Errorf("record: %d predefined keys exceeds max %d", len(predefinedKeys), MaxPredefinedKeys)
	}
	idx := make(map[string]int, len(predefinedKeys))
	for i, k := range predefinedKeys {
		if _, dup := idx[k]; dup {
			return nil, fmt.Errorf("record: duplicate predefined key %q", k)
		}
		idx[k] = i
	}
	offsets := make([]int, len(fields))
	cursor := 0
	for i, f := range fields {
		offsets[i] = cursor
		cursor += fieldSlotSize(f)
	}
	s := &Schema{
		Fields:         append([]FieldType(nil), fields...),
		FirstPartField: firstPartField,
		PredefinedKeys: append([]string(nil), predefinedKeys...),
		HashOffset:     -1,
		fieldOffsets:   offsets,
		fixedLen:       cursor,
		keyIndex:       idx,
	}
	return s, nil
}

// fieldSlotSize is the fixed-area width of one field's slot.
func fieldSlotSize(t FieldType) int {
	switch t {
	case LongField, DoubleField:
		return 8
	default:
		return 4
	}
}

// FixedAreaLen is the number of bytes the fixed area occupies.
func (s *Schema) FixedAreaLen() int {
	return s.fixedLen
}

// fieldOffset returns field i's byte offset relative to the start of the
// fixed area (i.e. relative to record-start+4).
func (s *Schema) fieldOffset(i int) int {
	return s.fieldOffsets[i]
}

// predefinedIndex returns the index of key in the predefined-key table, and
// whether it was found.
func (s *Schema) predefinedIndex(key []byte) (int, bool) {
	idx, ok := s.keyIndex[string(key)]
	return idx, ok
}
