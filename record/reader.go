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

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Record is a parsed, read-only view over one record's bytes. Field
// accessors index by the same field numbering used when it was built.
type Record struct {
	schema *Schema
	buf    []byte // the record's bytes, starting at its length word
	length uint32 // spec.md §3.3: bytes after the length word
}

// ReadContainer parses every complete record out of a container's bytes
// (header included) according to schema. Containers produced by any
// conforming Builder are parseable here regardless of host endianness,
// since both sides fix little-endian (spec.md §6.4).
func ReadContainer(schema *Schema, containerBytes []byte) ([]*Record, error) {
	if len(containerBytes) < containerHeaderLen {
		return nil, fmt.Errorf("record: container shorter than header (%d bytes)", len(containerBytes))
	}
	length := binary.LittleEndian.Uint32(containerBytes[0:4])
	version := binary.LittleEndian.Uint32(containerBytes[4:8])
	if version != containerVersion {
		return nil, fmt.Errorf("record: unsupported container version %d", version)
	}
	end := containerHeaderLen + int(length)
	if end > len(containerBytes) {
		return nil, fmt.Errorf("record: container header claims %d record bytes but only %d are present", length, len(containerBytes)-containerHeaderLen)
	}

	var records []*Record
	pos := containerHeaderLen
	for pos < end {
		if pos+4 > end {
			return nil, fmt.Errorf("record: truncated record length word at offset %d", pos)
		}
		recLen := binary.LittleEndian.Uint32(containerBytes[pos : pos+4])
		total := 4 + int(recLen)
		if pos+total > end {
			return nil, fmt.Errorf("record: record at offset %d claims %d bytes past container length", pos, total)
		}
		records = append(records, &Record{schema: schema, buf: containerBytes[pos : pos+total], length: recLen})
		pos += total
		// Records are word-aligned; recLen+4 is already a multiple of 4
		// for any record a conforming Builder produced.
	}
	return records, nil
}

// Hash returns the record's trailing rolling-hash word (spec.md §3.3: the
// last word of the record).
func (r *Record) Hash() uint32 {
	return binary.LittleEndian.Uint32(r.buf[len(r.buf)-4:])
}

func (r *Record) fixedSlot(field int) int {
	return 4 + r.schema.fieldOffset(field)
}

// Int reads an Int field.
func (r *Record) Int(field int) (int32, error) {
	if err := r.checkType(field, IntField); err != nil {
		return 0, err
	}
	return int32(binary.LittleEndian.Uint32(r.buf[r.fixedSlot(field):])), nil
}

// Long reads a Long field.
func (r *Record) Long(field int) (int64, error) {
	if err := r.checkType(field, LongField); err != nil {
		return 0, err
	}
	return int64(binary.LittleEndian.Uint64(r.buf[r.fixedSlot(field):])), nil
}

// Double reads a Double field.
func (r *Record) Double(field int) (float64, error) {
	if err := r.checkType(field, DoubleField); err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(r.buf[r.fixedSlot(field):])), nil
}

// String reads a String field.
func (r *Record) String(field int) ([]byte, error) {
	if err := r.checkType(field, StringField); err != nil {
		return nil, err
	}
	rel := binary.LittleEndian.Uint32(r.buf[r.fixedSlot(field):])
	off := int(rel)
	l := binary.LittleEndian.Uint16(r.buf[off:])
	return r.buf[off+2 : off+2+int(l)], nil
}

// Map reads a Map field's key-value pairs, in on-wire (sorted) order.
// Predefined keys are returned resolved back to their string form.
func (r *Record) Map(field int) ([]KV, error) {
	if err := r.checkType(field, MapField); err != nil {
		return nil, err
	}
	rel := binary.LittleEndian.Uint32(r.buf[r.fixedSlot(field):])
	off := int(rel)
	mapLen := binary.LittleEndian.Uint32(r.buf[off:])
	end := off + 4 + int(mapLen)
	pos := off + 4

	var pairs []KV
	for pos < end {
		var key []byte
		tag := binary.LittleEndian.Uint16(r.buf[pos:])
		if tag&0xF000 == predefinedTagBase {
			idx := int(tag &^ predefinedTagBase)
			if idx >= len(r.schema.PredefinedKeys) {
				return nil, fmt.Errorf("record: predefined key index %d out of range", idx)
			}
			key = []byte(r.schema.PredefinedKeys[idx])
			pos += 2
		} else {
			klen := tag
			pos += 2
			key = r.buf[pos : pos+int(klen)]
			pos += int(klen)
		}
		vlen := binary.LittleEndian.Uint16(r.buf[pos:])
		pos += 2
		val := r.buf[pos : pos+int(vlen)]
		pos += int(vlen)
		pairs = append(pairs, KV{Key: key, Value: val})
	}
	return pairs, nil
}

func (r *Record) checkType(field int, want FieldType) error {
	if field < 0 || field >= len(r.schema.Fields) {
		return fmt.Errorf("record: field %d out of range for %d fields", field, len(r.schema.Fields))
	}
	if r.schema.Fields[field] != want {
		return fmt.Errorf("record: field %d is %s, not %s", field, r.schema.Fields[field], want)
	}
	return nil
}
