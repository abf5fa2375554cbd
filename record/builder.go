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
	"math"
	"strconv"

	"github.com/pulsewave/tsquery/internal/tserrors"
	"github.com/pulsewave/tsquery/internal/tslog"
	"github.com/pulsewave/tsquery/internal/tsmetrics"
)

// Builder is the arena-backed, append-only encoder for BinaryRecords
// (spec.md §4.5). It is single-threaded per instance by design -- spec.md
// §5 asks implementers to document, not lock, this -- so Builder carries no
// mutex; concurrent use of one Builder from multiple goroutines is a
// programming error the race detector will catch.
type Builder struct {
	schema  *Schema
	factory MemoryFactory

	containerSize int
	containers    []*Container

	curContainer    *Container
	curRecordOffset int // offset, within curContainer.buf, of the record's length word
	curRecEndOffset int // offset, within curContainer.buf, of the next write
	maxOffset       int // curContainer.buf's writable ceiling (== containerSize)

	inRecord bool
	fieldNo  int
	recHash  uint32

	inMap     bool
	mapOffset int // offset, within curContainer.buf, of the map's length placeholder
	mapCount  int
}

// NewBuilder creates a Builder for schema, drawing containers of
// containerSize bytes from factory.
func NewBuilder(schema *Schema, factory MemoryFactory, containerSize int) (*Builder, error) {
	if containerSize < MinContainerBytes {
		return nil, tserrors.New(tserrors.UnsupportedColumnType, "container size %d below minimum %d", containerSize, MinContainerBytes)
	}
	return &Builder{
		schema:        schema,
		factory:       factory,
		containerSize: containerSize,
		mapOffset:     -1,
	}, nil
}

// AllContainers returns every container the builder has ever owned, in
// allocation order, including the current one.
func (b *Builder) AllContainers() []*Container {
	if b.curContainer == nil {
		return append([]*Container(nil), b.containers...)
	}
	return append(append([]*Container(nil), b.containers...), b.curContainer)
}

// CurrentContainer returns the container records are currently being
// written into, or nil if the builder has never started a record.
func (b *Builder) CurrentContainer() *Container {
	return b.curContainer
}

// OptimalContainerBytes snapshots every container's bytes: full containers
// via Bytes(), the current one via TrimmedBytes() so its unused tail isn't
// shipped. If reset is true, the builder drops its ownership of all
// containers (the caller becomes the new owner) and starts fresh on its
// next StartNewRecord.
func (b *Builder) OptimalContainerBytes(reset bool) [][]byte {
	all := b.AllContainers()
	out := make([][]byte, len(all))
	for i, c := range all {
		if i == len(all)-1 {
			out[i] = append([]byte(nil), c.TrimmedBytes()...)
		} else {
			out[i] = append([]byte(nil), c.Bytes()...)
		}
	}
	if reset {
		b.containers = nil
		b.curContainer = nil
		b.curRecordOffset = 0
		b.curRecEndOffset = 0
		b.maxOffset = 0
	}
	return out
}

// ensureContainer lazily allocates the first container.
func (b *Builder) ensureContainer() error {
	if b.curContainer != nil {
		return nil
	}
	c, err := b.factory.Allocate(b.containerSize)
	if err != nil {
		return err
	}
	b.curContainer = c
	b.curRecEndOffset = containerHeaderLen
	b.maxOffset = b.containerSize
	return nil
}

// StartNewRecord begins a new record: reserves the length word and the
// fixed area, and resets the per-record state (spec.md §4.5).
func (b *Builder) StartNewRecord() error {
	if b.inRecord {
		return tserrors.New(tserrors.FieldOrderViolation, "StartNewRecord called while a record is already open")
	}
	if err := b.ensureContainer(); err != nil {
		return err
	}

	fixedLen := b.schema.FixedAreaLen()
	need := 4 + fixedLen
	if b.curRecEndOffset+need > b.maxOffset {
		if err := b.overflow(need); err != nil {
			return err
		}
	}

	b.curRecordOffset = b.curRecEndOffset
	// Zero the reserved region (new containers are already zeroed, but a
	// record can reuse freed space after overflow-copy in principle).
	for i := b.curRecordOffset; i < b.curRecordOffset+need; i++ {
		b.curContainer.buf[i] = 0
	}
	b.curRecEndOffset = b.curRecordOffset + need

	b.inRecord = true
	b.fieldNo = 0
	b.recHash = 7
	b.inMap = false
	b.mapOffset = -1
	b.mapCount = 0
	return nil
}

// overflow implements the container overflow protocol of spec.md §4.5: a
// fresh container is allocated, the partially-written current record is
// copied to its start, and the builder's cursors move to the new
// container. additionalBytes is the amount the caller is about to write
// that didn't fit in the old container.
func (b *Builder) overflow(additionalBytes int) error {
	recordBytesSoFar := 0
	if b.inRecord {
		recordBytesSoFar = b.curRecEndOffset - b.curRecordOffset
	}
	if containerHeaderLen+recordBytesSoFar+additionalBytes > b.containerSize {
		return tserrors.New(tserrors.RecordTooLarge,
			"record of at least %d bytes does not fit in an empty %d-byte container",
			recordBytesSoFar+additionalBytes, b.containerSize)
	}

	next, err := b.factory.Allocate(b.containerSize)
	if err != nil {
		return err
	}

	if b.curContainer != nil {
		b.containers = append(b.containers, b.curContainer)
	}

	if b.inRecord && recordBytesSoFar > 0 {
		copy(next.buf[containerHeaderLen:], b.curContainer.buf[b.curRecordOffset:b.curRecordOffset+recordBytesSoFar])
		delta := containerHeaderLen - b.curRecordOffset
		b.curRecordOffset += delta
		b.curRecEndOffset += delta
		if b.inMap && b.mapOffset >= 0 {
			b.mapOffset += delta
		}
	} else {
		b.curRecEndOffset = containerHeaderLen
	}

	tsmetrics.ContainerOverflowTotal.WithLabelValues(strconv.Itoa(b.containerSize)).Inc()
	tslog.V(1).Infof("record: container overflow, allocated new %d-byte container", b.containerSize)

	b.curContainer = next
	b.maxOffset = b.containerSize
	return nil
}

// ensureSpace guarantees n more bytes are writable at b.curRecEndOffset,
// overflowing to a new container (and copying the in-progress record) if
// necessary.
func (b *Builder) ensureSpace(n int) error {
	if b.curRecEndOffset+n <= b.maxOffset {
		return nil
	}
	return b.overflow(n)
}

func (b *Builder) checkField(want FieldType) error {
	if !b.inRecord {
		return tserrors.New(tserrors.FieldOrderViolation, "no record is open")
	}
	if b.inMap {
		return tserrors.New(tserrors.FieldOrderViolation, "a map field is still open")
	}
	if b.fieldNo < 0 || b.fieldNo >= len(b.schema.Fields) {
		return tserrors.New(tserrors.FieldOrderViolation, "field index %d out of range for %d fields", b.fieldNo, len(b.schema.Fields))
	}
	if b.schema.Fields[b.fieldNo] != want {
		return tserrors.New(tserrors.FieldOrderViolation, "field %d is %s, not %s", b.fieldNo, b.schema.Fields[b.fieldNo], want)
	}
	return nil
}

// fixedSlot returns the absolute offset, in curContainer.buf, of the
// current field's fixed-area slot.
func (b *Builder) fixedSlot() int {
	return b.curRecordOffset + 4 + b.schema.fieldOffset(b.fieldNo)
}

// AddInt writes a 4-byte signed int into the current field's fixed slot.
func (b *Builder) AddInt(i int32) error {
	if err := b.checkField(IntField); err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(b.curContainer.buf[b.fixedSlot():], uint32(i))
	b.fieldNo++
	return nil
}

// AddLong writes an 8-byte signed long into the current field's fixed slot.
func (b *Builder) AddLong(l int64) error {
	if err := b.checkField(LongField); err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(b.curContainer.buf[b.fixedSlot():], uint64(l))
	b.fieldNo++
	return nil
}

// AddDouble writes an 8-byte IEEE-754 double into the current field's fixed
// slot.
func (b *Builder) AddDouble(d float64) error {
	if err := b.checkField(DoubleField); err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(b.curContainer.buf[b.fixedSlot():], math.Float64bits(d))
	b.fieldNo++
	return nil
}

// AddString writes a length-prefixed UTF-8 string into the variable area
// and records its offset in the current field's fixed slot. If the field
// index is >= schema.FirstPartField, the string's hash is folded into the
// rolling hash (spec.md §4.5).
func (b *Builder) AddString(s []byte) error {
	if err := b.checkField(StringField); err != nil {
		return err
	}
	if len(s) >= 1<<16 {
		return tserrors.New(tserrors.RecordTooLarge, "string of %d bytes exceeds the 65536-byte limit", len(s))
	}
	if err := b.ensureSpace(2 + len(s)); err != nil {
		return err
	}

	varOffset := b.curRecEndOffset
	binary.LittleEndian.PutUint16(b.curContainer.buf[varOffset:], uint16(len(s)))
	copy(b.curContainer.buf[varOffset+2:], s)
	b.curRecEndOffset = varOffset + 2 + len(s)

	relOffset := varOffset - b.curRecordOffset
	binary.LittleEndian.PutUint32(b.curContainer.buf[b.fixedSlot():], uint32(relOffset))

	if b.fieldNo >= b.schema.FirstPartField {
		b.recHash = CombineHash(b.recHash, hash32(s))
	}
	b.fieldNo++
	return nil
}

// StartMap opens a map field: reserves a 4-byte length placeholder in the
// variable area and records its offset in the current field's fixed slot.
func (b *Builder) StartMap() error {
	if err := b.checkField(MapField); err != nil {
		return err
	}
	if err := b.ensureSpace(4); err != nil {
		return err
	}
	b.mapOffset = b.curRecEndOffset
	binary.LittleEndian.PutUint32(b.curContainer.buf[b.mapOffset:], 0)
	b.curRecEndOffset += 4

	relOffset := b.mapOffset - b.curRecordOffset
	binary.LittleEndian.PutUint32(b.curContainer.buf[b.fixedSlot():], uint32(relOffset))

	b.inMap = true
	b.mapCount = 0
	return nil
}

// encodeMapKey appends key's wire encoding to dst: a 2-byte 0xF000|index
// tag if key is a predefined key, else a 2-byte length prefix followed by
// the UTF-8 bytes (spec.md §3.3, §6.5).
func (b *Builder) encodeMapKey(key []byte) ([]byte, error) {
	if idx, ok := b.schema.predefinedIndex(key); ok {
		tag := make([]byte, 2)
		binary.LittleEndian.PutUint16(tag, uint16(predefinedTagBase|idx))
		return tag, nil
	}
	if len(key) >= 61440 {
		return nil, tserrors.New(tserrors.RecordTooLarge, "map key of %d bytes exceeds the 61440-byte limit", len(key))
	}
	out := make([]byte, 2+len(key))
	binary.LittleEndian.PutUint16(out, uint16(len(key)))
	copy(out[2:], key)
	return out, nil
}

// AddMapKeyValue appends one key-value pair to the currently open map, in
// the order given -- it does not sort or validate ordering; callers that
// want the sorted-map invariant of spec.md §3.3 should pre-sort (or use
// AddSortedPairsAsMap).
func (b *Builder) AddMapKeyValue(k, v []byte) error {
	if !b.inMap {
		return tserrors.New(tserrors.FieldOrderViolation, "no map field is open")
	}
	if len(v) >= 1<<16 {
		return tserrors.New(tserrors.RecordTooLarge, "map value of %d bytes exceeds the 65536-byte limit", len(v))
	}
	encKey, err := b.encodeMapKey(k)
	if err != nil {
		return err
	}
	if err := b.ensureSpace(len(encKey) + 2 + len(v)); err != nil {
		return err
	}

	w := b.curRecEndOffset
	copy(b.curContainer.buf[w:], encKey)
	w += len(encKey)
	binary.LittleEndian.PutUint16(b.curContainer.buf[w:], uint16(len(v)))
	w += 2
	copy(b.curContainer.buf[w:], v)
	w += len(v)
	b.curRecEndOffset = w
	b.mapCount++

	mapLen := uint32(b.curRecEndOffset - (b.mapOffset + 4))
	binary.LittleEndian.PutUint32(b.curContainer.buf[b.mapOffset:], mapLen)
	return nil
}

// EndMap closes the currently open map field.
func (b *Builder) EndMap() error {
	if !b.inMap {
		return tserrors.New(tserrors.FieldOrderViolation, "no map field is open")
	}
	b.inMap = false
	b.mapOffset = -1
	b.fieldNo++
	return nil
}

// AddSortedPairsAsMap is the convenience path of spec.md §4.5: it opens the
// map field, appends every pair in the given order (callers must have
// already sorted pairs, typically via SortAndComputeHashes), folds each
// corresponding hash into the rolling hash, and closes the map.
// Passing unsorted pairs produces a record that violates the sorted-map-key
// invariant without this function detecting it -- sorting is the caller's
// responsibility, as spec.md §4.5 states.
func (b *Builder) AddSortedPairsAsMap(pairs []KV, hashes []uint32) error {
	if len(pairs) != len(hashes) {
		return tserrors.New(tserrors.UnsupportedColumnType, "%d pairs but %d hashes", len(pairs), len(hashes))
	}
	if err := b.StartMap(); err != nil {
		return err
	}
	for i, p := range pairs {
		if err := b.AddMapKeyValue(p.Key, p.Value); err != nil {
			return err
		}
		b.recHash = CombineHash(b.recHash, hashes[i])
	}
	return b.EndMap()
}

// EndRecord finalizes the open record: optionally writes the rolling hash
// as the record's trailing word, word-aligns the write cursor, and updates
// the container header length. It returns the record's start offset within
// its container.
func (b *Builder) EndRecord(writeHash bool) (int, error) {
	if !b.inRecord {
		return 0, tserrors.New(tserrors.FieldOrderViolation, "no record is open")
	}
	if b.inMap {
		return 0, tserrors.New(tserrors.FieldOrderViolation, "a map field is still open")
	}
	if b.fieldNo != len(b.schema.Fields) {
		return 0, tserrors.New(tserrors.FieldOrderViolation, "record has %d of %d fields set", b.fieldNo, len(b.schema.Fields))
	}

	// Word-align: pad with zero bytes until curRecEndOffset is a multiple
	// of 4 (spec.md §3.3, invariant 1 and §8 invariant 5). Padding goes
	// before the hash so the hash word stays the record's last four bytes.
	for b.curRecEndOffset%4 != 0 {
		if err := b.ensureSpace(1); err != nil {
			return 0, err
		}
		b.curContainer.buf[b.curRecEndOffset] = 0
		b.curRecEndOffset++
	}

	if writeHash {
		if err := b.ensureSpace(4); err != nil {
			return 0, err
		}
		hashOffset := b.curRecEndOffset
		binary.LittleEndian.PutUint32(b.curContainer.buf[hashOffset:], b.recHash)
		b.curRecEndOffset = hashOffset + 4
	}

	recordLen := uint32(b.curRecEndOffset - b.curRecordOffset - 4)
	binary.LittleEndian.PutUint32(b.curContainer.buf[b.curRecordOffset:], recordLen)

	newContainerLen := uint32(b.curRecEndOffset - containerHeaderLen)
	b.curContainer.setLength(newContainerLen)

	start := b.curRecordOffset
	b.inRecord = false
	return start, nil
}
