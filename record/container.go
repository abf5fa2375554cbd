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
)

// MinContainerBytes is the smallest container size this package accepts
// (spec.md §3.3: "a contiguous region of size C >= 2048").
const MinContainerBytes = 2048

// containerHeaderLen is the 8-byte header: 4-byte length + 4-byte version.
const containerHeaderLen = 8

// containerVersion is the only version this package writes or accepts.
const containerVersion = 0

// Container is a contiguous, word-aligned region holding a sequence of
// binary records plus an 8-byte header (spec.md §3.3). It is always
// on-heap here: the arena discipline described in spec.md §5 (memory
// factories handing back (base, offset, nativePointer) for off-heap
// arenas) is modeled by the MemoryFactory interface, but this
// implementation only ships the on-heap factory -- the off-heap case is an
// external concern (a pinned/mmap'd allocator) this module does not own.
type Container struct {
	buf []byte
}

// newContainer allocates a zeroed container of size bytes and writes its
// header (length=0, version=containerVersion).
func newContainer(size int) *Container {
	c := &Container{buf: make([]byte, size)}
	binary.LittleEndian.PutUint32(c.buf[0:4], 0)
	binary.LittleEndian.PutUint32(c.buf[4:8], containerVersion)
	return c
}

// Length returns the header's length field: bytes of records written so
// far, excluding the header.
func (c *Container) Length() uint32 {
	return binary.LittleEndian.Uint32(c.buf[0:4])
}

// setLength atomically (from the perspective of a concurrent reader doing
// a plain load) updates the header length field. Go's memory model does
// not guarantee atomicity for a plain uint32 store observed from another
// goroutine without synchronization; callers that share a Container across
// goroutines must add their own synchronization on top of this field, per
// spec.md §5's "not thread-safe" builder contract.
func (c *Container) setLength(n uint32) {
	binary.LittleEndian.PutUint32(c.buf[0:4], n)
}

// Version returns the container format version word.
func (c *Container) Version() uint32 {
	return binary.LittleEndian.Uint32(c.buf[4:8])
}

// Cap returns the container's total byte capacity, header included.
func (c *Container) Cap() int { return len(c.buf) }

// Bytes returns the full backing array, including any unused tail past the
// current length -- the "array()" accessor of spec.md §4.5.
func (c *Container) Bytes() []byte { return c.buf }

// TrimmedBytes returns only the header plus the records written so far --
// the "trimmedArray()" accessor of spec.md §4.5.
func (c *Container) TrimmedBytes() []byte {
	return c.buf[:containerHeaderLen+int(c.Length())]
}

// MemoryFactory hands back containers for the builder to own. It models the
// arena allocator of spec.md §5/§9: "allocate(size) -> (base, offset,
// nativePointer)" collapses here to a single on-heap Container, since this
// module does not implement an off-heap arena itself.
type MemoryFactory interface {
	Allocate(size int) (*Container, error)
}

// OnHeapFactory allocates ordinary Go-heap containers. Ownership of a
// Container allocated this way has ordinary Go garbage-collected semantics;
// there is nothing to release.
type OnHeapFactory struct{}

// Allocate implements MemoryFactory.
func (OnHeapFactory) Allocate(size int) (*Container, error) {
	if size < MinContainerBytes {
		return nil, fmt.Errorf("record: container size %d below minimum %d", size, MinContainerBytes)
	}
	return newContainer(size), nil
}
