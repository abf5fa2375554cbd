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
	"fmt"
	"sort"

	"github.com/cespare/xxhash/v2"
)

// KV is a single key-value pair, used both for the builder's map fields and
// for the shard-key hash primitives below.
type KV struct {
	Key   []byte
	Value []byte
}

// hash32 is the BinaryRegion.hash32 primitive of spec.md §4.5: a 32-bit
// hash of an arbitrary byte string. Grounded on the xxhash use already
// present in the teacher (vtgate/balancer/session.go's weight() hashes a
// tablet alias with xxhash.Sum64String); truncating to 32 bits is
// deliberate -- the rolling hash and shard-key hash are both defined over
// uint32 throughout this spec.
func hash32(b []byte) uint32 {
	return uint32(xxhash.Sum64(b))
}

// stringHash hashes a UTF-8 byte string the same way hash32 does. It is a
// separate name only to match spec.md's vocabulary ("stringHash(k)",
// "stringHash(v)") in combinedHash below.
func stringHash(b []byte) uint32 {
	return hash32(b)
}

// CombineHash folds two hash values, matching the rolling-hash step spec.md
// §3.3/§4.5 uses throughout: 31*h1 + h2.
func CombineHash(h1, h2 uint32) uint32 {
	return 31*h1 + h2
}

// combinedHash is the per-pair hash folded into a map field's contribution
// to the rolling hash (spec.md §4.5): 31*stringHash(k) + stringHash(v).
func combinedHash(k, v []byte) uint32 {
	return CombineHash(stringHash(k), stringHash(v))
}

// SortAndComputeHashes sorts pairs in place by ascending key byte order
// (spec.md §3.3's map-key-order invariant) and returns the combinedHash of
// each pair, in the same (now-sorted) order.
func SortAndComputeHashes(pairs []KV) []uint32 {
	sort.Slice(pairs, func(i, j int) bool {
		return string(pairs[i].Key) < string(pairs[j].Key)
	})
	hashes := make([]uint32, len(pairs))
	for i, p := range pairs {
		hashes[i] = combinedHash(p.Key, p.Value)
	}
	return hashes
}

// CombineHashIncluding folds, starting from the rolling-hash seed 7, the
// hashes of every pair whose key is in includeKeys, walking sortedPairs (and
// the parallel hashes slice) in order. It returns ok=false if some key in
// includeKeys was never encountered -- shardKeyHash relies on this to catch
// a caller that passed mismatched cols/vals.
func CombineHashIncluding(sortedPairs []KV, hashes []uint32, includeKeys map[string]struct{}) (uint32, bool) {
	seen := make(map[string]struct{}, len(includeKeys))
	h := uint32(7)
	for i, p := range sortedPairs {
		if _, want := includeKeys[string(p.Key)]; want {
			h = CombineHash(h, hashes[i])
			seen[string(p.Key)] = struct{}{}
		}
	}
	return h, len(seen) == len(includeKeys)
}

// CombineHashExcluding is CombineHashIncluding's complement: it folds every
// pair whose key is NOT in excludeKeys.
func CombineHashExcluding(sortedPairs []KV, hashes []uint32, excludeKeys map[string]struct{}) uint32 {
	h := uint32(7)
	for i, p := range sortedPairs {
		if _, skip := excludeKeys[string(p.Key)]; !skip {
			h = CombineHash(h, hashes[i])
		}
	}
	return h
}

// ShardKeyHash is the routing contract consumed by the planner's shard
// resolver (spec.md §4.5, §4.2): it hashes the shard-key columns' values in
// a canonical (sorted-by-column-name) order, so callers never need to agree
// on column order to get the same shard. Any conforming reimplementation of
// this package must reproduce this function's output byte-for-byte given
// the same cols/vals (spec.md §4.5, §8 property S6).
func ShardKeyHash(cols []string, vals []string) (uint32, error) {
	if len(cols) != len(vals) {
		return 0, fmt.Errorf("record: shardKeyHash: %d columns but %d values", len(cols), len(vals))
	}
	pairs := make([]KV, len(cols))
	include := make(map[string]struct{}, len(cols))
	for i := range cols {
		pairs[i] = KV{Key: []byte(cols[i]), Value: []byte(vals[i])}
		include[cols[i]] = struct{}{}
	}
	hashes := SortAndComputeHashes(pairs)
	h, ok := CombineHashIncluding(pairs, hashes, include)
	if !ok {
		return 0, fmt.Errorf("record: shardKeyHash: a shard-key column was not found among the given pairs")
	}
	return h, nil
}
