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

// Package shardmap defines the interfaces the planner consumes from the
// shard-map gossip layer (spec.md §6.1). That layer itself -- cluster
// membership, gossip convergence, rebalancing -- is named only by its
// interface per spec.md §1; this package also ships a small in-memory
// implementation for tests and local experimentation, in the spirit of
// vitess's srvtopo test fakes.
package shardmap

import "sync"

// CoordinatorEndpoint identifies the node currently owning a shard.
type CoordinatorEndpoint struct {
	Addr string
}

// ShardMap is the contract the planner and dispatcher binder consume.
type ShardMap interface {
	// QueryShards translates a shard-key hash plus a fan-out spread (log2
	// of the bucket count) into the list of shard indices a query should
	// touch.
	QueryShards(shardHash uint32, spread int) ([]int, error)

	// CoordForShard returns the coordinator currently owning shard, or
	// ok=false if no coordinator is assigned.
	CoordForShard(shard int) (CoordinatorEndpoint, bool)
}

// Static is a fixed-assignment ShardMap: shard -> coordinator, plus a
// configurable total shard count used to derive query fan-out from a
// hash and a spread. It does not model gossip convergence or rebalancing;
// it exists so the planner and its tests have something concrete to talk
// to without standing up the real topology service.
type Static struct {
	mu          sync.RWMutex
	totalShards int
	coords      map[int]CoordinatorEndpoint
}

// NewStatic builds a Static shard map with totalShards shards (must be a
// power of two so that QueryShards's spread-masking is exact), none of
// which are assigned a coordinator yet.
func NewStatic(totalShards int) *Static {
	return &Static{
		totalShards: totalShards,
		coords:      make(map[int]CoordinatorEndpoint),
	}
}

// Assign records that shard is owned by coord.
func (s *Static) Assign(shard int, coord CoordinatorEndpoint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.coords[shard] = coord
}

// Unassign removes any coordinator recorded for shard.
func (s *Static) Unassign(shard int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.coords, shard)
}

// QueryShards splits the shards into consecutive buckets of 2^spread shards
// (capped at totalShards), picks bucket shardHash modulo the number of
// buckets, and returns that bucket's shards -- the "spread groups shards
// into fan-out buckets" semantics of spec.md §4.2.
func (s *Static) QueryShards(shardHash uint32, spread int) ([]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.totalShards <= 0 {
		return nil, nil
	}
	bucketSize := 1 << spread
	if bucketSize > s.totalShards {
		bucketSize = s.totalShards
	}
	numBuckets := s.totalShards / bucketSize
	if numBuckets == 0 {
		numBuckets = 1
	}
	bucket := int(shardHash) % numBuckets
	shards := make([]int, 0, bucketSize)
	for i := 0; i < bucketSize; i++ {
		shards = append(shards, bucket*bucketSize+i)
	}
	return shards, nil
}

// CoordForShard implements ShardMap.
func (s *Static) CoordForShard(shard int) (CoordinatorEndpoint, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.coords[shard]
	return c, ok
}
