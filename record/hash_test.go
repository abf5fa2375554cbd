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
	"testing"

	"github.com/stretchr/testify/require"
)

// TestShardKeyHashCrossCheck is scenario S6: shardKeyHash must equal the
// explicit combineHashIncluding(sortAndComputeHashes(...), includeKeys)
// composition it is defined in terms of.
func TestShardKeyHashCrossCheck(t *testing.T) {
	got, err := ShardKeyHash([]string{"ws", "ns"}, []string{"prod", "payments"})
	require.NoError(t, err)

	pairs := []KV{{Key: []byte("ws"), Value: []byte("prod")}, {Key: []byte("ns"), Value: []byte("payments")}}
	hashes := SortAndComputeHashes(pairs)
	want, ok := CombineHashIncluding(pairs, hashes, map[string]struct{}{"ws": {}, "ns": {}})
	require.True(t, ok)
	require.Equal(t, want, got)
}

func TestShardKeyHashOrderIndependent(t *testing.T) {
	h1, err := ShardKeyHash([]string{"ws", "ns"}, []string{"prod", "payments"})
	require.NoError(t, err)
	h2, err := ShardKeyHash([]string{"ns", "ws"}, []string{"payments", "prod"})
	require.NoError(t, err)
	require.Equal(t, h1, h2)
}

func TestShardKeyHashDeterministic(t *testing.T) {
	h1, err := ShardKeyHash([]string{"job", "instance"}, []string{"api", "i-1"})
	require.NoError(t, err)
	h2, err := ShardKeyHash([]string{"job", "instance"}, []string{"api", "i-1"})
	require.NoError(t, err)
	require.Equal(t, h1, h2)
}

func TestShardKeyHashMismatchedLengths(t *testing.T) {
	_, err := ShardKeyHash([]string{"a", "b"}, []string{"only-one"})
	require.Error(t, err)
}

func TestCombineHashExcluding(t *testing.T) {
	pairs := []KV{{Key: []byte("a"), Value: []byte("1")}, {Key: []byte("b"), Value: []byte("2")}}
	hashes := SortAndComputeHashes(pairs)
	excludingB := CombineHashExcluding(pairs, hashes, map[string]struct{}{"b": {}})
	onlyA, ok := CombineHashIncluding(pairs, hashes, map[string]struct{}{"a": {}})
	require.True(t, ok)
	require.Equal(t, onlyA, excludingB)
}
