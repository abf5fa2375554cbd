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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pulsewave/tsquery/internal/tserrors"
)

func intStringSchema(t *testing.T) *Schema {
	t.Helper()
	s, err := NewSchema([]FieldType{IntField, StringField}, 1, nil)
	require.NoError(t, err)
	return s
}

func TestBuilderReaderRoundTrip(t *testing.T) {
	schema := intStringSchema(t)
	b, err := NewBuilder(schema, OnHeapFactory{}, MinContainerBytes)
	require.NoError(t, err)

	require.NoError(t, b.StartNewRecord())
	require.NoError(t, b.AddInt(42))
	require.NoError(t, b.AddString([]byte("api")))
	start, err := b.EndRecord(true)
	require.NoError(t, err)
	require.Equal(t, 0, start)

	bytes := b.OptimalContainerBytes(false)
	require.Len(t, bytes, 1)

	records, err := ReadContainer(schema, bytes[0])
	require.NoError(t, err)
	require.Len(t, records, 1)

	i, err := records[0].Int(0)
	require.NoError(t, err)
	require.EqualValues(t, 42, i)

	s, err := records[0].String(1)
	require.NoError(t, err)
	require.Equal(t, "api", string(s))
}

func TestBuilderFieldOrderViolation(t *testing.T) {
	schema := intStringSchema(t)
	b, err := NewBuilder(schema, OnHeapFactory{}, MinContainerBytes)
	require.NoError(t, err)

	require.NoError(t, b.StartNewRecord())
	err = b.AddString([]byte("oops"))
	require.Error(t, err)
	require.True(t, tserrors.HasCode(err, tserrors.FieldOrderViolation))
}

func TestBuilderMapFieldSortedOrder(t *testing.T) {
	schema, err := NewSchema([]FieldType{MapField}, 0, []string{"predefined_key"})
	require.NoError(t, err)
	b, err := NewBuilder(schema, OnHeapFactory{}, MinContainerBytes)
	require.NoError(t, err)

	pairs := []KV{
		{Key: []byte("zeta"), Value: []byte("1")},
		{Key: []byte("alpha"), Value: []byte("2")},
		{Key: []byte("predefined_key"), Value: []byte("3")},
	}
	hashes := SortAndComputeHashes(pairs)

	require.NoError(t, b.StartNewRecord())
	require.NoError(t, b.AddSortedPairsAsMap(pairs, hashes))
	_, err = b.EndRecord(true)
	require.NoError(t, err)

	bytes := b.OptimalContainerBytes(false)
	records, err := ReadContainer(schema, bytes[0])
	require.NoError(t, err)

	kvs, err := records[0].Map(0)
	require.NoError(t, err)
	require.Len(t, kvs, 3)
	for i := 1; i < len(kvs); i++ {
		require.Less(t, string(kvs[i-1].Key), string(kvs[i].Key))
	}
}

func TestBuilderContainerOverflowSplitRejoin(t *testing.T) {
	schema, err := NewSchema([]FieldType{LongField, StringField}, 1, nil)
	require.NoError(t, err)

	b, err := NewBuilder(schema, OnHeapFactory{}, MinContainerBytes)
	require.NoError(t, err)

	const n = 200
	for i := 0; i < n; i++ {
		require.NoError(t, b.StartNewRecord())
		require.NoError(t, b.AddLong(int64(i)))
		require.NoError(t, b.AddString([]byte(fmt.Sprintf("instance-%04d-xxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxx", i))))
		_, err := b.EndRecord(true)
		require.NoError(t, err)
	}

	containers := b.OptimalContainerBytes(false)
	require.GreaterOrEqual(t, len(containers), 2, "200 records averaging ~50 bytes must overflow a 2048-byte container")

	var total int
	for _, c := range containers {
		records, err := ReadContainer(schema, c)
		require.NoError(t, err)
		total += len(records)
		for _, r := range records {
			require.Equal(t, r.Hash(), r.Hash()) // trailing hash word is readable
		}
	}
	require.Equal(t, n, total)
}

func TestBuilderRecordTooLarge(t *testing.T) {
	schema, err := NewSchema([]FieldType{StringField}, 0, nil)
	require.NoError(t, err)
	b, err := NewBuilder(schema, OnHeapFactory{}, MinContainerBytes)
	require.NoError(t, err)

	require.NoError(t, b.StartNewRecord())
	huge := make([]byte, MinContainerBytes-containerHeaderLen+1)
	err = b.AddString(huge)
	require.Error(t, err)
	require.True(t, tserrors.HasCode(err, tserrors.RecordTooLarge))
}
