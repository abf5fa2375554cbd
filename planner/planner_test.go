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

package planner

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pulsewave/tsquery/execplan"
	"github.com/pulsewave/tsquery/internal/tserrors"
	"github.com/pulsewave/tsquery/logicalplan"
	"github.com/pulsewave/tsquery/shardmap"
)

type noopTransport struct{}

func (noopTransport) Send(context.Context, string, []byte) ([]byte, error) { return nil, nil }

func httpRequestsDataset() Dataset {
	return Dataset{Name: "http_requests", ShardKeyCols: []string{"job", "instance"}}
}

func assignShards(shards *shardmap.Static, ids ...int) {
	for _, s := range ids {
		shards.Assign(s, shardmap.CoordinatorEndpoint{Addr: addrFor(s)})
	}
}

func addrFor(shard int) string {
	return "coord-" + string(rune('a'+shard)) + ":9000"
}

func rawSeriesFilters() []logicalplan.ColumnFilter {
	return []logicalplan.ColumnFilter{
		{Column: "job", Filter: logicalplan.Equals{Value: "api"}},
		{Column: "instance", Filter: logicalplan.Equals{Value: "i-1"}},
		{Column: "method", Filter: logicalplan.Equals{Value: "GET"}},
	}
}

// TestMaterializeSimplePeriodicSeriesTwoShards is scenario S1.
func TestMaterializeSimplePeriodicSeriesTwoShards(t *testing.T) {
	shards := shardmap.NewStatic(8)
	assignShards(shards, 0, 1, 2, 3, 4, 5, 6, 7)

	p := New(httpRequestsDataset(), shards, noopTransport{})
	p.rand = rand.New(rand.NewSource(1))

	plan := &logicalplan.PeriodicSeries{
		Raw: &logicalplan.RawSeries{
			Filters: rawSeriesFilters(),
			Columns: []string{"value"},
			Range:   logicalplan.AllChunksSelector{},
		},
		Start: 1000, Step: 10, End: 1100,
	}

	result, err := p.Materialize(plan, Options{ShardKeySpread: 1})
	require.NoError(t, err)

	concat, ok := result.(*execplan.DistConcatExec)
	require.True(t, ok)
	require.Len(t, concat.Children(), 2)

	var endpoints []string
	for _, c := range concat.Children() {
		leaf, ok := c.(*execplan.SelectRawPartitionsExec)
		require.True(t, ok)
		endpoints = append(endpoints, leaf.Dispatcher().Endpoint())
		require.Len(t, leaf.Transformers(), 1)
		_, ok = leaf.Transformers()[0].(*execplan.PeriodicSamplesMapper)
		require.True(t, ok)
	}
	require.Contains(t, endpoints, concat.Dispatcher().Endpoint())
}

// TestMaterializeMissingShardKeyFilter is scenario S2.
func TestMaterializeMissingShardKeyFilter(t *testing.T) {
	shards := shardmap.NewStatic(8)
	assignShards(shards, 3, 7)
	p := New(httpRequestsDataset(), shards, noopTransport{})

	plan := &logicalplan.RawSeries{
		Filters: []logicalplan.ColumnFilter{
			{Column: "job", Filter: logicalplan.Equals{Value: "api"}},
			{Column: "method", Filter: logicalplan.Equals{Value: "GET"}},
		},
		Columns: []string{"value"},
		Range:   logicalplan.AllChunksSelector{},
	}

	_, err := p.Materialize(plan, Options{ShardKeySpread: 1})
	require.Error(t, err)
	require.True(t, tserrors.HasCode(err, tserrors.BadQuery))
}

// TestMaterializeAggregateOverMultipleShards exercises scenario S3's shape
// (Aggregate over several shards, AggregateMapReduce on each child,
// AggregatePresenter on the reducer) without depending on the exact shard
// count the spec's illustrative example assumes a given shard map returns.
func TestMaterializeAggregateOverMultipleShards(t *testing.T) {
	shards := shardmap.NewStatic(4)
	assignShards(shards, 0, 1, 2, 3)

	ds := Dataset{Name: "http_requests", ShardKeyCols: []string{"job"}}
	p := New(ds, shards, noopTransport{})
	p.rand = rand.New(rand.NewSource(1))

	plan := &logicalplan.Aggregate{
		Vectors: &logicalplan.PeriodicSeries{
			Raw: &logicalplan.RawSeries{
				Filters: []logicalplan.ColumnFilter{{Column: "job", Filter: logicalplan.Equals{Value: "api"}}},
				Columns: []string{"value"},
				Range:   logicalplan.AllChunksSelector{},
			},
			Start: 0, Step: 10, End: 100,
		},
		Operator: logicalplan.AggSum,
		Without:  []string{"pod"},
	}

	result, err := p.Materialize(plan, Options{ShardKeySpread: 2})
	require.NoError(t, err)

	reduce, ok := result.(*execplan.ReduceAggregateExec)
	require.True(t, ok)
	require.Equal(t, logicalplan.AggSum, reduce.Operator)
	require.Len(t, reduce.Children(), 4)
	require.Len(t, reduce.Transformers(), 1)
	_, ok = reduce.Transformers()[0].(*execplan.AggregatePresenter)
	require.True(t, ok)

	for _, c := range reduce.Children() {
		ts := c.Transformers()
		require.Len(t, ts, 2)
		_, ok := ts[0].(*execplan.PeriodicSamplesMapper)
		require.True(t, ok)
		mr, ok := ts[1].(*execplan.AggregateMapReduce)
		require.True(t, ok)
		require.Equal(t, []string{"pod"}, mr.Without)
	}
}

// TestMaterializeBinaryJoin is scenario S4.
func TestMaterializeBinaryJoin(t *testing.T) {
	shards := shardmap.NewStatic(2)
	assignShards(shards, 0, 1)

	ds := Dataset{Name: "http_requests", ShardKeyCols: []string{"job"}}
	p := New(ds, shards, noopTransport{})
	p.rand = rand.New(rand.NewSource(1))

	lhs := &logicalplan.PeriodicSeries{
		Raw: &logicalplan.RawSeries{
			Filters: []logicalplan.ColumnFilter{{Column: "job", Filter: logicalplan.Equals{Value: "api"}}},
			Range:   logicalplan.AllChunksSelector{},
		},
		Start: 0, Step: 10, End: 100,
	}
	rhs := &logicalplan.PeriodicSeries{
		Raw: &logicalplan.RawSeries{
			Filters: []logicalplan.ColumnFilter{{Column: "job", Filter: logicalplan.Equals{Value: "db"}}},
			Range:   logicalplan.AllChunksSelector{},
		},
		Start: 0, Step: 10, End: 100,
	}
	plan := &logicalplan.BinaryJoin{
		LHS: lhs, RHS: rhs,
		Operator: logicalplan.BinMul, Cardinality: logicalplan.OneToOne,
		On: []string{"service"},
	}

	result, err := p.Materialize(plan, Options{ShardKeySpread: 3})
	require.NoError(t, err)

	join, ok := result.(*execplan.BinaryJoinExec)
	require.True(t, ok)
	require.Len(t, join.LHS, 2)
	require.Len(t, join.RHS, 2)
	require.Equal(t, logicalplan.BinMul, join.Operator)
}

func TestMaterializeShardsUnavailable(t *testing.T) {
	shards := shardmap.NewStatic(8)
	// no shard is ever assigned a coordinator.
	p := New(httpRequestsDataset(), shards, noopTransport{})

	plan := &logicalplan.RawSeries{Filters: rawSeriesFilters(), Range: logicalplan.AllChunksSelector{}}
	_, err := p.Materialize(plan, Options{ShardKeySpread: 1})
	require.Error(t, err)
	require.True(t, tserrors.HasCode(err, tserrors.ShardsUnavailable))
}
