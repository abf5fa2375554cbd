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

package execplan

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pulsewave/tsquery/logicalplan"
)

type fakeDispatcher struct{ endpoint string }

func (f *fakeDispatcher) Endpoint() string { return f.endpoint }
func (f *fakeDispatcher) Dispatch(context.Context, ExecPlan) (*QueryResponse, error) {
	return &QueryResponse{}, nil
}

func TestDispatcherContainmentInvariant(t *testing.T) {
	d3 := &fakeDispatcher{endpoint: "shard-3"}
	d7 := &fakeDispatcher{endpoint: "shard-7"}

	leaf3 := NewSelectRawPartitionsExec("q1", 1000, d3, "http_requests", 3, nil, AllChunksRange{}, []string{"value"})
	leaf7 := NewSelectRawPartitionsExec("q1", 1000, d7, "http_requests", 7, nil, AllChunksRange{}, []string{"value"})

	concat, err := NewDistConcatExec("q1", 1000, d3, []ExecPlan{leaf3, leaf7})
	require.NoError(t, err)
	require.Contains(t, []string{d3.Endpoint(), d7.Endpoint()}, concat.Dispatcher().Endpoint())

	stranger := &fakeDispatcher{endpoint: "not-a-child"}
	_, err = NewDistConcatExec("q1", 1000, stranger, []ExecPlan{leaf3, leaf7})
	require.Error(t, err)
}

func TestQueryIDPropagation(t *testing.T) {
	d3 := &fakeDispatcher{endpoint: "shard-3"}
	d7 := &fakeDispatcher{endpoint: "shard-7"}
	leaf3 := NewSelectRawPartitionsExec("q1", 1000, d3, "http_requests", 3, nil, AllChunksRange{}, []string{"value"})
	leaf7 := NewSelectRawPartitionsExec("q1", 1000, d7, "http_requests", 7, nil, AllChunksRange{}, []string{"value"})
	concat, err := NewDistConcatExec("q1", 1000, d3, []ExecPlan{leaf3, leaf7})
	require.NoError(t, err)

	ids := map[string]struct{}{concat.QueryID(): {}, leaf3.QueryID(): {}, leaf7.QueryID(): {}}
	require.Len(t, ids, 1)
}

func TestTransformerFrozenAfterFreeze(t *testing.T) {
	d := &fakeDispatcher{endpoint: "shard-0"}
	leaf := NewSelectRawPartitionsExec("q1", 1000, d, "http_requests", 0, nil, AllChunksRange{}, nil)
	require.NoError(t, leaf.AddRangeVectorTransformer(&InstantVectorFunctionMapper{Function: "abs"}))
	leaf.Freeze()
	err := leaf.AddRangeVectorTransformer(&InstantVectorFunctionMapper{Function: "abs"})
	require.Error(t, err)
}

func TestPrintTreeIsDeterministic(t *testing.T) {
	d := &fakeDispatcher{endpoint: "shard-0"}
	leaf := NewSelectRawPartitionsExec("q1", 1000, d, "http_requests", 0, nil, AllChunksRange{}, []string{"value"})
	require.NoError(t, leaf.AddRangeVectorTransformer(&InstantVectorFunctionMapper{Function: "abs"}))
	require.Equal(t, leaf.PrintTree(""), leaf.PrintTree(""))
	require.Contains(t, leaf.PrintTree(""), "InstantVectorFunctionMapper")
}

func TestToRowKeyRangeRejectsUnknownSelector(t *testing.T) {
	type unknownSelector struct{ logicalplan.RangeSelector }
	_, err := ToRowKeyRange(unknownSelector{})
	require.Error(t, err)
}

func TestToRowKeyRangeExhaustive(t *testing.T) {
	cases := []logicalplan.RangeSelector{
		logicalplan.IntervalSelector{From: 1, To: 2},
		logicalplan.AllChunksSelector{},
		logicalplan.EncodedChunksSelector{},
		logicalplan.WriteBuffersSelector{},
	}
	for _, c := range cases {
		_, err := ToRowKeyRange(c)
		require.NoError(t, err)
	}
}

func TestMarshalUnmarshalPlanRoundTrip(t *testing.T) {
	d3 := &fakeDispatcher{endpoint: "shard-3"}
	d7 := &fakeDispatcher{endpoint: "shard-7"}
	leaf3 := NewSelectRawPartitionsExec("q1", 1000, d3, "http_requests",
		3, []logicalplan.ColumnFilter{{Column: "job", Filter: logicalplan.Equals{Value: "api"}}}, IntervalRange{From: 1000, To: 1100}, []string{"value"})
	require.NoError(t, leaf3.AddRangeVectorTransformer(&PeriodicSamplesMapper{Start: 1000, Step: 10, End: 1100}))
	leaf7 := NewSelectRawPartitionsExec("q1", 1000, d7, "http_requests", 7, nil, AllChunksRange{}, []string{"value"})

	concat, err := NewDistConcatExec("q1", 1000, d3, []ExecPlan{leaf3, leaf7})
	require.NoError(t, err)
	concat.Freeze()

	data, err := MarshalPlan(concat)
	require.NoError(t, err)

	resolve := func(endpoint string) (Dispatcher, error) {
		return &fakeDispatcher{endpoint: endpoint}, nil
	}
	got, err := UnmarshalPlan(data, resolve)
	require.NoError(t, err)

	gotConcat, ok := got.(*DistConcatExec)
	require.True(t, ok)
	require.Equal(t, "q1", gotConcat.QueryID())
	require.Len(t, gotConcat.Children(), 2)

	gotLeaf, ok := gotConcat.Children()[0].(*SelectRawPartitionsExec)
	require.True(t, ok)
	require.Equal(t, "shard-3", gotLeaf.Dispatcher().Endpoint())
	require.Len(t, gotLeaf.Transformers(), 1)
	mapper, ok := gotLeaf.Transformers()[0].(*PeriodicSamplesMapper)
	require.True(t, ok)
	require.Equal(t, int64(1000), mapper.Start)
}
