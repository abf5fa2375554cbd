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

package dispatch

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pulsewave/tsquery/execplan"
	"github.com/pulsewave/tsquery/internal/tserrors"
	"github.com/pulsewave/tsquery/shardmap"
)

type fakeTransport struct {
	lastEndpoint string
	lastBytes    []byte
	response     []byte
	err          error
}

func (f *fakeTransport) Send(_ context.Context, endpoint string, planBytes []byte) ([]byte, error) {
	f.lastEndpoint = endpoint
	f.lastBytes = planBytes
	return f.response, f.err
}

func TestDispatcherForShardUnassignedCoordinator(t *testing.T) {
	shards := shardmap.NewStatic(4)
	_, err := DispatcherForShard(1, shards, &fakeTransport{})
	require.Error(t, err)
	require.True(t, tserrors.HasCode(err, tserrors.ShardsUnavailable))
}

func TestDispatcherForShardBindsAssignedCoordinator(t *testing.T) {
	shards := shardmap.NewStatic(4)
	shards.Assign(1, shardmap.CoordinatorEndpoint{Addr: "10.0.0.1:9000"})

	d, err := DispatcherForShard(1, shards, &fakeTransport{})
	require.NoError(t, err)
	require.Equal(t, "10.0.0.1:9000", d.Endpoint())
}

func TestActorPlanDispatcherDispatchShipsMarshaledPlan(t *testing.T) {
	shards := shardmap.NewStatic(1)
	shards.Assign(0, shardmap.CoordinatorEndpoint{Addr: "10.0.0.1:9000"})
	transport := &fakeTransport{response: []byte(`{"ok":true}`)}

	d, err := DispatcherForShard(0, shards, transport)
	require.NoError(t, err)

	plan := execplan.NewSelectRawPartitionsExec("q1", 1000, d, "http_requests", 0, nil, execplan.AllChunksRange{}, []string{"value"})
	resp, err := d.Dispatch(context.Background(), plan)
	require.NoError(t, err)
	require.Equal(t, "10.0.0.1:9000", transport.lastEndpoint)
	require.NotEmpty(t, transport.lastBytes)
	require.Equal(t, []byte(`{"ok":true}`), resp.Data)
}
