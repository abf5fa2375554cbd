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

// Package dispatch binds a shard to the execplan.Dispatcher that will run
// its subtree (spec.md §4.3): the counterpart of vitess's vtgateconn/
// grpcvtgateconn pair, minus the SQL-specific RPC surface.
package dispatch

import (
	"context"

	"github.com/pulsewave/tsquery/execplan"
	"github.com/pulsewave/tsquery/internal/tserrors"
	"github.com/pulsewave/tsquery/internal/tsmetrics"
	"github.com/pulsewave/tsquery/shardmap"
)

// Transport ships a marshaled plan to an endpoint and returns the raw
// response bytes. It is the seam between ActorPlanDispatcher and a concrete
// wire protocol (GRPCTransport below), the same role vtgateconn.Impl plays
// for vtgateconn.VTGateConn.
type Transport interface {
	Send(ctx context.Context, endpoint string, planBytes []byte) ([]byte, error)
}

// PlanDispatcher is the execplan.Dispatcher capability set spec.md §4.3/§6.2
// asks for, specialized to a concrete coordinator endpoint.
type PlanDispatcher interface {
	execplan.Dispatcher
}

// ActorPlanDispatcher is a PlanDispatcher bound to one coordinator endpoint,
// shipping plans through a Transport (spec.md §4.3). "Actor" names the
// coordinator's role, not a Go actor/goroutine primitive -- there is none
// here.
type ActorPlanDispatcher struct {
	endpoint  string
	transport Transport
}

// NewActorPlanDispatcher binds a dispatcher to coord over transport.
func NewActorPlanDispatcher(coord shardmap.CoordinatorEndpoint, transport Transport) *ActorPlanDispatcher {
	return &ActorPlanDispatcher{endpoint: coord.Addr, transport: transport}
}

func (d *ActorPlanDispatcher) Endpoint() string { return d.endpoint }

// Dispatch marshals plan and ships it through the transport. A transport
// error (dial failure, timeout, ...) is returned as a Go error. Otherwise
// the endpoint's response bytes are returned uninterpreted in
// QueryResponse.Data; this method does not inspect them and never sets
// QueryResponse.Err, so a failure the endpoint reports inside its response
// is left for whatever consumes the result to detect. The planner never
// calls this method.
func (d *ActorPlanDispatcher) Dispatch(ctx context.Context, plan execplan.ExecPlan) (*execplan.QueryResponse, error) {
	body, err := execplan.MarshalPlan(plan)
	if err != nil {
		tsmetrics.DispatchTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	resp, err := d.transport.Send(ctx, d.endpoint, body)
	if err != nil {
		tsmetrics.DispatchTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	tsmetrics.DispatchTotal.WithLabelValues("ok").Inc()
	return &execplan.QueryResponse{Data: resp}, nil
}

// DispatcherForShard resolves shard's coordinator through shards and binds
// an ActorPlanDispatcher to it. Raises ShardsUnavailable, per spec.md §4.3,
// if the shard has no assigned coordinator; there is deliberately no
// degraded/partial-response fallback (an Open Question spec.md §9 leaves
// open, resolved in DESIGN.md).
func DispatcherForShard(shard int, shards shardmap.ShardMap, transport Transport) (PlanDispatcher, error) {
	coord, ok := shards.CoordForShard(shard)
	if !ok {
		return nil, tserrors.New(tserrors.ShardsUnavailable, "dispatch: shard %d has no assigned coordinator", shard)
	}
	return NewActorPlanDispatcher(coord, transport), nil
}
