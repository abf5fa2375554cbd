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

// Package planner materializes a logicalplan.LogicalPlan into an
// execplan.ExecPlan DAG (spec.md §4.1). It plays the role vitess's
// planbuilder plays for a SQL AST: a single recursive compilation pass that
// resolves routing (here, shards; there, vindexes) and picks a coordinating
// dispatcher for every internal node it introduces.
package planner

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/pulsewave/tsquery/dispatch"
	"github.com/pulsewave/tsquery/execplan"
	"github.com/pulsewave/tsquery/internal/tserrors"
	"github.com/pulsewave/tsquery/internal/tslog"
	"github.com/pulsewave/tsquery/internal/tsmetrics"
	"github.com/pulsewave/tsquery/logicalplan"
	"github.com/pulsewave/tsquery/shardmap"
	"github.com/pulsewave/tsquery/shardresolver"
)

// Dataset is the planner-facing view of shardresolver.Dataset: the
// schema administration collaborator (spec.md §1, out of scope) is assumed
// to have already resolved a query to one Dataset before Materialize runs.
type Dataset = shardresolver.Dataset

// Options is the planner-facing counterpart of shardresolver.Options, plus
// the knobs spec.md §4.1/§4.4/§5 attach to a single Materialize call.
type Options struct {
	ShardKeySpread int
	ShardOverrides []int
	ItemLimit      int64

	// Rand overrides the Planner's own PRNG pickDispatcher draws from.
	// Spec.md §5 permits a thread-local/splittable generator and does not
	// require determinism; tests set this to get a reproducible pick.
	Rand *rand.Rand
}

func (o Options) resolverOptions() shardresolver.Options {
	return shardresolver.Options{ShardKeySpread: o.ShardKeySpread, ShardOverrides: o.ShardOverrides}
}

// Planner materializes logical plans against one shard map and transport.
type Planner struct {
	Dataset   Dataset
	Shards    shardmap.ShardMap
	Transport dispatch.Transport

	// rand is the PRNG pickDispatcher draws from absent an Options.Rand
	// override. Each Planner gets its own, seeded from the clock in New;
	// access to it is not synchronized.
	rand *rand.Rand
}

// New builds a Planner over shards and transport for dataset.
func New(dataset Dataset, shards shardmap.ShardMap, transport dispatch.Transport) *Planner {
	return &Planner{
		Dataset:   dataset,
		Shards:    shards,
		Transport: transport,
		rand:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Materialize compiles root into a physical ExecPlan, per spec.md §4.1. It
// never returns a partial plan: any failure anywhere in the recursion aborts
// the whole call (spec.md §7).
func (p *Planner) Materialize(root logicalplan.LogicalPlan, opts Options) (execplan.ExecPlan, error) {
	queryID := uuid.NewString()
	submitTime := time.Now().UnixMilli()

	plans, err := p.materialize(root, opts, queryID, submitTime)
	if err != nil {
		tsmetrics.MaterializeTotal.WithLabelValues(tserrors.CodeOf(err).String()).Inc()
		return nil, err
	}

	var result execplan.ExecPlan
	if len(plans) == 1 {
		result = plans[0]
	} else {
		disp, err := p.pickDispatcher(plans, opts)
		if err != nil {
			tsmetrics.MaterializeTotal.WithLabelValues(tserrors.CodeOf(err).String()).Inc()
			return nil, err
		}
		concat, err := execplan.NewDistConcatExec(queryID, submitTime, disp, plans)
		if err != nil {
			tsmetrics.MaterializeTotal.WithLabelValues(tserrors.CodeOf(err).String()).Inc()
			return nil, err
		}
		result = concat
	}

	result.Freeze()
	leafShards := 0
	var countLeaves func(execplan.ExecPlan)
	countLeaves = func(n execplan.ExecPlan) {
		if _, ok := n.(*execplan.SelectRawPartitionsExec); ok {
			leafShards++
		}
		for _, c := range n.Children() {
			countLeaves(c)
		}
	}
	countLeaves(result)
	tsmetrics.MaterializeTotal.WithLabelValues("ok").Inc()
	tsmetrics.MaterializeLeafShards.Observe(float64(leafShards))
	tslog.Infof("planner: materialized query %s into %d leaf shard(s)", queryID, leafShards)
	return result, nil
}

// materialize is the recursive worker. It returns a list of exec plans: one
// per target shard at the leaves, propagating upward unchanged in count
// except at Aggregate/BinaryJoin, which collapse their children into a
// single new node.
func (p *Planner) materialize(node logicalplan.LogicalPlan, opts Options, queryID string, submitTime int64) ([]execplan.ExecPlan, error) {
	switch n := node.(type) {
	case *logicalplan.RawSeries:
		return p.materializeRawSeries(n, opts, queryID, submitTime)

	case *logicalplan.PeriodicSeries:
		children, err := p.materialize(n.Raw, opts, queryID, submitTime)
		if err != nil {
			return nil, err
		}
		t := &execplan.PeriodicSamplesMapper{Start: n.Start, Step: n.Step, End: n.End}
		if err := appendTransformer(children, t); err != nil {
			return nil, err
		}
		return children, nil

	case *logicalplan.PeriodicSeriesWithWindowing:
		children, err := p.materialize(n.Raw, opts, queryID, submitTime)
		if err != nil {
			return nil, err
		}
		window := n.Window
		fn := n.Function
		t := &execplan.PeriodicSamplesMapper{
			Start: n.Start, Step: n.Step, End: n.End,
			Window: &window, Function: &fn, FunctionArgs: n.FunctionArgs,
		}
		if err := appendTransformer(children, t); err != nil {
			return nil, err
		}
		return children, nil

	case *logicalplan.ApplyInstantFunction:
		children, err := p.materialize(n.Vectors, opts, queryID, submitTime)
		if err != nil {
			return nil, err
		}
		t := &execplan.InstantVectorFunctionMapper{Function: n.Function, FunctionArgs: n.FunctionArgs}
		if err := appendTransformer(children, t); err != nil {
			return nil, err
		}
		return children, nil

	case *logicalplan.ScalarVectorBinaryOperation:
		children, err := p.materialize(n.Vector, opts, queryID, submitTime)
		if err != nil {
			return nil, err
		}
		t := &execplan.ScalarOperationMapper{Operator: n.Operator, Scalar: n.Scalar, ScalarIsLHS: n.ScalarIsLHS}
		if err := appendTransformer(children, t); err != nil {
			return nil, err
		}
		return children, nil

	case *logicalplan.Aggregate:
		return p.materializeAggregate(n, opts, queryID, submitTime)

	case *logicalplan.BinaryJoin:
		return p.materializeBinaryJoin(n, opts, queryID, submitTime)

	default:
		return nil, tserrors.New(tserrors.UnsupportedColumnType, "planner: no materialization rule for logical node %T", node)
	}
}

func (p *Planner) materializeRawSeries(n *logicalplan.RawSeries, opts Options, queryID string, submitTime int64) ([]execplan.ExecPlan, error) {
	shards, err := shardresolver.ShardsFromFilters(p.Dataset, n.Filters, opts.resolverOptions(), p.Shards)
	if err != nil {
		return nil, err
	}
	rkr, err := execplan.ToRowKeyRange(n.Range)
	if err != nil {
		return nil, err
	}

	plans := make([]execplan.ExecPlan, 0, len(shards))
	for _, shard := range shards {
		disp, err := dispatch.DispatcherForShard(shard, p.Shards, p.Transport)
		if err != nil {
			return nil, err
		}
		plans = append(plans, execplan.NewSelectRawPartitionsExec(queryID, submitTime, disp, p.Dataset.Name, shard, n.Filters, rkr, n.Columns))
	}
	return plans, nil
}

func (p *Planner) materializeAggregate(n *logicalplan.Aggregate, opts Options, queryID string, submitTime int64) ([]execplan.ExecPlan, error) {
	children, err := p.materialize(n.Vectors, opts, queryID, submitTime)
	if err != nil {
		return nil, err
	}
	t := &execplan.AggregateMapReduce{Operator: n.Operator, Params: n.Params, Without: n.Without, By: n.By}
	if err := appendTransformer(children, t); err != nil {
		return nil, err
	}

	disp, err := p.pickDispatcher(children, opts)
	if err != nil {
		return nil, err
	}
	reduce, err := execplan.NewReduceAggregateExec(queryID, submitTime, disp, children, n.Operator, n.Params)
	if err != nil {
		return nil, err
	}
	if err := reduce.AddRangeVectorTransformer(&execplan.AggregatePresenter{Operator: n.Operator, Params: n.Params}); err != nil {
		return nil, err
	}
	return []execplan.ExecPlan{reduce}, nil
}

func (p *Planner) materializeBinaryJoin(n *logicalplan.BinaryJoin, opts Options, queryID string, submitTime int64) ([]execplan.ExecPlan, error) {
	lhs, err := p.materialize(n.LHS, opts, queryID, submitTime)
	if err != nil {
		return nil, err
	}
	rhs, err := p.materialize(n.RHS, opts, queryID, submitTime)
	if err != nil {
		return nil, err
	}

	all := make([]execplan.ExecPlan, 0, len(lhs)+len(rhs))
	all = append(all, lhs...)
	all = append(all, rhs...)
	disp, err := p.pickDispatcher(all, opts)
	if err != nil {
		return nil, err
	}

	join, err := execplan.NewBinaryJoinExec(queryID, submitTime, disp, lhs, rhs, n.Operator, n.Cardinality, n.On, n.Ignoring)
	if err != nil {
		return nil, err
	}
	return []execplan.ExecPlan{join}, nil
}

// pickDispatcher collects the distinct dispatchers among children and
// uniformly picks one at random (spec.md §4.1: "pickDispatcher(children)").
// Correctness never depends on which one is chosen -- only load spreading
// does -- so ties are broken with whichever source is in play, overridden
// or process-wide.
func (p *Planner) pickDispatcher(children []execplan.ExecPlan, opts Options) (execplan.Dispatcher, error) {
	seen := make(map[string]execplan.Dispatcher)
	var order []string
	for _, c := range children {
		d := c.Dispatcher()
		if d == nil {
			continue
		}
		if _, ok := seen[d.Endpoint()]; !ok {
			seen[d.Endpoint()] = d
			order = append(order, d.Endpoint())
		}
	}
	if len(order) == 0 {
		return nil, tserrors.New(tserrors.ShardsUnavailable, "planner: no dispatcher available among %d children", len(children))
	}
	src := p.rand
	if opts.Rand != nil {
		src = opts.Rand
	}
	return seen[order[src.Intn(len(order))]], nil
}

func appendTransformer(children []execplan.ExecPlan, t execplan.RangeVectorTransformer) error {
	for _, c := range children {
		if err := c.AddRangeVectorTransformer(t); err != nil {
			return fmt.Errorf("planner: %w", err)
		}
	}
	return nil
}
