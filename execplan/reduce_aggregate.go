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
	"fmt"
	"strings"

	"github.com/pulsewave/tsquery/internal/tserrors"
	"github.com/pulsewave/tsquery/logicalplan"
)

// ReduceAggregateExec merges the per-shard partial reductions an
// AggregateMapReduce transformer produced on each child, then applies an
// AggregatePresenter to finish the aggregate (spec.md §4.1, §4.4): the
// cross-shard counterpart of Aggregate, mirroring engine.OrderedAggregate's
// merge-then-finish shape.
type ReduceAggregateExec struct {
	base

	Operator logicalplan.AggregateOperator
	Params   []logicalplan.FunctionArg
}

// NewReduceAggregateExec builds a merge node over children. dispatcher must
// be one of children's dispatchers, same as DistConcatExec.
func NewReduceAggregateExec(
	queryID string,
	submitTime int64,
	dispatcher Dispatcher,
	children []ExecPlan,
	operator logicalplan.AggregateOperator,
	params []logicalplan.FunctionArg,
) (*ReduceAggregateExec, error) {
	if len(children) == 0 {
		return nil, tserrors.New(tserrors.BadQuery, "ReduceAggregateExec requires at least one child")
	}
	if !dispatcherAmongChildren(dispatcher, children) {
		return nil, tserrors.New(tserrors.BadQuery, "ReduceAggregateExec dispatcher must be one of its children's dispatchers")
	}
	return &ReduceAggregateExec{
		base: base{
			queryID:    queryID,
			submitTime: submitTime,
			dispatcher: dispatcher,
			children:   children,
		},
		Operator: operator,
		Params:   params,
	}, nil
}

func (n *ReduceAggregateExec) PrintTree(indent string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%sReduceAggregateExec(operator=%s, dispatcher=%s)\n", indent, n.Operator, n.dispatcher.Endpoint())
	sb.WriteString(printTransformers(indent+"  ", n.transformers))
	for _, c := range n.children {
		sb.WriteString(c.PrintTree(indent + "  "))
	}
	return sb.String()
}
