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

// BinaryJoinExec matches the rows of its LHS and RHS subtrees element-wise
// on the On/Ignoring label sets (spec.md §4.1, §4.4), the physical
// counterpart of BinaryJoin. LHS and RHS are kept as distinct fields (not
// folded into a single children slice) because join semantics are
// side-sensitive in a way concat/aggregate fan-out is not; base.children
// still holds their union so the generic ExecPlan.Children() contract
// holds for every node kind, the same way engine.Join keeps explicit Left
// and Right fields besides its generic input list.
type BinaryJoinExec struct {
	base

	LHS         []ExecPlan
	RHS         []ExecPlan
	Operator    logicalplan.BinaryOperator
	Cardinality logicalplan.Cardinality
	On          []string
	Ignoring    []string
}

// NewBinaryJoinExec builds a join node. dispatcher must be one of lhs's or
// rhs's dispatchers.
func NewBinaryJoinExec(
	queryID string,
	submitTime int64,
	dispatcher Dispatcher,
	lhs, rhs []ExecPlan,
	operator logicalplan.BinaryOperator,
	cardinality logicalplan.Cardinality,
	on, ignoring []string,
) (*BinaryJoinExec, error) {
	if len(lhs) == 0 || len(rhs) == 0 {
		return nil, tserrors.New(tserrors.BadQuery, "BinaryJoinExec requires at least one LHS and one RHS child")
	}
	all := make([]ExecPlan, 0, len(lhs)+len(rhs))
	all = append(all, lhs...)
	all = append(all, rhs...)
	if !dispatcherAmongChildren(dispatcher, all) {
		return nil, tserrors.New(tserrors.BadQuery, "BinaryJoinExec dispatcher must be one of its LHS/RHS children's dispatchers")
	}
	return &BinaryJoinExec{
		base: base{
			queryID:    queryID,
			submitTime: submitTime,
			dispatcher: dispatcher,
			children:   all,
		},
		LHS:         lhs,
		RHS:         rhs,
		Operator:    operator,
		Cardinality: cardinality,
		On:          on,
		Ignoring:    ignoring,
	}, nil
}

func (n *BinaryJoinExec) PrintTree(indent string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%sBinaryJoinExec(operator=%s, cardinality=%s, dispatcher=%s)\n", indent, n.Operator, n.Cardinality, n.dispatcher.Endpoint())
	sb.WriteString(printTransformers(indent+"  ", n.transformers))
	sb.WriteString(indent + "  LHS:\n")
	for _, c := range n.LHS {
		sb.WriteString(c.PrintTree(indent + "    "))
	}
	sb.WriteString(indent + "  RHS:\n")
	for _, c := range n.RHS {
		sb.WriteString(c.PrintTree(indent + "    "))
	}
	return sb.String()
}
