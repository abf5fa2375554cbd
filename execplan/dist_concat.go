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
)

// DistConcatExec fans out to its children and concatenates their results
// (spec.md §4.1, §4.4): the planner's default way to merge N single-shard
// scans into one logical stream, and the final wrapper around a
// multi-shard Materialize result, mirroring engine.Concatenate.
type DistConcatExec struct {
	base
}

// NewDistConcatExec builds a fan-out/concat node over children, dispatched
// from dispatcher. dispatcher must be one of children's dispatchers -- the
// containment invariant of spec.md §3.2/§8 -- since an internal node has no
// endpoint of its own, only a chosen coordinator among its children.
func NewDistConcatExec(queryID string, submitTime int64, dispatcher Dispatcher, children []ExecPlan) (*DistConcatExec, error) {
	if len(children) == 0 {
		return nil, tserrors.New(tserrors.BadQuery, "DistConcatExec requires at least one child")
	}
	if !dispatcherAmongChildren(dispatcher, children) {
		return nil, tserrors.New(tserrors.BadQuery, "DistConcatExec dispatcher must be one of its children's dispatchers")
	}
	return &DistConcatExec{base: base{
		queryID:    queryID,
		submitTime: submitTime,
		dispatcher: dispatcher,
		children:   children,
	}}, nil
}

func (n *DistConcatExec) PrintTree(indent string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%sDistConcatExec(dispatcher=%s)\n", indent, n.dispatcher.Endpoint())
	sb.WriteString(printTransformers(indent+"  ", n.transformers))
	for _, c := range n.children {
		sb.WriteString(c.PrintTree(indent + "  "))
	}
	return sb.String()
}
