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

	"github.com/pulsewave/tsquery/logicalplan"
)

// SelectRawPartitionsExec is the leaf node: a single-shard raw column scan,
// the physical counterpart of a RawSeries bound to one shard (spec.md §4.1,
// §4.4). It owns no children; its Dispatcher is simply the shard's own
// endpoint.
type SelectRawPartitionsExec struct {
	base

	Dataset string
	Shard   int
	Filters []logicalplan.ColumnFilter
	Range   RowKeyRange
	Columns []string
}

// NewSelectRawPartitionsExec builds a leaf scan node. dispatcher is the
// endpoint owning shard; this is also the node's Dispatcher(), satisfying
// the containment invariant trivially since a leaf has no children to
// contain it with.
func NewSelectRawPartitionsExec(
	queryID string,
	submitTime int64,
	dispatcher Dispatcher,
	dataset string,
	shard int,
	filters []logicalplan.ColumnFilter,
	rng RowKeyRange,
	columns []string,
) *SelectRawPartitionsExec {
	return &SelectRawPartitionsExec{
		base: base{
			queryID:    queryID,
			submitTime: submitTime,
			dispatcher: dispatcher,
		},
		Dataset: dataset,
		Shard:   shard,
		Filters: filters,
		Range:   rng,
		Columns: columns,
	}
}

func (n *SelectRawPartitionsExec) PrintTree(indent string) string {
	var sb strings.Builder
	ep := ""
	if n.dispatcher != nil {
		ep = n.dispatcher.Endpoint()
	}
	fmt.Fprintf(&sb, "%sSelectRawPartitionsExec(dataset=%s, shard=%d, dispatcher=%s)\n", indent, n.Dataset, n.Shard, ep)
	sb.WriteString(printTransformers(indent+"  ", n.transformers))
	return sb.String()
}
