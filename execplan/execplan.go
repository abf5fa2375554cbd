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

// Package execplan is the physical exec-plan DAG (spec.md §3.2, §4.4): the
// node variants the planner builds and the transformer stack each node
// carries. It mirrors vitess's vtgate/engine package -- a closed set of
// Primitive-like node types, each owning its children and printing a
// deterministic tree -- generalized from SQL routing to time-series
// shard/aggregate/join routing.
package execplan

import (
	"context"
	"strings"

	"github.com/pulsewave/tsquery/internal/tserrors"
)

// QueryResponse is the opaque result of dispatching a subtree. Its payload
// shape (row/column batches) is an external collaborator's concern per
// spec.md §1 -- scans and the transport layer produce and interpret it;
// this module only ships the envelope.
type QueryResponse struct {
	Err  string
	Data any
}

// Dispatcher is the transport endpoint capable of executing a subtree
// (spec.md §4.3, §6.2). Concrete implementations (e.g. dispatch.ActorPlanDispatcher)
// live outside this package to keep the transport concern out of the plan
// algebra, the same separation vitess draws between engine.Primitive and
// queryservice.QueryService.
type Dispatcher interface {
	// Dispatch ships plan to this endpoint. Semantically at-most-once per
	// call; failures are surfaced in QueryResponse, not as a Go error, so
	// that "dispatch-layer failures are embedded in QueryResponse" (spec.md
	// §7) holds even over a transport that can itself fail outright -- in
	// that case Dispatch returns a non-nil error and QueryResponse is nil.
	Dispatch(ctx context.Context, plan ExecPlan) (*QueryResponse, error)

	// Endpoint identifies this dispatcher for equality/printing purposes.
	Endpoint() string
}

// RangeVectorTransformer is a pure stream-of-range-vectors transform
// appended to an exec node (spec.md §3.2, §4.4). The actual range-vector
// stream type is an external/runtime concern; this package models
// transformers as inert, serializable descriptions of what the runtime
// should do, the same role engine.Primitive descriptions play before
// execution.
type RangeVectorTransformer interface {
	// Name identifies the transformer kind for printing and wire encoding.
	Name() string
}

// ExecPlan is implemented by every node of the physical plan tree.
type ExecPlan interface {
	QueryID() string
	SubmitTime() int64
	Dispatcher() Dispatcher
	Children() []ExecPlan
	Transformers() []RangeVectorTransformer

	// AddRangeVectorTransformer appends t to this node's transformer list.
	// Spec.md §4.4: "must be called only during materialization" -- it
	// fails once the node has been frozen.
	AddRangeVectorTransformer(t RangeVectorTransformer) error

	// Freeze locks the transformer list; the planner calls this on every
	// node once materialize() is about to return the tree to its caller.
	Freeze()

	// PrintTree renders a deterministic, indented description of this
	// subtree, mirroring engine.PlanDescription's role for vitess.
	PrintTree(indent string) string
}

// base holds the state common to every node variant: the fields spec.md
// §3.2 says every exec node carries, plus the transformer list each one
// accumulates during materialization.
type base struct {
	queryID      string
	submitTime   int64
	dispatcher   Dispatcher
	children     []ExecPlan
	transformers []RangeVectorTransformer
	frozen       bool
}

func (b *base) QueryID() string         { return b.queryID }
func (b *base) SubmitTime() int64       { return b.submitTime }
func (b *base) Dispatcher() Dispatcher  { return b.dispatcher }
func (b *base) Children() []ExecPlan    { return b.children }

func (b *base) Transformers() []RangeVectorTransformer {
	return append([]RangeVectorTransformer(nil), b.transformers...)
}

func (b *base) AddRangeVectorTransformer(t RangeVectorTransformer) error {
	if b.frozen {
		return tserrors.New(tserrors.FieldOrderViolation, "cannot add a transformer after materialization has frozen this node")
	}
	b.transformers = append(b.transformers, t)
	return nil
}

func (b *base) Freeze() {
	b.frozen = true
	for _, c := range b.children {
		c.Freeze()
	}
}

// dispatcherAmongChildren reports whether d is exactly one of children's
// dispatchers, by Endpoint identity -- the containment invariant of
// spec.md §3.2/§8 for internal nodes.
func dispatcherAmongChildren(d Dispatcher, children []ExecPlan) bool {
	if d == nil {
		return false
	}
	for _, c := range children {
		if c.Dispatcher() != nil && c.Dispatcher().Endpoint() == d.Endpoint() {
			return true
		}
	}
	return false
}

func printTransformers(indent string, transformers []RangeVectorTransformer) string {
	var sb strings.Builder
	for _, t := range transformers {
		sb.WriteString(indent)
		sb.WriteString("-")
		sb.WriteString(t.Name())
		sb.WriteString("\n")
	}
	return sb.String()
}
