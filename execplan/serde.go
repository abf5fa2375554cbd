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
	"encoding/json"
	"fmt"

	"github.com/pulsewave/tsquery/internal/tserrors"
	"github.com/pulsewave/tsquery/logicalplan"
)

// Wire serde for ExecPlan. Spec.md §6.3 asks for a plan representation a
// dispatcher can ship over the wire to a remote shard; protoc was
// deliberately not wired into this module (see DESIGN.md), so this is a
// tagged JSON envelope instead -- the same "type tag plus opaque payload"
// shape vitess's query plan cache keys use, minus the protobuf wire format.

type wireEnvelope struct {
	Type         string            `json:"type"`
	Node         json.RawMessage   `json:"node"`
	Transformers []wireTransformer `json:"transformers,omitempty"`
}

type wireTransformer struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type wireSelectRaw struct {
	QueryID    string                     `json:"queryId"`
	SubmitTime int64                      `json:"submitTime"`
	Endpoint   string                     `json:"endpoint"`
	Dataset    string                     `json:"dataset"`
	Shard      int                        `json:"shard"`
	Filters    []wireColumnFilter         `json:"filters"`
	Range      wireRowKeyRange            `json:"range"`
	Columns    []string                   `json:"columns"`
}

type wireDistConcat struct {
	QueryID    string            `json:"queryId"`
	SubmitTime int64             `json:"submitTime"`
	Endpoint   string            `json:"endpoint"`
	Children   []wireEnvelope    `json:"children"`
}

type wireReduceAggregate struct {
	QueryID    string         `json:"queryId"`
	SubmitTime int64          `json:"submitTime"`
	Endpoint   string         `json:"endpoint"`
	Children   []wireEnvelope `json:"children"`
	Operator   string         `json:"operator"`
	Params     []any          `json:"params"`
}

type wireBinaryJoin struct {
	QueryID     string         `json:"queryId"`
	SubmitTime  int64          `json:"submitTime"`
	Endpoint    string         `json:"endpoint"`
	LHS         []wireEnvelope `json:"lhs"`
	RHS         []wireEnvelope `json:"rhs"`
	Operator    string         `json:"operator"`
	Cardinality string         `json:"cardinality"`
	On          []string       `json:"on"`
	Ignoring    []string       `json:"ignoring"`
}

type wireColumnFilter struct {
	Column string          `json:"column"`
	Kind   string          `json:"kind"`
	Value  json.RawMessage `json:"value,omitempty"`
}

type wireRowKeyRange struct {
	Kind string `json:"kind"`
	From int64  `json:"from,omitempty"`
	To   int64  `json:"to,omitempty"`
}

// DispatcherResolver looks up a Dispatcher by endpoint string when unmarshaling; the
// caller supplies the mapping since only it knows which live Dispatcher a
// wire endpoint string should bind back to (spec.md §6.2: binding a plan's
// dispatcher is the caller's/binder's responsibility, not the serde's).
type DispatcherResolver func(endpoint string) (Dispatcher, error)

// MarshalPlan encodes plan as a tagged JSON envelope.
func MarshalPlan(plan ExecPlan) ([]byte, error) {
	env, err := marshalEnvelope(plan)
	if err != nil {
		return nil, err
	}
	return json.Marshal(env)
}

func marshalEnvelope(plan ExecPlan) (wireEnvelope, error) {
	wt, err := marshalTransformers(plan.Transformers())
	if err != nil {
		return wireEnvelope{}, err
	}

	var typeTag string
	var nodeBytes []byte

	switch n := plan.(type) {
	case *SelectRawPartitionsExec:
		typeTag = "SelectRawPartitionsExec"
		wf, err := marshalFilters(n.Filters)
		if err != nil {
			return wireEnvelope{}, err
		}
		wr, err := marshalRowKeyRange(n.Range)
		if err != nil {
			return wireEnvelope{}, err
		}
		nodeBytes, err = json.Marshal(wireSelectRaw{
			QueryID: n.QueryID(), SubmitTime: n.SubmitTime(), Endpoint: endpointOf(n),
			Dataset: n.Dataset, Shard: n.Shard, Filters: wf, Range: wr, Columns: n.Columns,
		})
		if err != nil {
			return wireEnvelope{}, err
		}
	case *DistConcatExec:
		typeTag = "DistConcatExec"
		children, err := marshalChildren(n.Children())
		if err != nil {
			return wireEnvelope{}, err
		}
		nodeBytes, err = json.Marshal(wireDistConcat{
			QueryID: n.QueryID(), SubmitTime: n.SubmitTime(), Endpoint: endpointOf(n), Children: children,
		})
		if err != nil {
			return wireEnvelope{}, err
		}
	case *ReduceAggregateExec:
		typeTag = "ReduceAggregateExec"
		children, err := marshalChildren(n.Children())
		if err != nil {
			return wireEnvelope{}, err
		}
		nodeBytes, err = json.Marshal(wireReduceAggregate{
			QueryID: n.QueryID(), SubmitTime: n.SubmitTime(), Endpoint: endpointOf(n),
			Children: children, Operator: string(n.Operator), Params: n.Params,
		})
		if err != nil {
			return wireEnvelope{}, err
		}
	case *BinaryJoinExec:
		typeTag = "BinaryJoinExec"
		lhs, err := marshalChildren(n.LHS)
		if err != nil {
			return wireEnvelope{}, err
		}
		rhs, err := marshalChildren(n.RHS)
		if err != nil {
			return wireEnvelope{}, err
		}
		nodeBytes, err = json.Marshal(wireBinaryJoin{
			QueryID: n.QueryID(), SubmitTime: n.SubmitTime(), Endpoint: endpointOf(n),
			LHS: lhs, RHS: rhs, Operator: string(n.Operator), Cardinality: string(n.Cardinality),
			On: n.On, Ignoring: n.Ignoring,
		})
		if err != nil {
			return wireEnvelope{}, err
		}
	default:
		return wireEnvelope{}, tserrors.New(tserrors.UnsupportedColumnType, fmt.Sprintf("execplan: no wire encoding for node type %T", plan))
	}

	return wireEnvelope{Type: typeTag, Node: nodeBytes, Transformers: wt}, nil
}

func endpointOf(n ExecPlan) string {
	if n.Dispatcher() == nil {
		return ""
	}
	return n.Dispatcher().Endpoint()
}

func marshalChildren(children []ExecPlan) ([]wireEnvelope, error) {
	out := make([]wireEnvelope, len(children))
	for i, c := range children {
		env, err := marshalEnvelope(c)
		if err != nil {
			return nil, err
		}
		out[i] = env
	}
	return out, nil
}

func marshalTransformers(ts []RangeVectorTransformer) ([]wireTransformer, error) {
	out := make([]wireTransformer, 0, len(ts))
	for _, t := range ts {
		payload, err := json.Marshal(t)
		if err != nil {
			return nil, err
		}
		out = append(out, wireTransformer{Type: t.Name(), Payload: payload})
	}
	return out, nil
}

func marshalFilters(filters []logicalplan.ColumnFilter) ([]wireColumnFilter, error) {
	out := make([]wireColumnFilter, len(filters))
	for i, cf := range filters {
		wcf := wireColumnFilter{Column: cf.Column}
		var val any
		switch f := cf.Filter.(type) {
		case logicalplan.Equals:
			wcf.Kind, val = "Equals", f.Value
		case logicalplan.EqualsOther:
			wcf.Kind, val = "EqualsOther", f.Value
		case logicalplan.NotEquals:
			wcf.Kind, val = "NotEquals", f.Value
		case logicalplan.In:
			wcf.Kind, val = "In", f.Values
		case logicalplan.EqualsRegex:
			wcf.Kind, val = "EqualsRegex", f.Pattern
		case logicalplan.NotEqualsRegex:
			wcf.Kind, val = "NotEqualsRegex", f.Pattern
		default:
			return nil, tserrors.New(tserrors.UnsupportedColumnType, fmt.Sprintf("execplan: no wire encoding for filter type %T", cf.Filter))
		}
		b, err := json.Marshal(val)
		if err != nil {
			return nil, err
		}
		wcf.Value = b
		out[i] = wcf
	}
	return out, nil
}

func marshalRowKeyRange(r RowKeyRange) (wireRowKeyRange, error) {
	switch v := r.(type) {
	case IntervalRange:
		return wireRowKeyRange{Kind: "Interval", From: v.From, To: v.To}, nil
	case AllChunksRange:
		return wireRowKeyRange{Kind: "AllChunks"}, nil
	case EncodedChunksRange:
		return wireRowKeyRange{Kind: "EncodedChunks"}, nil
	case WriteBuffersRange:
		return wireRowKeyRange{Kind: "WriteBuffers"}, nil
	default:
		return wireRowKeyRange{}, tserrors.New(tserrors.UnsupportedColumnType, fmt.Sprintf("execplan: no wire encoding for row key range type %T", r))
	}
}

// UnmarshalPlan decodes a tagged JSON envelope back into an ExecPlan tree,
// resolving each node's dispatcher by endpoint string through resolve.
func UnmarshalPlan(data []byte, resolve DispatcherResolver) (ExecPlan, error) {
	var env wireEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}
	return unmarshalEnvelope(env, resolve)
}

func unmarshalEnvelope(env wireEnvelope, resolve DispatcherResolver) (ExecPlan, error) {
	transformers, err := unmarshalTransformers(env.Transformers)
	if err != nil {
		return nil, err
	}

	var plan ExecPlan
	switch env.Type {
	case "SelectRawPartitionsExec":
		var w wireSelectRaw
		if err := json.Unmarshal(env.Node, &w); err != nil {
			return nil, err
		}
		disp, err := resolve(w.Endpoint)
		if err != nil {
			return nil, err
		}
		filters, err := unmarshalFilters(w.Filters)
		if err != nil {
			return nil, err
		}
		rng, err := unmarshalRowKeyRange(w.Range)
		if err != nil {
			return nil, err
		}
		n := NewSelectRawPartitionsExec(w.QueryID, w.SubmitTime, disp, w.Dataset, w.Shard, filters, rng, w.Columns)
		plan = n
	case "DistConcatExec":
		var w wireDistConcat
		if err := json.Unmarshal(env.Node, &w); err != nil {
			return nil, err
		}
		disp, err := resolve(w.Endpoint)
		if err != nil {
			return nil, err
		}
		children, err := unmarshalChildren(w.Children, resolve)
		if err != nil {
			return nil, err
		}
		n, err := NewDistConcatExec(w.QueryID, w.SubmitTime, disp, children)
		if err != nil {
			return nil, err
		}
		plan = n
	case "ReduceAggregateExec":
		var w wireReduceAggregate
		if err := json.Unmarshal(env.Node, &w); err != nil {
			return nil, err
		}
		disp, err := resolve(w.Endpoint)
		if err != nil {
			return nil, err
		}
		children, err := unmarshalChildren(w.Children, resolve)
		if err != nil {
			return nil, err
		}
		n, err := NewReduceAggregateExec(w.QueryID, w.SubmitTime, disp, children, logicalplan.AggregateOperator(w.Operator), w.Params)
		if err != nil {
			return nil, err
		}
		plan = n
	case "BinaryJoinExec":
		var w wireBinaryJoin
		if err := json.Unmarshal(env.Node, &w); err != nil {
			return nil, err
		}
		disp, err := resolve(w.Endpoint)
		if err != nil {
			return nil, err
		}
		lhs, err := unmarshalChildren(w.LHS, resolve)
		if err != nil {
			return nil, err
		}
		rhs, err := unmarshalChildren(w.RHS, resolve)
		if err != nil {
			return nil, err
		}
		n, err := NewBinaryJoinExec(w.QueryID, w.SubmitTime, disp, lhs, rhs,
			logicalplan.BinaryOperator(w.Operator), logicalplan.Cardinality(w.Cardinality), w.On, w.Ignoring)
		if err != nil {
			return nil, err
		}
		plan = n
	default:
		return nil, tserrors.New(tserrors.UnsupportedColumnType, fmt.Sprintf("execplan: unknown wire node type %q", env.Type))
	}

	for _, t := range transformers {
		if err := plan.AddRangeVectorTransformer(t); err != nil {
			return nil, err
		}
	}
	return plan, nil
}

func unmarshalChildren(envs []wireEnvelope, resolve DispatcherResolver) ([]ExecPlan, error) {
	out := make([]ExecPlan, len(envs))
	for i, e := range envs {
		p, err := unmarshalEnvelope(e, resolve)
		if err != nil {
			return nil, err
		}
		out[i] = p
	}
	return out, nil
}

func unmarshalTransformers(ws []wireTransformer) ([]RangeVectorTransformer, error) {
	out := make([]RangeVectorTransformer, 0, len(ws))
	for _, w := range ws {
		var t RangeVectorTransformer
		switch w.Type {
		case "PeriodicSamplesMapper":
			var v PeriodicSamplesMapper
			if err := json.Unmarshal(w.Payload, &v); err != nil {
				return nil, err
			}
			t = &v
		case "InstantVectorFunctionMapper":
			var v InstantVectorFunctionMapper
			if err := json.Unmarshal(w.Payload, &v); err != nil {
				return nil, err
			}
			t = &v
		case "AggregateMapReduce":
			var v AggregateMapReduce
			if err := json.Unmarshal(w.Payload, &v); err != nil {
				return nil, err
			}
			t = &v
		case "AggregatePresenter":
			var v AggregatePresenter
			if err := json.Unmarshal(w.Payload, &v); err != nil {
				return nil, err
			}
			t = &v
		case "ScalarOperationMapper":
			var v ScalarOperationMapper
			if err := json.Unmarshal(w.Payload, &v); err != nil {
				return nil, err
			}
			t = &v
		default:
			return nil, tserrors.New(tserrors.UnsupportedColumnType, fmt.Sprintf("execplan: unknown wire transformer type %q", w.Type))
		}
		out = append(out, t)
	}
	return out, nil
}

func unmarshalFilters(ws []wireColumnFilter) ([]logicalplan.ColumnFilter, error) {
	out := make([]logicalplan.ColumnFilter, len(ws))
	for i, w := range ws {
		cf := logicalplan.ColumnFilter{Column: w.Column}
		switch w.Kind {
		case "Equals":
			var v string
			if err := json.Unmarshal(w.Value, &v); err != nil {
				return nil, err
			}
			cf.Filter = logicalplan.Equals{Value: v}
		case "EqualsOther":
			var v any
			if err := json.Unmarshal(w.Value, &v); err != nil {
				return nil, err
			}
			cf.Filter = logicalplan.EqualsOther{Value: v}
		case "NotEquals":
			var v string
			if err := json.Unmarshal(w.Value, &v); err != nil {
				return nil, err
			}
			cf.Filter = logicalplan.NotEquals{Value: v}
		case "In":
			var v []string
			if err := json.Unmarshal(w.Value, &v); err != nil {
				return nil, err
			}
			cf.Filter = logicalplan.In{Values: v}
		case "EqualsRegex":
			var v string
			if err := json.Unmarshal(w.Value, &v); err != nil {
				return nil, err
			}
			cf.Filter = logicalplan.EqualsRegex{Pattern: v}
		case "NotEqualsRegex":
			var v string
			if err := json.Unmarshal(w.Value, &v); err != nil {
				return nil, err
			}
			cf.Filter = logicalplan.NotEqualsRegex{Pattern: v}
		default:
			return nil, tserrors.New(tserrors.UnsupportedColumnType, fmt.Sprintf("execplan: unknown wire filter kind %q", w.Kind))
		}
		out[i] = cf
	}
	return out, nil
}

func unmarshalRowKeyRange(w wireRowKeyRange) (RowKeyRange, error) {
	switch w.Kind {
	case "Interval":
		return IntervalRange{From: w.From, To: w.To}, nil
	case "AllChunks":
		return AllChunksRange{}, nil
	case "EncodedChunks":
		return EncodedChunksRange{}, nil
	case "WriteBuffers":
		return WriteBuffersRange{}, nil
	default:
		return nil, tserrors.New(tserrors.UnsupportedColumnType, fmt.Sprintf("execplan: unknown wire row key range kind %q", w.Kind))
	}
}
