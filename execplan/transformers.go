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

import "github.com/pulsewave/tsquery/logicalplan"

// PeriodicSamplesMapper resamples a raw series onto a fixed step grid and,
// when Window/Function are set, folds a trailing window function over each
// step (spec.md §4.4: materializes PeriodicSeries/PeriodicSeriesWithWindowing).
type PeriodicSamplesMapper struct {
	Start, Step, End int64
	Window           *int64
	Function         *string
	FunctionArgs     []logicalplan.FunctionArg
}

func (*PeriodicSamplesMapper) Name() string { return "PeriodicSamplesMapper" }

// InstantVectorFunctionMapper applies a stateless per-sample function
// (spec.md §4.4: materializes ApplyInstantFunction).
type InstantVectorFunctionMapper struct {
	Function     string
	FunctionArgs []logicalplan.FunctionArg
}

func (*InstantVectorFunctionMapper) Name() string { return "InstantVectorFunctionMapper" }

// AggregateMapReduce performs the per-shard partial reduction of an
// Aggregate (spec.md §4.4): grouped by By, or by everything except Without.
type AggregateMapReduce struct {
	Operator logicalplan.AggregateOperator
	Params   []logicalplan.FunctionArg
	Without  []string
	By       []string
}

func (*AggregateMapReduce) Name() string { return "AggregateMapReduce" }

// AggregatePresenter finishes an Aggregate after its partials have been
// merged: for avg it divides sum by count, for stddev/topk/bottomk it
// applies the operator's closing step (spec.md §4.4).
type AggregatePresenter struct {
	Operator logicalplan.AggregateOperator
	Params   []logicalplan.FunctionArg
}

func (*AggregatePresenter) Name() string { return "AggregatePresenter" }

// ScalarOperationMapper applies a binary operator between a vector stream
// and a literal scalar (spec.md §4.4: materializes ScalarVectorBinaryOperation).
type ScalarOperationMapper struct {
	Operator    logicalplan.BinaryOperator
	Scalar      float64
	ScalarIsLHS bool
}

func (*ScalarOperationMapper) Name() string { return "ScalarOperationMapper" }
