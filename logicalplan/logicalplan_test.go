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

package logicalplan

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestLogicalPlanVariantsAreClosed exercises every variant's membership in
// the LogicalPlan interface, the same closed-set check a planner's type
// switch relies on being exhaustive.
func TestLogicalPlanVariantsAreClosed(t *testing.T) {
	var plans []LogicalPlan
	plans = append(plans,
		&RawSeries{Columns: []string{"value"}, Range: AllChunksSelector{}},
		&PeriodicSeries{Raw: &RawSeries{}, Start: 0, Step: 10, End: 100},
		&PeriodicSeriesWithWindowing{Raw: &RawSeries{}, Window: 60, Function: "rate"},
		&ApplyInstantFunction{Vectors: &RawSeries{}, Function: "abs"},
		&Aggregate{Vectors: &RawSeries{}, Operator: AggSum},
		&BinaryJoin{LHS: &RawSeries{}, RHS: &RawSeries{}, Operator: BinMul, Cardinality: OneToOne},
		&ScalarVectorBinaryOperation{Vector: &RawSeries{}, Operator: BinAdd, Scalar: 2},
	)
	require.Len(t, plans, 7)
	for _, p := range plans {
		require.NotNil(t, p)
	}
}

func TestRangeSelectorVariants(t *testing.T) {
	var selectors []RangeSelector
	selectors = append(selectors, IntervalSelector{From: 0, To: 100}, AllChunksSelector{}, EncodedChunksSelector{}, WriteBuffersSelector{})
	require.Len(t, selectors, 4)
}

func TestFilterVariants(t *testing.T) {
	var filters []Filter
	filters = append(filters,
		Equals{Value: "api"},
		EqualsOther{Value: 3.14},
		NotEquals{Value: "api"},
		In{Values: []string{"a", "b"}},
		EqualsRegex{Pattern: "^api.*"},
		NotEqualsRegex{Pattern: "^api.*"},
	)
	require.Len(t, filters, 6)
}
