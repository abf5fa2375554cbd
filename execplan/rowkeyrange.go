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

	"github.com/pulsewave/tsquery/internal/tserrors"
	"github.com/pulsewave/tsquery/logicalplan"
)

// RowKeyRange is the physical counterpart of a logicalplan.RangeSelector:
// which rows of a partition a SelectRawPartitionsExec reads. Kept as its
// own sealed type, rather than reusing logicalplan.RangeSelector directly,
// so the exec-plan package never imports a scan-time concept it doesn't
// own, the same separation vitess draws between a SQL AST range and the
// key range a Route primitive actually dispatches with.
type RowKeyRange interface {
	rowKeyRange()
}

// IntervalRange reads rows with a key in [From, To] (epoch millis).
type IntervalRange struct {
	From int64
	To   int64
}

func (IntervalRange) rowKeyRange() {}

// AllChunksRange reads every row of the partition.
type AllChunksRange struct{}

func (AllChunksRange) rowKeyRange() {}

// EncodedChunksRange reads only encoded (immutable) chunks.
type EncodedChunksRange struct{}

func (EncodedChunksRange) rowKeyRange() {}

// WriteBuffersRange reads only the mutable write buffer.
type WriteBuffersRange struct{}

func (WriteBuffersRange) rowKeyRange() {}

// ToRowKeyRange converts a logical range selector to its physical
// counterpart. Spec.md §9 leaves open what a materializer should do with a
// RangeSelector variant it doesn't recognize; this module's resolution
// (recorded in DESIGN.md) is to reject it outright with an
// UnsupportedColumnType-coded error rather than
// silently defaulting to AllChunksRange, since a silent default would widen
// a scan the caller never asked for.
func ToRowKeyRange(sel logicalplan.RangeSelector) (RowKeyRange, error) {
	switch s := sel.(type) {
	case logicalplan.IntervalSelector:
		return IntervalRange{From: s.From, To: s.To}, nil
	case logicalplan.AllChunksSelector:
		return AllChunksRange{}, nil
	case logicalplan.EncodedChunksSelector:
		return EncodedChunksRange{}, nil
	case logicalplan.WriteBuffersSelector:
		return WriteBuffersRange{}, nil
	default:
		return nil, tserrors.New(tserrors.UnsupportedColumnType, fmt.Sprintf("unsupported range selector %T", sel))
	}
}
