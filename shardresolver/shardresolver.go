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

// Package shardresolver turns a RawSeries's column filters into the set of
// shards a query must touch (spec.md §4.2). It plays the role vindexes.Map
// plays for vitess's planbuilder: the one place a filter set is turned into
// a routing decision, kept independent of the exec-plan tree it feeds.
package shardresolver

import (
	"github.com/pulsewave/tsquery/internal/tserrors"
	"github.com/pulsewave/tsquery/logicalplan"
	"github.com/pulsewave/tsquery/record"
	"github.com/pulsewave/tsquery/shardmap"
)

// Dataset names the shard-key columns a dataset is partitioned by, in the
// fixed order shardKeyHash expects them zipped with their filter values.
// (The hash itself is order-independent -- see record.ShardKeyHash -- but
// this type still needs a canonical order to find each column's filter.)
type Dataset struct {
	Name          string
	ShardKeyCols  []string
}

// Options carries the resolver-relevant subset of planner.Options: how many
// shard buckets one query may fan out to, and an explicit override list for
// datasets without shard-key columns.
type Options struct {
	ShardKeySpread int
	ShardOverrides []int
}

// ShardsFromFilters implements spec.md §4.2's three-case resolution:
//
//  1. Dataset declares shard-key columns: every one of them must have an
//     Equals(string) filter; shardKeyHash routes through the shard map.
//  2. No shard-key columns, but options.ShardOverrides is set: use it
//     verbatim.
//  3. Neither: BadQuery.
func ShardsFromFilters(dataset Dataset, filters []logicalplan.ColumnFilter, opts Options, shards shardmap.ShardMap) ([]int, error) {
	if len(dataset.ShardKeyCols) > 0 {
		vals := make([]string, len(dataset.ShardKeyCols))
		for i, col := range dataset.ShardKeyCols {
			v, err := findEqualsValue(filters, col)
			if err != nil {
				return nil, err
			}
			vals[i] = v
		}
		hash, err := record.ShardKeyHash(dataset.ShardKeyCols, vals)
		if err != nil {
			return nil, tserrors.Wrap(tserrors.BadQuery, err, "shardresolver: computing shard-key hash for dataset %q", dataset.Name)
		}
		return shards.QueryShards(hash, opts.ShardKeySpread)
	}
	if len(opts.ShardOverrides) > 0 {
		return opts.ShardOverrides, nil
	}
	return nil, tserrors.New(tserrors.BadQuery, "shardresolver: dataset %q has no shard-key columns and no shard override was supplied", dataset.Name)
}

// findEqualsValue locates the single ColumnFilter on col and requires it be
// Equals(string); anything else (missing, non-equality, non-string) is
// BadQuery, per spec.md §4.2 case 1.
func findEqualsValue(filters []logicalplan.ColumnFilter, col string) (string, error) {
	var found *logicalplan.ColumnFilter
	for i := range filters {
		if filters[i].Column == col {
			if found != nil {
				return "", tserrors.New(tserrors.BadQuery, "shardresolver: shard-key column %q has more than one filter", col)
			}
			found = &filters[i]
		}
	}
	if found == nil {
		return "", tserrors.New(tserrors.BadQuery, "shardresolver: shard-key column %q has no filter", col)
	}
	eq, ok := found.Filter.(logicalplan.Equals)
	if !ok {
		return "", tserrors.New(tserrors.BadQuery, "shardresolver: shard-key column %q must be filtered by Equals(string), got %T", col, found.Filter)
	}
	return eq.Value, nil
}
