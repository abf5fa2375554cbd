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

// Package tsmetrics publishes the handful of counters the planner, the
// record builder, and the dispatcher binder expose: Prometheus collectors
// registered eagerly at package init, the same shape vitess's
// go/stats/promstats bridge produces for a stats.Counters variable, minus
// the expvar intermediary -- there is no bespoke stats package in this
// module for promstats to adapt, so these counters talk to prometheus
// directly via promauto.
package tsmetrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MaterializeTotal counts Planner.Materialize calls, labeled by outcome
// ("ok" or the failing tserrors.Code's string form).
var MaterializeTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "tsquery",
	Subsystem: "planner",
	Name:      "materialize_total",
	Help:      "Planner.Materialize calls, labeled by outcome.",
}, []string{"outcome"})

// MaterializeLeafShards observes how many leaf shards a successful
// Materialize call fanned out to.
var MaterializeLeafShards = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "tsquery",
	Subsystem: "planner",
	Name:      "materialize_leaf_shards",
	Help:      "Number of leaf SelectRawPartitionsExec shards a materialized plan touched.",
	Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
})

// ContainerOverflowTotal counts Builder container-overflow events (spec.md
// §4.5's container overflow protocol), labeled by container size so a
// misconfigured small container size shows up distinctly.
var ContainerOverflowTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "tsquery",
	Subsystem: "record",
	Name:      "container_overflow_total",
	Help:      "Builder container-overflow events, labeled by configured container size.",
}, []string{"container_size"})

// DispatchTotal counts ActorPlanDispatcher.Dispatch calls, labeled by
// outcome ("ok" or "error" for a transport-layer failure).
var DispatchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "tsquery",
	Subsystem: "dispatch",
	Name:      "dispatch_total",
	Help:      "ActorPlanDispatcher.Dispatch calls, labeled by outcome.",
}, []string{"outcome"})
