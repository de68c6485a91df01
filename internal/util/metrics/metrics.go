// Copyright 2026 The Micromegas Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

// Package metrics holds the shared label and bucket definitions reused by
// every subsystem's promauto metrics, so histogram bucket boundaries and
// label names stay consistent across the ingestion, materializer, and
// query-engine packages instead of each inventing its own.
package metrics

// LatencyBuckets are the histogram bucket boundaries, in seconds, shared by
// every latency histogram in the module. Chosen to span a hot-path push
// (sub-millisecond) through a cold materialization (tens of seconds).
var LatencyBuckets = []float64{
	.0001, .00025, .0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5,
	1, 2.5, 5, 10, 30, 60,
}

// ViewSetLabels is the label set attached to per-view-set metrics.
var ViewSetLabels = []string{"view_set"}

// PartitionKeyLabels is the label set for per-partition-key metrics; no
// metric in this module uses it.
var PartitionKeyLabels = []string{"view_set", "partition_key"}

// ErrorKindLabels is the label set attached to counters that bucket
// failures by the taxonomy kind (QueueFull, SchemaMismatch, ...).
var ErrorKindLabels = []string{"kind"}
