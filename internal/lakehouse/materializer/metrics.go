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

package materializer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/micromegas-db/micromegas/internal/util/metrics"
)

var (
	partitionsWritten = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "materializer_partitions_written_total",
		Help: "the number of partition files successfully committed",
	}, metrics.ViewSetLabels)
	partitionRows = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "materializer_partition_rows_total",
		Help: "the number of rows written across all committed partitions",
	}, metrics.ViewSetLabels)
	materializeDurations = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "materializer_materialize_duration_seconds",
		Help:    "the length of time it took to materialize one partition",
		Buckets: metrics.LatencyBuckets,
	}, metrics.ViewSetLabels)
	materializeErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "materializer_materialize_errors_total",
		Help: "the number of times materializing a partition failed",
	}, metrics.ViewSetLabels)
)
