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

package ingestion

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/micromegas-db/micromegas/internal/util/metrics"
)

var (
	blocksReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ingestion_blocks_received_total",
		Help: "the number of blocks accepted by the ingestion endpoint",
	}, metrics.ViewSetLabels)
	blocksQuarantined = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ingestion_blocks_quarantined_total",
		Help: "the number of blocks that failed to decode and were written to the dead-letter queue",
	}, metrics.ErrorKindLabels)
	ingestDurations = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ingestion_handle_duration_seconds",
		Help:    "the length of time it took to accept and persist one block",
		Buckets: metrics.LatencyBuckets,
	}, metrics.ViewSetLabels)
)
