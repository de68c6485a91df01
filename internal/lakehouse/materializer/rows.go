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

// Package materializer implements the background worker that turns raw
// ingested blocks into queryable partition files: the Materializer reads
// blocks for a view's stream tag over a time window, projects their events
// into the view's row shape, writes a partition file to the object store,
// and commits the partition row through the catalog's atomic insert.
//
// Projection and the JIT partition provider share the same per-view row
// types and Project* functions in this package, so a materialized
// partition and a JIT-synthesized one are byte-for-byte identical for the
// same input blocks.
package materializer

import "time"

// logEntryRow is the on-disk row shape for the log_entries view.
type logEntryRow struct {
	ProcessID  string    `parquet:"process_id,dict"`
	Time       time.Time `parquet:"time,timestamp"`
	Level      uint8     `parquet:"level"`
	Target     string    `parquet:"target,dict"`
	Msg        string    `parquet:"msg"`
	Properties []byte    `parquet:"properties,optional"`
}

// measureRow is the on-disk row shape for the measures view.
type measureRow struct {
	ProcessID  string    `parquet:"process_id,dict"`
	Time       time.Time `parquet:"time,timestamp"`
	Name       string    `parquet:"name,dict"`
	Value      float64   `parquet:"value"`
	Properties []byte    `parquet:"properties,optional"`
}

// threadSpanRow is the on-disk row shape for the thread_spans view.
type threadSpanRow struct {
	ProcessID  string    `parquet:"process_id,dict"`
	SpanID     uint64    `parquet:"span_id"`
	ThreadName string    `parquet:"thread_name,dict"`
	BeginTime  time.Time `parquet:"begin_time,timestamp"`
	EndTime    time.Time `parquet:"end_time,timestamp"`
	Target     string    `parquet:"target,dict"`
	Name       string    `parquet:"name,dict"`
}

// asyncEventRow is the on-disk row shape for the async_events view. Begin
// and End events from the same span share a span_id but are materialized
// as two distinct rows, matching the runtime's own Begin/End event pair.
type asyncEventRow struct {
	ProcessID string    `parquet:"process_id,dict"`
	SpanID    uint64    `parquet:"span_id"`
	ParentID  uint64    `parquet:"parent_id"`
	EventKind uint8     `parquet:"event_kind"`
	Time      time.Time `parquet:"time,timestamp"`
	Target    string    `parquet:"target,dict"`
	Name      string    `parquet:"name,dict"`
}

// logStatRow is the on-disk row shape for the log_stats view, a time-bucket
// aggregate over log_entries computed during materialization rather than
// read back from raw blocks at query time.
type logStatRow struct {
	ProcessID  string    `parquet:"process_id,dict"`
	TimeBucket time.Time `parquet:"time_bucket,timestamp"`
	Level      uint8     `parquet:"level"`
	Count      uint64    `parquet:"count"`
}

const (
	asyncEventKindBegin uint8 = 0
	asyncEventKindEnd   uint8 = 1
)
