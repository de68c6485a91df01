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
	"time"

	"github.com/pkg/errors"

	"github.com/micromegas-db/micromegas/internal/errs"
	"github.com/micromegas-db/micromegas/internal/lakehouse/props"
	"github.com/micromegas-db/micromegas/internal/runtime/blockcodec"
	"github.com/micromegas-db/micromegas/internal/runtime/event"
	"github.com/micromegas-db/micromegas/internal/runtime/hetqueue"
)

func descriptorOf(decoded *blockcodec.Decoded, descID uint32) event.SpanDescriptor {
	if int(descID) >= len(decoded.Descriptors) {
		return event.SpanDescriptor{}
	}
	return decoded.Descriptors[descID]
}

func propertiesJSONB(p event.PropertySet) []byte {
	if len(p) == 0 {
		return nil
	}
	pairs := make([]props.Pair, len(p))
	for i, kv := range p {
		pairs[i] = props.Pair{Key: kv.Key, Value: kv.Value}
	}
	return props.EncodeJSONB(pairs)
}

// ProjectLogEntries decodes every LogEntry/LogEntryTagged event across
// blocks into log_entries rows, in the order the events were recorded.
func ProjectLogEntries(blocks []*blockcodec.Decoded) ([]logEntryRow, error) {
	var rows []logEntryRow
	for _, b := range blocks {
		it := hetqueue.IterBytes(b.Payload)
		for {
			ev, ok, err := it.Next()
			if err != nil {
				return nil, errors.WithStack(err)
			}
			if !ok {
				break
			}
			switch e := ev.(type) {
			case event.LogEntry:
				rows = append(rows, logEntryRow{
					ProcessID: b.ProcessID.String(),
					Time:      time.Unix(0, int64(e.TimeNs)).UTC(),
					Level:     uint8(e.Level),
					Target:    descriptorOf(b, e.DescID).Target,
					Msg:       e.Msg,
				})
			case event.LogEntryTagged:
				rows = append(rows, logEntryRow{
					ProcessID:  b.ProcessID.String(),
					Time:       time.Unix(0, int64(e.TimeNs)).UTC(),
					Level:      uint8(e.Level),
					Target:     descriptorOf(b, e.DescID).Target,
					Msg:        e.Msg,
					Properties: propertiesJSONB(e.Properties),
				})
			}
		}
	}
	return rows, nil
}

// ProjectMeasures decodes every Measure/MeasureTagged event into measures
// rows.
func ProjectMeasures(blocks []*blockcodec.Decoded) ([]measureRow, error) {
	var rows []measureRow
	for _, b := range blocks {
		it := hetqueue.IterBytes(b.Payload)
		for {
			ev, ok, err := it.Next()
			if err != nil {
				return nil, errors.WithStack(err)
			}
			if !ok {
				break
			}
			switch e := ev.(type) {
			case event.Measure:
				rows = append(rows, measureRow{
					ProcessID: b.ProcessID.String(),
					Time:      time.Unix(0, int64(e.TimeNs)).UTC(),
					Name:      descriptorOf(b, e.DescID).Name,
					Value:     e.Value,
				})
			case event.MeasureTagged:
				rows = append(rows, measureRow{
					ProcessID:  b.ProcessID.String(),
					Time:       time.Unix(0, int64(e.TimeNs)).UTC(),
					Name:       descriptorOf(b, e.DescID).Name,
					Value:      e.Value,
					Properties: propertiesJSONB(e.Properties),
				})
			}
		}
	}
	return rows, nil
}

// ProjectThreadSpans pairs ThreadSpanBegin/ThreadSpanEnd events (matched by
// span id within a block) into thread_spans rows. Pairing does not cross
// block boundaries: a Begin whose End is in another block, and an End
// whose Begin is in another block, both produce no row, so a span that
// crosses a block boundary is not materialized.
func ProjectThreadSpans(blocks []*blockcodec.Decoded) ([]threadSpanRow, error) {
	var rows []threadSpanRow
	for _, b := range blocks {
		begins := make(map[uint64]event.ThreadSpanBegin)
		it := hetqueue.IterBytes(b.Payload)
		for {
			ev, ok, err := it.Next()
			if err != nil {
				return nil, errors.WithStack(err)
			}
			if !ok {
				break
			}
			switch e := ev.(type) {
			case event.ThreadSpanBegin:
				begins[e.SpanID] = e
			case event.ThreadSpanEnd:
				begin, ok := begins[e.SpanID]
				if !ok {
					continue
				}
				delete(begins, e.SpanID)
				desc := descriptorOf(b, begin.DescID)
				rows = append(rows, threadSpanRow{
					ProcessID: b.ProcessID.String(),
					SpanID:    e.SpanID,
					BeginTime: time.Unix(0, int64(begin.TimeNs)).UTC(),
					EndTime:   time.Unix(0, int64(e.TimeNs)).UTC(),
					Target:    desc.Target,
					Name:      desc.Name,
				})
			}
		}
	}
	return rows, nil
}

// ProjectAsyncEvents materializes async_events rows directly from the
// runtime's Begin/End event pair, preserving the parent_id linkage exactly
// as recorded (no pairing needed — unlike thread spans, async span rows
// are one row per event, not per completed span).
func ProjectAsyncEvents(blocks []*blockcodec.Decoded) ([]asyncEventRow, error) {
	var rows []asyncEventRow
	for _, b := range blocks {
		// parentOf tracks the parent id carried by each still-open async
		// span's Begin event so the End event, which the wire format does
		// not repeat parent_id for, can be stamped consistently.
		parentOf := make(map[uint64]uint64)
		it := hetqueue.IterBytes(b.Payload)
		for {
			ev, ok, err := it.Next()
			if err != nil {
				return nil, errors.WithStack(err)
			}
			if !ok {
				break
			}
			switch e := ev.(type) {
			case event.AsyncSpanBegin:
				parentOf[e.SpanID] = e.ParentID
				desc := descriptorOf(b, e.DescID)
				rows = append(rows, asyncEventRow{
					ProcessID: b.ProcessID.String(),
					SpanID:    e.SpanID,
					ParentID:  e.ParentID,
					EventKind: asyncEventKindBegin,
					Time:      time.Unix(0, int64(e.TimeNs)).UTC(),
					Target:    desc.Target,
					Name:      desc.Name,
				})
			case event.AsyncSpanEnd:
				parent := parentOf[e.SpanID]
				delete(parentOf, e.SpanID)
				rows = append(rows, asyncEventRow{
					ProcessID: b.ProcessID.String(),
					SpanID:    e.SpanID,
					ParentID:  parent,
					EventKind: asyncEventKindEnd,
					Time:      time.Unix(0, int64(e.TimeNs)).UTC(),
				})
			}
		}
	}
	return rows, nil
}

// ProjectLogStats aggregates log_entries into per-process, per-level,
// per-bucket counts. bucket is the bucket width; each timestamp is
// truncated to its containing bucket.
func ProjectLogStats(blocks []*blockcodec.Decoded, bucket time.Duration) ([]logStatRow, error) {
	entries, err := ProjectLogEntries(blocks)
	if err != nil {
		return nil, err
	}
	if bucket <= 0 {
		return nil, errors.Wrap(errs.ErrSchemaMismatch, "log_stats bucket duration must be positive")
	}

	type key struct {
		processID string
		bucket    int64
		level     uint8
	}
	counts := make(map[key]uint64)
	for _, e := range entries {
		k := key{
			processID: e.ProcessID,
			bucket:    e.Time.UnixNano() / int64(bucket),
			level:     e.Level,
		}
		counts[k]++
	}

	rows := make([]logStatRow, 0, len(counts))
	for k, n := range counts {
		rows = append(rows, logStatRow{
			ProcessID:  k.processID,
			TimeBucket: time.Unix(0, k.bucket*int64(bucket)).UTC(),
			Level:      k.level,
			Count:      n,
		})
	}
	return rows, nil
}
