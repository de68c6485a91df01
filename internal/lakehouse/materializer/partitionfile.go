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
	"bytes"

	"github.com/parquet-go/parquet-go"
	"github.com/pkg/errors"

	"github.com/micromegas-db/micromegas/internal/errs"
)

// ReadPartitionFile decodes a parquet partition file written by
// writePartitionFile back into its view-specific row slice, boxed as
// interface{} the same way GenerateProcessJitPartitions boxes its result —
// the query engine's table providers use this to read materialized
// partitions without the row types themselves leaving this package.
func ReadPartitionFile(viewSet string, data []byte) (interface{}, error) {
	r := bytes.NewReader(data)

	switch viewSet {
	case "log_entries":
		rows, err := parquet.Read[logEntryRow](r, r.Size())
		if err != nil {
			return nil, errors.Wrap(err, "decoding log_entries parquet")
		}
		return rows, nil

	case "measures":
		rows, err := parquet.Read[measureRow](r, r.Size())
		if err != nil {
			return nil, errors.Wrap(err, "decoding measures parquet")
		}
		return rows, nil

	case "thread_spans":
		rows, err := parquet.Read[threadSpanRow](r, r.Size())
		if err != nil {
			return nil, errors.Wrap(err, "decoding thread_spans parquet")
		}
		return rows, nil

	case "async_events":
		rows, err := parquet.Read[asyncEventRow](r, r.Size())
		if err != nil {
			return nil, errors.Wrap(err, "decoding async_events parquet")
		}
		return rows, nil

	case "log_stats":
		rows, err := parquet.Read[logStatRow](r, r.Size())
		if err != nil {
			return nil, errors.Wrap(err, "decoding log_stats parquet")
		}
		return rows, nil

	default:
		return nil, errors.Wrapf(errs.ErrSchemaMismatch, "view %q has no partition file reader", viewSet)
	}
}

// AppendRows appends rows (as returned by ReadPartitionFile or
// GenerateProcessJitPartitions) onto acc, both boxed as interface{} so the
// query engine can fold partitions together across a scan without this
// package's row types ever leaving it. acc may be nil.
func AppendRows(viewSet string, acc interface{}, rows interface{}) (interface{}, error) {
	switch viewSet {
	case "log_entries":
		dst, _ := acc.([]logEntryRow)
		src, ok := rows.([]logEntryRow)
		if !ok {
			return nil, errors.Wrapf(errs.ErrTypeMismatch, "expected []logEntryRow for view %q", viewSet)
		}
		return append(dst, src...), nil

	case "measures":
		dst, _ := acc.([]measureRow)
		src, ok := rows.([]measureRow)
		if !ok {
			return nil, errors.Wrapf(errs.ErrTypeMismatch, "expected []measureRow for view %q", viewSet)
		}
		return append(dst, src...), nil

	case "thread_spans":
		dst, _ := acc.([]threadSpanRow)
		src, ok := rows.([]threadSpanRow)
		if !ok {
			return nil, errors.Wrapf(errs.ErrTypeMismatch, "expected []threadSpanRow for view %q", viewSet)
		}
		return append(dst, src...), nil

	case "async_events":
		dst, _ := acc.([]asyncEventRow)
		src, ok := rows.([]asyncEventRow)
		if !ok {
			return nil, errors.Wrapf(errs.ErrTypeMismatch, "expected []asyncEventRow for view %q", viewSet)
		}
		return append(dst, src...), nil

	case "log_stats":
		dst, _ := acc.([]logStatRow)
		src, ok := rows.([]logStatRow)
		if !ok {
			return nil, errors.Wrapf(errs.ErrTypeMismatch, "expected []logStatRow for view %q", viewSet)
		}
		return append(dst, src...), nil

	default:
		return nil, errors.Wrapf(errs.ErrSchemaMismatch, "view %q has no row accumulator", viewSet)
	}
}

// RowCount returns the number of rows materialized into data, without the
// caller needing to know the view's concrete row type.
func RowCount(viewSet string, data []byte) (int, error) {
	rows, err := ReadPartitionFile(viewSet, data)
	if err != nil {
		return 0, err
	}
	return Len(viewSet, rows)
}

// Len reports how many rows a boxed row slice (as produced by
// ReadPartitionFile, GenerateProcessJitPartitions, or AppendRows) holds.
func Len(viewSet string, rows interface{}) (int, error) {
	switch r := rows.(type) {
	case []logEntryRow:
		return len(r), nil
	case []measureRow:
		return len(r), nil
	case []threadSpanRow:
		return len(r), nil
	case []asyncEventRow:
		return len(r), nil
	case []logStatRow:
		return len(r), nil
	default:
		return 0, errors.Wrapf(errs.ErrSchemaMismatch, "view %q has no recognizable row type", viewSet)
	}
}
