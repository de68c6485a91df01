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

package queryengine

import (
	"sort"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/micromegas-db/micromegas/internal/lakehouse/props"
	"github.com/micromegas-db/micromegas/internal/util/metrics"
)

// PropertyGet implements the property_get(props, key) scalar UDF over an
// Arrow column, accepting any of the four property-column encodings
// props.PropertyGet understands.
func PropertyGet(col arrow.Array, row int, key string) (string, error) {
	return props.PropertyGet(col, row, key)
}

// PropertiesLength implements the properties_length(props) scalar UDF.
func PropertiesLength(col arrow.Array, row int) (int, error) {
	return props.PropertiesLength(col, row)
}

// PropertiesToJSONB implements the properties_to_jsonb(props) scalar UDF:
// a pass-through when the row is already canonical JSONB bytes, a
// conversion otherwise. The materializer always writes properties columns
// as canonical JSONB (see project.go's propertiesJSONB), so in practice
// this only ever validates and re-wraps row's bytes; it still goes through
// DocAt/EncodeJSONB so a non-canonical input column converts correctly.
func PropertiesToJSONB(col arrow.Array, row int) ([]byte, error) {
	doc, err := props.DocAt(col, row)
	if err != nil {
		return nil, err
	}
	return props.EncodeJSONB(doc.Pairs()), nil
}

// HistogramBucket is one bucket of a make_histogram result: values above
// the previous bucket's UpperBound and <= its own UpperBound (the first
// bucket takes everything <= its UpperBound), except the last bucket,
// which also absorbs anything > its UpperBound.
type HistogramBucket struct {
	UpperBound float64
	Count      uint64
}

// MakeHistogram implements the make_histogram(value) aggregate UDF: given a
// column of numeric measures and a set of ascending bucket boundaries
// (defaulting to internal/util/metrics.LatencyBuckets, the bucket set every
// other histogram-shaped metric in this module already shares), it returns
// the per-bucket count. Unlike the scalar UDFs above this has no
// column-encoding ambiguity to resolve — measures are always a plain
// float64 array — so it operates directly on a []float64 rather than an
// arrow.Array.
func MakeHistogram(values []float64, bounds []float64) []HistogramBucket {
	if len(bounds) == 0 {
		bounds = metrics.LatencyBuckets
	}
	sorted := append([]float64(nil), bounds...)
	sort.Float64s(sorted)

	out := make([]HistogramBucket, len(sorted))
	for i, b := range sorted {
		out[i].UpperBound = b
	}

	for _, v := range values {
		idx := sort.SearchFloat64s(sorted, v)
		if idx >= len(out) {
			idx = len(out) - 1
		}
		if len(out) > 0 {
			out[idx].Count++
		}
	}
	return out
}
