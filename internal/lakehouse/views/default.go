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

package views

import (
	"github.com/apache/arrow-go/v18/arrow"

	"github.com/micromegas-db/micromegas/internal/util/ident"
)

// propertiesField is the canonical Dictionary<i32, Binary> (JSONB) column
// shared by every view that carries a properties map.
func propertiesField(name string) arrow.Field {
	return arrow.Field{
		Name: name,
		Type: &arrow.DictionaryType{
			IndexType: arrow.PrimitiveTypes.Int32,
			ValueType: arrow.BinaryTypes.Binary,
		},
		Nullable: true,
	}
}

func dictStringField(name string, nullable bool) arrow.Field {
	return arrow.Field{
		Name: name,
		Type: &arrow.DictionaryType{
			IndexType: arrow.PrimitiveTypes.Int32,
			ValueType: arrow.BinaryTypes.String,
		},
		Nullable: nullable,
	}
}

// NewDefaultRegistry builds the registry of the eight views this system
// ships by default, each stamped with schema hash [1] as their initial
// version.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()

	r.Register(&View{
		Name:         ident.NewViewSet("log_entries"),
		Icon:         "file-text",
		Description:  "structured log entries",
		StreamTag:    "log",
		PartitionKey: PartitionKeyByProcess,
		Schema: arrow.NewSchema([]arrow.Field{
			{Name: "process_id", Type: arrow.BinaryTypes.String},
			{Name: "time", Type: arrow.FixedWidthTypes.Timestamp_ns},
			{Name: "level", Type: arrow.PrimitiveTypes.Uint8},
			dictStringField("target", true),
			{Name: "msg", Type: arrow.BinaryTypes.String},
			propertiesField("properties"),
		}, nil),
		schemaHash: []uint32{1},
	})

	r.Register(&View{
		Name:         ident.NewViewSet("measures"),
		Icon:         "activity",
		Description:  "numeric measures",
		StreamTag:    "metrics",
		PartitionKey: PartitionKeyByProcess,
		Schema: arrow.NewSchema([]arrow.Field{
			{Name: "process_id", Type: arrow.BinaryTypes.String},
			{Name: "time", Type: arrow.FixedWidthTypes.Timestamp_ns},
			dictStringField("name", true),
			{Name: "value", Type: arrow.PrimitiveTypes.Float64},
			propertiesField("properties"),
		}, nil),
		schemaHash: []uint32{1},
	})

	r.Register(&View{
		Name:         ident.NewViewSet("thread_spans"),
		Icon:         "clock",
		Description:  "synchronous thread-local spans",
		StreamTag:    "cpu",
		PartitionKey: PartitionKeyByProcess,
		Schema: arrow.NewSchema([]arrow.Field{
			{Name: "process_id", Type: arrow.BinaryTypes.String},
			{Name: "span_id", Type: arrow.PrimitiveTypes.Uint64},
			dictStringField("thread_name", true),
			{Name: "begin_time", Type: arrow.FixedWidthTypes.Timestamp_ns},
			{Name: "end_time", Type: arrow.FixedWidthTypes.Timestamp_ns},
			dictStringField("target", true),
			dictStringField("name", true),
		}, nil),
		schemaHash: []uint32{1},
	})

	r.Register(&View{
		Name:         ident.NewViewSet("async_events"),
		Icon:         "git-branch",
		Description:  "async span begin/end events with parent linkage",
		StreamTag:    "cpu",
		PartitionKey: PartitionKeyByProcess,
		Schema: arrow.NewSchema([]arrow.Field{
			{Name: "process_id", Type: arrow.BinaryTypes.String},
			{Name: "span_id", Type: arrow.PrimitiveTypes.Uint64},
			{Name: "parent_id", Type: arrow.PrimitiveTypes.Uint64},
			{Name: "event_kind", Type: arrow.PrimitiveTypes.Uint8},
			{Name: "time", Type: arrow.FixedWidthTypes.Timestamp_ns},
			dictStringField("target", true),
			dictStringField("name", true),
		}, nil),
		schemaHash: []uint32{1},
	})

	r.Register(&View{
		Name:         ident.NewViewSet("log_stats"),
		Icon:         "bar-chart-2",
		Description:  "per-process log-level histograms",
		StreamTag:    "log",
		PartitionKey: PartitionKeyByTimeBucket,
		Schema: arrow.NewSchema([]arrow.Field{
			{Name: "process_id", Type: arrow.BinaryTypes.String},
			{Name: "time_bucket", Type: arrow.FixedWidthTypes.Timestamp_ns},
			{Name: "level", Type: arrow.PrimitiveTypes.Uint8},
			{Name: "count", Type: arrow.PrimitiveTypes.Uint64},
		}, nil),
		schemaHash: []uint32{1},
	})

	r.Register(&View{
		Name:        ident.NewViewSet("processes"),
		Icon:        "server",
		Description: "instrumented process identities",
		Schema: arrow.NewSchema([]arrow.Field{
			{Name: "process_id", Type: arrow.BinaryTypes.String},
			{Name: "exe", Type: arrow.BinaryTypes.String},
			{Name: "computer", Type: arrow.BinaryTypes.String},
			{Name: "username", Type: arrow.BinaryTypes.String},
			{Name: "distro", Type: arrow.BinaryTypes.String},
			{Name: "cpu_brand", Type: arrow.BinaryTypes.String},
			{Name: "start_time", Type: arrow.FixedWidthTypes.Timestamp_ns},
			{Name: "tsc_frequency", Type: arrow.PrimitiveTypes.Uint64},
			propertiesField("properties"),
		}, nil),
		schemaHash: []uint32{1},
	})

	r.Register(&View{
		Name:        ident.NewViewSet("streams"),
		Icon:        "list",
		Description: "per-process stream identities and tags",
		Schema: arrow.NewSchema([]arrow.Field{
			{Name: "stream_id", Type: arrow.BinaryTypes.String},
			{Name: "process_id", Type: arrow.BinaryTypes.String},
			{Name: "tags", Type: arrow.ListOf(arrow.BinaryTypes.String)},
		}, nil),
		schemaHash: []uint32{1},
	})

	r.Register(&View{
		Name:        ident.NewViewSet("blocks"),
		Icon:        "box",
		Description: "raw ingested blocks",
		Schema: arrow.NewSchema([]arrow.Field{
			{Name: "block_id", Type: arrow.BinaryTypes.String},
			{Name: "stream_id", Type: arrow.BinaryTypes.String},
			{Name: "process_id", Type: arrow.BinaryTypes.String},
			{Name: "begin_time", Type: arrow.FixedWidthTypes.Timestamp_ns},
			{Name: "end_time", Type: arrow.FixedWidthTypes.Timestamp_ns},
			{Name: "nb_objects", Type: arrow.PrimitiveTypes.Uint32},
			{Name: "payload_size", Type: arrow.PrimitiveTypes.Uint64},
		}, nil),
		schemaHash: []uint32{1},
	})

	return r
}
