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

// Package views implements the View Factory and View Set registry: the
// enumeration of logical tables (log_entries, measures, thread_spans,
// async_events, log_stats, processes, streams, blocks) each carrying a
// schema hash that gates partition visibility at query time.
package views

import (
	"sync"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/micromegas-db/micromegas/internal/util/ident"
)

// PartitionKeyKind classifies how a view's partition_key column is
// derived: per-process (JIT-eligible) or time-bucketed (materialized).
type PartitionKeyKind int

const (
	// PartitionKeyByProcess views key partitions by process_id; they are
	// candidates for just-in-time synthesis from raw blocks.
	PartitionKeyByProcess PartitionKeyKind = iota
	// PartitionKeyByTimeBucket views key partitions by a time bucket
	// (e.g. hourly); they are always precomputed by the materializer.
	PartitionKeyByTimeBucket
)

// View describes one logical SQL table backed by partitions.
type View struct {
	Name         ident.ViewSet
	Icon         string
	Description  string
	StreamTag    string // which stream kind's blocks feed this view, e.g. "log"
	PartitionKey PartitionKeyKind
	Schema       *arrow.Schema

	mu         sync.RWMutex
	schemaHash []uint32
}

// SchemaHash returns the view's current schema hash, the integer-array
// version identifier used to gate partition visibility.
func (v *View) SchemaHash() []uint32 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := make([]uint32, len(v.schemaHash))
	copy(out, v.schemaHash)
	return out
}

// BumpSchemaHash replaces the view's current schema hash, a deliberate
// schema migration that retires prior partitions from query visibility.
// It does not touch any partition rows itself — catalog.ListPartitions
// still returns the old rows, and the query engine's scan skips them
// because IsCurrent no longer matches their hash.
func (v *View) BumpSchemaHash(newHash []uint32) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.schemaHash = append([]uint32(nil), newHash...)
}

// IsCurrent reports whether hash equals the view's current schema hash.
func (v *View) IsCurrent(hash []uint32) bool {
	current := v.SchemaHash()
	if len(current) != len(hash) {
		return false
	}
	for i := range current {
		if current[i] != hash[i] {
			return false
		}
	}
	return true
}

// Registry is the View Factory: a fixed, process-wide set of views keyed
// by name.
type Registry struct {
	byName *ident.Map[*View]
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: ident.NewMap[*View]()}
}

// Register adds a view, keyed by its name.
func (r *Registry) Register(v *View) {
	r.byName.Set(v.Name.Ident, v)
}

// Get looks up a view by name.
func (r *Registry) Get(name string) (*View, bool) {
	return r.byName.Get(ident.New(name))
}

// All returns every registered view, in unspecified order.
func (r *Registry) All() []*View {
	out := make([]*View, 0, r.byName.Len())
	r.byName.Range(func(_ ident.Ident, v *View) bool {
		out = append(out, v)
		return true
	})
	return out
}
