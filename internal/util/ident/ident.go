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

// Package ident provides lightweight, comparable identifiers for the
// schema/view/column names threaded through the catalog and query engine.
package ident

import "strings"

// Ident is a case-preserving, comparison-normalized identifier: two Idents
// compare equal iff their lowercased forms match, mirroring SQL's
// unquoted-identifier folding.
type Ident struct {
	raw string
}

// New wraps a raw identifier string.
func New(raw string) Ident {
	return Ident{raw: raw}
}

// Empty reports whether the identifier has no characters.
func (i Ident) Empty() bool {
	return i.raw == ""
}

// String returns the identifier's original casing.
func (i Ident) String() string {
	return i.raw
}

// Equal reports whether two identifiers fold to the same name.
func (i Ident) Equal(o Ident) bool {
	return strings.EqualFold(i.raw, o.raw)
}

// Canonical returns the lowercased form used as a map key.
func (i Ident) Canonical() string {
	return strings.ToLower(i.raw)
}

// ViewSet names a logical table in the lakehouse (e.g. "log_entries").
type ViewSet struct {
	Ident
}

// NewViewSet wraps a view-set name.
func NewViewSet(raw string) ViewSet {
	return ViewSet{New(raw)}
}

// Column names a column within a view's schema.
type Column struct {
	Ident
}

// NewColumn wraps a column name.
func NewColumn(raw string) Column {
	return Column{New(raw)}
}

// Map is a canonical-key map keyed by an Ident's folded form, preserving the
// original-cased Ident alongside each value for display purposes.
type Map[V any] struct {
	entries map[string]entry[V]
}

type entry[V any] struct {
	key   Ident
	value V
}

// NewMap constructs an empty identifier map.
func NewMap[V any]() *Map[V] {
	return &Map[V]{entries: make(map[string]entry[V])}
}

// Set stores a value under an identifier's canonical form.
func (m *Map[V]) Set(id Ident, v V) {
	m.entries[id.Canonical()] = entry[V]{key: id, value: v}
}

// Get retrieves a value by identifier, with the usual ok-boolean.
func (m *Map[V]) Get(id Ident) (V, bool) {
	e, ok := m.entries[id.Canonical()]
	return e.value, ok
}

// Delete removes an identifier from the map, if present.
func (m *Map[V]) Delete(id Ident) {
	delete(m.entries, id.Canonical())
}

// Len reports the number of entries.
func (m *Map[V]) Len() int {
	return len(m.entries)
}

// Range calls f for every entry in unspecified order; stops early if f
// returns false.
func (m *Map[V]) Range(f func(key Ident, value V) bool) {
	for _, e := range m.entries {
		if !f(e.key, e.value) {
			return
		}
	}
}
