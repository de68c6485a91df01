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

// Package queryengine wires together the view registry, the partition
// catalog, and the JIT provider: a table provider per view that resolves
// the live (current-schema, overlapping) partitions for a scan, plus the
// table-valued and scalar UDFs the SQL surface exposes.
//
// This package does not implement a general SQL execution engine — there
// is no pack library that plans partition-pruned scans against a side
// table of per-file statistics (see DESIGN.md's standard-library
// justification) — it implements a table-provider contract driven by a
// hand-written planner in sql.go that understands the narrow subset of
// SELECT this system needs to expose.
package queryengine

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/micromegas-db/micromegas/internal/errs"
	"github.com/micromegas-db/micromegas/internal/lakehouse/catalog"
	"github.com/micromegas-db/micromegas/internal/lakehouse/jit"
	"github.com/micromegas-db/micromegas/internal/lakehouse/materializer"
	"github.com/micromegas-db/micromegas/internal/lakehouse/objstore"
	"github.com/micromegas-db/micromegas/internal/lakehouse/views"
)

// Engine exposes the view registry as a set of SQL-addressable tables,
// backed by the partition catalog for materialized views and the JIT
// provider for process-scoped ones.
type Engine struct {
	registry *views.Registry
	catalog  *catalog.Store
	files    objstore.Store
	jit      *jit.Provider
	blocks   jit.BlockSource
}

// New constructs an Engine. blocks is the same raw-block source the JIT
// provider wraps — PerfettoTraceChunks uses it directly to avoid the
// provider boxing thread/async rows as interface{} before this package
// needs to reshape them.
func New(registry *views.Registry, store *catalog.Store, files objstore.Store, jitProvider *jit.Provider, blocks jit.BlockSource) *Engine {
	return &Engine{registry: registry, catalog: store, files: files, jit: jitProvider, blocks: blocks}
}

// ViewSetInfo is one row of list_view_sets().
type ViewSetInfo struct {
	Name        string
	Icon        string
	Description string
	SchemaHash  []uint32
}

// ListViewSets implements the list_view_sets() table-valued function.
func (e *Engine) ListViewSets() []ViewSetInfo {
	all := e.registry.All()
	out := make([]ViewSetInfo, 0, len(all))
	for _, v := range all {
		out = append(out, ViewSetInfo{
			Name:        v.Name.String(),
			Icon:        v.Icon,
			Description: v.Description,
			SchemaHash:  v.SchemaHash(),
		})
	}
	return out
}

// ListPartitions implements the list_partitions(view_set_name?) table-valued
// function. An empty viewSetName lists partitions across every view.
func (e *Engine) ListPartitions(ctx context.Context, viewSetName string) ([]catalog.PartitionRow, error) {
	if viewSetName != "" {
		return e.catalog.ListPartitions(ctx, viewSetName, catalog.TimeRange{})
	}
	var out []catalog.PartitionRow
	for _, v := range e.registry.All() {
		rows, err := e.catalog.ListPartitions(ctx, v.Name.String(), catalog.TimeRange{})
		if err != nil {
			return nil, err
		}
		out = append(out, rows...)
	}
	return out, nil
}

// RetirePartitionByFile implements the retire_partition_by_file(path) admin
// UDF: a side-effectful scalar function returning a success marker (nil
// error) or the reason it could not retire the file.
func (e *Engine) RetirePartitionByFile(ctx context.Context, filePath string) error {
	return e.catalog.RetirePartitionByFile(ctx, filePath)
}

// Scan implements the table provider's materialized-partition path: list
// the live partitions for viewSetName overlapping window (filtering out any
// partition whose schema hash a later view-schema bump has superseded),
// load and decode each, and fold them into one row slice boxed as
// interface{}.
func (e *Engine) Scan(ctx context.Context, viewSetName string, window catalog.TimeRange) (interface{}, error) {
	view, ok := e.registry.Get(viewSetName)
	if !ok {
		return nil, errors.Wrapf(errs.ErrPartitionNotFound, "unknown view set %q", viewSetName)
	}

	partitions, err := e.catalog.ListPartitions(ctx, viewSetName, window)
	if err != nil {
		return nil, errors.Wrap(err, "listing partitions for scan")
	}

	var acc interface{}
	for _, p := range partitions {
		if !view.IsCurrent(p.SchemaHash) {
			continue
		}
		data, err := e.files.Get(ctx, p.FilePath)
		if err != nil {
			return nil, errors.Wrapf(err, "loading partition file %s", p.FilePath)
		}
		rows, err := materializer.ReadPartitionFile(viewSetName, data)
		if err != nil {
			return nil, errors.Wrapf(err, "decoding partition file %s", p.FilePath)
		}
		acc, err = materializer.AppendRows(viewSetName, acc, rows)
		if err != nil {
			return nil, err
		}
	}
	return acc, nil
}

// ScanProcess implements the table provider's just-in-time path: for
// process-scoped views, synthesize the partition directly from raw blocks
// instead of consulting the catalog.
func (e *Engine) ScanProcess(ctx context.Context, viewSetName string, processID uuid.UUID, window catalog.TimeRange) (interface{}, error) {
	view, ok := e.registry.Get(viewSetName)
	if !ok {
		return nil, errors.Wrapf(errs.ErrPartitionNotFound, "unknown view set %q", viewSetName)
	}
	if view.PartitionKey != views.PartitionKeyByProcess {
		return nil, errors.Wrapf(errs.ErrSchemaMismatch, "view %q is not process-scoped", viewSetName)
	}
	return e.jit.GenerateProcessJitPartitions(ctx, viewSetName, processID, view.StreamTag, window)
}

// RowCount reports the number of rows in a boxed row slice, regardless of
// which view produced it.
func RowCount(viewSetName string, rows interface{}) (int, error) {
	return materializer.Len(viewSetName, rows)
}
