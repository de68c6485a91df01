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

// Package admin implements the CLI-facing surface the teacher keeps
// separate from the query path: targeted retirement, schema-migration
// bumps, and stale-partition discovery, grounded on
// internal/source/cdc/resolver.go's ScanForTargetSchemas (a SQL query
// finding rows an outstanding condition applies to, exported solely so the
// factory/CLI can drive it directly rather than waiting for the normal
// processing loop to notice).
package admin

import (
	"context"

	"github.com/pkg/errors"

	"github.com/micromegas-db/micromegas/internal/lakehouse/catalog"
	"github.com/micromegas-db/micromegas/internal/lakehouse/queryengine"
	"github.com/micromegas-db/micromegas/internal/lakehouse/views"
)

// Admin wraps a query engine and view registry with the side-effectful
// operations the query path itself never performs.
type Admin struct {
	engine   *queryengine.Engine
	registry *views.Registry
}

// New constructs an Admin.
func New(engine *queryengine.Engine, registry *views.Registry) *Admin {
	return &Admin{engine: engine, registry: registry}
}

// ListViewSets delegates to the query engine's list_view_sets() table
// function.
func (a *Admin) ListViewSets() []queryengine.ViewSetInfo {
	return a.engine.ListViewSets()
}

// RetirePartitionByFile delegates to the query engine's
// retire_partition_by_file(path) admin UDF.
func (a *Admin) RetirePartitionByFile(ctx context.Context, filePath string) error {
	return a.engine.RetirePartitionByFile(ctx, filePath)
}

// StalePartition names a partition whose schema hash no longer matches its
// view's current hash: it is inert for queries but still occupies catalog
// rows and object-store bytes until retired.
type StalePartition struct {
	catalog.PartitionRow
	ViewSet string
}

// ScanForStalePartitions finds every partition across every registered view
// whose schema hash is no longer current, the schema-migration analogue of
// ScanForTargetSchemas: instead of discovering which schemas have
// outstanding resolved timestamps, it discovers which partitions a
// BumpSchemaHash call has already made invisible to queries but not yet
// retired from storage.
func (a *Admin) ScanForStalePartitions(ctx context.Context) ([]StalePartition, error) {
	var stale []StalePartition
	for _, v := range a.registry.All() {
		rows, err := a.engine.ListPartitions(ctx, v.Name.String())
		if err != nil {
			return nil, errors.Wrapf(err, "listing partitions for %q", v.Name.String())
		}
		for _, row := range rows {
			if !v.IsCurrent(row.SchemaHash) {
				stale = append(stale, StalePartition{PartitionRow: row, ViewSet: v.Name.String()})
			}
		}
	}
	return stale, nil
}

// RetireStalePartitions retires every partition ScanForStalePartitions
// would report, returning the file paths it successfully retired and the
// first error encountered. Failures are reported per-file so a single
// bad partition does not abort the rest of the batch.
func (a *Admin) RetireStalePartitions(ctx context.Context) (retired []string, firstErr error) {
	stale, err := a.ScanForStalePartitions(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range stale {
		if err := a.engine.RetirePartitionByFile(ctx, p.FilePath); err != nil {
			if firstErr == nil {
				firstErr = errors.Wrapf(err, "retiring %s", p.FilePath)
			}
			continue
		}
		retired = append(retired, p.FilePath)
	}
	return retired, firstErr
}

// BumpSchemaHash performs a view-level schema change: every partition of
// viewSet currently visible becomes inert once its hash no longer matches
// newHash, without touching a single catalog row.
func (a *Admin) BumpSchemaHash(viewSet string, newHash []uint32) error {
	v, ok := a.registry.Get(viewSet)
	if !ok {
		return errors.Errorf("unknown view set %q", viewSet)
	}
	v.BumpSchemaHash(newHash)
	return nil
}
