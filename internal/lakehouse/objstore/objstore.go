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

// Package objstore abstracts the object store backing partition data
// files, behind a small interface so a local-filesystem implementation can
// stand in during tests and single-node deployments, grounded on the
// Local/S3/GCS/Azure backend switch of the pack's tempodb package.
package objstore

import (
	"context"
	"io"
)

// ObjectInfo describes one stored object.
type ObjectInfo struct {
	Key  string
	Size int64
}

// Store is the minimal object-store contract the lakehouse needs: put,
// get, delete, and list-by-prefix. Partition files, once written, are
// never updated in place — "update" is always retire+rewrite under a new
// key — so Store has no in-place mutation method.
type Store interface {
	// Put writes data under key, replacing any existing object at that
	// key. Implementations must make the write visible atomically from a
	// reader's perspective (no partial-read window).
	Put(ctx context.Context, key string, data []byte) error

	// Get reads the full contents of key. A missing key returns
	// errs.ErrObjectStoreUnavailable wrapping a not-found detail.
	Get(ctx context.Context, key string) ([]byte, error)

	// GetRange reads [offset, offset+length) of key, for row-group-level
	// partial reads driven by partition metadata pruning.
	GetRange(ctx context.Context, key string, offset, length int64) ([]byte, error)

	// Delete removes key. Deleting a missing key is not an error, so a
	// delete can be repeated safely (catalog.Store.InsertPartition's
	// best-effort cleanup of its own data file, CheckHealth's probe object).
	Delete(ctx context.Context, key string) error

	// List enumerates objects whose key has the given prefix.
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)
}

// ReadCloser is returned by streaming reads where the caller wants to
// avoid buffering a whole partition file in memory.
type ReadCloser interface {
	io.ReadCloser
}

// PartitionKey builds the object-store key for a partition file, following
// the <view_set>/<partition_key>/<begin_time>_<schema_hash>.<ext> layout.
func PartitionKey(viewSet, partitionKey string, beginTimeNs int64, schemaHash []uint32, ext string) string {
	return viewSet + "/" + partitionKey + "/" + formatBeginTime(beginTimeNs) + "_" + formatSchemaHash(schemaHash) + "." + ext
}

const healthCheckKey = "__health_check__"

// CheckHealth round-trips a small write/read/delete against store, the
// cheapest operation that actually proves the backend is reachable and
// writable rather than just constructed.
func CheckHealth(ctx context.Context, store Store) error {
	payload := []byte("ok")
	if err := store.Put(ctx, healthCheckKey, payload); err != nil {
		return err
	}
	if _, err := store.Get(ctx, healthCheckKey); err != nil {
		return err
	}
	return store.Delete(ctx, healthCheckKey)
}
