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

// Package catalog implements the Partition Catalog: the relational index
// of columnar partitions plus the dedicated per-file metadata table,
// backed by Postgres via pgx, grounded on the teacher's StagingPool /
// StagingQuerier pool-wrapping pattern (internal/types/types.go) and its
// advisory-lock-guarded transactional writes (internal/source/cdc/resolver.go).
package catalog

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is the minimal subset of *pgxpool.Pool / pgx.Tx the catalog
// needs, mirrored on the teacher's StagingQuerier interface so the store
// can run against either a pool or an already-open transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TxBeginner is implemented by a pool capable of starting transactions.
type TxBeginner interface {
	Querier
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PartitionRow is one row of the partitions table.
type PartitionRow struct {
	ViewSet      string
	PartitionKey string
	BeginTime    time.Time
	EndTime      time.Time
	SchemaHash   []uint32
	FilePath     string
	SizeBytes    int64
	RowCount     int64
	InsertTime   time.Time
}

// MetadataRow is one row of the partition_metadata table: per-file
// columnar statistics, kept in a separate table (and keyed separately)
// from the partition row itself so retirement and materialization can
// never race each other into a phantom "metadata not found" — see
// DESIGN.md's note on this table split.
type MetadataRow struct {
	FilePath   string
	Metadata   []byte
	InsertTime time.Time
}

// TimeRange is a half-open [Begin, End) time window.
type TimeRange struct {
	Begin time.Time
	End   time.Time
}

// Overlaps reports whether two time ranges intersect.
func (r TimeRange) Overlaps(o TimeRange) bool {
	return r.Begin.Before(o.End) && o.Begin.Before(r.End)
}
