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

package catalog

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
)

func scanPartitionRows(rows pgx.Rows) ([]PartitionRow, error) {
	var out []PartitionRow
	for rows.Next() {
		var row PartitionRow
		if err := rows.Scan(&row.ViewSet, &row.PartitionKey, &row.BeginTime, &row.EndTime,
			&row.SchemaHash, &row.FilePath, &row.SizeBytes, &row.RowCount, &row.InsertTime); err != nil {
			return nil, errors.Wrap(err, "scanning partition row")
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterating partition rows")
	}
	return out, nil
}

func scanFilePaths(rows pgx.Rows) ([]string, error) {
	var out []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return nil, errors.Wrap(err, "scanning file path")
		}
		out = append(out, path)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterating file paths")
	}
	return out, nil
}

func scanOverlappingForKey(ctx context.Context, tx pgx.Tx, viewSet, partitionKey string, window TimeRange) ([]PartitionRow, error) {
	rows, err := tx.Query(ctx, selectOverlappingByKeySQL, viewSet, partitionKey, window.Begin, window.End)
	if err != nil {
		return nil, errors.Wrap(err, "querying overlapping partitions")
	}
	defer rows.Close()
	return scanPartitionRows(rows)
}
