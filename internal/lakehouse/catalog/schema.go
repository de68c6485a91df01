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

// schemaDDL creates the partitions and partition_metadata tables. Kept as
// a single idempotent statement in the teacher's style (resolver.go's
// `schema` template), run once at process startup by the owning binary.
const schemaDDL = `
CREATE TABLE IF NOT EXISTS partitions (
	view_set      TEXT        NOT NULL,
	partition_key TEXT        NOT NULL,
	begin_time    TIMESTAMPTZ NOT NULL,
	end_time      TIMESTAMPTZ NOT NULL,
	schema_hash   INTEGER[]   NOT NULL,
	file_path     TEXT        NOT NULL,
	size_bytes    BIGINT      NOT NULL,
	row_count     BIGINT      NOT NULL,
	insert_time   TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (file_path)
);

CREATE INDEX IF NOT EXISTS partitions_view_set_key_time_idx
	ON partitions (view_set, partition_key, begin_time, end_time);

CREATE TABLE IF NOT EXISTS partition_metadata (
	file_path   TEXT PRIMARY KEY REFERENCES partitions (file_path) ON DELETE CASCADE,
	metadata    BYTEA       NOT NULL,
	insert_time TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

const insertPartitionSQL = `
INSERT INTO partitions
	(view_set, partition_key, begin_time, end_time, schema_hash, file_path, size_bytes, row_count, insert_time)
VALUES
	($1, $2, $3, $4, $5, $6, $7, $8, now())
`

const insertMetadataSQL = `
INSERT INTO partition_metadata (file_path, metadata, insert_time)
VALUES ($1, $2, now())
`

const selectOverlappingSQL = `
SELECT view_set, partition_key, begin_time, end_time, schema_hash, file_path, size_bytes, row_count, insert_time
FROM partitions
WHERE view_set = $1 AND begin_time < $3 AND end_time > $2
`

const selectOverlappingByKeySQL = `
SELECT view_set, partition_key, begin_time, end_time, schema_hash, file_path, size_bytes, row_count, insert_time
FROM partitions
WHERE view_set = $1 AND partition_key = $2 AND begin_time < $4 AND end_time > $3
`

const selectMetadataSQL = `
SELECT file_path, metadata, insert_time FROM partition_metadata WHERE file_path = $1
`

const selectFilePathsSQL = `
SELECT file_path FROM partitions WHERE view_set = $1 AND begin_time < $3 AND end_time > $2
`

const selectExpiredFilePathsSQL = `
SELECT file_path FROM partitions WHERE end_time < $1
`

const deletePartitionByFileSQL = `DELETE FROM partitions WHERE file_path = $1`

const deletePartitionsBatchSQL = `DELETE FROM partitions WHERE file_path = ANY($1)`

const deleteMetadataBatchSQL = `DELETE FROM partition_metadata WHERE file_path = ANY($1)`

const tryAdvisoryLockSQL = `SELECT pg_try_advisory_xact_lock(hashtext($1))`
