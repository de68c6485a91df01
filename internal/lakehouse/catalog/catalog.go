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
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/micromegas-db/micromegas/internal/errs"
	"github.com/micromegas-db/micromegas/internal/lakehouse/objstore"
)

// Store is the Partition Catalog: a relational index of partitions plus
// their per-file metadata, fronting an object store for the actual data
// bytes.
type Store struct {
	pool  TxBeginner
	files objstore.Store
}

// New constructs a Store. Migrate must be called once (normally by the
// owning binary at startup) before any other method is used.
func New(pool TxBeginner, files objstore.Store) *Store {
	return &Store{pool: pool, files: files}
}

// Migrate creates the partitions and partition_metadata tables if they do
// not already exist.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, schemaDDL)
	return errors.Wrap(err, "migrating catalog schema")
}

// ListPartitions returns partition rows for viewSet overlapping window.
// Callers MUST additionally filter on schema_hash == the view's current
// hash; this method does not know what "current" means for a view.
func (s *Store) ListPartitions(ctx context.Context, viewSet string, window TimeRange) ([]PartitionRow, error) {
	rows, err := s.pool.Query(ctx, selectOverlappingSQL, viewSet, window.Begin, window.End)
	if err != nil {
		return nil, errors.Wrap(err, "listing partitions")
	}
	defer rows.Close()
	return scanPartitionRows(rows)
}

// LoadPartitionMetadata returns the metadata blob for filePath. Missing
// metadata is errs.ErrMetadataNotFound — an invariant violation, not a
// normal "try again" condition, since every partition row is written in
// the same transaction as its metadata row.
func (s *Store) LoadPartitionMetadata(ctx context.Context, filePath string) ([]byte, error) {
	var row MetadataRow
	err := s.pool.QueryRow(ctx, selectMetadataSQL, filePath).Scan(&row.FilePath, &row.Metadata, &row.InsertTime)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errors.WithStack(errs.ErrMetadataNotFound)
		}
		return nil, errors.Wrap(err, "loading partition metadata")
	}
	return row.Metadata, nil
}

// TryAdvisoryLock attempts to acquire the per-(view_set, partition_key)
// advisory lock within tx, returning false (not an error) if another
// session already holds it. InsertPartition translates a false result into
// errs.ErrAdvisoryLockBusy; the materializer's schedule loop logs that
// error and does not retry the task.
func TryAdvisoryLock(ctx context.Context, tx pgx.Tx, viewSet, partitionKey string) (bool, error) {
	var acquired bool
	err := tx.QueryRow(ctx, tryAdvisoryLockSQL, viewSet+":"+partitionKey).Scan(&acquired)
	if err != nil {
		return false, errors.Wrap(err, "acquiring advisory lock")
	}
	return acquired, nil
}

// InsertPartition performs the Materializer's atomic write: under the
// (view_set, partition_key) advisory lock, it retires partitions
// overlapping the new row's range and schema family, writes the data file
// to the object store, then inserts the partition row and its metadata
// row in one database transaction. Any failure after the object-store
// write rolls back the database side and deletes the orphaned data file
// on a best-effort basis (see DESIGN.md's orphaned-files decision for why
// we don't instead stage-then-rename).
func (s *Store) InsertPartition(ctx context.Context, row PartitionRow, metadataBlob, dataBytes []byte) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "beginning partition insert transaction")
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(ctx)
		}
	}()

	acquired, err := TryAdvisoryLock(ctx, tx, row.ViewSet, row.PartitionKey)
	if err != nil {
		return err
	}
	if !acquired {
		return errors.WithStack(errs.ErrAdvisoryLockBusy)
	}

	overlapping, err := scanOverlappingForKey(ctx, tx, row.ViewSet, row.PartitionKey, TimeRange{Begin: row.BeginTime, End: row.EndTime})
	if err != nil {
		return err
	}
	var retiredPaths []string
	for _, p := range overlapping {
		retiredPaths = append(retiredPaths, p.FilePath)
	}
	if len(retiredPaths) > 0 {
		if _, err := tx.Exec(ctx, deletePartitionsBatchSQL, retiredPaths); err != nil {
			return errors.Wrap(err, "retiring overlapping partitions")
		}
		if _, err := tx.Exec(ctx, deleteMetadataBatchSQL, retiredPaths); err != nil {
			return errors.Wrap(err, "retiring overlapping partition metadata")
		}
	}

	if err := s.files.Put(ctx, row.FilePath, dataBytes); err != nil {
		return errors.Wrap(errs.ErrObjectStoreUnavailable, err.Error())
	}

	if _, err := tx.Exec(ctx, insertPartitionSQL,
		row.ViewSet, row.PartitionKey, row.BeginTime, row.EndTime, row.SchemaHash,
		row.FilePath, row.SizeBytes, row.RowCount); err != nil {
		s.bestEffortDeleteFile(ctx, row.FilePath)
		return errors.Wrap(err, "inserting partition row")
	}
	if _, err := tx.Exec(ctx, insertMetadataSQL, row.FilePath, metadataBlob); err != nil {
		s.bestEffortDeleteFile(ctx, row.FilePath)
		return errors.Wrap(err, "inserting partition metadata row")
	}

	if err := tx.Commit(ctx); err != nil {
		s.bestEffortDeleteFile(ctx, row.FilePath)
		return errors.Wrap(err, "committing partition insert")
	}
	committed = true

	// Overlapping partitions retired inside the committed transaction lose
	// only their catalog rows: their data files stay in the object store,
	// and nothing in this module deletes them afterwards.
	if len(retiredPaths) > 0 {
		log.WithField("view_set", row.ViewSet).WithField("partition_key", row.PartitionKey).
			Debugf("retired %d overlapping partitions, their files left in the object store", len(retiredPaths))
	}

	return nil
}

func (s *Store) bestEffortDeleteFile(ctx context.Context, filePath string) {
	if err := s.files.Delete(ctx, filePath); err != nil {
		log.WithError(err).WithField("file_path", filePath).
			Warn("failed to clean up orphaned partition file after rollback")
	}
}

// DeletePartitionMetadataBatch deletes every metadata row whose file_path
// is in paths, in one statement regardless of how many paths are given.
func (s *Store) DeletePartitionMetadataBatch(ctx context.Context, paths []string) error {
	if len(paths) == 0 {
		return nil
	}
	_, err := s.pool.Exec(ctx, deleteMetadataBatchSQL, paths)
	return errors.Wrap(err, "batch-deleting partition metadata")
}

// RetirePartitions soft-deletes every partition of viewSet overlapping
// window: catalog rows, metadata rows, and object-store files.
func (s *Store) RetirePartitions(ctx context.Context, viewSet string, window TimeRange) error {
	rows, err := s.pool.Query(ctx, selectFilePathsSQL, viewSet, window.Begin, window.End)
	if err != nil {
		return errors.Wrap(err, "listing partitions to retire")
	}
	paths, err := scanFilePaths(rows)
	if err != nil {
		return err
	}
	return s.retireFiles(ctx, paths)
}

// RetireExpiredPartitions retires every partition whose end_time precedes
// the retention cutoff now.Add(-retention).
func (s *Store) RetireExpiredPartitions(ctx context.Context, now time.Time, retention time.Duration) error {
	cutoff := now.Add(-retention)
	rows, err := s.pool.Query(ctx, selectExpiredFilePathsSQL, cutoff)
	if err != nil {
		return errors.Wrap(err, "listing expired partitions")
	}
	paths, err := scanFilePaths(rows)
	if err != nil {
		return err
	}
	return s.retireFiles(ctx, paths)
}

// RetirePartitionByFile precisely retires a single partition by its exact
// file path — admin's targeted, irreversible retirement. Retiring an
// already-absent file is reported as errs.ErrPartitionAlreadyRetired
// rather than silently succeeding, so bulk admin operations can surface
// the distinction per file while continuing across the rest.
func (s *Store) RetirePartitionByFile(ctx context.Context, filePath string) error {
	tag, err := s.pool.Exec(ctx, deletePartitionByFileSQL, filePath)
	if err != nil {
		return errors.Wrap(err, "retiring partition by file")
	}
	if tag.RowsAffected() == 0 {
		return errors.WithStack(errs.ErrPartitionAlreadyRetired)
	}
	if err := s.DeletePartitionMetadataBatch(ctx, []string{filePath}); err != nil {
		return err
	}
	if err := s.files.Delete(ctx, filePath); err != nil {
		log.WithError(err).WithField("file_path", filePath).Warn("failed to delete retired partition file")
	}
	return nil
}

func (s *Store) retireFiles(ctx context.Context, paths []string) error {
	if len(paths) == 0 {
		return nil
	}
	if _, err := s.pool.Exec(ctx, deletePartitionsBatchSQL, paths); err != nil {
		return errors.Wrap(err, "retiring partition rows")
	}
	if err := s.DeletePartitionMetadataBatch(ctx, paths); err != nil {
		return err
	}
	for _, p := range paths {
		if err := s.files.Delete(ctx, p); err != nil {
			log.WithError(err).WithField("file_path", p).Warn("failed to delete retired partition file")
		}
	}
	return nil
}
