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

package materializer

import (
	"bytes"
	"context"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/micromegas-db/micromegas/internal/errs"
	"github.com/micromegas-db/micromegas/internal/lakehouse/catalog"
	"github.com/micromegas-db/micromegas/internal/lakehouse/objstore"
	"github.com/micromegas-db/micromegas/internal/lakehouse/views"
	"github.com/micromegas-db/micromegas/internal/runtime/blockcodec"
	"github.com/micromegas-db/micromegas/internal/util/stopper"
)

// BlockSource fetches decoded blocks whose stream carries streamTag and
// whose time range overlaps window. The ingestion package's raw block
// store is the production implementation; tests substitute an in-memory
// one.
type BlockSource interface {
	FetchBlocks(ctx context.Context, streamTag string, window catalog.TimeRange) ([]*blockcodec.Decoded, error)
}

// Task names one materialization unit: a view, keyed to a partition_key
// value, over a time window.
type Task struct {
	ViewSet      string
	PartitionKey string
	Window       catalog.TimeRange
	LogStatsBucket time.Duration // only consulted for the log_stats view
}

// Materializer runs the background partition-building procedure: for each
// task it fetches input blocks, projects them into the view's row shape,
// writes a parquet partition file, and commits the partition row atomically
// through the catalog (which itself retires any partitions the new one
// supersedes).
type Materializer struct {
	registry *views.Registry
	store    *catalog.Store
	source   BlockSource
}

// New constructs a Materializer.
func New(registry *views.Registry, store *catalog.Store, source BlockSource) *Materializer {
	return &Materializer{registry: registry, store: store, source: source}
}

// MaterializeOne runs the full seven-step procedure for one task:
// determine input blocks, project, write the data file, and commit the
// partition row. The advisory lock and overlapping-partition retirement
// happen inside catalog.Store.InsertPartition's own transaction, so two
// materializers racing on the same (view_set, partition_key) never corrupt
// each other — the loser observes errs.ErrAdvisoryLockBusy and should
// retry.
func (m *Materializer) MaterializeOne(ctx context.Context, task Task) error {
	start := time.Now()
	view, ok := m.registry.Get(task.ViewSet)
	if !ok {
		return errors.Wrapf(errs.ErrPartitionNotFound, "unknown view set %q", task.ViewSet)
	}

	blocks, err := m.source.FetchBlocks(ctx, view.StreamTag, task.Window)
	if err != nil {
		materializeErrors.WithLabelValues(task.ViewSet).Inc()
		return errors.Wrap(err, "fetching input blocks")
	}
	if len(blocks) == 0 {
		log.WithField("view_set", task.ViewSet).WithField("partition_key", task.PartitionKey).
			Debug("no input blocks for materialization window, skipping")
		return nil
	}

	data, rowCount, err := m.writePartitionFile(task.ViewSet, blocks, task.LogStatsBucket)
	if err != nil {
		materializeErrors.WithLabelValues(task.ViewSet).Inc()
		return errors.Wrap(err, "projecting and encoding partition")
	}

	schemaHash := view.SchemaHash()
	filePath := objstore.PartitionKey(task.ViewSet, task.PartitionKey, task.Window.Begin.UnixNano(), schemaHash, "parquet")

	row := catalog.PartitionRow{
		ViewSet:      task.ViewSet,
		PartitionKey: task.PartitionKey,
		BeginTime:    task.Window.Begin,
		EndTime:      task.Window.End,
		SchemaHash:   schemaHash,
		FilePath:     filePath,
		SizeBytes:    int64(len(data)),
		RowCount:     int64(rowCount),
	}
	metadataBlob := encodeMetadata(blocks)

	if err := m.store.InsertPartition(ctx, row, metadataBlob, data); err != nil {
		materializeErrors.WithLabelValues(task.ViewSet).Inc()
		return err
	}

	partitionsWritten.WithLabelValues(task.ViewSet).Inc()
	partitionRows.WithLabelValues(task.ViewSet).Add(float64(rowCount))
	materializeDurations.WithLabelValues(task.ViewSet).Observe(time.Since(start).Seconds())

	log.WithFields(log.Fields{
		"view_set":      task.ViewSet,
		"partition_key": task.PartitionKey,
		"rows":          rowCount,
		"bytes":         len(data),
	}).Debugf("materialized partition")
	return nil
}

// writePartitionFile projects blocks into the view's row type and encodes
// them as a parquet file, returning the encoded bytes and row count.
func (m *Materializer) writePartitionFile(viewSet string, blocks []*blockcodec.Decoded, logStatsBucket time.Duration) ([]byte, int, error) {
	var buf bytes.Buffer

	switch viewSet {
	case "log_entries":
		rows, err := ProjectLogEntries(blocks)
		if err != nil {
			return nil, 0, err
		}
		if err := parquet.Write(&buf, rows); err != nil {
			return nil, 0, errors.Wrap(err, "encoding log_entries parquet")
		}
		return buf.Bytes(), len(rows), nil

	case "measures":
		rows, err := ProjectMeasures(blocks)
		if err != nil {
			return nil, 0, err
		}
		if err := parquet.Write(&buf, rows); err != nil {
			return nil, 0, errors.Wrap(err, "encoding measures parquet")
		}
		return buf.Bytes(), len(rows), nil

	case "thread_spans":
		rows, err := ProjectThreadSpans(blocks)
		if err != nil {
			return nil, 0, err
		}
		if err := parquet.Write(&buf, rows); err != nil {
			return nil, 0, errors.Wrap(err, "encoding thread_spans parquet")
		}
		return buf.Bytes(), len(rows), nil

	case "async_events":
		rows, err := ProjectAsyncEvents(blocks)
		if err != nil {
			return nil, 0, err
		}
		if err := parquet.Write(&buf, rows); err != nil {
			return nil, 0, errors.Wrap(err, "encoding async_events parquet")
		}
		return buf.Bytes(), len(rows), nil

	case "log_stats":
		if logStatsBucket <= 0 {
			logStatsBucket = time.Hour
		}
		rows, err := ProjectLogStats(blocks, logStatsBucket)
		if err != nil {
			return nil, 0, err
		}
		if err := parquet.Write(&buf, rows); err != nil {
			return nil, 0, errors.Wrap(err, "encoding log_stats parquet")
		}
		return buf.Bytes(), len(rows), nil

	default:
		return nil, 0, errors.Wrapf(errs.ErrSchemaMismatch, "view %q has no materializer projection", viewSet)
	}
}

// encodeMetadata builds the partition_metadata blob: the stream id of each
// source block this partition was built from, one per line, in input
// order. Nothing in this module parses the blob back.
func encodeMetadata(blocks []*blockcodec.Decoded) []byte {
	var buf bytes.Buffer
	for _, b := range blocks {
		buf.WriteString(b.StreamID.String())
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

// RetireLoop starts a goroutine that periodically retires partitions older
// than retention, across every registered view. It returns immediately;
// the goroutine runs until ctx is stopped.
func RetireLoop(ctx *stopper.Context, store *catalog.Store, registry *views.Registry, interval, retention time.Duration, nowFn func() time.Time) {
	ctx.Go(func() error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			for _, v := range registry.All() {
				if err := store.RetireExpiredPartitions(ctx, nowFn(), retention); err != nil {
					log.WithError(err).WithField("view_set", v.Name.String()).
						Warn("error retiring expired partitions")
				}
			}
			select {
			case <-ticker.C:
			case <-ctx.Stopping():
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	})
}
