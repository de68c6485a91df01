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
	"context"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/micromegas-db/micromegas/internal/lakehouse/catalog"
	"github.com/micromegas-db/micromegas/internal/lakehouse/objstore"
	"github.com/micromegas-db/micromegas/internal/lakehouse/views"
	"github.com/micromegas-db/micromegas/internal/util/stopper"
)

// ScheduleLoop starts a goroutine that, every interval, discovers partition
// keys from the raw block keys present and materializes the trailing window for each
// registered view that has a StreamTag (the metadata views — processes,
// streams, blocks — carry no stream tag and are left to the catalog-backed
// admin surface rather than the materializer). Discovery lists raw block
// keys under each view's stream tag, generalizing `resolver.go`'s
// watermark scan — which found tables with outstanding work by listing SQL
// rows rather than being told by a caller — to listing object-store keys,
// since there is no catalog table of "known process ids" yet.
func ScheduleLoop(
	ctx *stopper.Context, m *Materializer, registry *views.Registry, files objstore.Store,
	interval, logStatsBucket time.Duration,
) {
	ctx.Go(func() error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			runSchedulePass(ctx, m, registry, files, interval, logStatsBucket)
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

func runSchedulePass(
	ctx context.Context, m *Materializer, registry *views.Registry, files objstore.Store,
	interval, logStatsBucket time.Duration,
) {
	window := catalog.TimeRange{Begin: time.Now().Add(-interval), End: time.Now()}
	for _, v := range registry.All() {
		if v.StreamTag == "" {
			continue
		}
		tasks, err := discoverTasks(ctx, files, v, window, logStatsBucket)
		if err != nil {
			log.WithError(err).WithField("view_set", v.Name.String()).
				Warn("failed discovering materialization tasks")
			continue
		}
		for _, task := range tasks {
			if err := m.MaterializeOne(ctx, task); err != nil {
				log.WithError(err).WithFields(log.Fields{
					"view_set":      task.ViewSet,
					"partition_key": task.PartitionKey,
				}).Warn("materialization failed")
			}
		}
	}
}

// discoverTasks builds the set of materialization tasks for one view: one
// task per distinct process id with any raw block under the view's stream
// tag for process-keyed views (window is not consulted when listing keys),
// or a single task for the whole window for time-bucketed views (log_stats
// aggregates across every process into one partition per bucket).
func discoverTasks(
	ctx context.Context, files objstore.Store, v *views.View, window catalog.TimeRange, logStatsBucket time.Duration,
) ([]Task, error) {
	if v.PartitionKey == views.PartitionKeyByTimeBucket {
		return []Task{{
			ViewSet:        v.Name.String(),
			PartitionKey:   bucketKey(window.Begin),
			Window:         window,
			LogStatsBucket: logStatsBucket,
		}}, nil
	}

	infos, err := files.List(ctx, "raw/"+v.StreamTag+"/")
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(infos))
	var tasks []Task
	for _, info := range infos {
		processID, ok := processIDFromRawKey(info.Key)
		if !ok || seen[processID] {
			continue
		}
		seen[processID] = true
		tasks = append(tasks, Task{ViewSet: v.Name.String(), PartitionKey: processID, Window: window})
	}
	return tasks, nil
}

// processIDFromRawKey extracts the process id segment from a raw block key
// of the form "raw/<tag>/<process_id>/<stream_id>/<begin_time_ns>.bin".
func processIDFromRawKey(key string) (string, bool) {
	parts := strings.Split(key, "/")
	if len(parts) != 5 {
		return "", false
	}
	return parts[2], true
}

func bucketKey(begin time.Time) string {
	return begin.UTC().Format("20060102T150405Z")
}
