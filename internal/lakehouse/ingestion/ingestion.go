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

// Package ingestion implements the lakehouse's block receipt endpoint: the
// HTTP handler runtime.HTTPSink posts encoded blocks to, durable raw-block
// storage keyed for later discovery by stream tag, and a dead-letter queue
// for blocks that fail to decode.
package ingestion

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/micromegas-db/micromegas/internal/errs"
	"github.com/micromegas-db/micromegas/internal/lakehouse/catalog"
	"github.com/micromegas-db/micromegas/internal/lakehouse/objstore"
	"github.com/micromegas-db/micromegas/internal/runtime/blockcodec"
	"github.com/micromegas-db/micromegas/internal/runtime/event"
)

// Service receives, persists, and re-discovers raw blocks. It sits between
// the runtime's HTTPSink and the materializer/JIT provider's block source
// contracts.
type Service struct {
	files objstore.Store
}

// New constructs a Service backed by files.
func New(files objstore.Store) *Service {
	return &Service{files: files}
}

// CheckHealth implements diag.Checker: it proves the block-receipt
// endpoint dispatch's HTTPSink posts to can actually durably persist a
// block by round-tripping one against the backing object store.
func (s *Service) CheckHealth(ctx context.Context) error {
	return objstore.CheckHealth(ctx, s.files)
}

// Handler returns the mux.Router serving the block upload endpoint at
// PUT /ingest/v1/blocks/{process_id}/{stream_id}, the exact path
// runtime/sink.HTTPSink.SendBlock posts to.
func (s *Service) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/ingest/v1/blocks/{process_id}/{stream_id}", s.handleIngest).Methods(http.MethodPut)
	return r
}

func (s *Service) handleIngest(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	vars := mux.Vars(r)
	processID, err := uuid.Parse(vars["process_id"])
	if err != nil {
		http.Error(w, "invalid process_id", http.StatusBadRequest)
		return
	}
	streamID, err := uuid.Parse(vars["stream_id"])
	if err != nil {
		http.Error(w, "invalid stream_id", http.StatusBadRequest)
		return
	}

	wire, err := io.ReadAll(r.Body)
	defer r.Body.Close()
	if err != nil {
		http.Error(w, "reading body", http.StatusBadRequest)
		return
	}

	decoded, err := blockcodec.Decode(wire)
	if err != nil {
		log.WithError(err).WithFields(log.Fields{
			"process_id": processID,
			"stream_id":  streamID,
		}).Warn("quarantining undecodable block")
		blocksQuarantined.WithLabelValues("decode_failed").Inc()
		if qerr := s.quarantine(r.Context(), processID, streamID, wire); qerr != nil {
			log.WithError(qerr).Error("failed to write block to dead-letter queue")
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	tag := inferStreamTag(decoded)
	key := blockKey(tag, processID, streamID, decoded.BeginTimeNs)
	if err := s.files.Put(r.Context(), key, wire); err != nil {
		http.Error(w, errors.Wrap(errs.ErrObjectStoreUnavailable, err.Error()).Error(), http.StatusInternalServerError)
		return
	}

	blocksReceived.WithLabelValues(tag).Inc()
	ingestDurations.WithLabelValues(tag).Observe(time.Since(start).Seconds())
	w.WriteHeader(http.StatusAccepted)
}

func (s *Service) quarantine(ctx context.Context, processID, streamID uuid.UUID, wire []byte) error {
	key := fmt.Sprintf("dlq/%s/%s/%s.bin", processID, streamID, uuid.New())
	return s.files.Put(ctx, key, wire)
}

func blockKey(tag string, processID, streamID uuid.UUID, beginTimeNs uint64) string {
	return fmt.Sprintf("raw/%s/%s/%s/%020d.bin", tag, processID, streamID, beginTimeNs)
}

// inferStreamTag classifies a decoded block by the event tags its schema
// section actually contains — the wire format carries no separate stream
// tag field, but a stream only ever seals events of one family, so the
// schema entries present are sufficient to classify it.
func inferStreamTag(decoded *blockcodec.Decoded) string {
	for _, entry := range decoded.Schema {
		switch entry.EventTag {
		case event.TagLogEntry, event.TagLogEntryTagged:
			return "log"
		case event.TagMeasure, event.TagMeasureTagged:
			return "metrics"
		case event.TagThreadSpanBegin, event.TagThreadSpanEnd, event.TagAsyncSpanBegin, event.TagAsyncSpanEnd:
			return "cpu"
		}
	}
	return "unknown"
}

// FetchBlocks implements materializer.BlockSource: every raw block under
// streamTag, across all processes, whose begin time falls within window.
func (s *Service) FetchBlocks(ctx context.Context, streamTag string, window catalog.TimeRange) ([]*blockcodec.Decoded, error) {
	infos, err := s.files.List(ctx, fmt.Sprintf("raw/%s/", streamTag))
	if err != nil {
		return nil, errors.Wrap(err, "listing raw blocks")
	}

	var out []*blockcodec.Decoded
	for _, info := range infos {
		if !withinWindow(info.Key, window) {
			continue
		}
		data, err := s.files.Get(ctx, info.Key)
		if err != nil {
			return nil, errors.Wrapf(err, "reading raw block %s", info.Key)
		}
		decoded, err := blockcodec.Decode(data)
		if err != nil {
			return nil, errors.Wrapf(err, "decoding raw block %s", info.Key)
		}
		out = append(out, decoded)
	}
	return out, nil
}

// FetchProcessBlocks implements jit.BlockSource: every raw block for one
// process under streamTag whose begin time falls within window, returned undecoded so the
// caller can decode them in parallel.
func (s *Service) FetchProcessBlocks(ctx context.Context, processID uuid.UUID, streamTag string, window catalog.TimeRange) ([][]byte, error) {
	prefix := fmt.Sprintf("raw/%s/%s/", streamTag, processID)
	infos, err := s.files.List(ctx, prefix)
	if err != nil {
		return nil, errors.Wrap(err, "listing process raw blocks")
	}

	var out [][]byte
	for _, info := range infos {
		if !withinWindow(info.Key, window) {
			continue
		}
		data, err := s.files.Get(ctx, info.Key)
		if err != nil {
			return nil, errors.Wrapf(err, "reading raw block %s", info.Key)
		}
		out = append(out, data)
	}
	return out, nil
}

// withinWindow inspects the begin_time_ns suffix embedded in a block key
// (see blockKey) rather than re-decoding the block, so listing can filter
// cheaply before paying for a Get.
func withinWindow(key string, window catalog.TimeRange) bool {
	if window.Begin.IsZero() && window.End.IsZero() {
		return true
	}
	idx := strings.LastIndex(key, "/")
	if idx < 0 {
		return true
	}
	name := strings.TrimSuffix(key[idx+1:], ".bin")
	nanos, err := strconv.ParseInt(name, 10, 64)
	if err != nil {
		return true
	}
	t := time.Unix(0, nanos)
	return !t.Before(window.Begin) && t.Before(window.End)
}
