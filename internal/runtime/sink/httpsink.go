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

package sink

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/micromegas-db/micromegas/internal/errs"
	"github.com/micromegas-db/micromegas/internal/runtime/blockcodec"
	"github.com/micromegas-db/micromegas/internal/runtime/stream"
	"github.com/micromegas-db/micromegas/internal/util/notify"
)

// HTTPSinkOption configures an HTTPSink at construction.
type HTTPSinkOption func(*HTTPSink)

// WithHTTPClient overrides the default http.Client (e.g. to set timeouts
// or TLS configuration).
func WithHTTPClient(client *http.Client) HTTPSinkOption {
	return func(s *HTTPSink) { s.client = client }
}

// WithMaxRetries overrides the default retry budget for transient
// network failures.
func WithMaxRetries(n int) HTTPSinkOption {
	return func(s *HTTPSink) { s.maxRetries = n }
}

// WithCompression toggles LZ4 framing of the block payload before it is
// shipped over the wire.
func WithCompression(enabled bool) HTTPSinkOption {
	return func(s *HTTPSink) { s.compress = enabled }
}

// HTTPSink ships encoded blocks to the lakehouse ingestion endpoint over
// HTTP, the only blocking point in the runtime's concurrency model.
type HTTPSink struct {
	endpoint   string
	client     *http.Client
	maxRetries int
	compress   bool
	backlogged *notify.Var[bool]
}

// NewHTTPSink constructs an HTTPSink posting to endpoint (the ingestion
// service's block-upload URL).
func NewHTTPSink(endpoint string, opts ...HTTPSinkOption) *HTTPSink {
	s := &HTTPSink{
		endpoint:   endpoint,
		client:     &http.Client{Timeout: 30 * time.Second},
		maxRetries: 3,
		compress:   true,
		backlogged: notify.New(false),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Backlogged reports whether the last SendBlock call failed (retries
// exhausted or a non-retryable response), plus a channel that closes the
// next time that status changes.
// A caller that wants to pause producing until the ingestion endpoint
// recovers can block on the returned channel instead of polling.
func (s *HTTPSink) Backlogged() (bool, <-chan struct{}) {
	return s.backlogged.Get()
}

// SendBlock implements Sink: it encodes the block and PUTs it to the
// ingestion endpoint, retrying transient failures with exponential
// backoff before surfacing errs.ErrObjectStoreUnavailable.
func (s *HTTPSink) SendBlock(ctx context.Context, processID uuid.UUID, block *stream.Block, defaultContext map[string]string) error {
	wire, err := blockcodec.Encode(block, s.compress)
	if err != nil {
		return errors.Wrap(err, "encoding block for http sink")
	}

	url := fmt.Sprintf("%s/ingest/v1/blocks/%s/%s", s.endpoint, processID, block.StreamID)

	var lastErr error
	backoff := 100 * time.Millisecond
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return errors.WithStack(ctx.Err())
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(wire))
		if err != nil {
			return errors.WithStack(err)
		}
		req.Header.Set("Content-Type", "application/octet-stream")
		if s.compress {
			req.Header.Set("X-Micromegas-Compressed", "lz4")
		}
		for k, v := range defaultContext {
			req.Header.Add("X-Micromegas-Ctx-"+k, v)
		}

		resp, err := s.client.Do(req)
		if err != nil {
			lastErr = err
			log.WithError(err).Warnf("block upload attempt %d/%d failed", attempt+1, s.maxRetries+1)
			continue
		}
		resp.Body.Close()
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			if s.backlogged.Value() {
				s.backlogged.Set(false)
			}
			return nil
		}
		lastErr = errors.Errorf("ingestion service returned status %d", resp.StatusCode)
		if resp.StatusCode < 500 {
			// Client errors (bad block, schema mismatch) will not be fixed
			// by retrying.
			break
		}
	}

	if !s.backlogged.Value() {
		s.backlogged.Set(true)
	}
	return errors.Wrap(errs.ErrObjectStoreUnavailable, lastErr.Error())
}

// Close implements Sink; the underlying http.Client has no explicit close.
func (s *HTTPSink) Close() error {
	return nil
}
