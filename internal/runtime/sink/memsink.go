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
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/micromegas-db/micromegas/internal/errs"
	"github.com/micromegas-db/micromegas/internal/runtime/stream"
)

// Sent is one block captured by a MemSink, alongside the context it was
// shipped with.
type Sent struct {
	ProcessID      uuid.UUID
	Block          *stream.Block
	DefaultContext map[string]string
}

// MemSink accumulates every block it receives in memory; it is the
// in-process sink used by tests that need to assert on exactly what the
// runtime would have shipped.
type MemSink struct {
	mu     sync.Mutex
	sent   []Sent
	closed bool
}

// NewMemSink constructs an empty in-memory sink.
func NewMemSink() *MemSink {
	return &MemSink{}
}

// SendBlock implements Sink.
func (m *MemSink) SendBlock(_ context.Context, processID uuid.UUID, block *stream.Block, defaultContext map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return errors.WithStack(errs.ErrSinkBacklogged)
	}
	m.sent = append(m.sent, Sent{ProcessID: processID, Block: block, DefaultContext: defaultContext})
	return nil
}

// Close implements Sink.
func (m *MemSink) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Blocks returns every block sent to this sink so far, in arrival order.
func (m *MemSink) Blocks() []Sent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Sent, len(m.sent))
	copy(out, m.sent)
	return out
}

// Len reports how many blocks have been sent.
func (m *MemSink) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}
