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

// Package sink defines the consumer interface for sealed blocks (Sink)
// and its two variants: an in-memory sink for tests and an HTTP sink that
// ships encoded blocks to the lakehouse ingestion endpoint.
package sink

import (
	"context"

	"github.com/google/uuid"

	"github.com/micromegas-db/micromegas/internal/runtime/stream"
)

// Sink consumes sealed blocks drained from a stream. Implementations must
// be safe for concurrent use: the flusher may drain several streams'
// sealed blocks onto the same sink concurrently.
type Sink interface {
	// SendBlock transmits one sealed block, along with a snapshot of the
	// process-wide default context to attach to it. Network I/O, if any,
	// is the only blocking point per the runtime's concurrency model.
	SendBlock(ctx context.Context, processID uuid.UUID, block *stream.Block, defaultContext map[string]string) error

	// Close releases any resources held by the sink (connections,
	// buffers). After Close, SendBlock must return an error.
	Close() error
}
