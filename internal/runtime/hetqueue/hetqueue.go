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

// Package hetqueue implements the heterogeneous queue: a fixed-capacity,
// single-producer append-only byte buffer holding variant-tagged,
// variable-size events with zero allocation on the push hot path.
package hetqueue

import (
	"github.com/pkg/errors"

	"github.com/micromegas-db/micromegas/internal/errs"
	"github.com/micromegas-db/micromegas/internal/runtime/event"
)

// Queue is a single-producer append-only tagged byte buffer. It is not
// safe for concurrent use by multiple producers; the stream layer above it
// is responsible for ensuring one writer at a time (per-thread ownership).
type Queue struct {
	buf []byte
	cap int
}

// New allocates a queue with the given fixed byte capacity. The backing
// buffer is allocated once, up front, so Push never grows it — growth
// would defeat the zero-allocation hot path and silently change the
// queue's effective capacity.
func New(capacity int) *Queue {
	return &Queue{
		buf: make([]byte, 0, capacity),
		cap: capacity,
	}
}

// Len returns the number of bytes currently stored.
func (q *Queue) Len() int {
	return len(q.buf)
}

// Cap returns the queue's fixed byte capacity.
func (q *Queue) Cap() int {
	return q.cap
}

// Remaining returns the number of bytes still available before Push would
// report ErrQueueFull.
func (q *Queue) Remaining() int {
	return q.cap - len(q.buf)
}

// Empty reports whether the queue holds no events.
func (q *Queue) Empty() bool {
	return len(q.buf) == 0
}

// Push appends one tagged event to the queue. It writes a 1-byte type tag
// followed by the event's field bytes in declared order. If the queue
// lacks room for the full encoded record, it writes nothing and returns
// errs.ErrQueueFull — the caller (the stream) is expected to seal the
// current block and retry against a fresh queue, never to drop the event.
func Push[E event.Encodable](q *Queue, e E) error {
	need := 1 + e.EncodedLen()
	if q.Remaining() < need {
		return errors.WithStack(errs.ErrQueueFull)
	}
	q.buf = append(q.buf, byte(e.Tag()))
	q.buf = e.Encode(q.buf)
	return nil
}

// Clear resets the queue to empty; its backing capacity is preserved and
// reused by subsequent pushes.
func (q *Queue) Clear() {
	q.buf = q.buf[:0]
}

// Bytes returns the queue's raw contents. The returned slice aliases the
// queue's internal buffer and is only valid until the next Push or Clear.
func (q *Queue) Bytes() []byte {
	return q.buf
}

// Iterator yields decoded events from a queue's contents in insertion
// order. It is restartable: constructing a new Iterator over the same
// bytes always starts from the beginning.
type Iterator struct {
	buf []byte
	off int
}

// Iter returns a fresh iterator over the queue's current contents.
func (q *Queue) Iter() *Iterator {
	return &Iterator{buf: q.buf}
}

// IterBytes returns an iterator over a raw tagged-event byte buffer that
// didn't come from a live Queue — e.g. a block's payload after it has been
// decoded off disk or off the wire by the block codec.
func IterBytes(buf []byte) *Iterator {
	return &Iterator{buf: buf}
}

// Next returns the next decoded event, or (nil, false, nil) once the
// iterator is exhausted. A decode error (truncated record, unknown tag)
// is returned as the third value and the iterator should not be advanced
// further.
func (it *Iterator) Next() (event.Any, bool, error) {
	if it.off >= len(it.buf) {
		return nil, false, nil
	}
	tag := event.Tag(it.buf[it.off])
	ev, n, err := event.Decode(tag, it.buf[it.off+1:])
	if err != nil {
		return nil, false, err
	}
	it.off += 1 + n
	return ev, true, nil
}

// All drains the iterator into a slice, stopping at the first decode
// error.
func (it *Iterator) All() ([]event.Any, error) {
	var out []event.Any
	for {
		ev, ok, err := it.Next()
		if err != nil {
			return out, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, ev)
	}
}
