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

// Package stream implements the typed front-end to a HetQueue for one
// event family (log, metrics, thread spans), including the
// Open→Sealed→Draining→Released block lifecycle.
package stream

import (
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/micromegas-db/micromegas/internal/errs"
	"github.com/micromegas-db/micromegas/internal/runtime/event"
	"github.com/micromegas-db/micromegas/internal/runtime/hetqueue"
)

// State is one stage of a block's Open→Sealed→Draining→Released lifecycle.
type State int32

const (
	StateOpen State = iota
	StateSealed
	StateDraining
	StateReleased
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateSealed:
		return "sealed"
	case StateDraining:
		return "draining"
	case StateReleased:
		return "released"
	default:
		return "unknown"
	}
}

// Block is a queue buffer plus the metadata stamped on it at seal time. It
// is the unit handed to the sink and, eventually, to the block codec.
type Block struct {
	StreamID    uuid.UUID
	ProcessID   uuid.UUID
	BeginTimeNs uint64
	EndTimeNs   uint64
	NbObjects   uint32
	SchemaHash  []uint32
	Descriptors []event.SpanDescriptor

	queue *hetqueue.Queue
	state State
}

// Iter returns a restartable iterator over the block's events.
func (b *Block) Iter() *hetqueue.Iterator {
	return b.queue.Iter()
}

// Bytes returns the block's raw HetQueue payload bytes.
func (b *Block) Bytes() []byte {
	return b.queue.Bytes()
}

// State reports the block's current lifecycle stage.
func (b *Block) State() State {
	return b.state
}

// Kind classifies which stream family a Stream carries; it determines the
// stream's Tags. The schema hash stamped on its blocks is given to New.
type Kind int

const (
	KindLog Kind = iota
	KindMetrics
	KindThread
)

func (k Kind) tag() string {
	switch k {
	case KindLog:
		return "log"
	case KindMetrics:
		return "metrics"
	case KindThread:
		return "cpu"
	default:
		return "unknown"
	}
}

// Tags returns the classification tags carried by a stream of this kind.
// Tags classify the content of a stream's blocks for the materializer and
// JIT provider's stream-tag filters.
func (k Kind) Tags() []string {
	return []string{k.tag()}
}

// Stream is a typed front-end over successive HetQueues, buffering the
// currently-open block and the sealed blocks awaiting drain to the sink.
//
// Push, Seal and Drain all take mu, so several goroutines may push to one
// Stream and a sealer/flusher goroutine may seal and drain it
// concurrently; Drain releases mu while consume runs.
type Stream struct {
	id          uuid.UUID
	processID   uuid.UUID
	kind        Kind
	queueSize   int
	maxSealed   int
	interner    *event.Interner
	schemaHash  []uint32

	mu       sync.Mutex
	current  *Block
	sealed   []*Block
	released bool
}

// New constructs a Stream of the given kind, backed by HetQueues of
// queueSize bytes, buffering at most maxSealed blocks: once that many are
// sealed, a Push that needs a new block returns errs.ErrQueueFull until
// Drain is called. maxSealed <= 0 means no bound; an explicit Seal does
// not check it.
func New(kind Kind, processID uuid.UUID, queueSize, maxSealed int, interner *event.Interner, schemaHash []uint32) *Stream {
	s := &Stream{
		id:         uuid.New(),
		processID:  processID,
		kind:       kind,
		queueSize:  queueSize,
		maxSealed:  maxSealed,
		interner:   interner,
		schemaHash: schemaHash,
	}
	s.current = s.newBlock()
	return s
}

// ID returns the stream's identity.
func (s *Stream) ID() uuid.UUID {
	return s.id
}

// ProcessID returns the owning process's identity.
func (s *Stream) ProcessID() uuid.UUID {
	return s.processID
}

// Kind reports the stream's event family.
func (s *Stream) Kind() Kind {
	return s.kind
}

func (s *Stream) newBlock() *Block {
	return &Block{
		StreamID:   s.id,
		ProcessID:  s.processID,
		SchemaHash: s.schemaHash,
		queue:      hetqueue.New(s.queueSize),
		state:      StateOpen,
	}
}

// Push appends one event to the stream's currently-open block. If the
// current block's queue is full, it is sealed (Open→Sealed) and a fresh
// block is allocated before the push is retried once. A second Full in a
// row after sealing indicates the event itself cannot fit in an empty
// queue, which is a configuration error, not a transient condition. If
// maxSealed blocks are already sealed, Push returns errs.ErrQueueFull
// without sealing.
func Push[E event.Encodable](s *Stream, e E, nowNs uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.released {
		return errors.WithStack(errs.ErrNotInitialized)
	}

	if err := hetqueue.Push(s.current.queue, e); err != nil {
		if !errors.Is(err, errs.ErrQueueFull) {
			return err
		}
		if s.maxSealed > 0 && len(s.sealed) >= s.maxSealed {
			return errors.WithStack(errs.ErrQueueFull)
		}
		s.sealLocked(nowNs)
		if err := hetqueue.Push(s.current.queue, e); err != nil {
			return err
		}
	}
	s.current.NbObjects++
	s.current.EndTimeNs = nowNs
	if s.current.BeginTimeNs == 0 {
		s.current.BeginTimeNs = nowNs
	}
	return nil
}

// Seal freezes the currently-open block (stamping its schema descriptor
// snapshot) and moves it to the sealed list, replacing current with a
// fresh block. It is a no-op if the current block holds no events.
func (s *Stream) Seal(nowNs uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sealLocked(nowNs)
}

func (s *Stream) sealLocked(nowNs uint64) {
	if s.current.queue.Empty() {
		return
	}
	s.current.state = StateSealed
	if s.current.EndTimeNs == 0 {
		s.current.EndTimeNs = nowNs
	}
	s.current.Descriptors = s.interner.All()
	s.sealed = append(s.sealed, s.current)
	s.current = s.newBlock()
}

// SealedCount reports how many sealed blocks are awaiting drain.
func (s *Stream) SealedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sealed)
}

// Drain hands every sealed block to consume, marking each Draining for the
// duration of the call and Released on success. Blocks are returned to the
// stream's free list (i.e. dropped for GC) only after consume succeeds;
// on failure the blocks are put back at the front of the sealed queue so a
// retry does not lose data.
func (s *Stream) Drain(consume func([]*Block) error) error {
	s.mu.Lock()
	if len(s.sealed) == 0 {
		s.mu.Unlock()
		return nil
	}
	batch := s.sealed
	s.sealed = nil
	for _, b := range batch {
		b.state = StateDraining
	}
	s.mu.Unlock()

	if err := consume(batch); err != nil {
		s.mu.Lock()
		s.sealed = append(batch, s.sealed...)
		for _, b := range batch {
			b.state = StateSealed
		}
		s.mu.Unlock()
		return errors.WithStack(err)
	}

	for _, b := range batch {
		b.state = StateReleased
	}
	return nil
}

// Release seals any remaining open block and drains it, then marks the
// stream released; Push after Release fails.
func (s *Stream) Release(nowNs uint64, consume func([]*Block) error) error {
	s.Seal(nowNs)
	if err := s.Drain(consume); err != nil {
		return err
	}
	s.mu.Lock()
	s.released = true
	s.mu.Unlock()
	return nil
}

// ThreadStream additionally tracks the owning OS thread's async-span
// parent stack, used by the asyncspan package to link nested spans.
type ThreadStream struct {
	*Stream

	mu          sync.Mutex
	parentStack []uint64
}

// NewThread constructs a ThreadStream.
func NewThread(processID uuid.UUID, queueSize, maxSealed int, interner *event.Interner, schemaHash []uint32) *ThreadStream {
	return &ThreadStream{Stream: New(KindThread, processID, queueSize, maxSealed, interner, schemaHash)}
}

// CurrentParent returns the top of the async-span parent stack, or 0 (no
// parent) if the stack is empty.
func (t *ThreadStream) CurrentParent() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.parentStack) == 0 {
		return 0
	}
	return t.parentStack[len(t.parentStack)-1]
}

// PushParent pushes spanID as the new current async-span parent.
func (t *ThreadStream) PushParent(spanID uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.parentStack = append(t.parentStack, spanID)
}

// PopParent pops the current async-span parent; popping an empty stack is
// a no-op (no error, no panic).
func (t *ThreadStream) PopParent() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.parentStack) == 0 {
		return
	}
	t.parentStack = t.parentStack[:len(t.parentStack)-1]
}
