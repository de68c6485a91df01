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

// Package dispatch implements the process-wide Event Dispatch singleton:
// the registry of streams plus the sink's lifecycle.
//
// Go has no implicit thread-local storage, so the per-thread ThreadStream
// the source contract assumes a producing thread discovers automatically
// cannot be replicated: instead, a goroutine that wants to emit thread
// spans calls NewThreadStream once and holds the returned handle explicitly
// (typically in a goroutine-local variable or a context value), passing it
// into OnThreadEvent/OnBeginAsyncScope/OnEndAsyncScope itself. This is the
// idiomatic Go shape of "owner thread only" ownership: explicit handle
// passing instead of implicit TLS lookup. Log and metric events remain
// genuinely MPSC — every goroutine shares one log Stream and one metrics
// Stream, each guarded by its own mutex on every push, seal and drain.
package dispatch

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/micromegas-db/micromegas/internal/errs"
	"github.com/micromegas-db/micromegas/internal/runtime/asyncspan"
	"github.com/micromegas-db/micromegas/internal/runtime/defaultctx"
	"github.com/micromegas-db/micromegas/internal/runtime/event"
	"github.com/micromegas-db/micromegas/internal/runtime/sink"
	"github.com/micromegas-db/micromegas/internal/runtime/stream"
)

type lifecycle int32

const (
	lifecycleUninit lifecycle = iota
	lifecycleInit
	lifecycleShutdown
)

// Dispatch is the process-wide singleton coordinating streams and the
// sink. Construct it with Init; there is exactly one live instance per
// process, enforced by the package-level singleton guard below.
type Dispatch struct {
	processID  uuid.UUID
	queueSize  int
	blockSize  int
	maxBlocks  int
	interner   *event.Interner
	idGen      *asyncspan.IDGenerator
	defaultCtx *defaultctx.Context
	sink       sink.Sink

	mu            sync.Mutex
	state         lifecycle
	logStream     *stream.Stream
	metricsStream *stream.Stream
	threadStreams []*stream.ThreadStream
}

var (
	singletonMu sync.Mutex
	singleton   *Dispatch
	everShutdown bool
)

// Init creates the singleton dispatch for this process. queueSize bounds
// each block's byte capacity; maxBlocks bounds how many sealed blocks a
// stream buffers before Drain must run. It fails with
// errs.ErrAlreadyInitialized if a singleton is already live, and with
// errs.ErrAlreadyShutdown if one was created and shut down earlier in this
// process's lifetime — re-initializing after shutdown is a fault, not a
// reset.
func Init(processID uuid.UUID, queueSize, blockSize, maxBlocks int, sk sink.Sink, initialContext map[string]string) (*Dispatch, error) {
	singletonMu.Lock()
	defer singletonMu.Unlock()

	if everShutdown {
		return nil, errors.WithStack(errs.ErrAlreadyShutdown)
	}
	if singleton != nil {
		return nil, errors.WithStack(errs.ErrAlreadyInitialized)
	}

	interner := event.NewInterner()
	d := &Dispatch{
		processID:     processID,
		queueSize:     queueSize,
		blockSize:     blockSize,
		maxBlocks:     maxBlocks,
		interner:      interner,
		idGen:         asyncspan.NewIDGenerator(),
		defaultCtx:    defaultctx.New(initialContext),
		sink:          sk,
		state:         lifecycleInit,
		logStream:     stream.New(stream.KindLog, processID, queueSize, maxBlocks, interner, []uint32{1}),
		metricsStream: stream.New(stream.KindMetrics, processID, queueSize, maxBlocks, interner, []uint32{1}),
	}
	singleton = d
	return d, nil
}

// Get returns the live singleton, or errs.ErrNotInitialized if Init has
// not yet been called (or Shutdown has already run).
func Get() (*Dispatch, error) {
	singletonMu.Lock()
	defer singletonMu.Unlock()
	if singleton == nil {
		return nil, errors.WithStack(errs.ErrNotInitialized)
	}
	return singleton, nil
}

// ResetForTests tears down and forgets the singleton, including the
// "ever shut down" marker, so consecutive tests that each call Init can
// run without tripping the anti-reinitialization fault. Per the design
// notes on singletons, tests that touch dispatch must serialize and
// explicitly call this between runs — never rely on goroutine exit order.
func ResetForTests() {
	singletonMu.Lock()
	defer singletonMu.Unlock()
	singleton = nil
	everShutdown = false
}

// NewThreadStream registers and returns a fresh ThreadStream for the
// calling goroutine to hold onto for the lifetime of its work.
func (d *Dispatch) NewThreadStream() *stream.ThreadStream {
	ts := stream.NewThread(d.processID, d.queueSize, d.maxBlocks, d.interner, []uint32{1})
	d.mu.Lock()
	d.threadStreams = append(d.threadStreams, ts)
	d.mu.Unlock()
	return ts
}

// GetDefaultContext returns the shared default-context handle.
func (d *Dispatch) GetDefaultContext() *defaultctx.Context {
	return d.defaultCtx
}

// OnLog is the hot-path entry point for a plain (untagged) log event.
func (d *Dispatch) OnLog(level event.LogLevel, descID uint32, msg string, nowNs uint64) error {
	return stream.Push(d.logStream, event.LogEntry{Level: level, DescID: descID, TimeNs: nowNs, Msg: msg}, nowNs)
}

// OnLogTagged is the hot-path entry point for a log event carrying
// properties.
func (d *Dispatch) OnLogTagged(level event.LogLevel, descID uint32, msg string, props event.PropertySet, nowNs uint64) error {
	return stream.Push(d.logStream, event.LogEntryTagged{Level: level, DescID: descID, TimeNs: nowNs, Msg: msg, Properties: props}, nowNs)
}

// OnMeasure is the hot-path entry point for a plain measure.
func (d *Dispatch) OnMeasure(descID uint32, value float64, nowNs uint64) error {
	return stream.Push(d.metricsStream, event.Measure{DescID: descID, TimeNs: nowNs, Value: value}, nowNs)
}

// OnMeasureTagged is the hot-path entry point for a measure carrying
// properties.
func (d *Dispatch) OnMeasureTagged(descID uint32, value float64, props event.PropertySet, nowNs uint64) error {
	return stream.Push(d.metricsStream, event.MeasureTagged{DescID: descID, TimeNs: nowNs, Value: value, Properties: props}, nowNs)
}

// OnThreadEvent pushes a thread-span begin or end event onto the caller's
// own ThreadStream handle.
func OnThreadEvent[E event.Encodable](ts *stream.ThreadStream, e E, nowNs uint64) error {
	return stream.Push(ts.Stream, e, nowNs)
}

// OnBeginAsyncScope begins an async span on the caller's ThreadStream; see
// the asyncspan package for the full contract.
func (d *Dispatch) OnBeginAsyncScope(ts *stream.ThreadStream, descID uint32, nowNs uint64) (*asyncspan.Span, error) {
	return asyncspan.Begin(d.idGen, ts, descID, nowNs)
}

// OnEndAsyncScope ends a previously-begun async span; idempotent.
func (d *Dispatch) OnEndAsyncScope(span *asyncspan.Span, nowNs uint64) error {
	return span.End(nowNs)
}

// Shutdown seals every stream (shared and per-thread), drains them all to
// the sink, closes the sink, and releases the singleton. After Shutdown,
// Get and Init both fail (the latter per the "no reinit after shutdown"
// invariant).
func (d *Dispatch) Shutdown(ctx context.Context, nowNs uint64) error {
	d.mu.Lock()
	if d.state == lifecycleShutdown {
		d.mu.Unlock()
		return errors.WithStack(errs.ErrAlreadyShutdown)
	}
	d.state = lifecycleShutdown
	streams := append([]*stream.ThreadStream(nil), d.threadStreams...)
	d.mu.Unlock()

	consume := func(blocks []*stream.Block) error {
		for _, b := range blocks {
			if err := d.sink.SendBlock(ctx, d.processID, b, d.defaultCtx.Snapshot()); err != nil {
				return errors.WithStack(err)
			}
		}
		return nil
	}

	var firstErr error
	record := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	record(d.logStream.Release(nowNs, consume))
	record(d.metricsStream.Release(nowNs, consume))
	for _, ts := range streams {
		record(ts.Release(nowNs, consume))
	}
	record(d.sink.Close())

	singletonMu.Lock()
	singleton = nil
	everShutdown = true
	singletonMu.Unlock()

	return firstErr
}
