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

// Package stopper provides a context-like goroutine group with cooperative
// shutdown: background workers select on Stopping() to begin winding down
// and the owner calls Stop then Wait to block until every worker has
// returned.
package stopper

import (
	"context"
	"sync"

	"github.com/pkg/errors"
)

// Context is a context.Context augmented with a goroutine group. Workers
// launched with Go are tracked; Stop closes the Stopping channel so workers
// can begin a graceful exit, and Wait blocks until they have all returned.
type Context struct {
	context.Context
	cancel context.CancelFunc

	stopping chan struct{}
	stopOnce sync.Once

	wg       sync.WaitGroup
	mu       sync.Mutex
	firstErr error
}

// WithContext wraps a parent context.Context into a stopper.Context.
func WithContext(parent context.Context) *Context {
	ctx, cancel := context.WithCancel(parent)
	return &Context{
		Context:  ctx,
		cancel:   cancel,
		stopping: make(chan struct{}),
	}
}

// Background returns a stopper.Context rooted at context.Background.
func Background() *Context {
	return WithContext(context.Background())
}

// Stopping returns a channel that is closed once Stop has been called. A
// worker should treat a closed Stopping channel as "finish in-flight work,
// then return"; Done (inherited from context.Context) signals a harder
// deadline after which work should be abandoned.
func (c *Context) Stopping() <-chan struct{} {
	return c.stopping
}

// Go launches f in a new goroutine tracked by the group. If f returns a
// non-nil error, it is recorded as the group's first error and the group's
// context is cancelled, which in turn closes Stopping for every worker.
func (c *Context) Go(f func() error) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		if err := f(); err != nil {
			c.mu.Lock()
			if c.firstErr == nil {
				c.firstErr = errors.WithStack(err)
			}
			c.mu.Unlock()
			c.Stop()
		}
	}()
}

// Stop requests cooperative shutdown: it closes Stopping and cancels the
// underlying context so blocking reads/writes unblock.
func (c *Context) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopping)
	})
	c.cancel()
}

// Wait blocks until every goroutine launched by Go has returned, then
// returns the first non-nil error reported by any of them, if any.
func (c *Context) Wait() error {
	c.wg.Wait()
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.firstErr
}

// StopAndWait is the common shutdown sequence: request stop, then block
// until drained.
func (c *Context) StopAndWait() error {
	c.Stop()
	return c.Wait()
}
