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

// Package chaos implements the probabilistic failure-injection wrapper
// used to validate this system's error-handling policy ("hot paths never
// panic; they degrade"): a decorator around the runtime Sink and the
// materializer's BlockSource that randomly fails calls instead of
// forwarding them.
package chaos

import (
	"context"
	"math/rand"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/micromegas-db/micromegas/internal/lakehouse/catalog"
	"github.com/micromegas-db/micromegas/internal/lakehouse/materializer"
	"github.com/micromegas-db/micromegas/internal/runtime/blockcodec"
	"github.com/micromegas-db/micromegas/internal/runtime/sink"
	"github.com/micromegas-db/micromegas/internal/runtime/stream"
)

// ErrChaos is the error injected by every wrapper in this package.
var ErrChaos = errors.New("chaos")

func doChaos(where string) error {
	return errors.WithMessage(ErrChaos, where)
}

// WithChaosSink returns a sink.Sink that injects ErrChaos on SendBlock with
// probability prob before delegating. delegate is returned unwrapped if
// prob <= 0, so production call sites can pass a configured-but-disabled
// probability without an extra branch.
func WithChaosSink(delegate sink.Sink, prob float32) sink.Sink {
	if prob <= 0 {
		return delegate
	}
	return &chaosSink{delegate: delegate, prob: prob}
}

type chaosSink struct {
	delegate sink.Sink
	prob     float32
}

var _ sink.Sink = (*chaosSink)(nil)

func (s *chaosSink) SendBlock(ctx context.Context, processID uuid.UUID, block *stream.Block, defaultContext map[string]string) error {
	if rand.Float32() < s.prob {
		return doChaos("SendBlock")
	}
	return s.delegate.SendBlock(ctx, processID, block, defaultContext)
}

func (s *chaosSink) Close() error {
	if rand.Float32() < s.prob {
		return doChaos("Close")
	}
	return s.delegate.Close()
}

// WithChaosBlockSource returns a materializer.BlockSource that injects
// ErrChaos on FetchBlocks with probability prob before delegating.
func WithChaosBlockSource(delegate materializer.BlockSource, prob float32) materializer.BlockSource {
	if prob <= 0 {
		return delegate
	}
	return &chaosBlockSource{delegate: delegate, prob: prob}
}

type chaosBlockSource struct {
	delegate materializer.BlockSource
	prob     float32
}

var _ materializer.BlockSource = (*chaosBlockSource)(nil)

func (s *chaosBlockSource) FetchBlocks(ctx context.Context, streamTag string, window catalog.TimeRange) ([]*blockcodec.Decoded, error) {
	if rand.Float32() < s.prob {
		return nil, doChaos("FetchBlocks")
	}
	return s.delegate.FetchBlocks(ctx, streamTag, window)
}
