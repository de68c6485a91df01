package asyncspan_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/micromegas-db/micromegas/internal/runtime/asyncspan"
	"github.com/micromegas-db/micromegas/internal/runtime/event"
	"github.com/micromegas-db/micromegas/internal/runtime/stream"
)

// TestNestedAsyncSpanParentLinkage checks that when task A starts, inside A
// task B starts and completes, then A completes, the emitted events are
// BeginAsync(sid=1,parent=0), BeginAsync(sid=2,parent=1), EndAsync(sid=2),
// EndAsync(sid=1).
func TestNestedAsyncSpanParentLinkage(t *testing.T) {
	interner := event.NewInterner()
	ts := stream.NewThread(uuid.New(), 4096, 8, interner, []uint32{1})
	gen := asyncspan.NewIDGenerator()

	clock := uint64(100)
	now := func() uint64 {
		clock++
		return clock
	}

	err := asyncspan.Run(gen, ts, 0, now, func() error {
		return asyncspan.Run(gen, ts, 0, now, func() error {
			return nil
		})
	})
	require.NoError(t, err)

	ts.Seal(now())
	require.Equal(t, 1, ts.SealedCount())

	var kinds []string
	require.NoError(t, ts.Drain(func(blocks []*stream.Block) error {
		require.Len(t, blocks, 1)
		events, err := blocks[0].Iter().All()
		require.NoError(t, err)
		require.Len(t, events, 4)

		begin1, ok := events[0].(event.AsyncSpanBegin)
		require.True(t, ok)
		require.EqualValues(t, 1, begin1.SpanID)
		require.EqualValues(t, 0, begin1.ParentID)
		kinds = append(kinds, "BeginAsync")

		begin2, ok := events[1].(event.AsyncSpanBegin)
		require.True(t, ok)
		require.EqualValues(t, 2, begin2.SpanID)
		require.EqualValues(t, 1, begin2.ParentID)
		kinds = append(kinds, "BeginAsync")

		end2, ok := events[2].(event.AsyncSpanEnd)
		require.True(t, ok)
		require.EqualValues(t, 2, end2.SpanID)
		kinds = append(kinds, "EndAsync")

		end1, ok := events[3].(event.AsyncSpanEnd)
		require.True(t, ok)
		require.EqualValues(t, 1, end1.SpanID)
		kinds = append(kinds, "EndAsync")
		return nil
	}))

	require.Equal(t, []string{"BeginAsync", "BeginAsync", "EndAsync", "EndAsync"}, kinds)
}

// TestEndIsIdempotent checks that calling End twice only emits one
// EndAsyncSpan.
func TestEndIsIdempotent(t *testing.T) {
	interner := event.NewInterner()
	ts := stream.NewThread(uuid.New(), 4096, 8, interner, []uint32{1})
	gen := asyncspan.NewIDGenerator()

	span, err := asyncspan.Begin(gen, ts, 0, 1)
	require.NoError(t, err)
	require.NoError(t, span.End(2))
	require.NoError(t, span.End(3))

	ts.Seal(4)
	require.NoError(t, ts.Drain(func(blocks []*stream.Block) error {
		events, err := blocks[0].Iter().All()
		require.NoError(t, err)
		endCount := 0
		for _, e := range events {
			if _, ok := e.(event.AsyncSpanEnd); ok {
				endCount++
			}
		}
		require.Equal(t, 1, endCount)
		return nil
	}))
}

// TestRunPropagatesSpanEndError checks that when ending the span fails
// (here because the stream was released mid-call), Run surfaces that
// error to its caller instead of discarding it.
func TestRunPropagatesSpanEndError(t *testing.T) {
	interner := event.NewInterner()
	ts := stream.NewThread(uuid.New(), 4096, 8, interner, []uint32{1})
	gen := asyncspan.NewIDGenerator()
	now := func() uint64 { return 1 }

	err := asyncspan.Run(gen, ts, 0, now, func() error {
		return ts.Release(now(), func([]*stream.Block) error { return nil })
	})
	require.Error(t, err)
}

// TestPanicStillEndsSpan asserts cancellation-via-panic still emits
// exactly one EndAsyncSpan.
func TestPanicStillEndsSpan(t *testing.T) {
	interner := event.NewInterner()
	ts := stream.NewThread(uuid.New(), 4096, 8, interner, []uint32{1})
	gen := asyncspan.NewIDGenerator()
	now := func() uint64 { return 1 }

	func() {
		defer func() { _ = recover() }()
		_ = asyncspan.Run(gen, ts, 0, now, func() error {
			panic("boom")
		})
	}()

	ts.Seal(now())
	require.NoError(t, ts.Drain(func(blocks []*stream.Block) error {
		events, err := blocks[0].Iter().All()
		require.NoError(t, err)
		require.Len(t, events, 2)
		_, ok := events[1].(event.AsyncSpanEnd)
		require.True(t, ok)
		return nil
	}))
}
