package stream_test

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/micromegas-db/micromegas/internal/runtime/event"
	"github.com/micromegas-db/micromegas/internal/runtime/stream"
)

func TestSealOnFullThenRetry(t *testing.T) {
	interner := event.NewInterner()
	msg := make([]byte, 16)
	for i := range msg {
		msg[i] = 'a'
	}
	ev := event.LogEntry{Level: event.LevelInfo, Msg: string(msg)}
	// room for exactly two events per block.
	s := stream.New(stream.KindLog, uuid.New(), 2*(1+ev.EncodedLen()), 8, interner, []uint32{1})

	require.NoError(t, stream.Push(s, ev, 100))
	require.NoError(t, stream.Push(s, ev, 101))
	require.Equal(t, 0, s.SealedCount())

	// third push overflows the first block, forcing a seal.
	require.NoError(t, stream.Push(s, ev, 102))
	require.Equal(t, 1, s.SealedCount())
}

func TestDrainRequeuesOnFailure(t *testing.T) {
	interner := event.NewInterner()
	s := stream.New(stream.KindLog, uuid.New(), 4096, 8, interner, []uint32{1})
	require.NoError(t, stream.Push(s, event.LogEntry{Msg: "x"}, 1))
	s.Seal(2)
	require.Equal(t, 1, s.SealedCount())

	sentinel := errors.New("sink unavailable")
	failing := s.Drain(func(blocks []*stream.Block) error {
		return sentinel
	})
	require.ErrorIs(t, failing, sentinel)
	require.Equal(t, 1, s.SealedCount())

	require.NoError(t, s.Drain(func(blocks []*stream.Block) error {
		require.Len(t, blocks, 1)
		return nil
	}))
	require.Equal(t, 0, s.SealedCount())
}

func TestReleaseSealsAndDrains(t *testing.T) {
	interner := event.NewInterner()
	s := stream.New(stream.KindMetrics, uuid.New(), 4096, 8, interner, []uint32{1})
	require.NoError(t, stream.Push(s, event.Measure{Value: 1}, 10))

	var drained []*stream.Block
	require.NoError(t, s.Release(11, func(blocks []*stream.Block) error {
		drained = blocks
		return nil
	}))
	require.Len(t, drained, 1)
	require.Equal(t, stream.StateReleased, drained[0].State())
}
