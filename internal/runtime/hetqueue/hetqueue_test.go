package hetqueue_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/micromegas-db/micromegas/internal/errs"
	"github.com/micromegas-db/micromegas/internal/runtime/event"
	"github.com/micromegas-db/micromegas/internal/runtime/hetqueue"
)

func TestPushIterRoundTrip(t *testing.T) {
	q := hetqueue.New(4096)

	log := event.LogEntry{Level: event.LevelInfo, DescID: 1, TimeNs: 1000, Msg: "hello"}
	measure := event.Measure{DescID: 2, TimeNs: 1001, Value: 3.5}
	begin := event.ThreadSpanBegin{SpanID: 7, DescID: 3, TimeNs: 1002}
	end := event.ThreadSpanEnd{SpanID: 7, TimeNs: 1003}

	require.NoError(t, hetqueue.Push(q, log))
	require.NoError(t, hetqueue.Push(q, measure))
	require.NoError(t, hetqueue.Push(q, begin))
	require.NoError(t, hetqueue.Push(q, end))

	got, err := q.Iter().All()
	require.NoError(t, err)
	require.Equal(t, []event.Any{log, measure, begin, end}, got)
}

func TestPushFullDoesNotCorruptQueue(t *testing.T) {
	msg := make([]byte, 32)
	for i := range msg {
		msg[i] = 'x'
	}
	small := event.LogEntry{Level: event.LevelInfo, Msg: string(msg)}
	q := hetqueue.New(small.EncodedLen()) // room for exactly one event, no tag byte

	require.ErrorIs(t, hetqueue.Push(q, small), errs.ErrQueueFull)
	require.Equal(t, 0, q.Len())
}

func TestClearPreservesCapacity(t *testing.T) {
	q := hetqueue.New(64)
	require.NoError(t, hetqueue.Push(q, event.ThreadSpanEnd{SpanID: 1, TimeNs: 2}))
	require.Greater(t, q.Len(), 0)

	q.Clear()
	require.Equal(t, 0, q.Len())
	require.Equal(t, 64, q.Cap())

	got, err := q.Iter().All()
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestIteratorIsRestartable(t *testing.T) {
	q := hetqueue.New(256)
	require.NoError(t, hetqueue.Push(q, event.ThreadSpanEnd{SpanID: 9, TimeNs: 5}))

	first, err := q.Iter().All()
	require.NoError(t, err)
	second, err := q.Iter().All()
	require.NoError(t, err)
	require.Equal(t, first, second)
}
