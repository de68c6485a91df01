package dispatch_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/micromegas-db/micromegas/internal/errs"
	"github.com/micromegas-db/micromegas/internal/runtime/dispatch"
	"github.com/micromegas-db/micromegas/internal/runtime/event"
	"github.com/micromegas-db/micromegas/internal/runtime/sink"
)

// TestRoundTripSingleLogEvent checks that a single "hello" log event on one
// thread, sealed and flushed, arrives at the sink as exactly one block with
// nb_objects=1.
func TestRoundTripSingleLogEvent(t *testing.T) {
	dispatch.ResetForTests()
	defer dispatch.ResetForTests()

	memSink := sink.NewMemSink()
	d, err := dispatch.Init(uuid.New(), 64*1024, 64*1024, 8, memSink, nil)
	require.NoError(t, err)

	require.NoError(t, d.OnLogTagged(event.LevelInfo, 0, "hello", event.PropertySet{{Key: "target", Value: "t"}}, 1000))

	require.NoError(t, d.Shutdown(context.Background(), 1001))

	sent := memSink.Blocks()
	require.Len(t, sent, 1)
	require.EqualValues(t, 1, sent[0].Block.NbObjects)

	events, err := sent[0].Block.Iter().All()
	require.NoError(t, err)
	require.Len(t, events, 1)
	logEv, ok := events[0].(event.LogEntryTagged)
	require.True(t, ok)
	require.Equal(t, "hello", logEv.Msg)
	require.Equal(t, event.LevelInfo, logEv.Level)
}

func TestInitTwiceFails(t *testing.T) {
	dispatch.ResetForTests()
	defer dispatch.ResetForTests()

	_, err := dispatch.Init(uuid.New(), 4096, 4096, 4, sink.NewMemSink(), nil)
	require.NoError(t, err)

	_, err = dispatch.Init(uuid.New(), 4096, 4096, 4, sink.NewMemSink(), nil)
	require.ErrorIs(t, err, errs.ErrAlreadyInitialized)
}

func TestReinitAfterShutdownFails(t *testing.T) {
	dispatch.ResetForTests()
	defer dispatch.ResetForTests()

	d, err := dispatch.Init(uuid.New(), 4096, 4096, 4, sink.NewMemSink(), nil)
	require.NoError(t, err)
	require.NoError(t, d.Shutdown(context.Background(), 1))

	_, err = dispatch.Init(uuid.New(), 4096, 4096, 4, sink.NewMemSink(), nil)
	require.ErrorIs(t, err, errs.ErrAlreadyShutdown)
}

func TestGetWithoutInitFails(t *testing.T) {
	dispatch.ResetForTests()
	defer dispatch.ResetForTests()

	_, err := dispatch.Get()
	require.ErrorIs(t, err, errs.ErrNotInitialized)
}

func TestThreadStreamAsyncScope(t *testing.T) {
	dispatch.ResetForTests()
	defer dispatch.ResetForTests()

	memSink := sink.NewMemSink()
	d, err := dispatch.Init(uuid.New(), 4096, 4096, 4, memSink, nil)
	require.NoError(t, err)

	ts := d.NewThreadStream()
	span, err := d.OnBeginAsyncScope(ts, 0, 10)
	require.NoError(t, err)
	require.NoError(t, d.OnEndAsyncScope(span, 11))

	require.NoError(t, d.Shutdown(context.Background(), 12))
	sent := memSink.Blocks()
	require.Len(t, sent, 1)
}
