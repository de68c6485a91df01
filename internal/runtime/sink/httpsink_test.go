package sink_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/micromegas-db/micromegas/internal/runtime/event"
	"github.com/micromegas-db/micromegas/internal/runtime/sink"
	"github.com/micromegas-db/micromegas/internal/runtime/stream"
)

func sealedLogBlock(t *testing.T) *stream.Block {
	t.Helper()
	interner := event.NewInterner()
	s := stream.New(stream.KindLog, uuid.New(), 1<<16, 8, interner, []uint32{1})
	require.NoError(t, stream.Push(s, event.LogEntry{Level: event.LevelInfo, Msg: "hello", TimeNs: 1}, 1))
	s.Seal(1000)

	var block *stream.Block
	require.NoError(t, s.Drain(func(blocks []*stream.Block) error {
		require.Len(t, blocks, 1)
		block = blocks[0]
		return nil
	}))
	return block
}

func TestSendBlockClearsBacklogAfterSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	s := sink.NewHTTPSink(srv.URL, sink.WithMaxRetries(0))

	err := s.SendBlock(context.Background(), uuid.New(), sealedLogBlock(t), nil)
	require.NoError(t, err)

	backlogged, _ := s.Backlogged()
	require.False(t, backlogged)
}

func TestSendBlockSetsBacklogAfterExhaustingRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	s := sink.NewHTTPSink(srv.URL, sink.WithMaxRetries(0))

	err := s.SendBlock(context.Background(), uuid.New(), sealedLogBlock(t), nil)
	require.Error(t, err)

	backlogged, ch := s.Backlogged()
	require.True(t, backlogged)

	select {
	case <-ch:
		t.Fatal("backlog channel should not have closed yet")
	case <-time.After(10 * time.Millisecond):
	}
}
