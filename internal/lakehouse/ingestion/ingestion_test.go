package ingestion_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/micromegas-db/micromegas/internal/lakehouse/catalog"
	"github.com/micromegas-db/micromegas/internal/lakehouse/ingestion"
	"github.com/micromegas-db/micromegas/internal/lakehouse/objstore"
	"github.com/micromegas-db/micromegas/internal/runtime/blockcodec"
	"github.com/micromegas-db/micromegas/internal/runtime/event"
	"github.com/micromegas-db/micromegas/internal/runtime/stream"
)

func sealedLogWire(t *testing.T, processID uuid.UUID) []byte {
	t.Helper()
	interner := event.NewInterner()
	s := stream.New(stream.KindLog, processID, 1<<16, 4, interner, []uint32{1})
	require.NoError(t, stream.Push(s, event.LogEntry{Level: event.LevelInfo, TimeNs: 1, Msg: "hi"}, 1))
	s.Seal(1)

	var block *stream.Block
	require.NoError(t, s.Drain(func(blocks []*stream.Block) error {
		block = blocks[0]
		return nil
	}))
	wire, err := blockcodec.Encode(block, false)
	require.NoError(t, err)
	return wire
}

func TestIngestThenFetchBlocksRoundTrips(t *testing.T) {
	store, err := objstore.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	svc := ingestion.New(store)
	handler := svc.Handler()

	processID := uuid.New()
	streamID := uuid.New()
	wire := sealedLogWire(t, processID)

	url := "/ingest/v1/blocks/" + processID.String() + "/" + streamID.String()
	req := httptest.NewRequest(http.MethodPut, url, bytes.NewReader(wire))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusAccepted, rec.Code)

	blocks, err := svc.FetchBlocks(req.Context(), "log", catalog.TimeRange{})
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	require.Equal(t, processID, blocks[0].ProcessID)
}

func TestIngestQuarantinesUndecodableBlock(t *testing.T) {
	store, err := objstore.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	svc := ingestion.New(store)
	handler := svc.Handler()

	url := "/ingest/v1/blocks/" + uuid.New().String() + "/" + uuid.New().String()
	req := httptest.NewRequest(http.MethodPut, url, bytes.NewReader([]byte("not a block")))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	infos, err := store.List(req.Context(), "dlq/")
	require.NoError(t, err)
	require.Len(t, infos, 1)
}
