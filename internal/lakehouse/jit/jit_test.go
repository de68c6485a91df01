package jit_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/micromegas-db/micromegas/internal/lakehouse/catalog"
	"github.com/micromegas-db/micromegas/internal/lakehouse/jit"
	"github.com/micromegas-db/micromegas/internal/lakehouse/materializer"
	"github.com/micromegas-db/micromegas/internal/runtime/blockcodec"
	"github.com/micromegas-db/micromegas/internal/runtime/event"
	"github.com/micromegas-db/micromegas/internal/runtime/stream"
)

type fakeSource struct {
	blocks [][]byte
}

func (f *fakeSource) FetchProcessBlocks(ctx context.Context, processID uuid.UUID, streamTag string, window catalog.TimeRange) ([][]byte, error) {
	return f.blocks, nil
}

func sealedLogBlock(t *testing.T, msg string) []byte {
	t.Helper()
	interner := event.NewInterner()
	processID := uuid.New()
	s := stream.New(stream.KindLog, processID, 1<<16, 4, interner, []uint32{1})
	require.NoError(t, stream.Push(s, event.LogEntry{Level: event.LevelInfo, TimeNs: 1, Msg: msg}, 1))
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

func TestGenerateProcessJitPartitionsMatchesMaterializerProjection(t *testing.T) {
	wire := sealedLogBlock(t, "hello jit")
	src := &fakeSource{blocks: [][]byte{wire}}
	provider := jit.New(src)

	result, err := provider.GenerateProcessJitPartitions(context.Background(), "log_entries", uuid.New(), "log", catalog.TimeRange{})
	require.NoError(t, err)

	decoded, err := blockcodec.Decode(wire)
	require.NoError(t, err)
	expected, err := materializer.ProjectLogEntries([]*blockcodec.Decoded{decoded})
	require.NoError(t, err)

	require.Equal(t, expected, result)
}
