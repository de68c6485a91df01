package queryengine_test

import (
	"context"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/micromegas-db/micromegas/internal/lakehouse/catalog"
	"github.com/micromegas-db/micromegas/internal/lakehouse/props"
	"github.com/micromegas-db/micromegas/internal/lakehouse/queryengine"
	"github.com/micromegas-db/micromegas/internal/lakehouse/views"
	"github.com/micromegas-db/micromegas/internal/runtime/blockcodec"
	"github.com/micromegas-db/micromegas/internal/runtime/event"
	"github.com/micromegas-db/micromegas/internal/runtime/stream"
	"github.com/micromegas-db/micromegas/internal/util/ident"
)

type fakeBlockSource struct {
	blocks [][]byte
}

func (f *fakeBlockSource) FetchProcessBlocks(ctx context.Context, processID uuid.UUID, streamTag string, window catalog.TimeRange) ([][]byte, error) {
	return f.blocks, nil
}

func sealedThreadSpanBlock(t *testing.T, processID uuid.UUID) []byte {
	t.Helper()
	interner := event.NewInterner()
	descID := interner.Intern(event.SpanDescriptor{Target: "svc", Name: "render"})
	s := stream.NewThread(processID, 1<<16, 4, interner, []uint32{1})
	require.NoError(t, stream.Push(s.Stream, event.ThreadSpanBegin{SpanID: 1, DescID: descID, TimeNs: 100}, 100))
	require.NoError(t, stream.Push(s.Stream, event.ThreadSpanEnd{SpanID: 1, TimeNs: 200}, 200))
	s.Seal(200)

	var block *stream.Block
	require.NoError(t, s.Drain(func(blocks []*stream.Block) error {
		block = blocks[0]
		return nil
	}))

	wire, err := blockcodec.Encode(block, false)
	require.NoError(t, err)
	return wire
}

func TestListViewSetsReturnsSchemaHash(t *testing.T) {
	registry := views.NewRegistry()
	v := &views.View{Name: ident.NewViewSet("log_entries"), Icon: "log", Description: "log entries"}
	v.BumpSchemaHash([]uint32{1})
	registry.Register(v)

	e := queryengine.New(registry, nil, nil, nil, nil)
	infos := e.ListViewSets()
	require.Len(t, infos, 1)
	require.Equal(t, "log_entries", infos[0].Name)
	require.Equal(t, []uint32{1}, infos[0].SchemaHash)
}

func TestPerfettoTraceChunksEncodesThreadSpans(t *testing.T) {
	registry := views.NewRegistry()
	processID := uuid.New()
	wire := sealedThreadSpanBlock(t, processID)
	src := &fakeBlockSource{blocks: [][]byte{wire}}

	e := queryengine.New(registry, nil, nil, nil, src)
	chunks, err := e.PerfettoTraceChunks(context.Background(), processID, "", catalog.TimeRange{})
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	require.Equal(t, uint64(0), chunks[0].ChunkID)
	require.NotEmpty(t, chunks[0].Data)
}

func TestPerfettoTraceChunksFiltersBySpanType(t *testing.T) {
	registry := views.NewRegistry()
	processID := uuid.New()
	wire := sealedThreadSpanBlock(t, processID)
	src := &fakeBlockSource{blocks: [][]byte{wire}}

	e := queryengine.New(registry, nil, nil, nil, src)
	chunks, err := e.PerfettoTraceChunks(context.Background(), processID, "no-such-span", catalog.TimeRange{})
	require.NoError(t, err)
	require.Empty(t, chunks)
}

func TestPropertyGetAndLengthUDFsAgree(t *testing.T) {
	pool := memory.NewGoAllocator()
	b := array.NewBinaryBuilder(pool, arrow.BinaryTypes.Binary)
	b.Append(props.EncodeJSONB([]props.Pair{{Key: "env", Value: "prod"}}))
	col := b.NewBinaryArray()
	defer col.Release()

	v, err := queryengine.PropertyGet(col, 0, "env")
	require.NoError(t, err)
	require.Equal(t, "prod", v)

	n, err := queryengine.PropertiesLength(col, 0)
	require.NoError(t, err)
	require.Equal(t, 1, n)
}
