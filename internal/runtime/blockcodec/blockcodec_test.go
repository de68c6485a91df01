package blockcodec_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/micromegas-db/micromegas/internal/runtime/blockcodec"
	"github.com/micromegas-db/micromegas/internal/runtime/event"
	"github.com/micromegas-db/micromegas/internal/runtime/stream"
)

func sealedBlockWithEvents(t *testing.T, events ...interface{}) *stream.Block {
	t.Helper()
	interner := event.NewInterner()
	s := stream.New(stream.KindLog, uuid.New(), 1<<20, 8, interner, []uint32{5})
	for _, e := range events {
		switch ev := e.(type) {
		case event.LogEntry:
			require.NoError(t, stream.Push(s, ev, ev.TimeNs))
		case event.LogEntryTagged:
			require.NoError(t, stream.Push(s, ev, ev.TimeNs))
		case event.Measure:
			require.NoError(t, stream.Push(s, ev, ev.TimeNs))
		}
	}
	s.Seal(1000)
	var block *stream.Block
	require.NoError(t, s.Drain(func(blocks []*stream.Block) error {
		require.Len(t, blocks, 1)
		block = blocks[0]
		return nil
	}))
	return block
}

func TestEncodeDecodeRoundTripUncompressed(t *testing.T) {
	block := sealedBlockWithEvents(t,
		event.LogEntry{Level: event.LevelInfo, Msg: "hello", TimeNs: 1},
		event.LogEntryTagged{Level: event.LevelWarn, Msg: "tagged", TimeNs: 2, Properties: event.PropertySet{{Key: "k", Value: "v"}}},
	)

	wire, err := blockcodec.Encode(block, false)
	require.NoError(t, err)

	decoded, err := blockcodec.Decode(wire)
	require.NoError(t, err)
	require.Equal(t, block.StreamID, decoded.StreamID)
	require.Equal(t, block.ProcessID, decoded.ProcessID)
	require.Equal(t, []uint32{5}, decoded.SchemaHash)
	require.Equal(t, block.Bytes(), decoded.Payload)

	events, err := decodePayload(decoded)
	require.NoError(t, err)
	require.Len(t, events, 2)
}

func TestEncodeDecodeRoundTripCompressed(t *testing.T) {
	longMsg := make([]byte, 200*1024)
	for i := range longMsg {
		longMsg[i] = byte('a' + i%26)
	}
	block := sealedBlockWithEvents(t,
		event.LogEntry{Level: event.LevelInfo, Msg: string(longMsg), TimeNs: 1},
	)

	wire, err := blockcodec.Encode(block, true)
	require.NoError(t, err)

	decoded, err := blockcodec.Decode(wire)
	require.NoError(t, err)
	require.Equal(t, block.Bytes(), decoded.Payload)
}

func TestDecodeRejectsBadMagic(t *testing.T) {
	_, err := blockcodec.Decode([]byte{0, 0, 0, 0, 0, 0})
	require.Error(t, err)
}

func TestDecodeRejectsTruncated(t *testing.T) {
	block := sealedBlockWithEvents(t, event.LogEntry{Msg: "x", TimeNs: 1})
	wire, err := blockcodec.Encode(block, false)
	require.NoError(t, err)

	_, err = blockcodec.Decode(wire[:len(wire)-3])
	require.Error(t, err)
}

func decodePayload(d *blockcodec.Decoded) ([]event.Any, error) {
	var out []event.Any
	off := 0
	for off < len(d.Payload) {
		tag := event.Tag(d.Payload[off])
		ev, n, err := event.Decode(tag, d.Payload[off+1:])
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
		off += 1 + n
	}
	return out, nil
}
