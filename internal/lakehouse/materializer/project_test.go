package materializer_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/micromegas-db/micromegas/internal/lakehouse/materializer"
	"github.com/micromegas-db/micromegas/internal/runtime/blockcodec"
	"github.com/micromegas-db/micromegas/internal/runtime/event"
	"github.com/micromegas-db/micromegas/internal/runtime/hetqueue"
)

func decodedBlock(t *testing.T, descriptors []event.SpanDescriptor, events ...event.Encodable) *blockcodec.Decoded {
	t.Helper()
	q := hetqueue.New(1 << 16)
	for _, e := range events {
		switch ev := e.(type) {
		case event.LogEntry:
			require.NoError(t, hetqueue.Push(q, ev))
		case event.LogEntryTagged:
			require.NoError(t, hetqueue.Push(q, ev))
		case event.Measure:
			require.NoError(t, hetqueue.Push(q, ev))
		case event.ThreadSpanBegin:
			require.NoError(t, hetqueue.Push(q, ev))
		case event.ThreadSpanEnd:
			require.NoError(t, hetqueue.Push(q, ev))
		case event.AsyncSpanBegin:
			require.NoError(t, hetqueue.Push(q, ev))
		case event.AsyncSpanEnd:
			require.NoError(t, hetqueue.Push(q, ev))
		default:
			t.Fatalf("unhandled event type %T", e)
		}
	}
	return &blockcodec.Decoded{
		ProcessID:   uuid.New(),
		Descriptors: descriptors,
		Payload:     q.Bytes(),
	}
}

func TestProjectLogEntriesResolvesDescriptor(t *testing.T) {
	desc := []event.SpanDescriptor{{Target: "svc", Name: "boot"}}
	block := decodedBlock(t, desc,
		event.LogEntry{Level: event.LevelInfo, DescID: 0, TimeNs: 1, Msg: "hello"},
	)

	rows, err := materializer.ProjectLogEntries([]*blockcodec.Decoded{block})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "svc", rows[0].Target)
	require.Equal(t, "hello", rows[0].Msg)
}

func TestProjectThreadSpansPairsBeginEnd(t *testing.T) {
	desc := []event.SpanDescriptor{{Target: "svc", Name: "work"}}
	block := decodedBlock(t, desc,
		event.ThreadSpanBegin{SpanID: 1, DescID: 0, TimeNs: 100},
		event.ThreadSpanEnd{SpanID: 1, TimeNs: 200},
	)

	rows, err := materializer.ProjectThreadSpans([]*blockcodec.Decoded{block})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, uint64(1), rows[0].SpanID)
	require.Equal(t, time.Unix(0, 100).UTC(), rows[0].BeginTime)
	require.Equal(t, time.Unix(0, 200).UTC(), rows[0].EndTime)
}

func TestProjectThreadSpansDropsUnmatchedBegin(t *testing.T) {
	block := decodedBlock(t, nil,
		event.ThreadSpanBegin{SpanID: 1, DescID: 0, TimeNs: 100},
	)

	rows, err := materializer.ProjectThreadSpans([]*blockcodec.Decoded{block})
	require.NoError(t, err)
	require.Empty(t, rows)
}

func TestProjectAsyncEventsPreservesParentLinkage(t *testing.T) {
	desc := []event.SpanDescriptor{{Target: "svc", Name: "async-work"}}
	block := decodedBlock(t, desc,
		event.AsyncSpanBegin{SpanID: 1, ParentID: 0, DescID: 0, TimeNs: 10},
		event.AsyncSpanBegin{SpanID: 2, ParentID: 1, DescID: 0, TimeNs: 20},
		event.AsyncSpanEnd{SpanID: 2, TimeNs: 30},
		event.AsyncSpanEnd{SpanID: 1, TimeNs: 40},
	)

	rows, err := materializer.ProjectAsyncEvents([]*blockcodec.Decoded{block})
	require.NoError(t, err)
	require.Len(t, rows, 4)
	require.Equal(t, uint64(1), rows[2].ParentID, "End(2) should carry parent 1 even though the wire event omits it")
	require.Equal(t, uint64(0), rows[3].ParentID, "End(1) should carry parent 0")
}

func TestProjectLogStatsAggregatesByBucket(t *testing.T) {
	block := decodedBlock(t, nil,
		event.LogEntry{Level: uint8AsLevel(2), TimeNs: uint64(time.Hour.Nanoseconds()), Msg: "a"},
		event.LogEntry{Level: uint8AsLevel(2), TimeNs: uint64(time.Hour.Nanoseconds()) + 1, Msg: "b"},
		event.LogEntry{Level: uint8AsLevel(4), TimeNs: uint64(2 * time.Hour.Nanoseconds()), Msg: "c"},
	)

	rows, err := materializer.ProjectLogStats([]*blockcodec.Decoded{block}, time.Hour)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	var total uint64
	for _, r := range rows {
		total += r.Count
	}
	require.Equal(t, uint64(3), total)
}

func uint8AsLevel(v uint8) event.LogLevel {
	return event.LogLevel(v)
}
