package materializer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/micromegas-db/micromegas/internal/lakehouse/catalog"
	"github.com/micromegas-db/micromegas/internal/lakehouse/objstore"
	"github.com/micromegas-db/micromegas/internal/lakehouse/views"
)

func TestDiscoverTasksGroupsByProcessForProcessKeyedView(t *testing.T) {
	store, err := objstore.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "raw/log/proc-a/stream-1/00000000000000000001.bin", []byte("x")))
	require.NoError(t, store.Put(ctx, "raw/log/proc-a/stream-2/00000000000000000002.bin", []byte("x")))
	require.NoError(t, store.Put(ctx, "raw/log/proc-b/stream-3/00000000000000000003.bin", []byte("x")))

	v := &views.View{StreamTag: "log", PartitionKey: views.PartitionKeyByProcess}
	tasks, err := discoverTasks(ctx, store, v, catalog.TimeRange{}, 0)
	require.NoError(t, err)
	require.Len(t, tasks, 2)

	keys := map[string]bool{}
	for _, task := range tasks {
		keys[task.PartitionKey] = true
	}
	require.True(t, keys["proc-a"])
	require.True(t, keys["proc-b"])
}

func TestDiscoverTasksReturnsSingleTaskForTimeBucketedView(t *testing.T) {
	store, err := objstore.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	v := &views.View{StreamTag: "log", PartitionKey: views.PartitionKeyByTimeBucket}
	window := catalog.TimeRange{Begin: time.Unix(0, 0), End: time.Unix(3600, 0)}
	tasks, err := discoverTasks(context.Background(), store, v, window, time.Hour)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	require.Equal(t, time.Hour, tasks[0].LogStatsBucket)
}

func TestProcessIDFromRawKeyRejectsMalformedKeys(t *testing.T) {
	_, ok := processIDFromRawKey("raw/log/only-two-parts.bin")
	require.False(t, ok)

	pid, ok := processIDFromRawKey("raw/log/proc-a/stream-1/123.bin")
	require.True(t, ok)
	require.Equal(t, "proc-a", pid)
}
