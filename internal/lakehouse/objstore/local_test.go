package objstore_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/micromegas-db/micromegas/internal/lakehouse/objstore"
)

func TestLocalStorePutGetDeleteList(t *testing.T) {
	store, err := objstore.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "log_entries/p1/100_5.parquet", []byte("hello")))
	require.NoError(t, store.Put(ctx, "log_entries/p2/200_5.parquet", []byte("world")))

	data, err := store.Get(ctx, "log_entries/p1/100_5.parquet")
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), data)

	partial, err := store.GetRange(ctx, "log_entries/p1/100_5.parquet", 1, 3)
	require.NoError(t, err)
	require.Equal(t, []byte("ell"), partial)

	listing, err := store.List(ctx, "log_entries/")
	require.NoError(t, err)
	require.Len(t, listing, 2)

	require.NoError(t, store.Delete(ctx, "log_entries/p1/100_5.parquet"))
	require.NoError(t, store.Delete(ctx, "log_entries/p1/100_5.parquet")) // idempotent

	_, err = store.Get(ctx, "log_entries/p1/100_5.parquet")
	require.Error(t, err)

	listing, err = store.List(ctx, "log_entries/")
	require.NoError(t, err)
	require.Len(t, listing, 1)
}

func TestPartitionKeyLayout(t *testing.T) {
	key := objstore.PartitionKey("log_entries", "proc-1", 1000, []uint32{5}, "parquet")
	require.Equal(t, "log_entries/proc-1/1000_5.parquet", key)
}
