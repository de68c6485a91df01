package admin_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/micromegas-db/micromegas/internal/lakehouse/admin"
	"github.com/micromegas-db/micromegas/internal/lakehouse/views"
)

func TestBumpSchemaHashRejectsUnknownViewSet(t *testing.T) {
	registry := views.NewDefaultRegistry()
	a := admin.New(nil, registry)

	err := a.BumpSchemaHash("nonexistent_view", []uint32{2})
	require.Error(t, err)
}

func TestBumpSchemaHashUpdatesRegisteredView(t *testing.T) {
	registry := views.NewDefaultRegistry()
	a := admin.New(nil, registry)

	require.NoError(t, a.BumpSchemaHash("log_entries", []uint32{2}))

	v, ok := registry.Get("log_entries")
	require.True(t, ok)
	require.True(t, v.IsCurrent([]uint32{2}))
	require.False(t, v.IsCurrent([]uint32{1}))
}
