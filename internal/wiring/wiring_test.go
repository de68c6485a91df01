package wiring_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/micromegas-db/micromegas/internal/config"
	"github.com/micromegas-db/micromegas/internal/wiring"
)

func TestBuildWithoutCatalogDSNLeavesCatalogServicesNil(t *testing.T) {
	cfg := &config.Config{}
	cfg.ObjectStore.LocalDir = t.TempDir()

	svc, cleanup, err := wiring.Build(context.Background(), cfg)
	require.NoError(t, err)
	defer cleanup()

	require.NotNil(t, svc.Registry)
	require.NotNil(t, svc.ObjectStore)
	require.NotNil(t, svc.Ingestion)
	require.NotNil(t, svc.JIT)
	require.Nil(t, svc.Catalog)
	require.Nil(t, svc.Materializer)
	require.Nil(t, svc.QueryEngine)
}

func TestProvideObjectStoreRejectsBadLocalDir(t *testing.T) {
	_, err := wiring.ProvideObjectStore(context.Background(), config.ObjectStoreConfig{
		LocalDir: "/nonexistent/path/that/cannot/be/created/because/parent/is/a/file/\x00",
	})
	require.Error(t, err)
}
