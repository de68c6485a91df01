package fixture_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/micromegas-db/micromegas/internal/testutil/fixture"
)

func TestNewFixtureWithoutCatalogDSNLeavesCatalogNil(t *testing.T) {
	f, cleanup, err := fixture.NewFixture(context.Background(), t.TempDir())
	require.NoError(t, err)
	defer cleanup()

	require.Nil(t, f.Catalog)
	require.Nil(t, f.Materializer)
	require.Nil(t, f.QueryEngine)
	require.NotNil(t, f.Ingestion)
	require.NotNil(t, f.JIT)
	require.NotEmpty(t, f.Registry.All())
}
