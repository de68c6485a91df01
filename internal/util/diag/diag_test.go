package diag_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/micromegas-db/micromegas/internal/util/diag"
)

func TestCheckAllOrdersResultsByName(t *testing.T) {
	r := diag.NewRegistry()
	r.Register("zeta", diag.CheckerFunc(func(ctx context.Context) error { return nil }))
	r.Register("alpha", diag.CheckerFunc(func(ctx context.Context) error { return nil }))

	results := r.CheckAll(context.Background())

	require.Len(t, results, 2)
	require.Equal(t, "alpha", results[0].Name)
	require.Equal(t, "zeta", results[1].Name)
}

func TestHealthyReflectsWorstChecker(t *testing.T) {
	r := diag.NewRegistry()
	r.Register("ok", diag.CheckerFunc(func(ctx context.Context) error { return nil }))
	require.True(t, r.Healthy(context.Background()))

	r.Register("broken", diag.CheckerFunc(func(ctx context.Context) error { return errors.New("down") }))
	require.False(t, r.Healthy(context.Background()))
}

func TestUnregisterRemovesChecker(t *testing.T) {
	r := diag.NewRegistry()
	r.Register("transient", diag.CheckerFunc(func(ctx context.Context) error { return errors.New("down") }))
	r.Unregister("transient")

	require.Empty(t, r.CheckAll(context.Background()))
}
