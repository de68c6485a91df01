package chaos_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/micromegas-db/micromegas/internal/lakehouse/catalog"
	"github.com/micromegas-db/micromegas/internal/runtime/blockcodec"
	"github.com/micromegas-db/micromegas/internal/runtime/stream"
	"github.com/micromegas-db/micromegas/internal/testutil/chaos"
)

type fakeSink struct {
	sent   int
	closed bool
}

func (f *fakeSink) SendBlock(ctx context.Context, processID uuid.UUID, block *stream.Block, defaultContext map[string]string) error {
	f.sent++
	return nil
}

func (f *fakeSink) Close() error {
	f.closed = true
	return nil
}

func TestWithChaosSinkZeroProbabilityReturnsDelegateUnwrapped(t *testing.T) {
	delegate := &fakeSink{}
	wrapped := chaos.WithChaosSink(delegate, 0)
	require.Same(t, delegate, wrapped)
}

func TestWithChaosSinkFullProbabilityAlwaysFails(t *testing.T) {
	delegate := &fakeSink{}
	wrapped := chaos.WithChaosSink(delegate, 1)

	err := wrapped.SendBlock(context.Background(), uuid.New(), nil, nil)
	require.ErrorIs(t, err, chaos.ErrChaos)
	require.Equal(t, 0, delegate.sent, "delegate must not be called once chaos fires")

	require.ErrorIs(t, wrapped.Close(), chaos.ErrChaos)
}

type fakeBlockSource struct {
	calls int
}

func (f *fakeBlockSource) FetchBlocks(ctx context.Context, streamTag string, window catalog.TimeRange) ([]*blockcodec.Decoded, error) {
	f.calls++
	return nil, nil
}

func TestWithChaosBlockSourceFullProbabilityAlwaysFails(t *testing.T) {
	delegate := &fakeBlockSource{}
	wrapped := chaos.WithChaosBlockSource(delegate, 1)

	_, err := wrapped.FetchBlocks(context.Background(), "log", catalog.TimeRange{})
	require.ErrorIs(t, err, chaos.ErrChaos)
	require.Equal(t, 0, delegate.calls)
}
