package notify_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/micromegas-db/micromegas/internal/util/notify"
)

func TestGetReturnsChannelThatClosesOnSet(t *testing.T) {
	v := notify.New(false)

	val, ch := v.Get()
	require.False(t, val)

	v.Set(true)

	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("channel from Get did not close after Set")
	}
	require.True(t, v.Value())
}

func TestUpdateAppliesTransformAndWakesWaiters(t *testing.T) {
	v := notify.New(1)
	_, ch := v.Get()

	v.Update(func(n int) int { return n + 1 })

	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("channel from Get did not close after Update")
	}
	require.Equal(t, 2, v.Value())
}
