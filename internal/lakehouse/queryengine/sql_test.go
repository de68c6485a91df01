package queryengine

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestPlanSelectExtractsTableAndTimeWindow(t *testing.T) {
	plan, err := planSelect("SELECT * FROM log_entries WHERE time >= '2024-01-01T00:00:00Z' AND time < '2024-01-02T00:00:00Z'")
	require.NoError(t, err)
	require.Equal(t, "log_entries", plan.ViewSet)
	require.Equal(t, "2024-01-01T00:00:00Z", plan.Window.Begin.Format(time.RFC3339))
	require.Equal(t, "2024-01-02T00:00:00Z", plan.Window.End.Format(time.RFC3339))
	require.False(t, plan.HasProc)
}

func TestPlanSelectExtractsProcessIDFilter(t *testing.T) {
	id := uuid.New()
	plan, err := planSelect("SELECT * FROM thread_spans WHERE process_id = '" + id.String() + "'")
	require.NoError(t, err)
	require.Equal(t, "thread_spans", plan.ViewSet)
	require.True(t, plan.HasProc)
	require.Equal(t, id, plan.ProcessID)
}

func TestPlanSelectRejectsUnsupportedPredicate(t *testing.T) {
	_, err := planSelect("SELECT * FROM log_entries WHERE msg = 'hi'")
	require.Error(t, err)
}

func TestPlanSelectRejectsMultiTableFrom(t *testing.T) {
	_, err := planSelect("SELECT * FROM log_entries, measures")
	require.Error(t, err)
}
