package catalog_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/micromegas-db/micromegas/internal/lakehouse/catalog"
)

func TestTimeRangeOverlaps(t *testing.T) {
	base := time.Unix(0, 0)
	r := catalog.TimeRange{Begin: base, End: base.Add(10 * time.Second)}

	require.True(t, r.Overlaps(catalog.TimeRange{Begin: base.Add(5 * time.Second), End: base.Add(15 * time.Second)}))
	require.True(t, r.Overlaps(catalog.TimeRange{Begin: base.Add(-5 * time.Second), End: base.Add(5 * time.Second)}))
	require.False(t, r.Overlaps(catalog.TimeRange{Begin: base.Add(10 * time.Second), End: base.Add(20 * time.Second)}))
	require.False(t, r.Overlaps(catalog.TimeRange{Begin: base.Add(-10 * time.Second), End: base}))
}
