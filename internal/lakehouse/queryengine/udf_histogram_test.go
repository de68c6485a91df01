package queryengine_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/micromegas-db/micromegas/internal/lakehouse/queryengine"
)

func TestMakeHistogramBucketsValuesByUpperBound(t *testing.T) {
	buckets := queryengine.MakeHistogram([]float64{0.05, 0.2, 0.2, 5, 100}, []float64{0.1, 0.25, 1, 10})

	require.Len(t, buckets, 4)
	require.Equal(t, uint64(1), buckets[0].Count) // 0.05 -> <=0.1
	require.Equal(t, uint64(2), buckets[1].Count) // 0.2, 0.2 -> <=0.25
	require.Equal(t, uint64(1), buckets[2].Count) // 5 -> <=10
	require.Equal(t, uint64(1), buckets[3].Count) // 100 -> overflow into last bucket
}
