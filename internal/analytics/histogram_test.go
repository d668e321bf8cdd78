package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bucketCounts(buckets []Bucket) []int {
	counts := make([]int, len(buckets))
	for i, b := range buckets {
		counts[i] = b.Count
	}
	return counts
}

func TestHistogramBoundaries(t *testing.T) {
	// Lower bound inclusive, upper bound exclusive.
	buckets := Histogram([]float64{0, 9.999, 10, 19.999, 20}, 0, 30, 10)

	require.Len(t, buckets, 3)
	assert.Equal(t, []int{2, 2, 1}, bucketCounts(buckets))
	assert.Equal(t, "0:10", buckets[0].Label)
	assert.Equal(t, "20:30", buckets[2].Label)
}

func TestHistogramClampsOutliers(t *testing.T) {
	buckets := Histogram([]float64{-500, -0.001, 29.999, 30, 1000}, 0, 30, 10)

	require.Len(t, buckets, 3)
	assert.Equal(t, 2, buckets[0].Count, "values below the range land in the first bucket")
	assert.Equal(t, 3, buckets[2].Count, "values at or above the range land in the last bucket")
}

func TestHistogramDegenerateRanges(t *testing.T) {
	assert.Empty(t, Histogram([]float64{1}, 0, 10, 0))
	assert.Empty(t, Histogram([]float64{1}, 10, 0, 5))
}

func TestDiffHistogramShape(t *testing.T) {
	buckets := DiffHistogram([]float64{-110, -105, 0, 50, 109.999, 110, 200})

	require.Len(t, buckets, 22)
	assert.InDelta(t, -110, buckets[0].Lo, 1e-9)
	assert.InDelta(t, 110, buckets[21].Hi, 1e-9)

	assert.Equal(t, 2, buckets[0].Count)
	assert.Equal(t, 1, buckets[11].Count, "zero lands in the [0, 10) bucket")
	assert.Equal(t, 3, buckets[21].Count, "top edge and beyond clamp into the last bucket")
}
