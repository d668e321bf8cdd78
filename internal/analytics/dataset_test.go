package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDataset() *Dataset {
	return NewDataset([]JobSample{
		{
			JobID:     "j1",
			CreatedAt: "2024-03-01T10:00:00.000000",
			Tests:     map[string]float64{"suite/a": 1.0, "suite/b": 10.0},
		},
		{
			JobID:     "j2",
			CreatedAt: "2024-03-02T10:00:00.000000",
			Tests:     map[string]float64{"suite/a": 3.0, "suite/b": 20.0, "suite/c": 5.0},
		},
		{
			JobID:     "j3",
			CreatedAt: "2024-03-03T10:00:00.000000",
			Tests:     map[string]float64{"suite/a": 2.0},
		},
	})
}

func TestTestNames(t *testing.T) {
	assert.Equal(t, []string{"suite/a", "suite/b", "suite/c"}, sampleDataset().TestNames())
}

func TestBaselineMean(t *testing.T) {
	baseline, err := sampleDataset().Baseline(BaselineMean)
	require.NoError(t, err)

	assert.InDelta(t, 2.0, baseline["suite/a"], 1e-9)
	// Missing values are dropped from the reduction, not counted as zero.
	assert.InDelta(t, 15.0, baseline["suite/b"], 1e-9)
	assert.InDelta(t, 5.0, baseline["suite/c"], 1e-9)
}

func TestBaselineMedian(t *testing.T) {
	baseline, err := sampleDataset().Baseline(BaselineMedian)
	require.NoError(t, err)

	assert.InDelta(t, 2.0, baseline["suite/a"], 1e-9)
	assert.InDelta(t, 15.0, baseline["suite/b"], 1e-9)
}

func TestBaselineLatest(t *testing.T) {
	baseline, err := sampleDataset().Baseline(BaselineLatest)
	require.NoError(t, err)

	// j3 is the newest sample and only carries suite/a.
	assert.Equal(t, map[string]float64{"suite/a": 2.0}, baseline)
}

func TestBaselineUnknownKind(t *testing.T) {
	_, err := sampleDataset().Baseline("mode")
	assert.Error(t, err)
}

func TestPercentageDiffs(t *testing.T) {
	baseline := map[string]float64{"suite/a": 2.0, "suite/b": 0.0, "suite/d": 4.0}
	tests := map[string]float64{"suite/a": 3.0, "suite/b": 5.0, "suite/c": 1.0}

	diffs := PercentageDiffs(baseline, tests)

	assert.InDelta(t, 50.0, diffs["suite/a"], 1e-9)
	// Zero baselines are replaced with one to keep the division defined.
	assert.InDelta(t, 400.0, diffs["suite/b"], 1e-9)
	// Only testcases present on both sides contribute.
	assert.NotContains(t, diffs, "suite/c")
	assert.NotContains(t, diffs, "suite/d")
}

func TestPercentile(t *testing.T) {
	values := []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100}

	assert.InDelta(t, 10, Percentile(values, 0), 1e-9)
	assert.InDelta(t, 100, Percentile(values, 100), 1e-9)
	assert.InDelta(t, 55, Percentile(values, 50), 1e-9)
	assert.InDelta(t, 95.5, Percentile(values, 95), 1e-9)
	assert.Zero(t, Percentile(nil, 95))
}
