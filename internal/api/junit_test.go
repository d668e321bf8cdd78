package api

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rx3lixir/ci-analytics/internal/analytics"
)

func TestCompareJunitLegs(t *testing.T) {
	leg1 := []analytics.JobSample{
		{JobID: "b1", CreatedAt: "2024-03-01T10:00:00.000000", Tests: map[string]float64{"suite/a": 2.0, "suite/b": 10.0}},
		{JobID: "b2", CreatedAt: "2024-03-02T10:00:00.000000", Tests: map[string]float64{"suite/a": 4.0, "suite/b": 10.0}},
	}
	leg2 := []analytics.JobSample{
		{JobID: "n1", CreatedAt: "2024-03-05T10:00:00.000000", Tests: map[string]float64{"suite/a": 6.0, "suite/c": 1.0}},
	}

	response, err := compareJunitLegs(leg1, leg2, analytics.BaselineMean)
	require.NoError(t, err)

	// Only suite/a exists on both sides: baseline 3.0 against 6.0.
	require.Len(t, response.Tests, 1)
	assert.Equal(t, "suite/a", response.Tests[0].Name)
	assert.InDelta(t, 3.0, response.Tests[0].Value1, 1e-9)
	assert.InDelta(t, 6.0, response.Tests[0].Value2, 1e-9)
	assert.InDelta(t, 100.0, response.Tests[0].Diff, 1e-9)

	require.Len(t, response.Histogram, 22)

	require.Len(t, response.Trend, 1)
	assert.Equal(t, "2024-03-05T10:00:00.000000", response.Trend[0].Date)
	assert.InDelta(t, 100.0, response.Trend[0].Value, 1e-9)
}

func TestCompareJunitLegsEmpty(t *testing.T) {
	response, err := compareJunitLegs(nil, nil, analytics.BaselineMedian)
	require.NoError(t, err)

	assert.Empty(t, response.Tests)
	assert.Empty(t, response.Trend)
	require.Len(t, response.Histogram, 22)
}
