package api

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rx3lixir/ci-analytics/internal/denorm"
)

func TestSortComponentsAlignment(t *testing.T) {
	headers := []string{"OpenShift", "storage-plugin", "kernel"}
	components := []string{"kernel 5.14", "OpenShift 4.14.1"}

	out := sortComponents(headers, components)

	require.Len(t, out, len(headers), "one slot per header")
	require.NotNil(t, out[0])
	assert.Equal(t, "OpenShift 4.14.1", *out[0])
	assert.Nil(t, out[1], "no component for storage-plugin")
	require.NotNil(t, out[2])
	assert.Equal(t, "kernel 5.14", *out[2])
}

func TestSortComponentsProperties(t *testing.T) {
	cases := []struct {
		headers    []string
		components []string
	}{
		{nil, nil},
		{[]string{"a"}, nil},
		{nil, []string{"a 1"}},
		{[]string{"a", "b", "c"}, []string{"c 3", "a 1"}},
		{[]string{"a", "a"}, []string{"a 1", "a 2", "a 3"}},
	}

	for _, tc := range cases {
		out := sortComponents(tc.headers, tc.components)
		assert.Len(t, out, len(tc.headers))

		matched := 0
		for i, slot := range out {
			if slot == nil {
				continue
			}
			matched++
			assert.True(t, strings.HasPrefix(*slot, tc.headers[i]),
				"aligned component %q must carry its header %q", *slot, tc.headers[i])
		}
		assert.LessOrEqual(t, matched, len(tc.components))
	}
}

func TestSortComponentsNeverReusesAComponent(t *testing.T) {
	out := sortComponents([]string{"a", "a"}, []string{"a 1"})

	require.Len(t, out, 2)
	require.NotNil(t, out[0])
	assert.Equal(t, "a 1", *out[0])
	assert.Nil(t, out[1])
}

func TestComponentHeader(t *testing.T) {
	assert.Equal(t, "OpenShift", componentHeader("OpenShift 4.14.1"))
	assert.Equal(t, "standalone", componentHeader("standalone"))
	assert.Equal(t, "", componentHeader(""))
}

func TestComputeTestsResults(t *testing.T) {
	job := &denorm.Job{Results: []*denorm.TestsResult{
		{Success: 10, Failures: 1, Errors: 0, Skips: 2, Total: 13},
		{Success: 5, Failures: 0, Errors: 1, Skips: 0, Total: 6},
	}}

	totals := computeTestsResults(job)
	assert.Equal(t, testsTotals{Success: 15, Failures: 1, Errors: 1, Skips: 2, Total: 19}, totals)
}

func TestCheckDateRange(t *testing.T) {
	assert.NoError(t, checkDateRange("2024-03-01", "2024-03-10"))
	assert.NoError(t, checkDateRange("2024-03-01", "2024-03-01"))

	assert.Error(t, checkDateRange("", "2024-03-10"))
	assert.Error(t, checkDateRange("2024-03-01", ""))
	assert.Error(t, checkDateRange("03/01/2024", "2024-03-10"))
	assert.Error(t, checkDateRange("2024-03-10", "2024-03-01"), "start after end")
}

func TestGroupPipelineDays(t *testing.T) {
	pipeline := &denorm.Pipeline{ID: "p1", Name: "nightly"}
	jobs := []*denorm.Job{
		{
			ID: "j1", Name: "install", Status: "success",
			CreatedAt: "2024-03-01T10:00:00.000000",
			Pipeline:  pipeline,
			Components: []*denorm.Component{
				{ID: "c1", Name: "OpenShift 4.14.1"},
			},
		},
		{
			ID: "j2", Name: "upgrade", Status: "failure",
			CreatedAt: "2024-03-01T11:00:00.000000",
			Pipeline:  pipeline,
			Components: []*denorm.Component{
				{ID: "c2", Name: "OpenShift 4.14.2"},
				{ID: "c3", Name: "kernel 5.14"},
			},
		},
		{
			ID: "j3", Name: "install", Status: "success",
			CreatedAt: "2024-03-02T10:00:00.000000",
			Pipeline:  pipeline,
		},
	}

	days := groupPipelineDays(jobs)

	require.Len(t, days, 2)
	assert.Equal(t, "2024-03-01", days[0].Date)
	assert.Equal(t, "2024-03-02", days[1].Date)

	require.Len(t, days[0].Pipelines, 1)
	group := days[0].Pipelines[0]
	assert.Equal(t, "nightly", group.Name)
	assert.Equal(t, []string{"OpenShift", "kernel"}, group.Headers)
	require.Len(t, group.Jobs, 2)

	first := group.Jobs[0]
	require.Len(t, first.Components, 2)
	require.NotNil(t, first.Components[0])
	assert.Equal(t, "OpenShift 4.14.1", *first.Components[0])
	assert.Nil(t, first.Components[1])
}

func TestGroupPipelineDaysSkipsJobsWithoutPipeline(t *testing.T) {
	days := groupPipelineDays([]*denorm.Job{
		{ID: "j1", CreatedAt: "2024-03-01T10:00:00.000000"},
	})
	assert.Empty(t, days)
}
