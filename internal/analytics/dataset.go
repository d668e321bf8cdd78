// Package analytics holds the pure computations behind the comparison and
// dashboard endpoints.
package analytics

import (
	"fmt"
	"sort"
)

// Baseline selection over a set of job samples.
const (
	BaselineMean   = "mean"
	BaselineMedian = "median"
	BaselineLatest = "latest"
)

// JobSample is one job's flat testcase timings.
type JobSample struct {
	JobID     string
	JobName   string
	CreatedAt string
	Tests     map[string]float64
}

// Dataset is a set of job samples treated as a jobs-by-testcases matrix.
type Dataset struct {
	samples []JobSample
}

// NewDataset builds a dataset; sample order is preserved.
func NewDataset(samples []JobSample) *Dataset {
	return &Dataset{samples: samples}
}

// Empty reports whether the dataset holds no samples.
func (d *Dataset) Empty() bool { return len(d.samples) == 0 }

// Samples returns the underlying job samples.
func (d *Dataset) Samples() []JobSample { return d.samples }

// TestNames returns the sorted union of testcase names across all samples.
func (d *Dataset) TestNames() []string {
	seen := map[string]bool{}
	for _, sample := range d.samples {
		for name := range sample.Tests {
			seen[name] = true
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Baseline reduces the dataset to one value per testcase. Missing values are
// left out of the reduction rather than treated as zero.
func (d *Dataset) Baseline(kind string) (map[string]float64, error) {
	switch kind {
	case BaselineMean:
		return d.reduce(mean), nil
	case BaselineMedian:
		return d.reduce(median), nil
	case BaselineLatest:
		return d.latest(), nil
	}
	return nil, fmt.Errorf("unknown baseline computation %q", kind)
}

func (d *Dataset) reduce(fn func([]float64) float64) map[string]float64 {
	baseline := map[string]float64{}
	for _, name := range d.TestNames() {
		values := []float64{}
		for _, sample := range d.samples {
			if v, ok := sample.Tests[name]; ok {
				values = append(values, v)
			}
		}
		if len(values) > 0 {
			baseline[name] = fn(values)
		}
	}
	return baseline
}

func (d *Dataset) latest() map[string]float64 {
	if len(d.samples) == 0 {
		return map[string]float64{}
	}
	latest := d.samples[0]
	for _, sample := range d.samples[1:] {
		if sample.CreatedAt > latest.CreatedAt {
			latest = sample
		}
	}
	baseline := make(map[string]float64, len(latest.Tests))
	for name, value := range latest.Tests {
		baseline[name] = value
	}
	return baseline
}

// PercentageDiffs compares testcase timings against a baseline, in percent.
// Only testcases present on both sides contribute; a zero baseline value is
// replaced with one so the division stays defined.
func PercentageDiffs(baseline, tests map[string]float64) map[string]float64 {
	diffs := map[string]float64{}
	for name, value := range tests {
		base, ok := baseline[name]
		if !ok {
			continue
		}
		if base == 0 {
			base = 1
		}
		diffs[name] = (value - base) / base * 100
	}
	return diffs
}

func mean(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func median(values []float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// Percentile returns the p-th percentile of values using linear
// interpolation between closest ranks. An empty input yields zero.
func Percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	if p <= 0 {
		return sorted[0]
	}
	if p >= 100 {
		return sorted[len(sorted)-1]
	}

	rank := p / 100 * float64(len(sorted)-1)
	lower := int(rank)
	frac := rank - float64(lower)
	if lower+1 >= len(sorted) {
		return sorted[lower]
	}
	return sorted[lower] + frac*(sorted[lower+1]-sorted[lower])
}
