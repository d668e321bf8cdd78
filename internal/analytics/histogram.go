package analytics

import "fmt"

// Bucket is one histogram bar: values in [Lo, Hi) land here.
type Bucket struct {
	Lo    float64 `json:"min"`
	Hi    float64 `json:"max"`
	Label string  `json:"label"`
	Count int     `json:"count"`
}

// Histogram buckets values into [lo, hi) ranges of the given width. Lower
// bounds are inclusive, upper bounds exclusive; values below lo count into
// the first bucket and values at or above hi into the last one, so outliers
// stay visible instead of vanishing.
func Histogram(values []float64, lo, hi, width float64) []Bucket {
	if width <= 0 || hi <= lo {
		return []Bucket{}
	}

	n := int((hi - lo) / width)
	buckets := make([]Bucket, n)
	for i := range buckets {
		buckets[i].Lo = lo + float64(i)*width
		buckets[i].Hi = buckets[i].Lo + width
		buckets[i].Label = fmt.Sprintf("%g:%g", buckets[i].Lo, buckets[i].Hi)
	}

	for _, v := range values {
		i := int((v - lo) / width)
		if v < lo {
			i = 0
		} else if i >= n {
			i = n - 1
		}
		buckets[i].Count++
	}
	return buckets
}

// DiffHistogram is the comparison endpoint's fixed bucketing of percentage
// deviations: [-110, 110) in steps of ten.
func DiffHistogram(values []float64) []Bucket {
	return Histogram(values, -110, 110, 10)
}
