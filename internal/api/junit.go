package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"

	"github.com/rx3lixir/ci-analytics/internal/analytics"
	syncsvc "github.com/rx3lixir/ci-analytics/internal/sync"
)

const junitPrefix = "tasks_junit"

type junitComparisonRequest struct {
	Topic1ID                  string   `json:"topic_1_id"`
	Topic1StartDate           string   `json:"topic_1_start_date"`
	Topic1EndDate             string   `json:"topic_1_end_date"`
	Remoteci1ID               string   `json:"remoteci_1_id"`
	Topic1BaselineComputation string   `json:"topic_1_baseline_computation"`
	Tags1                     []string `json:"tags_1"`

	Topic2ID        string   `json:"topic_2_id"`
	Topic2StartDate string   `json:"topic_2_start_date"`
	Topic2EndDate   string   `json:"topic_2_end_date"`
	Remoteci2ID     string   `json:"remoteci_2_id"`
	Tags2           []string `json:"tags_2"`
}

type testComparison struct {
	Name   string  `json:"name"`
	Value1 float64 `json:"topic_1_value"`
	Value2 float64 `json:"topic_2_value"`
	Diff   float64 `json:"diff"`
}

type trendPoint struct {
	Date  string  `json:"date"`
	Value float64 `json:"percentile_95"`
}

type junitComparisonResponse struct {
	Tests     []testComparison   `json:"tests"`
	Histogram []analytics.Bucket `json:"histogram"`
	Trend     []trendPoint       `json:"trend"`
}

// handleJunitComparison serves POST /junit_topics_comparison: testcase
// timings of one (topic, remoteci, date range, tags) leg compared against a
// baseline computed over another. All validation happens before any store
// access.
func (s *Server) handleJunitComparison(w http.ResponseWriter, r *http.Request) {
	var req junitComparisonRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if err := s.validateComparison(&req); err != nil {
		badRequest(w, err.Error())
		return
	}

	alias, err := s.store.LatestAlias(r.Context(), junitPrefix)
	if err != nil {
		writeError(w, newAPIError(http.StatusInternalServerError, "failed to resolve junit index"))
		return
	}
	if alias == "" {
		writeError(w, newAPIError(http.StatusNotFound, "junit results have not been synchronized yet"))
		return
	}

	leg1, err := s.searchJunitSamples(r.Context(), alias, req.Topic1ID, req.Remoteci1ID, req.Topic1StartDate, req.Topic1EndDate, req.Tags1)
	if err != nil {
		s.logger.Error("junit baseline search failed", "error", err)
		writeError(w, newAPIError(http.StatusInternalServerError, "junit search failed"))
		return
	}
	leg2, err := s.searchJunitSamples(r.Context(), alias, req.Topic2ID, req.Remoteci2ID, req.Topic2StartDate, req.Topic2EndDate, req.Tags2)
	if err != nil {
		s.logger.Error("junit comparison search failed", "error", err)
		writeError(w, newAPIError(http.StatusInternalServerError, "junit search failed"))
		return
	}

	response, err := compareJunitLegs(leg1, leg2, req.Topic1BaselineComputation)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, response)
}

func (s *Server) validateComparison(req *junitComparisonRequest) error {
	if req.Topic1ID == "" || req.Topic2ID == "" {
		return fmt.Errorf("topic_1_id and topic_2_id are required")
	}
	if err := checkDateRange(req.Topic1StartDate, req.Topic1EndDate); err != nil {
		return fmt.Errorf("topic 1: %w", err)
	}
	if err := checkDateRange(req.Topic2StartDate, req.Topic2EndDate); err != nil {
		return fmt.Errorf("topic 2: %w", err)
	}
	switch req.Topic1BaselineComputation {
	case analytics.BaselineMean, analytics.BaselineMedian, analytics.BaselineLatest:
		return nil
	}
	return fmt.Errorf("unknown baseline computation %q", req.Topic1BaselineComputation)
}

func (s *Server) searchJunitSamples(ctx context.Context, index, topicID, remoteciID, start, end string, tags []string) ([]analytics.JobSample, error) {
	filters := []any{
		map[string]any{"term": map[string]any{"topic_id": topicID}},
		map[string]any{"range": map[string]any{"created_at": map[string]any{
			"gte": start,
			"lte": end + "T23:59:59",
		}}},
	}
	if remoteciID != "" {
		filters = append(filters, map[string]any{"term": map[string]any{"remoteci_id": remoteciID}})
	}
	for _, tag := range tags {
		filters = append(filters, map[string]any{"term": map[string]any{"tags": tag}})
	}

	body := map[string]any{
		"from":  0,
		"size":  10000,
		"query": map[string]any{"bool": map[string]any{"filter": filters}},
		"sort":  []any{map[string]any{"created_at": map[string]any{"order": "asc"}}},
	}

	result, err := s.store.SearchBody(ctx, index, body)
	if err != nil {
		return nil, err
	}

	samples := make([]analytics.JobSample, 0, len(result.Hits))
	for _, hit := range result.Hits {
		var doc syncsvc.JunitDocument
		if err := json.Unmarshal(hit.Source, &doc); err != nil {
			s.logger.Warn("skipping unreadable junit doc", "id", hit.ID)
			continue
		}
		samples = append(samples, analytics.JobSample{
			JobID:     doc.JobID,
			JobName:   doc.JobName,
			CreatedAt: doc.CreatedAt,
			Tests:     doc.Tests,
		})
	}
	return samples, nil
}

// compareJunitLegs reduces the first leg to a baseline and measures the
// second leg against it: per-test deviations, their distribution, and a
// per-job 95th percentile trend over time.
func compareJunitLegs(leg1, leg2 []analytics.JobSample, computation string) (*junitComparisonResponse, error) {
	baseline, err := analytics.NewDataset(leg1).Baseline(computation)
	if err != nil {
		return nil, err
	}
	target, err := analytics.NewDataset(leg2).Baseline(computation)
	if err != nil {
		return nil, err
	}

	diffs := analytics.PercentageDiffs(baseline, target)
	tests := make([]testComparison, 0, len(diffs))
	values := make([]float64, 0, len(diffs))
	for name, diff := range diffs {
		tests = append(tests, testComparison{
			Name:   name,
			Value1: baseline[name],
			Value2: target[name],
			Diff:   diff,
		})
		values = append(values, diff)
	}
	sort.Slice(tests, func(i, j int) bool { return tests[i].Name < tests[j].Name })

	sorted := make([]analytics.JobSample, len(leg2))
	copy(sorted, leg2)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].CreatedAt < sorted[j].CreatedAt })

	trend := make([]trendPoint, 0, len(sorted))
	for _, sample := range sorted {
		jobDiffs := analytics.PercentageDiffs(baseline, sample.Tests)
		if len(jobDiffs) == 0 {
			continue
		}
		jobValues := make([]float64, 0, len(jobDiffs))
		for _, v := range jobDiffs {
			jobValues = append(jobValues, v)
		}
		trend = append(trend, trendPoint{
			Date:  sample.CreatedAt,
			Value: analytics.Percentile(jobValues, 95),
		})
	}

	return &junitComparisonResponse{
		Tests:     tests,
		Histogram: analytics.DiffHistogram(values),
		Trend:     trend,
	}, nil
}
