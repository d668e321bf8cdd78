package api

import (
	"encoding/json"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/rx3lixir/ci-analytics/internal/denorm"
)

const (
	pipelinesPrefix = "pipelines_status"
	dateLayout      = "2006-01-02"
)

type pipelinesStatusRequest struct {
	StartDate      string   `json:"start_date"`
	EndDate        string   `json:"end_date"`
	TeamsIDs       []string `json:"teams_ids"`
	PipelinesNames []string `json:"pipelines_names"`
}

type testsTotals struct {
	Success  int `json:"success"`
	Failures int `json:"failures"`
	Errors   int `json:"errors"`
	Skips    int `json:"skips"`
	Total    int `json:"total"`
}

type pipelineJob struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	Status       string      `json:"status"`
	CreatedAt    string      `json:"created_at"`
	Components   []*string   `json:"components"`
	TestsResults testsTotals `json:"tests_results"`
}

type pipelineGroup struct {
	Name    string        `json:"name"`
	Headers []string      `json:"headers"`
	Jobs    []pipelineJob `json:"jobs"`
}

type pipelineDay struct {
	Date      string          `json:"date"`
	Pipelines []pipelineGroup `json:"pipelines"`
}

type pipelinesStatusResponse struct {
	Days []pipelineDay `json:"days"`
}

// handlePipelinesStatus serves POST /pipelines_status: terminal pipeline
// jobs of a date range grouped per day and pipeline, with component columns
// aligned against shared headers.
func (s *Server) handlePipelinesStatus(w http.ResponseWriter, r *http.Request) {
	var req pipelinesStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if err := checkDateRange(req.StartDate, req.EndDate); err != nil {
		badRequest(w, err.Error())
		return
	}

	alias, err := s.store.LatestAlias(r.Context(), pipelinesPrefix)
	if err != nil {
		writeError(w, newAPIError(http.StatusInternalServerError, "failed to resolve pipelines index"))
		return
	}
	if alias == "" {
		writeError(w, newAPIError(http.StatusNotFound, "pipelines have not been synchronized yet"))
		return
	}

	filters := []any{
		map[string]any{"range": map[string]any{"created_at": map[string]any{
			"gte": req.StartDate,
			"lte": req.EndDate + "T23:59:59",
		}}},
	}
	if len(req.TeamsIDs) > 0 {
		filters = append(filters, map[string]any{"terms": map[string]any{"team_id": req.TeamsIDs}})
	}
	if len(req.PipelinesNames) > 0 {
		filters = append(filters, map[string]any{"terms": map[string]any{"pipeline.name": req.PipelinesNames}})
	}

	body := map[string]any{
		"from":  0,
		"size":  10000,
		"query": map[string]any{"bool": map[string]any{"filter": filters}},
		"sort":  []any{map[string]any{"created_at": map[string]any{"order": "asc"}}},
	}

	result, err := s.store.SearchBody(r.Context(), alias, body)
	if err != nil {
		s.logger.Error("pipelines search failed", "error", err)
		writeError(w, newAPIError(http.StatusInternalServerError, "pipelines search failed"))
		return
	}

	jobs := make([]*denorm.Job, 0, len(result.Hits))
	for _, hit := range result.Hits {
		var job denorm.Job
		if err := json.Unmarshal(hit.Source, &job); err != nil {
			s.logger.Warn("skipping unreadable pipeline doc", "id", hit.ID)
			continue
		}
		jobs = append(jobs, &job)
	}

	writeJSON(w, http.StatusOK, pipelinesStatusResponse{Days: groupPipelineDays(jobs)})
}

// groupPipelineDays arranges jobs into day buckets, one group per pipeline
// name, and aligns every job's components against the group's headers.
func groupPipelineDays(jobs []*denorm.Job) []pipelineDay {
	type groupKey struct{ date, pipeline string }
	grouped := map[groupKey][]*denorm.Job{}

	for _, job := range jobs {
		if job.Pipeline == nil || len(job.CreatedAt) < len(dateLayout) {
			continue
		}
		key := groupKey{date: job.CreatedAt[:len(dateLayout)], pipeline: job.Pipeline.Name}
		grouped[key] = append(grouped[key], job)
	}

	byDate := map[string][]pipelineGroup{}
	for key, groupJobs := range grouped {
		headers := componentHeaders(groupJobs)

		group := pipelineGroup{Name: key.pipeline, Headers: headers, Jobs: []pipelineJob{}}
		for _, job := range groupJobs {
			names := make([]string, 0, len(job.Components))
			for _, component := range job.Components {
				names = append(names, component.Name)
			}
			group.Jobs = append(group.Jobs, pipelineJob{
				ID:           job.ID,
				Name:         job.Name,
				Status:       job.Status,
				CreatedAt:    job.CreatedAt,
				Components:   sortComponents(headers, names),
				TestsResults: computeTestsResults(job),
			})
		}
		byDate[key.date] = append(byDate[key.date], group)
	}

	days := make([]pipelineDay, 0, len(byDate))
	for date, groups := range byDate {
		sort.Slice(groups, func(i, j int) bool { return groups[i].Name < groups[j].Name })
		days = append(days, pipelineDay{Date: date, Pipelines: groups})
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Date < days[j].Date })
	return days
}

// componentHeaders collects the component column names of a job group, in
// first-seen order.
func componentHeaders(jobs []*denorm.Job) []string {
	headers := []string{}
	seen := map[string]bool{}
	for _, job := range jobs {
		for _, component := range job.Components {
			header := componentHeader(component.Name)
			if header != "" && !seen[header] {
				seen[header] = true
				headers = append(headers, header)
			}
		}
	}
	return headers
}

// componentHeader is the column a component sorts under: its name up to the
// first space, so versioned names like "OpenShift 4.14.1" share a column.
func componentHeader(name string) string {
	if i := strings.IndexByte(name, ' '); i > 0 {
		return name[:i]
	}
	return name
}

// sortComponents aligns component names against headers. The output always
// has one slot per header; a slot is nil when no unused component matches
// its header prefix.
func sortComponents(headers, components []string) []*string {
	out := make([]*string, len(headers))
	used := make([]bool, len(components))

	for i, header := range headers {
		for j := range components {
			if used[j] || !strings.HasPrefix(components[j], header) {
				continue
			}
			out[i] = &components[j]
			used[j] = true
			break
		}
	}
	return out
}

// computeTestsResults sums the job's test-result summaries.
func computeTestsResults(job *denorm.Job) testsTotals {
	totals := testsTotals{}
	for _, result := range job.Results {
		totals.Success += result.Success
		totals.Failures += result.Failures
		totals.Errors += result.Errors
		totals.Skips += result.Skips
		totals.Total += result.Total
	}
	return totals
}

// checkDateRange validates an inclusive day range before any data access.
func checkDateRange(start, end string) error {
	if start == "" || end == "" {
		return newAPIError(http.StatusBadRequest, "start_date and end_date are required")
	}
	startDay, err := time.Parse(dateLayout, start)
	if err != nil {
		return newAPIError(http.StatusBadRequest, "invalid start_date, expected YYYY-MM-DD")
	}
	endDay, err := time.Parse(dateLayout, end)
	if err != nil {
		return newAPIError(http.StatusBadRequest, "invalid end_date, expected YYYY-MM-DD")
	}
	if startDay.After(endDay) {
		return newAPIError(http.StatusBadRequest, "start_date is after end_date")
	}
	return nil
}
