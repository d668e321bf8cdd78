package api

import (
	"encoding/json"
	"net/http"
	"strconv"
)

const jobsPrefix = "jobs"

type jobsResponse struct {
	Jobs  []json.RawMessage `json:"jobs"`
	Total int64             `json:"total"`
}

// handleJobs serves GET /jobs: a team-scoped search over the latest jobs
// index. Jobstates are excluded from the returned documents to keep payloads
// reasonable.
func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	teamID := r.URL.Query().Get("team_id")
	if teamID == "" {
		badRequest(w, "team_id is required")
		return
	}

	offset := intQueryParam(r, "offset", 0)
	limit := intQueryParam(r, "limit", 20)
	if offset < 0 || limit <= 0 || limit > 200 {
		badRequest(w, "invalid offset or limit")
		return
	}

	alias, err := s.store.LatestAlias(r.Context(), jobsPrefix)
	if err != nil {
		writeError(w, newAPIError(http.StatusInternalServerError, "failed to resolve jobs index"))
		return
	}
	if alias == "" {
		writeError(w, newAPIError(http.StatusNotFound, "jobs have not been synchronized yet"))
		return
	}

	filters := []any{
		map[string]any{"term": map[string]any{"team_id": teamID}},
	}
	if query := r.URL.Query().Get("query"); query != "" {
		filters = append(filters, map[string]any{
			"query_string": map[string]any{"query": query},
		})
	}

	body := map[string]any{
		"from":    offset,
		"size":    limit,
		"query":   map[string]any{"bool": map[string]any{"filter": filters}},
		"_source": map[string]any{"excludes": []string{"jobstates"}},
		"sort":    []any{map[string]any{"created_at": map[string]any{"order": "desc"}}},
	}

	result, err := s.store.SearchBody(r.Context(), alias, body)
	if err != nil {
		s.logger.Error("jobs search failed", "error", err)
		writeError(w, newAPIError(http.StatusInternalServerError, "jobs search failed"))
		return
	}

	response := jobsResponse{Jobs: []json.RawMessage{}, Total: result.Total}
	for _, hit := range result.Hits {
		response.Jobs = append(response.Jobs, hit.Source)
	}
	writeJSON(w, http.StatusOK, response)
}

func intQueryParam(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return -1
	}
	return value
}
