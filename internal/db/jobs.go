package db

import (
	"context"
	"fmt"
	"strings"
)

// Column sets for the page query. The extraction query aliases every column
// with its table name prefix so the denormalizer can split each flat row back
// into its entities.
var (
	jobsColumns = []string{
		"id", "name", "status", "state", "created_at", "updated_at",
		"topic_id", "remoteci_id", "team_id", "product_id", "pipeline_id", "tags",
	}
	pipelinesColumns = []string{"id", "name", "created_at"}
	jobstatesColumns = []string{"id", "status", "created_at", "job_id"}
	filesColumns     = []string{"id", "name", "state", "mime", "size", "created_at", "jobstate_id"}
	componentsColumns = []string{
		"id", "name", "canonical_project_name", "type", "tags",
		"team_id", "topic_id", "created_at", "released_at",
	}
	resultsColumns = []string{"id", "success", "failures", "errors", "skips", "total", "created_at"}
)

// terminalStatuses is the default status filter for extraction.
var terminalStatuses = []string{"success", "failure"}

func aliased(table string, columns []string) string {
	parts := make([]string, 0, len(columns))
	for _, c := range columns {
		parts = append(parts, fmt.Sprintf("%s.%s AS %s_%s", table, c, table, c))
	}
	return strings.Join(parts, ", ")
}

// JobsPage fetches one page of flat job rows created within the window,
// ordered by jobstate then file creation time so denormalization is
// deterministic. Only active jobs in a terminal status are selected; statuses
// narrows the status filter when non-empty (e.g. success only).
//
// An empty result means the window is exhausted; any query error is returned
// as-is and must be treated as fatal by the caller, never as an empty page.
func (s *PostgresStore) JobsPage(ctx context.Context, offset, limit int, w Window, statuses []string) ([]Row, error) {
	if offset < 0 {
		return nil, fmt.Errorf("invalid offset %d", offset)
	}
	if limit <= 0 {
		return nil, fmt.Errorf("invalid limit %d", limit)
	}
	if err := w.Validate(); err != nil {
		return nil, err
	}
	if len(statuses) == 0 {
		statuses = terminalStatuses
	}

	query := fmt.Sprintf(`
		SELECT %s, %s, %s, %s, %s, %s
		FROM (
			SELECT %s
			FROM jobs
			WHERE jobs.state = 'active'
			  AND jobs.created_at > (current_timestamp - %s)
			  AND jobs.status = ANY($1)
			ORDER BY jobs.created_at ASC
			LIMIT $2 OFFSET $3
		) AS jobs
		LEFT OUTER JOIN pipelines ON pipelines.id = jobs_pipeline_id
		LEFT OUTER JOIN jobstates ON jobstates.job_id = jobs_id
		LEFT OUTER JOIN files ON files.jobstate_id = jobstates.id
		LEFT OUTER JOIN jobs_components ON jobs_components.job_id = jobs_id
		LEFT OUTER JOIN components ON components.id = jobs_components.component_id
		LEFT OUTER JOIN tests_results ON tests_results.job_id = jobs_id
		ORDER BY jobs_created_at ASC, jobstates.created_at ASC, files.created_at ASC`,
		prefixedSelect("jobs", jobsColumns),
		aliased("pipelines", pipelinesColumns),
		aliased("jobstates", jobstatesColumns),
		aliased("files", filesColumns),
		aliased("components", componentsColumns),
		aliasedAs("tests_results", "results", resultsColumns),
		aliased("jobs", jobsColumns),
		w.interval(),
	)

	rows, err := s.db.Query(ctx, query, statuses, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query jobs page: %w", err)
	}

	res, err := collectRows(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan jobs page: %w", err)
	}
	return res, nil
}

// prefixedSelect selects already-aliased subquery columns by their final name.
func prefixedSelect(prefix string, columns []string) string {
	parts := make([]string, 0, len(columns))
	for _, c := range columns {
		parts = append(parts, fmt.Sprintf("%s_%s", prefix, c))
	}
	return strings.Join(parts, ", ")
}

// aliasedAs aliases table columns under a different prefix.
func aliasedAs(table, prefix string, columns []string) string {
	parts := make([]string, 0, len(columns))
	for _, c := range columns {
		parts = append(parts, fmt.Sprintf("%s.%s AS %s_%s", table, c, prefix, c))
	}
	return strings.Join(parts, ", ")
}
