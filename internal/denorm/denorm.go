// Package denorm turns flat prefixed-column rows from the extraction query
// into nested per-job documents. The same job id repeats across rows, one row
// per (jobstate x file x component) join combination; children are
// accumulated in first-seen order and deduplicated by id.
package denorm

import (
	"time"

	"github.com/google/uuid"

	"github.com/rx3lixir/ci-analytics/internal/db"
)

// Jobs denormalizes flat rows into job documents, one per distinct job id,
// in first-seen order. Rows whose job timestamps are null are malformed join
// placeholders and their job is dropped entirely. Empty input yields an empty
// slice.
func Jobs(rows []db.Row) []*Job {
	jobs := []*Job{}
	byID := map[string]*Job{}
	dropped := map[string]bool{}

	type childSets struct {
		jobstates  map[string]*Jobstate
		files      map[string]bool
		components map[string]bool
		results    map[string]bool
	}
	children := map[string]*childSets{}

	for _, row := range rows {
		id := stringField(row, "jobs", "id")
		if id == "" || dropped[id] {
			continue
		}

		job, ok := byID[id]
		if !ok {
			job = jobFromRow(row)
			if job == nil {
				dropped[id] = true
				continue
			}
			byID[id] = job
			children[id] = &childSets{
				jobstates:  map[string]*Jobstate{},
				files:      map[string]bool{},
				components: map[string]bool{},
				results:    map[string]bool{},
			}
			jobs = append(jobs, job)
		}
		cs := children[id]

		if c := componentFromRow(row); c != nil && !cs.components[c.ID] {
			cs.components[c.ID] = true
			job.Components = append(job.Components, c)
		}
		if r := resultFromRow(row); r != nil && !cs.results[r.ID] {
			cs.results[r.ID] = true
			job.Results = append(job.Results, r)
		}

		js := jobstateFromRow(row)
		if js == nil {
			continue
		}
		if existing, ok := cs.jobstates[js.ID]; ok {
			js = existing
		} else {
			cs.jobstates[js.ID] = js
			job.Jobstates = append(job.Jobstates, js)
		}
		if f := fileFromRow(row); f != nil && !cs.files[f.ID] {
			cs.files[f.ID] = true
			js.Files = append(js.Files, f)
		}
	}

	return jobs
}

// Components denormalizes flat component rows, deduplicated by id.
func Components(rows []db.Row) []*Component {
	res := []*Component{}
	seen := map[string]bool{}
	for _, row := range rows {
		c := componentFromRow(row)
		if c == nil || seen[c.ID] {
			continue
		}
		seen[c.ID] = true
		res = append(res, c)
	}
	return res
}

func jobFromRow(row db.Row) *Job {
	if isNull(row, "jobs", "created_at") || isNull(row, "jobs", "updated_at") {
		return nil
	}
	job := &Job{
		ID:         stringField(row, "jobs", "id"),
		Name:       stringField(row, "jobs", "name"),
		Status:     stringField(row, "jobs", "status"),
		State:      stringField(row, "jobs", "state"),
		CreatedAt:  timeField(row, "jobs", "created_at"),
		UpdatedAt:  timeField(row, "jobs", "updated_at"),
		TopicID:    stringField(row, "jobs", "topic_id"),
		RemoteCIID: stringField(row, "jobs", "remoteci_id"),
		TeamID:     stringField(row, "jobs", "team_id"),
		ProductID:  stringField(row, "jobs", "product_id"),
		PipelineID: stringField(row, "jobs", "pipeline_id"),
		Tags:       sliceField(row, "jobs", "tags"),
		Jobstates:  []*Jobstate{},
		Components: []*Component{},
		Results:    []*TestsResult{},
	}
	job.Pipeline = pipelineFromRow(row)
	return job
}

func pipelineFromRow(row db.Row) *Pipeline {
	if stringField(row, "pipelines", "id") == "" || isNull(row, "pipelines", "created_at") {
		return nil
	}
	return &Pipeline{
		ID:        stringField(row, "pipelines", "id"),
		Name:      stringField(row, "pipelines", "name"),
		CreatedAt: timeField(row, "pipelines", "created_at"),
	}
}

func jobstateFromRow(row db.Row) *Jobstate {
	if stringField(row, "jobstates", "id") == "" || isNull(row, "jobstates", "created_at") {
		return nil
	}
	return &Jobstate{
		ID:        stringField(row, "jobstates", "id"),
		Status:    stringField(row, "jobstates", "status"),
		CreatedAt: timeField(row, "jobstates", "created_at"),
		JobID:     stringField(row, "jobstates", "job_id"),
		Files:     []*File{},
	}
}

func fileFromRow(row db.Row) *File {
	if stringField(row, "files", "id") == "" || isNull(row, "files", "created_at") {
		return nil
	}
	return &File{
		ID:         stringField(row, "files", "id"),
		Name:       stringField(row, "files", "name"),
		State:      stringField(row, "files", "state"),
		Mime:       stringField(row, "files", "mime"),
		Size:       intField(row, "files", "size"),
		CreatedAt:  timeField(row, "files", "created_at"),
		JobstateID: stringField(row, "files", "jobstate_id"),
	}
}

func componentFromRow(row db.Row) *Component {
	if stringField(row, "components", "id") == "" || isNull(row, "components", "created_at") {
		return nil
	}
	return &Component{
		ID:                   stringField(row, "components", "id"),
		Name:                 stringField(row, "components", "name"),
		CanonicalProjectName: stringField(row, "components", "canonical_project_name"),
		Type:                 stringField(row, "components", "type"),
		Tags:                 sliceField(row, "components", "tags"),
		TeamID:               stringField(row, "components", "team_id"),
		TopicID:              stringField(row, "components", "topic_id"),
		CreatedAt:            timeField(row, "components", "created_at"),
		ReleasedAt:           timeField(row, "components", "released_at"),
	}
}

func resultFromRow(row db.Row) *TestsResult {
	if stringField(row, "results", "id") == "" {
		return nil
	}
	return &TestsResult{
		ID:        stringField(row, "results", "id"),
		Success:   int(intField(row, "results", "success")),
		Failures:  int(intField(row, "results", "failures")),
		Errors:    int(intField(row, "results", "errors")),
		Skips:     int(intField(row, "results", "skips")),
		Total:     int(intField(row, "results", "total")),
		CreatedAt: timeField(row, "results", "created_at"),
	}
}

func isNull(row db.Row, prefix, column string) bool {
	v, ok := row[prefix+"_"+column]
	return !ok || v == nil
}

func stringField(row db.Row, prefix, column string) string {
	switch v := row[prefix+"_"+column].(type) {
	case string:
		return v
	case [16]byte: // pgx returns uuid columns as raw bytes
		return uuid.UUID(v).String()
	default:
		return ""
	}
}

func timeField(row db.Row, prefix, column string) string {
	if t, ok := row[prefix+"_"+column].(time.Time); ok {
		return t.UTC().Format(TimeLayout)
	}
	return ""
}

func intField(row db.Row, prefix, column string) int64 {
	switch v := row[prefix+"_"+column].(type) {
	case int64:
		return v
	case int32:
		return int64(v)
	case int:
		return int64(v)
	default:
		return 0
	}
}

func sliceField(row db.Row, prefix, column string) []string {
	switch v := row[prefix+"_"+column].(type) {
	case []string:
		return v
	case []any:
		res := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				res = append(res, s)
			}
		}
		return res
	default:
		return []string{}
	}
}
