package sync

import (
	"bytes"
	"context"
	"fmt"

	"github.com/rx3lixir/ci-analytics/internal/db"
	"github.com/rx3lixir/ci-analytics/internal/denorm"
	"github.com/rx3lixir/ci-analytics/internal/junit"
)

// JunitDocument is the flat per-job test timing document the comparison
// endpoint reads. Tests maps "classname/name" to a duration in seconds.
type JunitDocument struct {
	JobID      string             `json:"job_id"`
	JobName    string             `json:"job_name"`
	CreatedAt  string             `json:"created_at"`
	TopicID    string             `json:"topic_id"`
	RemoteCIID string             `json:"remoteci_id"`
	TeamID     string             `json:"team_id"`
	Tags       []string           `json:"tags"`
	Tests      map[string]float64 `json:"tests"`
}

type junitStrategy struct{}

func newJunitStrategy() *junitStrategy { return &junitStrategy{} }

func (s *junitStrategy) Kind() Kind              { return KindJunit }
func (s *junitStrategy) IndexPrefix() string     { return "tasks_junit" }
func (s *junitStrategy) Mapping() map[string]any { return keywordMapping() }
func (s *junitStrategy) PageSize() int           { return 10 }
func (s *junitStrategy) Statuses() []string      { return []string{"success"} }
func (s *junitStrategy) Concurrency() int        { return 4 }

func (s *junitStrategy) Window(mode Mode) db.Window {
	if mode == ModeFull {
		return db.Months(6)
	}
	return db.Hours(6)
}

// Process flattens every junit report of a successful job into one timing
// document. A job already present in the index is left untouched so its
// reports are never fetched twice.
func (s *junitStrategy) Process(ctx context.Context, run *Run, job *denorm.Job) error {
	_, found, err := run.Store.Get(ctx, run.Index, job.ID)
	if err != nil {
		return fmt.Errorf("failed to probe junit doc %s: %w", job.ID, err)
	}
	if found {
		return nil
	}

	tests := map[string]float64{}
	for _, file := range junitFiles(job) {
		content, err := run.Files.FileContent(ctx, file.ID)
		if err != nil {
			run.Log.Error("failed to fetch junit file", "job_id", job.ID, "file_id", file.ID, "error", err)
			continue
		}
		times, err := junit.FlattenCaseTimes(bytes.NewReader(content))
		if err != nil {
			run.Log.Error("failed to parse junit file", "job_id", job.ID, "file_id", file.ID, "error", err)
		}
		for key, seconds := range times {
			tests[key] = seconds
		}
	}

	doc := JunitDocument{
		JobID:      job.ID,
		JobName:    job.Name,
		CreatedAt:  job.CreatedAt,
		TopicID:    job.TopicID,
		RemoteCIID: job.RemoteCIID,
		TeamID:     job.TeamID,
		Tags:       job.Tags,
		Tests:      tests,
	}
	return run.Store.Push(ctx, run.Index, job.ID, doc)
}
