package sync

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rx3lixir/ci-analytics/internal/db"
	"github.com/rx3lixir/ci-analytics/internal/denorm"
)

// Task is one ordered unit of work inside a job, taken from a file
// attachment.
type Task struct {
	Name      string
	CreatedAt time.Time
}

// TaskDuration is one cumulated wall-clock entry of the duration document.
type TaskDuration struct {
	Name      string  `json:"name"`
	Duration  float64 `json:"duration"`
	CreatedAt string  `json:"created_at"`
}

// CumulatedDurations computes per-task wall-clock deltas to the next task and
// returns the running cumulative sum in seconds. A sequence of N tasks yields
// N-1 entries, a single task yields one zero entry and an empty sequence
// yields an empty result.
func CumulatedDurations(tasks []Task) []TaskDuration {
	if len(tasks) == 0 {
		return []TaskDuration{}
	}
	if len(tasks) == 1 {
		return []TaskDuration{{
			Name:      tasks[0].Name,
			Duration:  0,
			CreatedAt: tasks[0].CreatedAt.UTC().Format(denorm.TimeLayout),
		}}
	}

	out := make([]TaskDuration, 0, len(tasks)-1)
	cumulated := 0.0
	for i := 0; i < len(tasks)-1; i++ {
		cumulated += tasks[i+1].CreatedAt.Sub(tasks[i].CreatedAt).Seconds()
		out = append(out, TaskDuration{
			Name:      tasks[i].Name,
			Duration:  cumulated,
			CreatedAt: tasks[i].CreatedAt.UTC().Format(denorm.TimeLayout),
		})
	}
	return out
}

// durationDocument is the per-job cumulated task timing document.
type durationDocument struct {
	JobID      string         `json:"job_id"`
	JobName    string         `json:"job_name"`
	CreatedAt  string         `json:"created_at"`
	TopicID    string         `json:"topic_id"`
	RemoteCIID string         `json:"remoteci_id"`
	TeamID     string         `json:"team_id"`
	Tags       []string       `json:"tags"`
	Tasks      []TaskDuration `json:"tasks"`
}

type durationStrategy struct{}

func newDurationStrategy() *durationStrategy { return &durationStrategy{} }

func (s *durationStrategy) Kind() Kind              { return KindDuration }
func (s *durationStrategy) IndexPrefix() string     { return "tasks_duration_cumulated" }
func (s *durationStrategy) Mapping() map[string]any { return keywordMapping() }
func (s *durationStrategy) PageSize() int           { return 100 }
func (s *durationStrategy) Statuses() []string      { return []string{"success", "failure"} }

func (s *durationStrategy) Window(mode Mode) db.Window {
	if mode == ModeFull {
		return db.Months(6)
	}
	return db.Hours(6)
}

func (s *durationStrategy) Process(ctx context.Context, run *Run, job *denorm.Job) error {
	doc := durationDocument{
		JobID:      job.ID,
		JobName:    job.Name,
		CreatedAt:  job.CreatedAt,
		TopicID:    job.TopicID,
		RemoteCIID: job.RemoteCIID,
		TeamID:     job.TeamID,
		Tags:       job.Tags,
		Tasks:      CumulatedDurations(jobTasks(job)),
	}

	_, found, err := run.Store.Get(ctx, run.Index, job.ID)
	if err != nil {
		return fmt.Errorf("failed to probe duration doc %s: %w", job.ID, err)
	}
	if found {
		return run.Store.Update(ctx, run.Index, job.ID, doc)
	}
	return run.Store.Push(ctx, run.Index, job.ID, doc)
}

// jobTasks flattens a job's file attachments into one ordered task sequence,
// sorting files by creation time within each jobstate. Files with an
// unreadable timestamp are dropped.
func jobTasks(job *denorm.Job) []Task {
	tasks := []Task{}
	for _, jobstate := range job.Jobstates {
		files := make([]*denorm.File, len(jobstate.Files))
		copy(files, jobstate.Files)
		sort.SliceStable(files, func(i, j int) bool {
			return files[i].CreatedAt < files[j].CreatedAt
		})
		for _, file := range files {
			createdAt, err := time.Parse(denorm.TimeLayout, file.CreatedAt)
			if err != nil {
				continue
			}
			tasks = append(tasks, Task{Name: file.Name, CreatedAt: createdAt})
		}
	}
	return tasks
}
