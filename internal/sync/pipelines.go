package sync

import (
	"context"
	"fmt"

	"github.com/rx3lixir/ci-analytics/internal/db"
	"github.com/rx3lixir/ci-analytics/internal/denorm"
)

type pipelinesStrategy struct{}

func newPipelinesStrategy() *pipelinesStrategy { return &pipelinesStrategy{} }

func (s *pipelinesStrategy) Kind() Kind              { return KindPipelines }
func (s *pipelinesStrategy) IndexPrefix() string     { return "pipelines_status" }
func (s *pipelinesStrategy) Mapping() map[string]any { return keywordMapping() }
func (s *pipelinesStrategy) PageSize() int           { return 100 }
func (s *pipelinesStrategy) Statuses() []string      { return []string{"success", "failure"} }

func (s *pipelinesStrategy) Window(mode Mode) db.Window {
	if mode == ModeFull {
		return db.Months(6)
	}
	return db.Hours(6)
}

// Process indexes one document per (pipeline, job name) pair, keeping only
// the most recent terminal job for that pair. Jobs without a pipeline are
// skipped, not errors.
func (s *pipelinesStrategy) Process(ctx context.Context, run *Run, job *denorm.Job) error {
	if job.PipelineID == "" || job.Pipeline == nil {
		return nil
	}
	if !isTerminal(job.Status) {
		return nil
	}

	key := PipelineDocKey(job.PipelineID, job.Name)

	_, found, err := run.Store.Get(ctx, run.Index, key)
	if err != nil {
		return fmt.Errorf("failed to probe pipeline doc %s: %w", key, err)
	}
	if found {
		return run.Store.Update(ctx, run.Index, key, job)
	}
	return run.Store.Push(ctx, run.Index, key, job)
}

// PipelineDocKey builds the storage key for a pipeline status document.
func PipelineDocKey(pipelineID, jobName string) string {
	return fmt.Sprintf("%s-%s", pipelineID, jobName)
}

func isTerminal(status string) bool {
	return status == "success" || status == "failure"
}
