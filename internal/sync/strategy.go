package sync

import (
	"context"
	"encoding/json"

	"github.com/rx3lixir/ci-analytics/internal/db"
	"github.com/rx3lixir/ci-analytics/internal/denorm"
	"github.com/rx3lixir/ci-analytics/pkg/logger"
)

// DocStore is the document store surface the driver and strategies rely on.
// It is satisfied by the search client.
type DocStore interface {
	Get(ctx context.Context, index, id string) (json.RawMessage, bool, error)
	Push(ctx context.Context, index, id string, doc any) error
	Update(ctx context.Context, index, id string, partial any) error
	EnsureIndex(ctx context.Context, index string, body map[string]any) (bool, error)
	UpdateWatermark(ctx context.Context, index, firstSyncDate, lastSyncDate string) error
	LatestAlias(ctx context.Context, prefix string) (string, error)
	PublishAlias(ctx context.Context, prefix, index string) error
}

// Source is the relational page fetcher. It is satisfied by the postgres
// store.
type Source interface {
	JobsPage(ctx context.Context, offset, limit int, w db.Window, statuses []string) ([]db.Row, error)
	ComponentsPage(ctx context.Context, offset, limit int, w db.Window) ([]db.Row, error)
}

// FileFetcher downloads raw file contents from the control plane. It is
// satisfied by the artifacts client.
type FileFetcher interface {
	FileContent(ctx context.Context, fileID string) ([]byte, error)
}

// Run carries the per-run collaborators and the resolved target index into
// the strategy callbacks.
type Run struct {
	Kind   Kind
	Mode   Mode
	Index  string
	Window db.Window
	Store  DocStore
	Source Source
	Files  FileFetcher
	Log    logger.Logger
}

// Strategy is the per-kind transform. The driver walks job pages and hands
// each denormalized job to Process; everything else about the pass (index
// resolution, watermarks, alias publishing) is uniform.
type Strategy interface {
	Kind() Kind
	IndexPrefix() string
	Mapping() map[string]any
	PageSize() int
	Statuses() []string
	Window(mode Mode) db.Window
	Process(ctx context.Context, run *Run, job *denorm.Job) error
}

// beginner is implemented by strategies that need per-run setup before the
// page loop.
type beginner interface {
	Begin(ctx context.Context, run *Run) error
}

// finisher is implemented by strategies that need a pass after the page loop.
type finisher interface {
	Finish(ctx context.Context, run *Run) error
}

// fanOut is implemented by strategies whose Process does network fetches and
// may be dispatched across a bounded worker pool within a page.
type fanOut interface {
	Concurrency() int
}

// Strategies is the static registry of kind constructors. A fresh strategy
// value is built for every run so per-run state never leaks across passes.
func Strategies() map[Kind]func() Strategy {
	return map[Kind]func() Strategy{
		KindJobs:      func() Strategy { return newJobsStrategy() },
		KindPipelines: func() Strategy { return newPipelinesStrategy() },
		KindJunit:     func() Strategy { return newJunitStrategy() },
		KindDuration:  func() Strategy { return newDurationStrategy() },
		KindCoverage:  func() Strategy { return newCoverageStrategy() },
	}
}

// keywordMapping is the shared index body: every unmapped string becomes a
// keyword so aggregations and exact filters work without per-field setup.
func keywordMapping() map[string]any {
	return map[string]any{
		"mappings": map[string]any{
			"dynamic_templates": []any{
				map[string]any{
					"strings_as_keywords": map[string]any{
						"match_mapping_type": "string",
						"mapping": map[string]any{
							"type": "keyword",
						},
					},
				},
			},
		},
	}
}
