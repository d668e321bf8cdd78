package sync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/rx3lixir/ci-analytics/internal/artifacts"
	"github.com/rx3lixir/ci-analytics/internal/db"
	"github.com/rx3lixir/ci-analytics/internal/denorm"
	"github.com/rx3lixir/ci-analytics/internal/junit"
)

const (
	junitMime = "application/junit"
	extraMime = "application/dci-analytics+json"

	// cacheJunitIndex stores parsed junit trees keyed by job id so a later
	// pass over an unchanged job does not re-fetch and re-parse its reports.
	cacheJunitIndex = "jobs_cache_junit"
)

// jobDocument is the full denormalized job as indexed, enriched with parsed
// junit trees and ad-hoc analytics payloads.
type jobDocument struct {
	*denorm.Job
	Tests []junit.TestSuite `json:"tests"`
	Extra map[string]any    `json:"extra,omitempty"`
}

type junitCacheDocument struct {
	JobID string            `json:"job_id"`
	Tests []junit.TestSuite `json:"tests"`
}

type jobsStrategy struct{}

func newJobsStrategy() *jobsStrategy { return &jobsStrategy{} }

func (s *jobsStrategy) Kind() Kind          { return KindJobs }
func (s *jobsStrategy) IndexPrefix() string { return "jobs" }
func (s *jobsStrategy) PageSize() int       { return 100 }
func (s *jobsStrategy) Statuses() []string  { return []string{"success", "failure"} }
func (s *jobsStrategy) Concurrency() int    { return 4 }

// Mapping types every object-valued field of the job document as nested, so
// queries can match a single jobstate, component or testcase instead of the
// flattened union. Junit trees and extra payloads blow past the default
// nested/field limits, hence the raised ones.
func (s *jobsStrategy) Mapping() map[string]any {
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
				map[string]any{
					"extra_to_nested": map[string]any{
						"path_match":         "extra.*",
						"match_mapping_type": "object",
						"mapping": map[string]any{
							"type": "nested",
						},
					},
				},
			},
			"properties": map[string]any{
				"pipeline":   map[string]any{"type": "nested"},
				"jobstates":  map[string]any{"type": "nested"},
				"components": map[string]any{"type": "nested"},
				"results":    map[string]any{"type": "nested"},
				"tests": map[string]any{
					"type": "nested",
					"properties": map[string]any{
						"testcases":  map[string]any{"type": "nested"},
						"properties": map[string]any{"type": "nested"},
					},
				},
				"extra": map[string]any{"type": "nested"},
			},
		},
		"settings": map[string]any{
			"index.mapping.nested_objects.limit": 300000,
			"index.mapping.total_fields.limit":   20000,
		},
	}
}

func (s *jobsStrategy) Window(mode Mode) db.Window {
	if mode == ModeFull {
		return db.Months(6)
	}
	return db.Hours(6)
}

func (s *jobsStrategy) Begin(ctx context.Context, run *Run) error {
	if _, err := run.Store.EnsureIndex(ctx, cacheJunitIndex, keywordMapping()); err != nil {
		return fmt.Errorf("failed to ensure junit cache index: %w", err)
	}
	return nil
}

func (s *jobsStrategy) Process(ctx context.Context, run *Run, job *denorm.Job) error {
	tests, err := s.testSuites(ctx, run, job)
	if err != nil {
		return err
	}
	extra, err := s.extraData(ctx, run, job)
	if err != nil {
		return err
	}

	doc := jobDocument{Job: job, Tests: tests, Extra: extra}

	_, found, err := run.Store.Get(ctx, run.Index, job.ID)
	if err != nil {
		return fmt.Errorf("failed to probe job %s: %w", job.ID, err)
	}
	if found {
		return run.Store.Update(ctx, run.Index, job.ID, doc)
	}
	return run.Store.Push(ctx, run.Index, job.ID, doc)
}

// testSuites returns the job's parsed junit trees, served from the cache
// index when the job was already parsed by an earlier pass.
func (s *jobsStrategy) testSuites(ctx context.Context, run *Run, job *denorm.Job) ([]junit.TestSuite, error) {
	cached, found, err := run.Store.Get(ctx, cacheJunitIndex, job.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to probe junit cache for job %s: %w", job.ID, err)
	}
	if found {
		var doc junitCacheDocument
		if err := json.Unmarshal(cached, &doc); err == nil {
			return doc.Tests, nil
		}
		run.Log.Warn("discarding unreadable junit cache entry", "job_id", job.ID)
	}

	suites := []junit.TestSuite{}
	for _, file := range junitFiles(job) {
		content, err := run.Files.FileContent(ctx, file.ID)
		if err != nil {
			run.Log.Error("failed to fetch junit file", "job_id", job.ID, "file_id", file.ID, "error", err)
			continue
		}
		parsed, err := junit.Parse(bytes.NewReader(content))
		if err != nil {
			run.Log.Error("failed to parse junit file", "job_id", job.ID, "file_id", file.ID, "error", err)
			continue
		}
		for _, suite := range parsed {
			if suite.Name == "" {
				suite.Name = file.Name
			}
			suite.ID = len(suites)
			suites = append(suites, suite)
		}
	}

	cache := junitCacheDocument{JobID: job.ID, Tests: suites}
	if err := run.Store.Push(ctx, cacheJunitIndex, job.ID, cache); err != nil {
		run.Log.Warn("failed to cache junit trees", "job_id", job.ID, "error", err)
	}
	return suites, nil
}

// extraData merges the job's analytics payload files into one dot-cleaned
// object.
func (s *jobsStrategy) extraData(ctx context.Context, run *Run, job *denorm.Job) (map[string]any, error) {
	var extra map[string]any
	for _, file := range activeFiles(job, extraMime) {
		content, err := run.Files.FileContent(ctx, file.ID)
		if err != nil {
			run.Log.Error("failed to fetch extra data file", "job_id", job.ID, "file_id", file.ID, "error", err)
			continue
		}
		data, err := artifacts.ParseExtra(content)
		if err != nil {
			run.Log.Error("failed to parse extra data file", "job_id", job.ID, "file_id", file.ID, "error", err)
			continue
		}
		if extra == nil {
			extra = map[string]any{}
		}
		for key, value := range data {
			extra[key] = value
		}
	}
	return extra, nil
}

func junitFiles(job *denorm.Job) []*denorm.File {
	return activeFiles(job, junitMime)
}

func activeFiles(job *denorm.Job, mime string) []*denorm.File {
	files := []*denorm.File{}
	for _, jobstate := range job.Jobstates {
		for _, file := range jobstate.Files {
			if file.State == "active" && file.Mime == mime {
				files = append(files, file)
			}
		}
	}
	return files
}
