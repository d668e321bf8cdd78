package sync

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rx3lixir/ci-analytics/internal/db"
	"github.com/rx3lixir/ci-analytics/internal/denorm"
)

// sharedTeamID is the sentinel team every coverage document is also filed
// under, so cross-team dashboards have one place to look.
const sharedTeamID = "shared"

// CoverageJob is one job reference inside a coverage document.
type CoverageJob struct {
	ID        string `json:"id"`
	CreatedAt string `json:"created_at"`
}

// CoverageDocument aggregates which jobs exercised a component, per team.
type CoverageDocument struct {
	ComponentID          string        `json:"component_id"`
	Name                 string        `json:"name"`
	CanonicalProjectName string        `json:"canonical_project_name"`
	Type                 string        `json:"type"`
	Tags                 []string      `json:"tags"`
	TopicID              string        `json:"topic_id"`
	TeamID               string        `json:"team_id"`
	CreatedAt            string        `json:"created_at"`
	ReleasedAt           string        `json:"released_at"`
	SuccessJobs          []CoverageJob `json:"success_jobs"`
	FailedJobs           []CoverageJob `json:"failed_jobs"`
}

// CoverageDocKey builds the storage key for a (component, team) pair.
func CoverageDocKey(componentID, teamID string) string {
	return fmt.Sprintf("%s-%s", componentID, teamID)
}

type coverageStrategy struct {
	components map[string]*denorm.Component
	exercised  map[string]bool
}

func newCoverageStrategy() *coverageStrategy {
	return &coverageStrategy{
		components: map[string]*denorm.Component{},
		exercised:  map[string]bool{},
	}
}

func (s *coverageStrategy) Kind() Kind              { return KindCoverage }
func (s *coverageStrategy) IndexPrefix() string     { return "tasks_components_coverage" }
func (s *coverageStrategy) Mapping() map[string]any { return keywordMapping() }
func (s *coverageStrategy) PageSize() int           { return 100 }
func (s *coverageStrategy) Statuses() []string      { return []string{"success", "failure"} }

func (s *coverageStrategy) Window(mode Mode) db.Window {
	if mode == ModeFull {
		return db.Months(6)
	}
	return db.Hours(6)
}

// Begin scans the component window so Finish can backfill components no job
// exercised during the pass.
func (s *coverageStrategy) Begin(ctx context.Context, run *Run) error {
	limit := s.PageSize()
	for offset := 0; ; offset += limit {
		rows, err := run.Source.ComponentsPage(ctx, offset, limit, run.Window)
		if err != nil {
			return fmt.Errorf("failed to scan components at offset %d: %w", offset, err)
		}
		components := denorm.Components(rows)
		if len(components) == 0 {
			return nil
		}
		for _, component := range components {
			s.components[component.ID] = component
		}
	}
}

func (s *coverageStrategy) Process(ctx context.Context, run *Run, job *denorm.Job) error {
	for _, component := range job.Components {
		s.exercised[component.ID] = true
		if _, ok := s.components[component.ID]; !ok {
			s.components[component.ID] = component
		}

		for _, teamID := range coverageTeams(job.TeamID) {
			if err := s.record(ctx, run, component, teamID, job); err != nil {
				return err
			}
		}
	}
	return nil
}

// record adds the job to the (component, team) document, creating it when
// absent. Re-processing the same job never grows the lists past one entry.
func (s *coverageStrategy) record(ctx context.Context, run *Run, component *denorm.Component, teamID string, job *denorm.Job) error {
	key := CoverageDocKey(component.ID, teamID)

	raw, found, err := run.Store.Get(ctx, run.Index, key)
	if err != nil {
		return fmt.Errorf("failed to probe coverage doc %s: %w", key, err)
	}

	if !found {
		doc := newCoverageDocument(component, teamID)
		doc.addJob(job)
		return run.Store.Push(ctx, run.Index, key, doc)
	}

	var doc CoverageDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("failed to decode coverage doc %s: %w", key, err)
	}
	if !doc.addJob(job) {
		return nil
	}
	return run.Store.Update(ctx, run.Index, key, doc)
}

// Finish pushes empty coverage documents for every component of the window
// that no job touched, so readers can tell "never exercised" from "missing".
func (s *coverageStrategy) Finish(ctx context.Context, run *Run) error {
	for id, component := range s.components {
		if s.exercised[id] {
			continue
		}
		teams := []string{sharedTeamID}
		if component.TeamID != "" {
			teams = append(teams, component.TeamID)
		}
		for _, teamID := range teams {
			key := CoverageDocKey(id, teamID)
			if err := run.Store.Push(ctx, run.Index, key, newCoverageDocument(component, teamID)); err != nil {
				run.Log.Error("failed to backfill coverage doc", "key", key, "error", err)
			}
		}
	}
	return nil
}

func newCoverageDocument(component *denorm.Component, teamID string) *CoverageDocument {
	return &CoverageDocument{
		ComponentID:          component.ID,
		Name:                 component.Name,
		CanonicalProjectName: component.CanonicalProjectName,
		Type:                 component.Type,
		Tags:                 component.Tags,
		TopicID:              component.TopicID,
		TeamID:               teamID,
		CreatedAt:            component.CreatedAt,
		ReleasedAt:           component.ReleasedAt,
		SuccessJobs:          []CoverageJob{},
		FailedJobs:           []CoverageJob{},
	}
}

// addJob files the job into the success or failed list, deduplicated by job
// id. It reports whether the document changed.
func (d *CoverageDocument) addJob(job *denorm.Job) bool {
	ref := CoverageJob{ID: job.ID, CreatedAt: job.CreatedAt}
	if job.Status == "success" {
		if containsJob(d.SuccessJobs, job.ID) {
			return false
		}
		d.SuccessJobs = append(d.SuccessJobs, ref)
		return true
	}
	if containsJob(d.FailedJobs, job.ID) {
		return false
	}
	d.FailedJobs = append(d.FailedJobs, ref)
	return true
}

func containsJob(jobs []CoverageJob, id string) bool {
	for _, job := range jobs {
		if job.ID == id {
			return true
		}
	}
	return false
}

func coverageTeams(jobTeamID string) []string {
	if jobTeamID == "" || jobTeamID == sharedTeamID {
		return []string{sharedTeamID}
	}
	return []string{jobTeamID, sharedTeamID}
}
