package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rx3lixir/ci-analytics/internal/search"
	syncsvc "github.com/rx3lixir/ci-analytics/internal/sync"
	"github.com/rx3lixir/ci-analytics/pkg/logger"
)

type fakeTrigger struct {
	err   error
	calls int
	kind  syncsvc.Kind
	mode  syncsvc.Mode
}

func (f *fakeTrigger) Trigger(kind syncsvc.Kind, mode syncsvc.Mode) error {
	f.calls++
	f.kind = kind
	f.mode = mode
	return f.err
}

type fakeSearcher struct {
	alias    string
	result   *search.Result
	searched bool
	resolved bool
}

func (f *fakeSearcher) SearchBody(ctx context.Context, index string, query any) (*search.Result, error) {
	f.searched = true
	if f.result != nil {
		return f.result, nil
	}
	return &search.Result{Hits: []search.Hit{}}, nil
}

func (f *fakeSearcher) LatestAlias(ctx context.Context, prefix string) (string, error) {
	f.resolved = true
	return f.alias, nil
}

func serveRequest(t *testing.T, trigger Triggerer, store Searcher, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	server := NewServer(":0", trigger, store, logger.NewNop())

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	server.server.Handler.ServeHTTP(rec, req)
	return rec
}

func TestHandleSyncAccepted(t *testing.T) {
	trigger := &fakeTrigger{}

	rec := serveRequest(t, trigger, &fakeSearcher{}, http.MethodPost, "/sync/jobs", `{"type":"partial"}`)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 1, trigger.calls)
	assert.Equal(t, syncsvc.KindJobs, trigger.kind)
	assert.Equal(t, syncsvc.ModePartial, trigger.mode)
	assert.Contains(t, rec.Body.String(), "accepted")
}

func TestHandleSyncBusy(t *testing.T) {
	trigger := &fakeTrigger{err: syncsvc.ErrBusy}

	rec := serveRequest(t, trigger, &fakeSearcher{}, http.MethodPost, "/sync/jobs", `{"type":"full"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "already running")
}

func TestHandleSyncUnknownKind(t *testing.T) {
	trigger := &fakeTrigger{}

	rec := serveRequest(t, trigger, &fakeSearcher{}, http.MethodPost, "/sync/nonsense", `{"type":"partial"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, trigger.calls, "unknown kind must not reach the trigger")
}

func TestHandleSyncUnknownMode(t *testing.T) {
	trigger := &fakeTrigger{}

	rec := serveRequest(t, trigger, &fakeSearcher{}, http.MethodPost, "/sync/jobs", `{"type":"everything"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, trigger.calls)
}

func TestHandleJobsRequiresTeam(t *testing.T) {
	store := &fakeSearcher{alias: "jobs-1"}

	rec := serveRequest(t, &fakeTrigger{}, store, http.MethodGet, "/jobs", "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, store.searched, "validation must run before any store access")
}

func TestHandleJobsWithoutIndex(t *testing.T) {
	rec := serveRequest(t, &fakeTrigger{}, &fakeSearcher{alias: ""}, http.MethodGet, "/jobs?team_id=t1", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleJobsSearches(t *testing.T) {
	store := &fakeSearcher{alias: "jobs-1"}

	rec := serveRequest(t, &fakeTrigger{}, store, http.MethodGet, "/jobs?team_id=t1&query=status:failure", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, store.searched)
	assert.Contains(t, rec.Body.String(), `"jobs"`)
}

func TestPipelinesStatusDateValidationBeforeDataAccess(t *testing.T) {
	store := &fakeSearcher{alias: "pipelines_status-1"}

	rec := serveRequest(t, &fakeTrigger{}, store, http.MethodPost, "/pipelines_status",
		`{"start_date":"2024-03-10","end_date":"2024-03-01"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, store.resolved)
	assert.False(t, store.searched)
}

func TestJunitComparisonDateValidationBeforeDataAccess(t *testing.T) {
	store := &fakeSearcher{alias: "tasks_junit-1"}

	rec := serveRequest(t, &fakeTrigger{}, store, http.MethodPost, "/junit_topics_comparison",
		`{
			"topic_1_id": "t1", "topic_2_id": "t2",
			"topic_1_start_date": "2024-03-10", "topic_1_end_date": "2024-03-01",
			"topic_2_start_date": "2024-03-01", "topic_2_end_date": "2024-03-10",
			"topic_1_baseline_computation": "mean"
		}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "topic 1")
	assert.False(t, store.resolved)
	assert.False(t, store.searched)
}

func TestJunitComparisonRejectsUnknownBaseline(t *testing.T) {
	store := &fakeSearcher{alias: "tasks_junit-1"}

	rec := serveRequest(t, &fakeTrigger{}, store, http.MethodPost, "/junit_topics_comparison",
		`{
			"topic_1_id": "t1", "topic_2_id": "t2",
			"topic_1_start_date": "2024-03-01", "topic_1_end_date": "2024-03-10",
			"topic_2_start_date": "2024-03-01", "topic_2_end_date": "2024-03-10",
			"topic_1_baseline_computation": "mode"
		}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, store.searched)
}
