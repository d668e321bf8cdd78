package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	gosync "sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rx3lixir/ci-analytics/internal/db"
	"github.com/rx3lixir/ci-analytics/pkg/logger"
)

type fakeStore struct {
	mu         gosync.Mutex
	docs       map[string]map[string]json.RawMessage
	indices    map[string]bool
	aliases    map[string]string
	watermarks map[string][2]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		docs:       map[string]map[string]json.RawMessage{},
		indices:    map[string]bool{},
		aliases:    map[string]string{},
		watermarks: map[string][2]string{},
	}
}

func (s *fakeStore) Get(ctx context.Context, index, id string) (json.RawMessage, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[index][id]
	return doc, ok, nil
}

func (s *fakeStore) Push(ctx context.Context, index, id string, doc any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.docs[index][id]; exists {
		return nil
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	if s.docs[index] == nil {
		s.docs[index] = map[string]json.RawMessage{}
	}
	s.docs[index][id] = raw
	return nil
}

func (s *fakeStore) Update(ctx context.Context, index, id string, partial any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.docs[index][id]; !exists {
		return nil
	}
	raw, err := json.Marshal(partial)
	if err != nil {
		return err
	}
	s.docs[index][id] = raw
	return nil
}

func (s *fakeStore) EnsureIndex(ctx context.Context, index string, body map[string]any) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indices[index] {
		return false, nil
	}
	s.indices[index] = true
	if s.docs[index] == nil {
		s.docs[index] = map[string]json.RawMessage{}
	}
	return true, nil
}

func (s *fakeStore) UpdateWatermark(ctx context.Context, index, first, last string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current := s.watermarks[index]
	if first != "" {
		current[0] = first
	}
	if last != "" {
		current[1] = last
	}
	s.watermarks[index] = current
	return nil
}

func (s *fakeStore) LatestAlias(ctx context.Context, prefix string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.aliases[prefix], nil
}

func (s *fakeStore) PublishAlias(ctx context.Context, prefix, index string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.aliases[prefix] = index
	return nil
}

type fakeSource struct {
	jobPages       [][]db.Row
	componentPages [][]db.Row
	err            error
}

func (s *fakeSource) JobsPage(ctx context.Context, offset, limit int, w db.Window, statuses []string) ([]db.Row, error) {
	if s.err != nil {
		return nil, s.err
	}
	page := offset / limit
	if page < len(s.jobPages) {
		return s.jobPages[page], nil
	}
	return nil, nil
}

func (s *fakeSource) ComponentsPage(ctx context.Context, offset, limit int, w db.Window) ([]db.Row, error) {
	if s.err != nil {
		return nil, s.err
	}
	page := offset / limit
	if page < len(s.componentPages) {
		return s.componentPages[page], nil
	}
	return nil, nil
}

type fakeFiles struct {
	contents map[string][]byte
}

func (f *fakeFiles) FileContent(ctx context.Context, fileID string) ([]byte, error) {
	content, ok := f.contents[fileID]
	if !ok {
		return nil, fmt.Errorf("no such file %s", fileID)
	}
	return content, nil
}

var rowTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func jobRow(jobID string, createdAt time.Time) db.Row {
	return db.Row{
		"jobs_id":          jobID,
		"jobs_name":        "job-" + jobID,
		"jobs_status":      "success",
		"jobs_state":       "active",
		"jobs_created_at":  createdAt,
		"jobs_updated_at":  createdAt.Add(time.Hour),
		"jobs_topic_id":    "topic-1",
		"jobs_remoteci_id": "remoteci-1",
		"jobs_team_id":     "team-1",
		"jobs_product_id":  "product-1",
		"jobs_tags":        []string{"daily"},
	}
}

func newTestService(store *fakeStore, source *fakeSource) *Service {
	return NewService(store, source, &fakeFiles{contents: map[string][]byte{}}, logger.NewNop())
}

func TestRunFullEmptyWindowStillPublishesAlias(t *testing.T) {
	store := newFakeStore()
	service := newTestService(store, &fakeSource{})

	err := service.Run(context.Background(), KindJobs, ModeFull)
	require.NoError(t, err)

	index := store.aliases["jobs"]
	require.NotEmpty(t, index, "alias must be published even for an empty window")
	assert.True(t, strings.HasPrefix(index, "jobs-"))
	assert.True(t, store.indices[index], "target index must exist")
	assert.Empty(t, store.docs[index])

	_, hasWatermark := store.watermarks[index]
	assert.False(t, hasWatermark, "no records means no watermark")
}

func TestRunPartialWithoutAliasFails(t *testing.T) {
	service := newTestService(newFakeStore(), &fakeSource{})

	err := service.Run(context.Background(), KindJobs, ModePartial)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no index published")
}

func TestRunFullIndexesJobsAndSeedsWatermark(t *testing.T) {
	store := newFakeStore()
	source := &fakeSource{
		jobPages: [][]db.Row{{
			jobRow("j1", rowTime),
			jobRow("j2", rowTime.Add(time.Minute)),
		}},
	}
	service := newTestService(store, source)

	err := service.Run(context.Background(), KindJobs, ModeFull)
	require.NoError(t, err)

	index := store.aliases["jobs"]
	require.NotEmpty(t, index)
	assert.Len(t, store.docs[index], 2)
	assert.Contains(t, store.docs[index], "j1")
	assert.Contains(t, store.docs[index], "j2")

	watermark := store.watermarks[index]
	assert.Equal(t, "2024-03-01T12:00:00.000000", watermark[0])
	assert.Equal(t, "2024-03-01T12:01:00.000000", watermark[1])
}

func TestRunPartialWritesIntoLatestAlias(t *testing.T) {
	store := newFakeStore()
	store.indices["jobs-existing"] = true
	store.docs["jobs-existing"] = map[string]json.RawMessage{}
	store.aliases["jobs"] = "jobs-existing"

	source := &fakeSource{jobPages: [][]db.Row{{jobRow("j1", rowTime)}}}
	service := newTestService(store, source)

	err := service.Run(context.Background(), KindJobs, ModePartial)
	require.NoError(t, err)

	assert.Contains(t, store.docs["jobs-existing"], "j1")

	// The index existed already, so only the last-seen bound moves.
	watermark := store.watermarks["jobs-existing"]
	assert.Empty(t, watermark[0])
	assert.Equal(t, "2024-03-01T12:00:00.000000", watermark[1])
}

func malformedJobRow(jobID string) db.Row {
	row := jobRow(jobID, rowTime)
	row["jobs_created_at"] = nil
	row["jobs_updated_at"] = nil
	return row
}

func TestRunContinuesPastFullyMalformedPage(t *testing.T) {
	store := newFakeStore()
	source := &fakeSource{
		jobPages: [][]db.Row{
			{malformedJobRow("bad")},
			{jobRow("good", rowTime)},
		},
	}
	service := newTestService(store, source)

	err := service.Run(context.Background(), KindJobs, ModeFull)
	require.NoError(t, err)

	index := store.aliases["jobs"]
	require.NotEmpty(t, index)
	assert.Contains(t, store.docs[index], "good",
		"a page of dropped rows must not end the pass early")
	assert.NotContains(t, store.docs[index], "bad")

	// Watermark bounds come from the valid jobs, not the dropped page.
	watermark := store.watermarks[index]
	assert.Equal(t, "2024-03-01T12:00:00.000000", watermark[0])
	assert.Equal(t, "2024-03-01T12:00:00.000000", watermark[1])
}

func TestRunPageFetchErrorAbortsRun(t *testing.T) {
	store := newFakeStore()
	source := &fakeSource{err: fmt.Errorf("connection refused")}
	service := newTestService(store, source)

	err := service.Run(context.Background(), KindJobs, ModeFull)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Empty(t, store.aliases, "a failed full run must not publish its alias")
}

func TestTriggerBusy(t *testing.T) {
	service := newTestService(newFakeStore(), &fakeSource{})

	require.True(t, service.locks.TryAcquire(KindJobs, ModePartial))
	defer service.locks.Release(KindJobs, ModePartial)

	err := service.Trigger(KindJobs, ModePartial)
	assert.ErrorIs(t, err, ErrBusy)

	// A different mode of the same kind is an independent lock.
	assert.True(t, service.locks.TryAcquire(KindJobs, ModeFull))
	service.locks.Release(KindJobs, ModeFull)
}

func TestTriggerUnknownKind(t *testing.T) {
	service := newTestService(newFakeStore(), &fakeSource{})

	err := service.Trigger(Kind("bogus"), ModePartial)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrBusy)
}
