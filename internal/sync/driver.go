package sync

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rx3lixir/ci-analytics/internal/denorm"
	"github.com/rx3lixir/ci-analytics/internal/search"
	"github.com/rx3lixir/ci-analytics/pkg/logger"
	"github.com/rx3lixir/ci-analytics/pkg/metrics"
)

// Service owns the run locks and executes synchronization passes.
type Service struct {
	store      DocStore
	source     Source
	files      FileFetcher
	locks      *LockRegistry
	strategies map[Kind]func() Strategy
	logger     logger.Logger
}

// NewService wires the driver with its collaborators and the static strategy
// registry.
func NewService(store DocStore, source Source, files FileFetcher, log logger.Logger) *Service {
	return &Service{
		store:      store,
		source:     source,
		files:      files,
		locks:      NewLockRegistry(),
		strategies: Strategies(),
		logger:     log,
	}
}

// Trigger starts a run in the background if the (kind, mode) lock is free.
// It returns ErrBusy when an identical run is already in flight and an error
// for unknown kinds; otherwise the run is accepted and executes
// asynchronously, releasing the lock on every exit path.
func (s *Service) Trigger(kind Kind, mode Mode) error {
	if _, ok := s.strategies[kind]; !ok {
		return fmt.Errorf("unknown sync kind %q", kind)
	}

	if !s.locks.TryAcquire(kind, mode) {
		metrics.RecordSyncBusy(string(kind), string(mode))
		return ErrBusy
	}

	go func() {
		defer s.locks.Release(kind, mode)

		start := time.Now()
		err := s.Run(context.Background(), kind, mode)
		metrics.RecordSyncRun(string(kind), string(mode), metrics.StatusFromError(err), time.Since(start))

		if err != nil {
			s.logger.Error("sync run failed", "kind", kind, "mode", mode, "error", err)
			return
		}
		s.logger.Info("sync run completed", "kind", kind, "mode", mode, "duration", time.Since(start))
	}()

	return nil
}

// Run executes one synchronous pass. Callers going through Trigger get the
// run lock; calling Run directly is for tests and one-shot tooling.
func (s *Service) Run(ctx context.Context, kind Kind, mode Mode) error {
	construct, ok := s.strategies[kind]
	if !ok {
		return fmt.Errorf("unknown sync kind %q", kind)
	}
	strategy := construct()

	window := strategy.Window(mode)
	if err := window.Validate(); err != nil {
		return fmt.Errorf("invalid sync window: %w", err)
	}

	prefix := strategy.IndexPrefix()
	index, err := s.resolveIndex(ctx, prefix, mode)
	if err != nil {
		return err
	}

	created, err := s.store.EnsureIndex(ctx, index, strategy.Mapping())
	if err != nil {
		return fmt.Errorf("failed to ensure index %s: %w", index, err)
	}

	run := &Run{
		Kind:   kind,
		Mode:   mode,
		Index:  index,
		Window: window,
		Store:  s.store,
		Source: s.source,
		Files:  s.files,
		Log:    s.logger.With("kind", kind, "mode", mode, "index", index),
	}

	if b, ok := strategy.(beginner); ok {
		if err := b.Begin(ctx, run); err != nil {
			return fmt.Errorf("failed to prepare %s sync: %w", kind, err)
		}
	}

	firstSeen, lastSeen, err := s.drivePages(ctx, strategy, run, created)
	if err != nil {
		return err
	}

	if f, ok := strategy.(finisher); ok {
		if err := f.Finish(ctx, run); err != nil {
			return fmt.Errorf("failed to finalize %s sync: %w", kind, err)
		}
	}

	if firstSeen != "" || lastSeen != "" {
		if err := s.store.UpdateWatermark(ctx, index, firstSeen, lastSeen); err != nil {
			return fmt.Errorf("failed to update watermark on %s: %w", index, err)
		}
	}

	if mode == ModeFull {
		if err := s.store.PublishAlias(ctx, prefix, index); err != nil {
			return fmt.Errorf("failed to publish alias for %s: %w", prefix, err)
		}
	}
	return nil
}

// resolveIndex picks the run's target: the current latest alias for partial
// passes, a freshly minted index name for full ones. A partial pass against a
// prefix that has never been fully synced fails with "not initialized".
func (s *Service) resolveIndex(ctx context.Context, prefix string, mode Mode) (string, error) {
	if mode == ModeFull {
		return search.NewIndexName(prefix), nil
	}

	alias, err := s.store.LatestAlias(ctx, prefix)
	if err != nil {
		return "", fmt.Errorf("failed to resolve latest alias for %s: %w", prefix, err)
	}
	if alias == "" {
		return "", fmt.Errorf("no index published for %s yet, run a full sync first", prefix)
	}
	return alias, nil
}

// drivePages walks the source at increasing offsets until an empty page,
// returning the watermark bounds observed. The first-seen bound is only set
// when this run created the index. Per-record errors are logged and skipped;
// a page fetch error aborts the run.
func (s *Service) drivePages(ctx context.Context, strategy Strategy, run *Run, created bool) (string, string, error) {
	limit := strategy.PageSize()
	firstSeen := ""
	lastSeen := ""

	for offset := 0; ; offset += limit {
		rows, err := s.source.JobsPage(ctx, offset, limit, run.Window, strategy.Statuses())
		if err != nil {
			return "", "", fmt.Errorf("failed to fetch %s page at offset %d: %w", run.Kind, offset, err)
		}
		if len(rows) == 0 {
			break
		}

		// Termination is decided by the query, not by denormalization: a page
		// of rows that are all malformed still has pages behind it.
		jobs := denorm.Jobs(rows)
		if len(jobs) == 0 {
			run.Log.Warn("page produced no valid records", "offset", offset)
			continue
		}

		if created && firstSeen == "" {
			firstSeen = jobs[0].CreatedAt
		}
		lastSeen = jobs[len(jobs)-1].CreatedAt

		s.processPage(ctx, strategy, run, jobs)
	}
	return firstSeen, lastSeen, nil
}

// processPage hands every job of the page to the strategy, fanning out across
// a bounded pool when the strategy does network fetches per record. A record
// that fails is logged and dropped, never aborting the page.
func (s *Service) processPage(ctx context.Context, strategy Strategy, run *Run, jobs []*denorm.Job) {
	workers := 1
	if f, ok := strategy.(fanOut); ok && f.Concurrency() > 1 {
		workers = f.Concurrency()
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(workers)

	for _, job := range jobs {
		group.Go(func() error {
			if err := strategy.Process(groupCtx, run, job); err != nil {
				run.Log.Error("failed to process record", "job_id", job.ID, "error", err)
				metrics.RecordSyncRecord(string(run.Kind), "error")
				return nil
			}
			metrics.RecordSyncRecord(string(run.Kind), "success")
			return nil
		})
	}
	group.Wait()
}
