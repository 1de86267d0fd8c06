// Package scheduler periodically imports external RSS sources as notices.
package scheduler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"notice_board/internal/fetcher"
	"notice_board/internal/model"
	"notice_board/internal/storage"
)

// Scheduler polls due sources and publishes their new items.
type Scheduler struct {
	store    storage.Storage
	fetcher  *fetcher.Fetcher
	log      *slog.Logger
	interval time.Duration
	tick     time.Duration
	now      func() time.Time
}

// New creates a Scheduler with the default HTTP client. Each source is
// checked at most once per interval.
func New(store storage.Storage, interval time.Duration, log *slog.Logger) *Scheduler {
	return NewWithFetcher(store, fetcher.New(http.DefaultClient), interval, log)
}

// NewWithFetcher creates a Scheduler with a custom fetcher (useful for testing).
func NewWithFetcher(store storage.Storage, f *fetcher.Fetcher, interval time.Duration, log *slog.Logger) *Scheduler {
	return &Scheduler{
		store:    store,
		fetcher:  f,
		log:      log,
		interval: interval,
		tick:     1 * time.Minute,
		now:      time.Now,
	}
}

// SetTickInterval overrides the default 1-minute check interval.
func (s *Scheduler) SetTickInterval(d time.Duration) {
	s.tick = d
}

// Run starts the scheduler loop, blocking until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	s.checkAll(ctx)

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.checkAll(ctx)
		}
	}
}

func (s *Scheduler) checkAll(ctx context.Context) {
	sources, err := s.store.ListDueSources(ctx, s.interval)
	if err != nil {
		s.log.Error("list due sources", "error", err)
		return
	}

	for _, src := range sources {
		if ctx.Err() != nil {
			return
		}
		s.Import(ctx, src)
	}
}

// Import fetches src once and publishes its unseen items. It returns the
// number of notices created.
func (s *Scheduler) Import(ctx context.Context, src model.Source) int {
	s.log.Debug("checking source", "source_id", src.ID, "name", src.Name)
	defer s.updateLastCheck(ctx, &src)

	feed, err := s.fetcher.Fetch(ctx, src.URL)
	if err != nil {
		s.log.Error("fetch source", "source_id", src.ID, "url", src.URL, "error", err)
		return 0
	}

	created := 0
	for _, item := range fetcher.Items(feed.Items) {
		seen, err := s.store.IsSourceItemSeen(ctx, src.ID, item.GUID)
		if err != nil {
			s.log.Error("check seen", "source_id", src.ID, "guid", item.GUID, "error", err)
			continue
		}
		if seen {
			continue
		}

		n := fetcher.Notice(src, item, s.now())
		if err := s.store.CreateNotice(ctx, &n); err != nil {
			s.log.Error("create notice", "source_id", src.ID, "guid", item.GUID, "error", err)
			continue
		}
		created++

		if err := s.store.MarkSourceItemSeen(ctx, src.ID, item.GUID); err != nil {
			s.log.Error("mark seen", "source_id", src.ID, "guid", item.GUID, "error", err)
		}
	}

	if created > 0 {
		s.log.Info("imported notices", "source_id", src.ID, "name", src.Name, "count", created)
	}
	return created
}

func (s *Scheduler) updateLastCheck(ctx context.Context, src *model.Source) {
	now := s.now().UTC()
	src.LastCheckAt = &now
	if err := s.store.UpdateSource(ctx, src); err != nil {
		s.log.Error("update last check", "source_id", src.ID, "error", err)
	}
}
