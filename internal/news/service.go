package news

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/newsbreeze/news-gateway/internal/feed"
	"github.com/newsbreeze/news-gateway/internal/observability"
	"github.com/newsbreeze/news-gateway/internal/playback"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Aggregator produces the merged news list
type Aggregator interface {
	Fetch(ctx context.Context) []feed.NewsItem
}

// Playback tracks per-item audio
type Playback interface {
	Register(itemID, text, audioURL string)
	Retain(itemIDs []string)
	Snapshot(itemID string) (playback.Snapshot, error)
}

// Service holds the latest news list and keeps it fresh
type Service struct {
	aggregator Aggregator
	playback   Playback
	interval   time.Duration
	logger     zerolog.Logger

	mu        sync.RWMutex
	items     []feed.NewsItem
	fetchedAt time.Time

	flightMu sync.Mutex
	flight   *refreshCall

	cron   *cron.Cron
	cronID cron.EntryID
}

type refreshCall struct {
	done  chan struct{}
	items []feed.NewsItem
}

// NewService creates a news service that refreshes every interval once started
func NewService(aggregator Aggregator, pb Playback, interval time.Duration) *Service {
	return &Service{
		aggregator: aggregator,
		playback:   pb,
		interval:   interval,
		logger:     observability.WithComponent("news"),
		cron:       cron.New(),
	}
}

// Refresh re-aggregates the news. Concurrent callers share a single run.
// The run itself is not canceled when ctx is; ctx only bounds the wait.
func (s *Service) Refresh(ctx context.Context) ([]feed.NewsItem, error) {
	s.flightMu.Lock()
	call := s.flight
	if call == nil {
		call = &refreshCall{done: make(chan struct{})}
		s.flight = call
		go s.run(context.WithoutCancel(ctx), call)
	}
	s.flightMu.Unlock()

	select {
	case <-call.done:
		return s.withAudio(call.items), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// RefreshAsync starts a refresh in the background unless one is running.
// It reports whether a new run was started.
func (s *Service) RefreshAsync() bool {
	s.flightMu.Lock()
	defer s.flightMu.Unlock()

	if s.flight != nil {
		return false
	}
	call := &refreshCall{done: make(chan struct{})}
	s.flight = call
	go s.run(context.Background(), call)
	return true
}

func (s *Service) run(ctx context.Context, call *refreshCall) {
	defer func() {
		s.flightMu.Lock()
		s.flight = nil
		s.flightMu.Unlock()
		close(call.done)
	}()

	start := time.Now()
	items := s.aggregator.Fetch(ctx)

	s.mu.Lock()
	if len(items) == 0 && len(s.items) > 0 {
		s.logger.Warn().Int("kept", len(s.items)).Msg("Refresh returned no items, keeping previous list")
		call.items = s.items
		s.mu.Unlock()
		return
	}
	s.items = items
	s.fetchedAt = time.Now()
	s.mu.Unlock()

	if s.playback != nil {
		ids := make([]string, 0, len(items))
		for _, it := range items {
			ids = append(ids, it.ID)
			s.playback.Register(it.ID, it.Summary, it.AudioURL)
		}
		s.playback.Retain(ids)
	}

	call.items = items
	s.logger.Info().Int("items", len(items)).Dur("elapsed", time.Since(start)).Msg("News refreshed")
}

// Items returns the current list and when it was fetched
func (s *Service) Items() ([]feed.NewsItem, time.Time) {
	s.mu.RLock()
	items, fetchedAt := s.items, s.fetchedAt
	s.mu.RUnlock()
	return s.withAudio(items), fetchedAt
}

// Item returns one news item by ID
func (s *Service) Item(id string) (feed.NewsItem, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, it := range s.items {
		if it.ID == id {
			return s.withAudio([]feed.NewsItem{it})[0], true
		}
	}
	return feed.NewsItem{}, false
}

// withAudio returns a copy of items with each cached audio URL filled in
func (s *Service) withAudio(items []feed.NewsItem) []feed.NewsItem {
	out := make([]feed.NewsItem, len(items))
	copy(out, items)
	if s.playback == nil {
		return out
	}
	for i := range out {
		if snap, err := s.playback.Snapshot(out[i].ID); err == nil && snap.AudioURL != "" {
			out[i].AudioURL = snap.AudioURL
		}
	}
	return out
}

// Start schedules periodic refreshes
func (s *Service) Start() error {
	if s.interval <= 0 {
		return nil
	}

	id, err := s.cron.AddFunc(fmt.Sprintf("@every %s", s.interval), func() {
		s.logger.Debug().Msg("Scheduled refresh triggered")
		if !s.RefreshAsync() {
			s.logger.Debug().Msg("Scheduled refresh skipped: refresh already running")
		}
	})
	if err != nil {
		return fmt.Errorf("failed to add refresh job: %w", err)
	}

	s.cronID = id
	s.cron.Start()
	s.logger.Info().Dur("interval", s.interval).Msg("Scheduled news refresh")
	return nil
}

// Stop stops scheduled refreshes and waits for a running job to finish
func (s *Service) Stop() {
	<-s.cron.Stop().Done()
}
