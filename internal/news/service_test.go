package news

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/newsbreeze/news-gateway/internal/feed"
	"github.com/newsbreeze/news-gateway/internal/playback"
)

type fakeAggregator struct {
	mu      sync.Mutex
	results [][]feed.NewsItem
	calls   int32
	block   chan struct{}
}

func (a *fakeAggregator) Fetch(ctx context.Context) []feed.NewsItem {
	n := atomic.AddInt32(&a.calls, 1)
	if a.block != nil {
		<-a.block
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	idx := int(n) - 1
	if idx >= len(a.results) {
		idx = len(a.results) - 1
	}
	if idx < 0 {
		return nil
	}
	return a.results[idx]
}

type fakePlayback struct {
	mu       sync.Mutex
	texts    map[string]string
	audio    map[string]string
	retained []string
}

func newFakePlayback() *fakePlayback {
	return &fakePlayback{texts: map[string]string{}, audio: map[string]string{}}
}

func (p *fakePlayback) Register(itemID, text, audioURL string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.texts[itemID] = text
}

func (p *fakePlayback) Retain(itemIDs []string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.retained = append([]string(nil), itemIDs...)
}

func (p *fakePlayback) Snapshot(itemID string) (playback.Snapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.texts[itemID]; !ok {
		return playback.Snapshot{}, playback.ErrUnknownItem
	}
	return playback.Snapshot{ItemID: itemID, AudioURL: p.audio[itemID]}, nil
}

func items(ids ...string) []feed.NewsItem {
	out := make([]feed.NewsItem, 0, len(ids))
	for _, id := range ids {
		out = append(out, feed.NewsItem{ID: id, Title: "Title " + id, Summary: "Summary " + id})
	}
	return out
}

func TestRefresh_RegistersItems(t *testing.T) {
	pb := newFakePlayback()
	svc := NewService(&fakeAggregator{results: [][]feed.NewsItem{items("a", "b")}}, pb, 0)

	got, err := svc.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 items, got %d", len(got))
	}
	if pb.texts["a"] != "Summary a" || pb.texts["b"] != "Summary b" {
		t.Errorf("Expected summaries registered for playback, got %v", pb.texts)
	}
	if len(pb.retained) != 2 {
		t.Errorf("Expected retain of current IDs, got %v", pb.retained)
	}

	list, fetchedAt := svc.Items()
	if len(list) != 2 || fetchedAt.IsZero() {
		t.Errorf("Expected stored list with fetch time, got %d items at %v", len(list), fetchedAt)
	}
}

func TestRefresh_SingleFlight(t *testing.T) {
	agg := &fakeAggregator{results: [][]feed.NewsItem{items("a")}, block: make(chan struct{})}
	svc := NewService(agg, nil, 0)

	if !svc.RefreshAsync() {
		t.Fatal("Expected async refresh to start")
	}

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Refresh(context.Background()); err != nil {
				t.Errorf("Refresh failed: %v", err)
			}
		}()
	}

	time.Sleep(50 * time.Millisecond)
	if svc.RefreshAsync() {
		t.Error("Expected async refresh to join the running one")
	}
	close(agg.block)
	wg.Wait()

	if calls := atomic.LoadInt32(&agg.calls); calls != 1 {
		t.Errorf("Expected one aggregation, got %d", calls)
	}
}

func TestRefresh_ContextBoundsWaitOnly(t *testing.T) {
	agg := &fakeAggregator{results: [][]feed.NewsItem{items("a")}, block: make(chan struct{})}
	svc := NewService(agg, nil, 0)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := svc.Refresh(ctx); err == nil {
		t.Fatal("Expected context error while waiting")
	}

	close(agg.block)
	got, err := svc.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("Expected the detached run to complete, got %d items", len(got))
	}
}

func TestRefresh_EmptyResultKeepsPreviousList(t *testing.T) {
	pb := newFakePlayback()
	agg := &fakeAggregator{results: [][]feed.NewsItem{items("a", "b"), nil}}
	svc := NewService(agg, pb, 0)

	svc.Refresh(context.Background())
	got, _ := svc.Refresh(context.Background())

	if len(got) != 2 {
		t.Errorf("Expected previous list to be kept, got %d items", len(got))
	}
	if len(pb.retained) != 2 {
		t.Errorf("Expected playback state untouched, got %v", pb.retained)
	}
}

func TestRefresh_ReplacesList(t *testing.T) {
	pb := newFakePlayback()
	agg := &fakeAggregator{results: [][]feed.NewsItem{items("a", "b"), items("c")}}
	svc := NewService(agg, pb, 0)

	svc.Refresh(context.Background())
	svc.Refresh(context.Background())

	if _, ok := svc.Item("a"); ok {
		t.Error("Expected stale item to be gone")
	}
	if it, ok := svc.Item("c"); !ok || it.Title != "Title c" {
		t.Errorf("Expected new item, got %+v", it)
	}
	if len(pb.retained) != 1 || pb.retained[0] != "c" {
		t.Errorf("Expected retain of new IDs only, got %v", pb.retained)
	}
}

func TestItems_IncludeCachedAudio(t *testing.T) {
	pb := newFakePlayback()
	svc := NewService(&fakeAggregator{results: [][]feed.NewsItem{items("a")}}, pb, 0)
	svc.Refresh(context.Background())

	pb.mu.Lock()
	pb.audio["a"] = "http://localhost/audio/x.wav"
	pb.mu.Unlock()

	list, _ := svc.Items()
	if list[0].AudioURL != "http://localhost/audio/x.wav" {
		t.Errorf("Expected cached audio URL, got %q", list[0].AudioURL)
	}
	if it, _ := svc.Item("a"); it.AudioURL == "" {
		t.Error("Expected cached audio URL on single item")
	}
}

func TestStart_SchedulesRefresh(t *testing.T) {
	agg := &fakeAggregator{results: [][]feed.NewsItem{items("a")}}
	svc := NewService(agg, nil, time.Second)

	if err := svc.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer svc.Stop()

	deadline := time.Now().Add(3 * time.Second)
	for atomic.LoadInt32(&agg.calls) == 0 && time.Now().Before(deadline) {
		time.Sleep(50 * time.Millisecond)
	}
	if atomic.LoadInt32(&agg.calls) == 0 {
		t.Error("Expected scheduled refresh to run")
	}
}

func TestStart_ZeroIntervalDisablesSchedule(t *testing.T) {
	svc := NewService(&fakeAggregator{}, nil, 0)
	if err := svc.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	svc.Stop()
}
