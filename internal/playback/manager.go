package playback

import (
	"context"
	"sort"
	"sync"
)

// ClipReleaser discards generated clips
type ClipReleaser interface {
	Release(ref string) bool
}

// Manager owns one Controller per news item
type Manager struct {
	generator Generator
	player    Player
	clips     ClipReleaser
	notifier  Notifier

	// OnChange, if set, receives every state transition of every item.
	// Set it before the manager is used.
	OnChange func(Snapshot)

	mu          sync.RWMutex
	controllers map[string]*Controller
}

// NewManager creates a manager. clips and notifier may be nil.
func NewManager(generator Generator, player Player, clips ClipReleaser, notifier Notifier) *Manager {
	return &Manager{
		generator:   generator,
		player:      player,
		clips:       clips,
		notifier:    notifier,
		controllers: make(map[string]*Controller),
	}
}

// Register makes an item playable. Registering a known item is a no-op so
// that its cached audio and state survive feed refreshes.
func (m *Manager) Register(itemID, text, audioURL string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.controllers[itemID]; ok {
		return
	}
	m.controllers[itemID] = NewController(itemID, text, audioURL, Deps{
		Generator: m.generator,
		Player:    m.player,
		Notifier:  m.notifier,
		OnChange:  m.publish,
		Release:   m.release,
	})
}

// RequestPlay toggles playback of an item
func (m *Manager) RequestPlay(ctx context.Context, itemID string) (Snapshot, error) {
	c, ok := m.controller(itemID)
	if !ok {
		return Snapshot{}, ErrUnknownItem
	}
	return c.RequestPlay(ctx), nil
}

// Snapshot returns the playback state of an item
func (m *Manager) Snapshot(itemID string) (Snapshot, error) {
	c, ok := m.controller(itemID)
	if !ok {
		return Snapshot{}, ErrUnknownItem
	}
	return c.Snapshot(), nil
}

// Snapshots returns the playback state of every known item, ordered by item ID
func (m *Manager) Snapshots() []Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Snapshot, 0, len(m.controllers))
	for _, c := range m.controllers {
		out = append(out, c.Snapshot())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ItemID < out[j].ItemID })
	return out
}

// Forget stops an item's playback and releases its clip
func (m *Manager) Forget(itemID string) {
	m.mu.Lock()
	c, ok := m.controllers[itemID]
	delete(m.controllers, itemID)
	m.mu.Unlock()

	if ok {
		m.release(c.Close())
	}
}

// Retain forgets every item not in keep
func (m *Manager) Retain(keep []string) {
	wanted := make(map[string]bool, len(keep))
	for _, id := range keep {
		wanted[id] = true
	}

	m.mu.RLock()
	var stale []string
	for id := range m.controllers {
		if !wanted[id] {
			stale = append(stale, id)
		}
	}
	m.mu.RUnlock()

	for _, id := range stale {
		m.Forget(id)
	}
}

// Close forgets every item
func (m *Manager) Close() {
	m.Retain(nil)
}

// Len returns the number of known items
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.controllers)
}

func (m *Manager) controller(itemID string) (*Controller, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.controllers[itemID]
	return c, ok
}

func (m *Manager) publish(s Snapshot) {
	if m.OnChange != nil {
		m.OnChange(s)
	}
}

func (m *Manager) release(url string) {
	if url != "" && m.clips != nil {
		m.clips.Release(url)
	}
}
