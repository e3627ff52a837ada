package clips

import (
	"errors"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a clip was never stored or has been released
var ErrNotFound = errors.New("clip not found")

// PathPrefix is the route under which clips are served
const PathPrefix = "/audio/"

// Clip is a transient reference to an encoded WAV held in memory
type Clip struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	Size      int       `json:"size_bytes"`
	CreatedAt time.Time `json:"created_at"`
}

type entry struct {
	clip Clip
	data []byte
}

// Store keeps generated clips in memory until they are released.
// Clips are never written to disk.
type Store struct {
	baseURL string

	mu    sync.RWMutex
	clips map[string]*entry
}

// NewStore creates a clip store whose URLs are rooted at baseURL.
// An empty baseURL yields relative URLs (/audio/<id>.wav).
func NewStore(baseURL string) *Store {
	return &Store{
		baseURL: strings.TrimRight(baseURL, "/"),
		clips:   make(map[string]*entry),
	}
}

// Put stores a WAV blob and returns its reference
func (s *Store) Put(wav []byte) Clip {
	id := uuid.New().String()
	clip := Clip{
		ID:        id,
		URL:       s.baseURL + PathPrefix + id + ".wav",
		Size:      len(wav),
		CreatedAt: time.Now(),
	}

	s.mu.Lock()
	s.clips[id] = &entry{clip: clip, data: wav}
	s.mu.Unlock()

	return clip
}

// Get returns the clip and its bytes, looked up by ID or URL
func (s *Store) Get(ref string) (Clip, []byte, error) {
	id := ParseID(ref)

	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.clips[id]
	if !ok {
		return Clip{}, nil, ErrNotFound
	}
	return e.clip, e.data, nil
}

// Release drops a clip. Releasing an unknown clip is a no-op.
// It reports whether a clip was removed.
func (s *Store) Release(ref string) bool {
	id := ParseID(ref)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.clips[id]; !ok {
		return false
	}
	delete(s.clips, id)
	return true
}

// Len returns the number of live clips
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clips)
}

// ParseID extracts the clip ID from a clip URL, path, file name or bare ID
func ParseID(ref string) string {
	if i := strings.IndexAny(ref, "?#"); i >= 0 {
		ref = ref[:i]
	}
	return strings.TrimSuffix(path.Base(ref), ".wav")
}
