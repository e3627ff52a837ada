package playback

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/newsbreeze/news-gateway/internal/clips"
	"github.com/newsbreeze/news-gateway/internal/observability"
	"github.com/rs/zerolog"
)

// Controller drives audio playback for a single news item.
//
// At most one handle is live at a time. Starting a new handle pauses and
// releases the previous one, and signals from a replaced handle are ignored.
type Controller struct {
	itemID string
	text   string
	deps   Deps
	logger zerolog.Logger

	mu        sync.Mutex
	state     State
	audioURL  string
	handle    Handle
	handleSeq uint64
	lastErr   string
	updatedAt time.Time
}

// Deps are the capabilities a controller drives
type Deps struct {
	Generator Generator
	Player    Player

	// Optional. Notifier and OnChange are called with the controller lock
	// held and must not call back into the controller.
	Notifier Notifier
	OnChange func(Snapshot)

	// Optional. Release discards a clip generated for a controller that was
	// closed while generating.
	Release func(url string)
}

// NewController creates a controller in the Idle state. audioURL, when set,
// is a previously generated clip that is played without regenerating.
func NewController(itemID, text, audioURL string, deps Deps) *Controller {
	return &Controller{
		itemID:    itemID,
		text:      text,
		audioURL:  audioURL,
		deps:      deps,
		logger:    observability.WithComponent("playback").With().Str("item_id", itemID).Logger(),
		state:     StateIdle,
		updatedAt: time.Now(),
	}
}

// RequestPlay is the single play/pause control.
//
//   - Generating: no-op.
//   - Playing: pauses.
//   - Paused with a live handle: resumes the same handle.
//   - Otherwise, with a cached audio URL: opens a new handle and plays it.
//   - Otherwise: generates audio, then plays it. Generation failure moves to
//     Errored and raises an alert; the next call generates again.
func (c *Controller) RequestPlay(ctx context.Context) Snapshot {
	c.mu.Lock()

	switch c.state {
	case StateGenerating:
		snap := c.snapshotLocked()
		c.mu.Unlock()
		return snap

	case StatePlaying:
		if c.handle != nil {
			c.handle.Pause()
		}
		c.setStateLocked(StatePaused)
		snap := c.snapshotLocked()
		c.mu.Unlock()
		return snap

	case StatePaused:
		if c.handle != nil {
			if err := c.handle.Play(); err != nil {
				c.playbackFailedLocked(err)
			} else {
				c.setStateLocked(StatePlaying)
			}
			snap := c.snapshotLocked()
			c.mu.Unlock()
			return snap
		}
	}

	if c.audioURL != "" {
		c.startLocked(c.audioURL)
		snap := c.snapshotLocked()
		c.mu.Unlock()
		return snap
	}

	c.lastErr = ""
	c.setStateLocked(StateGenerating)
	seq := c.handleSeq
	c.mu.Unlock()

	url, err := c.deps.Generator.Generate(ctx, c.text)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateGenerating || c.handleSeq != seq {
		// Closed while generating.
		if err == nil && c.deps.Release != nil {
			c.deps.Release(url)
		}
		return c.snapshotLocked()
	}

	if err != nil {
		c.logger.Warn().Err(err).Msg("Audio generation failed")
		c.audioURL = ""
		c.lastErr = err.Error()
		c.setStateLocked(StateErrored)
		c.alertLocked("generation", AlertGenerationFailed)
		return c.snapshotLocked()
	}

	c.audioURL = url
	c.startLocked(url)
	return c.snapshotLocked()
}

// startLocked replaces the live handle with a new one for url and plays it
func (c *Controller) startLocked(url string) {
	c.dropHandleLocked()

	c.handleSeq++
	seq := c.handleSeq

	h, err := c.deps.Player.Open(url, Callbacks{
		OnEnded: func() { c.handleEnded(seq) },
		OnError: func(err error) { c.handleError(seq, err) },
	})
	if err != nil {
		// The reference no longer resolves; regenerate next time.
		c.audioURL = ""
		c.playbackFailedLocked(err)
		return
	}

	c.handle = h
	if err := h.Play(); err != nil {
		c.playbackFailedLocked(err)
		return
	}

	c.lastErr = ""
	c.setStateLocked(StatePlaying)
}

func (c *Controller) dropHandleLocked() {
	if c.handle == nil {
		return
	}
	c.handle.Pause()
	c.handle.Release()
	c.handle = nil
}

func (c *Controller) playbackFailedLocked(err error) {
	c.logger.Warn().Err(err).Msg("Audio playback failed")
	c.dropHandleLocked()
	if errors.Is(err, clips.ErrNotFound) {
		// The clip is gone; the next request regenerates it.
		c.audioURL = ""
	}
	c.lastErr = err.Error()
	c.setStateLocked(StateErrored)
	c.alertLocked("playback", AlertPlaybackFailed)
}

func (c *Controller) handleEnded(seq uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if seq != c.handleSeq || c.handle == nil {
		return
	}
	if c.state == StatePlaying {
		c.setStateLocked(StatePaused)
	}
}

func (c *Controller) handleError(seq uint64, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if seq != c.handleSeq || c.handle == nil {
		return
	}
	c.playbackFailedLocked(err)
}

// Close releases the live handle and returns the controller to Idle.
// It returns the cached audio URL so the caller can release the clip.
func (c *Controller) Close() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.dropHandleLocked()
	c.handleSeq++
	url := c.audioURL
	c.audioURL = ""
	c.setStateLocked(StateIdle)
	return url
}

// Snapshot returns the current playback state
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	return Snapshot{
		ItemID:     c.itemID,
		State:      c.state,
		AudioURL:   c.audioURL,
		Generating: c.state == StateGenerating,
		Playing:    c.state == StatePlaying,
		LastError:  c.lastErr,
		UpdatedAt:  c.updatedAt,
	}
}

func (c *Controller) setStateLocked(state State) {
	prev := c.state
	if prev == state {
		return
	}

	if prev == StatePlaying {
		observability.AddActivePlaybacks(-1)
	}
	if state == StatePlaying {
		observability.AddActivePlaybacks(1)
	}

	c.state = state
	c.updatedAt = time.Now()
	observability.RecordPlaybackTransition(state.String())

	c.logger.Debug().Str("from", prev.String()).Str("to", state.String()).Msg("Playback state changed")

	if c.deps.OnChange != nil {
		c.deps.OnChange(c.snapshotLocked())
	}
}

func (c *Controller) alertLocked(kind, message string) {
	observability.RecordAlert(kind)
	if c.deps.Notifier != nil {
		c.deps.Notifier.Alert(c.itemID, message)
	}
}
