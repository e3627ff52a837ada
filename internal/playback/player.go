package playback

import (
	"bytes"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gopxl/beep/wav"
	"github.com/newsbreeze/news-gateway/internal/clips"
)

// ErrHandleReleased is returned when playing a released handle
var ErrHandleReleased = errors.New("audio handle released")

// ClipSource resolves clip URLs to WAV bytes
type ClipSource interface {
	Get(ref string) (clips.Clip, []byte, error)
}

// TimedPlayer is a headless player. It validates and measures clips but
// produces no sound; the playhead advances on a timer so ended signals
// arrive when the clip would have finished.
type TimedPlayer struct {
	clips ClipSource
}

// NewTimedPlayer creates a player reading clips from src
func NewTimedPlayer(src ClipSource) *TimedPlayer {
	return &TimedPlayer{clips: src}
}

// Open implements Player
func (p *TimedPlayer) Open(url string, cb Callbacks) (Handle, error) {
	_, data, err := p.clips.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", url, err)
	}

	duration, err := ClipDuration(data)
	if err != nil {
		return nil, err
	}

	return &timedHandle{
		url:      url,
		clips:    p.clips,
		duration: duration,
		cb:       cb,
	}, nil
}

// ClipDuration decodes a WAV clip and returns its playback length
func ClipDuration(data []byte) (time.Duration, error) {
	streamer, format, err := wav.Decode(bytes.NewReader(data))
	if err != nil {
		return 0, fmt.Errorf("failed to decode WAV: %w", err)
	}
	defer streamer.Close()

	return format.SampleRate.D(streamer.Len()), nil
}

type timedHandle struct {
	url      string
	clips    ClipSource
	duration time.Duration
	cb       Callbacks

	mu        sync.Mutex
	playing   bool
	released  bool
	elapsed   time.Duration
	startedAt time.Time
	timer     *time.Timer
	run       uint64
}

// Play starts or resumes playback; a finished clip restarts from the top
func (h *timedHandle) Play() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.released {
		return ErrHandleReleased
	}
	if h.playing {
		return nil
	}
	if _, _, err := h.clips.Get(h.url); err != nil {
		return fmt.Errorf("failed to play %s: %w", h.url, err)
	}

	if h.elapsed >= h.duration {
		h.elapsed = 0
	}

	h.run++
	run := h.run
	h.playing = true
	h.startedAt = time.Now()
	h.timer = time.AfterFunc(h.duration-h.elapsed, func() { h.finish(run) })
	return nil
}

// Pause stops the playhead where it is
func (h *timedHandle) Pause() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pauseLocked()
}

func (h *timedHandle) pauseLocked() {
	if !h.playing {
		return
	}
	h.timer.Stop()
	h.elapsed += time.Since(h.startedAt)
	if h.elapsed > h.duration {
		h.elapsed = h.duration
	}
	h.playing = false
}

// Release stops playback for good
func (h *timedHandle) Release() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pauseLocked()
	h.released = true
}

// finish fires ended, or error when the clip vanished mid-playback.
// Callbacks run after the handle lock is released.
func (h *timedHandle) finish(run uint64) {
	h.mu.Lock()
	if run != h.run || !h.playing || h.released {
		h.mu.Unlock()
		return
	}
	h.playing = false
	h.elapsed = h.duration
	_, _, err := h.clips.Get(h.url)
	h.mu.Unlock()

	if err != nil {
		if h.cb.OnError != nil {
			h.cb.OnError(fmt.Errorf("clip released during playback: %w", err))
		}
		return
	}
	if h.cb.OnEnded != nil {
		h.cb.OnEnded()
	}
}
