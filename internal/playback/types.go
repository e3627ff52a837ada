package playback

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrUnknownItem is returned for news items the manager has not seen
var ErrUnknownItem = errors.New("unknown news item")

// User-facing alert messages
const (
	AlertGenerationFailed = "Failed to generate audio. Please try again."
	AlertPlaybackFailed   = "Error playing audio"
)

// State is the playback state of one news item
type State int

const (
	StateIdle State = iota
	StateGenerating
	StatePaused
	StatePlaying
	StateErrored
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateGenerating:
		return "generating"
	case StatePaused:
		return "paused"
	case StatePlaying:
		return "playing"
	case StateErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// MarshalJSON encodes the state as its name
func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON decodes a state name
func (s *State) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	for st := StateIdle; st <= StateErrored; st++ {
		if st.String() == name {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown playback state %q", name)
}

// Generator produces a playable audio URL for a text
type Generator interface {
	Generate(ctx context.Context, text string) (string, error)
}

// Callbacks receive playback signals from a Handle.
// They are invoked from the player's own goroutine, never from inside a
// Handle method call.
type Callbacks struct {
	OnEnded func()
	OnError func(err error)
}

// Handle is one opened audio reference
type Handle interface {
	Play() error
	Pause()
	Release()
}

// Player opens audio URLs into playable handles
type Player interface {
	Open(url string, cb Callbacks) (Handle, error)
}

// Notifier surfaces user-facing alerts
type Notifier interface {
	Alert(itemID, message string)
}

// Snapshot is the observable playback state of one news item
type Snapshot struct {
	ItemID     string    `json:"item_id"`
	State      State     `json:"state"`
	AudioURL   string    `json:"audio_url,omitempty"`
	Generating bool      `json:"generating"`
	Playing    bool      `json:"playing"`
	LastError  string    `json:"last_error,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
}
