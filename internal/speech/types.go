package speech

import (
	"context"
	"fmt"

	"github.com/newsbreeze/news-gateway/internal/audio"
)

// Fixed prosody for every utterance
const (
	DefaultRate   = 0.9
	DefaultPitch  = 1.1
	DefaultVolume = 1.0
)

// Voice describes one voice offered by a speech engine
type Voice struct {
	Name    string `json:"name"`
	Lang    string `json:"lang"`
	Default bool   `json:"default,omitempty"`
}

// Utterance is a single speak request
type Utterance struct {
	Text   string
	Rate   float64
	Pitch  float64
	Volume float64
	Voice  *Voice // nil selects the engine default
}

// NewUtterance builds an utterance with the fixed prosody
func NewUtterance(text string, voice *Voice) Utterance {
	return Utterance{
		Text:   text,
		Rate:   DefaultRate,
		Pitch:  DefaultPitch,
		Volume: DefaultVolume,
		Voice:  voice,
	}
}

// Engine is a platform speech engine
type Engine interface {
	// Voices lists the voices the engine can speak with
	Voices(ctx context.Context) ([]Voice, error)

	// Speak blocks until the utterance completes, fails, or ctx is done.
	// Failures are reported as *SynthesisError.
	Speak(ctx context.Context, u Utterance) error

	// Cancel aborts every utterance in flight
	Cancel()

	// Name identifies the engine in logs and health checks
	Name() string
}

// ToneRenderer renders the audio that backs a generated clip
type ToneRenderer interface {
	Render(text string, sampleRate int) *audio.SampleBuffer
}

// Error codes reported by the built-in engines
const (
	CodeInterrupted = "interrupted"
	CodeUnavailable = "synthesis-unavailable"
	CodeFailed      = "synthesis-failed"
	CodeNetwork     = "network"
)

// SynthesisError carries the error code reported by a speech engine
type SynthesisError struct {
	Code string
	Err  error
}

func (e *SynthesisError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("speech synthesis failed (%s): %v", e.Code, e.Err)
	}
	return fmt.Sprintf("speech synthesis failed (%s)", e.Code)
}

func (e *SynthesisError) Unwrap() error {
	return e.Err
}
