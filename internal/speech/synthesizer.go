package speech

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/newsbreeze/news-gateway/internal/audio"
	"github.com/newsbreeze/news-gateway/internal/clips"
	"github.com/newsbreeze/news-gateway/internal/observability"
	"github.com/rs/zerolog"
)

// FallbackWindow bounds how long Generate waits for speech to complete
const FallbackWindow = time.Second

// Voice list lookups run in the background. A failed or empty lookup is not
// repeated before VoiceRetryBackoff has passed.
const (
	VoiceRetryBackoff  = 30 * time.Second
	voiceLookupTimeout = 10 * time.Second
)

// ready is a closed channel returned when no voice lookup is needed
var ready = func() chan struct{} {
	c := make(chan struct{})
	close(c)
	return c
}()

// Synthesizer produces a playable clip for a piece of text. It renders the
// clip audio while the speech engine speaks the text and resolves once speech
// completes or the fallback window elapses.
//
// The rendered audio is a placeholder tone, not narration of the text.
type Synthesizer struct {
	engine     Engine
	tone       ToneRenderer
	store      *clips.Store
	sampleRate int
	window     time.Duration
	logger     zerolog.Logger

	mu           sync.Mutex
	voice        *Voice
	voiceKnown   bool
	voiceLookup  chan struct{} // non-nil while a lookup runs
	voiceRetryAt time.Time
}

// NewSynthesizer creates a synthesizer that stores clips in store
func NewSynthesizer(engine Engine, tone ToneRenderer, store *clips.Store, sampleRate int) *Synthesizer {
	if tone == nil {
		tone = audio.ToneGenerator{}
	}
	return &Synthesizer{
		engine:     engine,
		tone:       tone,
		store:      store,
		sampleRate: sampleRate,
		window:     FallbackWindow,
		logger:     observability.WithComponent("speech"),
	}
}

// Voices lists the engine's voices
func (s *Synthesizer) Voices(ctx context.Context) ([]Voice, error) {
	return s.engine.Voices(ctx)
}

// PreferredVoice returns the voice utterances are spoken with, nil for the
// engine default. It waits for a running lookup until ctx is done.
func (s *Synthesizer) PreferredVoice(ctx context.Context) *Voice {
	select {
	case <-s.lookupVoice():
	case <-ctx.Done():
	}
	return s.cachedVoice()
}

// voiceFor waits at most a quarter of the fallback window for the voice
// lookup and falls back to the engine default after that.
func (s *Synthesizer) voiceFor(ctx context.Context) *Voice {
	wait := time.NewTimer(s.window / 4)
	defer wait.Stop()

	select {
	case <-s.lookupVoice():
	case <-wait.C:
		s.logger.Debug().Msg("Voice list not ready, speaking with engine default")
	case <-ctx.Done():
	}
	return s.cachedVoice()
}

func (s *Synthesizer) cachedVoice() *Voice {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.voice
}

// lookupVoice starts a voice lookup unless one is running, the voice is known,
// or the last attempt failed recently. The channel closes when no lookup is pending.
func (s *Synthesizer) lookupVoice() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.voiceKnown || time.Now().Before(s.voiceRetryAt) {
		return ready
	}
	if s.voiceLookup != nil {
		return s.voiceLookup
	}

	done := make(chan struct{})
	s.voiceLookup = done
	go s.fetchVoices(done)
	return done
}

func (s *Synthesizer) fetchVoices(done chan struct{}) {
	ctx, cancel := context.WithTimeout(context.Background(), voiceLookupTimeout)
	defer cancel()

	voices, err := s.engine.Voices(ctx)

	s.mu.Lock()
	defer func() {
		s.voiceLookup = nil
		s.mu.Unlock()
		close(done)
	}()

	switch {
	case err != nil:
		s.voiceRetryAt = time.Now().Add(VoiceRetryBackoff)
		s.logger.Warn().Err(err).Str("engine", s.engine.Name()).Msg("Failed to list voices, using engine default")
	case len(voices) == 0:
		// Engines may populate their voice list late
		s.voiceRetryAt = time.Now().Add(VoiceRetryBackoff)
	default:
		s.voice = SelectVoice(voices)
		s.voiceKnown = true
		if s.voice != nil {
			s.logger.Info().Str("voice", s.voice.Name).Str("lang", s.voice.Lang).Msg("Selected preferred voice")
		}
	}
}

type speakResult struct {
	err error
}

// Generate speaks text and returns the URL of the generated clip.
//
// The call resolves when speech completes or after the fallback window,
// whichever comes first. An engine failure before that rejects with a
// *SynthesisError. Speech still in flight is canceled on return.
func (s *Synthesizer) Generate(ctx context.Context, text string) (string, error) {
	start := time.Now()

	window := time.NewTimer(s.window)
	defer window.Stop()

	speakCtx, cancelSpeech := context.WithCancel(ctx)
	defer cancelSpeech()

	utterance := NewUtterance(text, s.voiceFor(ctx))

	done := make(chan speakResult, 1)
	go func() {
		done <- speakResult{err: s.engine.Speak(speakCtx, utterance)}
	}()

	// Audio is rendered while the engine speaks.
	wav := audio.EncodeWAV(s.tone.Render(text, s.sampleRate))

	status := "completed"
	select {
	case res := <-done:
		if res.err != nil {
			err := asSynthesisError(res.err)
			observability.RecordAudioGeneration("error", start, 0)
			observability.RecordError("synthesis", "speech")
			s.logger.Warn().Err(err).Str("code", err.Code).Msg("Speech engine reported an error")
			return "", err
		}
	case <-window.C:
		status = "timeout"
	case <-ctx.Done():
		observability.RecordAudioGeneration("error", start, 0)
		return "", &SynthesisError{Code: CodeInterrupted, Err: ctx.Err()}
	}

	clip := s.store.Put(wav)
	observability.RecordAudioGeneration(status, start, len(wav))

	s.logger.Debug().
		Str("clip_id", clip.ID).
		Int("bytes", clip.Size).
		Str("status", status).
		Dur("elapsed", time.Since(start)).
		Msg("Generated audio clip")

	return clip.URL, nil
}

func asSynthesisError(err error) *SynthesisError {
	var se *SynthesisError
	if errors.As(err, &se) {
		return se
	}
	return &SynthesisError{Code: CodeFailed, Err: fmt.Errorf("speak: %w", err)}
}
