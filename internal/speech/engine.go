package speech

import (
	"context"
	"fmt"

	"github.com/newsbreeze/news-gateway/internal/config"
)

// SilentEngine completes every utterance immediately and offers no voices
type SilentEngine struct{}

// Name implements Engine
func (SilentEngine) Name() string { return "silent" }

// Voices implements Engine
func (SilentEngine) Voices(ctx context.Context) ([]Voice, error) { return nil, nil }

// Speak implements Engine
func (SilentEngine) Speak(ctx context.Context, u Utterance) error {
	if err := ctx.Err(); err != nil {
		return &SynthesisError{Code: CodeInterrupted, Err: err}
	}
	return nil
}

// Cancel implements Engine
func (SilentEngine) Cancel() {}

// NewEngine builds the speech engine selected by cfg.SpeechEngine
func NewEngine(cfg *config.Config) (Engine, error) {
	switch cfg.SpeechEngine {
	case config.SpeechEngineSilent, "":
		return SilentEngine{}, nil
	case config.SpeechEngineEspeak:
		return NewCommandEngine(cfg.EspeakBinary), nil
	case config.SpeechEngineRemote:
		if cfg.SpeechAPIURL == "" {
			return nil, fmt.Errorf("SPEECH_API_URL is required for the remote speech engine")
		}
		return NewRemoteEngine(cfg.SpeechAPIURL, cfg.SpeechAPIKey), nil
	default:
		return nil, fmt.Errorf("unknown speech engine %q", cfg.SpeechEngine)
	}
}
