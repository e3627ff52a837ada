package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/newsbreeze/news-gateway/internal/observability"
	"github.com/rs/zerolog"
)

// RemoteEngine implements Engine against an HTTP text-to-speech API
type RemoteEngine struct {
	apiKey     string
	apiURL     string
	httpClient *http.Client
	logger     zerolog.Logger

	mu      sync.Mutex
	nextID  int
	cancels map[int]context.CancelFunc
}

// RemoteSpeakRequest represents the request payload for the speak endpoint
type RemoteSpeakRequest struct {
	Text   string  `json:"text"`
	Voice  string  `json:"voice,omitempty"`
	Rate   float64 `json:"rate"`
	Pitch  float64 `json:"pitch"`
	Volume float64 `json:"volume"`
}

// NewRemoteEngine creates a client for the speech API at apiURL
func NewRemoteEngine(apiURL, apiKey string) *RemoteEngine {
	return &RemoteEngine{
		apiKey:     apiKey,
		apiURL:     strings.TrimRight(apiURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     observability.WithComponent("speech").With().Str("engine", "remote").Logger(),
		cancels:    make(map[int]context.CancelFunc),
	}
}

// Name implements Engine
func (c *RemoteEngine) Name() string {
	return "remote"
}

// Voices implements Engine by reading <base>/voices
func (c *RemoteEngine) Voices(ctx context.Context) ([]Voice, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+"/voices", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("x-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("speech API returned status %d", resp.StatusCode)
	}

	var voices []Voice
	if err := json.NewDecoder(resp.Body).Decode(&voices); err != nil {
		return nil, fmt.Errorf("failed to decode voices: %w", err)
	}
	return voices, nil
}

// Speak implements Engine. It posts the utterance to <base>/speak and
// returns once the response body has been fully consumed.
func (c *RemoteEngine) Speak(ctx context.Context, u Utterance) error {
	ctx, cancel := context.WithCancel(ctx)
	id := c.register(cancel)
	defer c.unregister(id)
	defer cancel()

	reqBody := RemoteSpeakRequest{
		Text:   u.Text,
		Rate:   u.Rate,
		Pitch:  u.Pitch,
		Volume: u.Volume,
	}
	if u.Voice != nil {
		reqBody.Voice = u.Voice.Name
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return &SynthesisError{Code: CodeFailed, Err: fmt.Errorf("failed to marshal request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/speak", bytes.NewBuffer(jsonData))
	if err != nil {
		return &SynthesisError{Code: CodeFailed, Err: fmt.Errorf("failed to create request: %w", err)}
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return &SynthesisError{Code: CodeInterrupted, Err: ctx.Err()}
		}
		return &SynthesisError{Code: CodeNetwork, Err: fmt.Errorf("failed to make request: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &SynthesisError{Code: fmt.Sprintf("http_%d", resp.StatusCode)}
	}

	n, err := io.Copy(io.Discard, resp.Body)
	if err != nil {
		if ctx.Err() != nil {
			return &SynthesisError{Code: CodeInterrupted, Err: ctx.Err()}
		}
		return &SynthesisError{Code: CodeNetwork, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	c.logger.Debug().Int64("bytes", n).Msg("Speech request completed")
	return nil
}

// Cancel implements Engine
func (c *RemoteEngine) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, cancel := range c.cancels {
		cancel()
	}
}

// IsActive returns whether any utterance is in flight
func (c *RemoteEngine) IsActive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.cancels) > 0
}

func (c *RemoteEngine) register(cancel context.CancelFunc) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	c.cancels[c.nextID] = cancel
	return c.nextID
}

func (c *RemoteEngine) unregister(id int) {
	c.mu.Lock()
	delete(c.cancels, id)
	c.mu.Unlock()
}
