package summary

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/newsbreeze/news-gateway/internal/observability"
	"github.com/newsbreeze/news-gateway/internal/resilience"
	"github.com/rs/zerolog"
)

// Config configures the summarization client. An empty APIKey is valid and
// makes every summary a local fallback summary.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration

	// Circuit breaker around the remote endpoint
	MaxFailures  int
	ResetTimeout time.Duration
}

// Request parameters sent with every remote summarization
const (
	requestMaxLength = 100
	requestMinLength = 30
)

// Cache stores remote summaries
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// Client summarizes article text through a hosted inference API, falling
// back to FallbackSummary on any failure.
type Client struct {
	cfg        Config
	endpoint   string
	httpClient *http.Client
	breaker    *resilience.CircuitBreaker
	cache      Cache
	cacheTTL   time.Duration
	logger     zerolog.Logger
}

type inferenceRequest struct {
	Inputs     string              `json:"inputs"`
	Parameters inferenceParameters `json:"parameters"`
}

type inferenceParameters struct {
	MaxLength int  `json:"max_length"`
	MinLength int  `json:"min_length"`
	DoSample  bool `json:"do_sample"`
}

type inferenceResult struct {
	SummaryText string `json:"summary_text"`
}

// NewClient creates a summarization client
func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 30 * time.Second
	}

	breaker := resilience.NewCircuitBreaker("summarization", cfg.MaxFailures, cfg.ResetTimeout)
	breaker.OnStateChange = func(name string, state resilience.CircuitState) {
		observability.UpdateCircuitBreakerState(name, int(state))
	}

	return &Client{
		cfg:        cfg,
		endpoint:   strings.TrimRight(cfg.BaseURL, "/") + "/models/" + cfg.Model,
		httpClient: &http.Client{},
		breaker:    breaker,
		logger:     observability.WithComponent("summary"),
	}
}

// WithCache enables caching of remote summaries for ttl
func (c *Client) WithCache(cache Cache, ttl time.Duration) *Client {
	c.cache = cache
	c.cacheTTL = ttl
	return c
}

// Enabled reports whether remote summarization is configured
func (c *Client) Enabled() bool {
	return c.cfg.APIKey != ""
}

// HealthCheck reports the remote endpoint as unusable while its circuit is open.
// Fallback mode is always ready.
func (c *Client) HealthCheck(ctx context.Context) (bool, error) {
	if !c.Enabled() {
		return true, nil
	}

	state, requests, failures, rate := c.breaker.GetStats()
	if state == resilience.StateOpen {
		return false, fmt.Errorf("circuit breaker open: %d of %d requests failed (%.1f%%)", failures, requests, rate)
	}
	return true, nil
}

// Summarize returns a short summary of text. It never fails: any problem
// with the remote endpoint yields FallbackSummary(text).
func (c *Client) Summarize(ctx context.Context, text string) string {
	if !c.Enabled() {
		observability.RecordSummary("fallback")
		return FallbackSummary(text)
	}

	cleaned := CleanText(text)
	if runeLen(cleaned) < ShortInputLength {
		observability.RecordSummary("passthrough")
		return cleaned
	}

	key := c.cacheKey(cleaned)
	if cached, ok := c.fromCache(ctx, key); ok {
		observability.RecordSummary("cache")
		return cached
	}

	var summary string
	err := c.breaker.Call(func() error {
		var err error
		summary, err = c.remote(ctx, cleaned)
		return err
	})
	if err != nil {
		if errors.Is(err, resilience.ErrCircuitOpen) {
			c.logger.Debug().Msg("Summarization circuit open, using fallback")
		} else {
			observability.IncrementCircuitBreakerFailures("summarization")
			observability.RecordError("summarization", "summary")
			c.logger.Warn().Err(err).Msg("Summarization request failed, using fallback")
		}
		observability.RecordSummary("fallback")
		return FallbackSummary(text)
	}

	c.toCache(ctx, key, summary)
	observability.RecordSummary("remote")
	return summary
}

func (c *Client) remote(ctx context.Context, cleaned string) (string, error) {
	start := time.Now()
	defer observability.ObserveSummarizationLatency(start)

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	body, err := json.Marshal(inferenceRequest{
		Inputs: cleaned,
		Parameters: inferenceParameters{
			MaxLength: requestMaxLength,
			MinLength: requestMinLength,
			DoSample:  false,
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("summarization API returned status %d", resp.StatusCode)
	}

	var results []inferenceResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return "", fmt.Errorf("invalid response format from summarization API: %w", err)
	}
	if len(results) == 0 {
		return "", errors.New("invalid response format from summarization API: empty result")
	}

	summary := strings.TrimSpace(results[0].SummaryText)
	if summary == "" {
		return "", errors.New("invalid response format from summarization API: empty summary")
	}
	return summary, nil
}

func (c *Client) cacheKey(cleaned string) string {
	sum := sha256.Sum256([]byte(c.cfg.Model + "\x00" + cleaned))
	return "summary:" + hex.EncodeToString(sum[:])
}

func (c *Client) fromCache(ctx context.Context, key string) (string, bool) {
	if c.cache == nil {
		return "", false
	}
	value, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Summary cache lookup failed")
		return "", false
	}
	return value, ok
}

func (c *Client) toCache(ctx context.Context, key, value string) {
	if c.cache == nil {
		return
	}
	if err := c.cache.Set(ctx, key, value, c.cacheTTL); err != nil {
		c.logger.Warn().Err(err).Msg("Summary cache store failed")
	}
}
