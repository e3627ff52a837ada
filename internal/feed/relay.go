package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/newsbreeze/news-gateway/internal/resilience"
)

// maxFeedBytes caps how much of a feed response is read
const maxFeedBytes = 10 << 20

// Fetcher returns the raw XML of a feed
type Fetcher interface {
	Fetch(ctx context.Context, feedURL string) (string, error)
}

// RelayClient fetches feeds through a relay that wraps the upstream body as
// {"contents": "<xml>"}. With an empty relay URL feeds are fetched directly.
type RelayClient struct {
	relayURL   string
	httpClient *http.Client
	retry      *resilience.RetryConfig
}

type relayResponse struct {
	Contents *string `json:"contents"`
}

// NewRelayClient creates a relay client. Transient failures are retried per retry.
func NewRelayClient(relayURL string, timeout time.Duration, retry *resilience.RetryConfig) *RelayClient {
	return &RelayClient{
		relayURL:   relayURL,
		httpClient: &http.Client{Timeout: timeout},
		retry:      retry,
	}
}

// Fetch implements Fetcher
func (c *RelayClient) Fetch(ctx context.Context, feedURL string) (string, error) {
	var xml string
	err := resilience.Retry(ctx, func(ctx context.Context) error {
		var err error
		xml, err = c.fetchOnce(ctx, feedURL)
		return err
	}, c.retry, resilience.IsRetryableNetworkError)
	if err != nil {
		return "", err
	}
	return xml, nil
}

func (c *RelayClient) fetchOnce(ctx context.Context, feedURL string) (string, error) {
	target := feedURL
	if c.relayURL != "" {
		target = c.relayURL + url.QueryEscape(feedURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("feed relay returned status %d", resp.StatusCode)
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return "", resilience.NewRetryableError(err)
		}
		return "", err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read feed: %w", err)
	}

	if c.relayURL == "" {
		return string(body), nil
	}

	var wrapped relayResponse
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return "", fmt.Errorf("invalid relay response: %w", err)
	}
	if wrapped.Contents == nil || *wrapped.Contents == "" {
		return "", errors.New("invalid relay response: missing contents")
	}
	return *wrapped.Contents, nil
}
