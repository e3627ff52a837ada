package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Speech engine identifiers accepted by SPEECH_ENGINE
const (
	SpeechEngineSilent = "silent"
	SpeechEngineEspeak = "espeak"
	SpeechEngineRemote = "remote"
)

// Config holds all configuration for the news gateway service
type Config struct {
	// Server configuration
	Port string `envconfig:"PORT" default:"8080"`

	// Public base URL prepended to generated audio clip URLs.
	// Optional; if unset, clip URLs are relative (/audio/<id>.wav).
	PublicBaseURL string `envconfig:"PUBLIC_BASE_URL" default:""`

	// Feed aggregation configuration
	FeedRelayURL    string `envconfig:"FEED_RELAY_URL" default:"https://api.allorigins.win/get?url="`
	FeedSourcesFile string `envconfig:"FEED_SOURCES_FILE" default:""` // YAML list of feed sources
	FeedTimeout     int    `envconfig:"FEED_TIMEOUT" default:"15"`    // seconds
	ItemsPerFeed    int    `envconfig:"ITEMS_PER_FEED" default:"5"`
	MaxNewsItems    int    `envconfig:"MAX_NEWS_ITEMS" default:"10"`
	RefreshInterval int    `envconfig:"REFRESH_INTERVAL" default:"300"` // seconds
	ExtractFullText bool   `envconfig:"EXTRACT_FULL_TEXT" default:"false"`

	// Summarization API configuration (Hugging Face inference).
	// An empty key is valid and selects local fallback summaries.
	HuggingFaceAPIKey    string `envconfig:"HUGGINGFACE_API_KEY" default:""`
	HuggingFaceBaseURL   string `envconfig:"HUGGINGFACE_BASE_URL" default:"https://api-inference.huggingface.co"`
	SummarizationModel   string `envconfig:"SUMMARIZATION_MODEL" default:"Falconsai/text_summarization"`
	SummarizationTimeout int    `envconfig:"SUMMARIZATION_TIMEOUT" default:"10"` // seconds
	SummaryMaxLength     int    `envconfig:"SUMMARY_MAX_LENGTH" default:"200"`   // used when truncating descriptions

	// Summary cache (Redis). Disabled when REDIS_ADDR is empty.
	RedisAddr       string `envconfig:"REDIS_ADDR" default:""`
	RedisPassword   string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB         int    `envconfig:"REDIS_DB" default:"0"`
	SummaryCacheTTL int    `envconfig:"SUMMARY_CACHE_TTL" default:"3600"` // seconds

	// Speech configuration
	SpeechEngine    string `envconfig:"SPEECH_ENGINE" default:"silent"` // silent, espeak, remote
	EspeakBinary    string `envconfig:"ESPEAK_BINARY" default:"espeak-ng"`
	SpeechAPIURL    string `envconfig:"SPEECH_API_URL" default:""`
	SpeechAPIKey    string `envconfig:"SPEECH_API_KEY" default:""`
	AudioSampleRate int    `envconfig:"AUDIO_SAMPLE_RATE" default:"44100"` // Hz, placeholder tone sample rate

	// Resilience configuration
	CircuitBreakerMaxFailures  int `envconfig:"CIRCUIT_BREAKER_MAX_FAILURES" default:"5"`   // Failures before opening circuit
	CircuitBreakerResetTimeout int `envconfig:"CIRCUIT_BREAKER_RESET_TIMEOUT" default:"30"` // Seconds before attempting recovery
	RetryMaxAttempts           int `envconfig:"RETRY_MAX_ATTEMPTS" default:"3"`             // Maximum retry attempts
	RetryInitialBackoff        int `envconfig:"RETRY_INITIAL_BACKOFF" default:"100"`        // Initial backoff in milliseconds
	ReconnectMaxAttempts       int `envconfig:"RECONNECT_MAX_ATTEMPTS" default:"5"`         // Maximum reconnection attempts
	ReconnectBackoff           int `envconfig:"RECONNECT_BACKOFF" default:"1000"`           // Reconnection backoff in milliseconds

	// Observability configuration
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`       // Log level: debug, info, warn, error
	LogPretty      bool   `envconfig:"LOG_PRETTY" default:"false"`     // Pretty print logs (for development)
	MetricsEnabled bool   `envconfig:"METRICS_ENABLED" default:"true"` // Enable Prometheus metrics

	// Sources is resolved from FeedSourcesFile, or DefaultSources when unset
	Sources []FeedSource `ignored:"true"`
}

// Load reads configuration from environment variables
// It first attempts to load from .env file if it exists, then from environment
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	return LoadFromEnv()
}

// LoadFromEnv loads configuration directly from environment variables
// without attempting to load .env file (useful for containerized deployments)
func LoadFromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	sources, err := LoadSources(cfg.FeedSourcesFile)
	if err != nil {
		return nil, err
	}
	cfg.Sources = sources

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks value ranges that envconfig cannot express
func (c *Config) Validate() error {
	if c.ItemsPerFeed <= 0 {
		return fmt.Errorf("ITEMS_PER_FEED must be positive, got %d", c.ItemsPerFeed)
	}
	if c.MaxNewsItems <= 0 {
		return fmt.Errorf("MAX_NEWS_ITEMS must be positive, got %d", c.MaxNewsItems)
	}
	if c.FeedTimeout <= 0 {
		return fmt.Errorf("FEED_TIMEOUT must be positive, got %d", c.FeedTimeout)
	}
	if c.SummarizationTimeout <= 0 {
		return fmt.Errorf("SUMMARIZATION_TIMEOUT must be positive, got %d", c.SummarizationTimeout)
	}
	if c.AudioSampleRate <= 0 {
		return fmt.Errorf("AUDIO_SAMPLE_RATE must be positive, got %d", c.AudioSampleRate)
	}
	if c.RetryMaxAttempts <= 0 {
		return fmt.Errorf("RETRY_MAX_ATTEMPTS must be positive, got %d", c.RetryMaxAttempts)
	}

	switch c.SpeechEngine {
	case SpeechEngineSilent, SpeechEngineEspeak:
	case SpeechEngineRemote:
		if c.SpeechAPIURL == "" {
			return fmt.Errorf("SPEECH_API_URL is required when SPEECH_ENGINE=remote")
		}
	default:
		return fmt.Errorf("unknown SPEECH_ENGINE %q (want silent, espeak or remote)", c.SpeechEngine)
	}

	return nil
}

// EnabledSources returns the feed sources that are switched on, in order
func (c *Config) EnabledSources() []FeedSource {
	enabled := make([]FeedSource, 0, len(c.Sources))
	for _, s := range c.Sources {
		if s.Enabled {
			enabled = append(enabled, s)
		}
	}
	return enabled
}

// SummarizationEnabled reports whether a remote summarization key is configured
func (c *Config) SummarizationEnabled() bool {
	return c.HuggingFaceAPIKey != ""
}

// FeedTimeoutDuration returns FeedTimeout as a time.Duration
func (c *Config) FeedTimeoutDuration() time.Duration {
	return time.Duration(c.FeedTimeout) * time.Second
}

// SummarizationTimeoutDuration returns SummarizationTimeout as a time.Duration
func (c *Config) SummarizationTimeoutDuration() time.Duration {
	return time.Duration(c.SummarizationTimeout) * time.Second
}

// RefreshIntervalDuration returns RefreshInterval as a time.Duration
func (c *Config) RefreshIntervalDuration() time.Duration {
	return time.Duration(c.RefreshInterval) * time.Second
}

// SummaryCacheTTLDuration returns SummaryCacheTTL as a time.Duration
func (c *Config) SummaryCacheTTLDuration() time.Duration {
	return time.Duration(c.SummaryCacheTTL) * time.Second
}
