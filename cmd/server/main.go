package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newsbreeze/news-gateway/internal/api"
	"github.com/newsbreeze/news-gateway/internal/clips"
	"github.com/newsbreeze/news-gateway/internal/config"
	"github.com/newsbreeze/news-gateway/internal/feed"
	"github.com/newsbreeze/news-gateway/internal/news"
	"github.com/newsbreeze/news-gateway/internal/observability"
	"github.com/newsbreeze/news-gateway/internal/playback"
	"github.com/newsbreeze/news-gateway/internal/resilience"
	"github.com/newsbreeze/news-gateway/internal/speech"
	"github.com/newsbreeze/news-gateway/internal/summary"
	"github.com/rs/zerolog"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		// Use fmt for fatal errors before logger is initialized
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize structured logger
	observability.InitLogger(cfg.LogLevel, cfg.LogPretty)
	logger := observability.GetLogger()

	logger.Info().
		Str("port", cfg.Port).
		Int("sources", len(cfg.EnabledSources())).
		Str("speech_engine", cfg.SpeechEngine).
		Bool("summarization_enabled", cfg.SummarizationEnabled()).
		Bool("metrics_enabled", cfg.MetricsEnabled).
		Msg("News Gateway Service starting")

	// Summarization, optionally cached in Redis
	summarizer := summary.NewClient(summary.Config{
		APIKey:       cfg.HuggingFaceAPIKey,
		BaseURL:      cfg.HuggingFaceBaseURL,
		Model:        cfg.SummarizationModel,
		Timeout:      cfg.SummarizationTimeoutDuration(),
		MaxFailures:  cfg.CircuitBreakerMaxFailures,
		ResetTimeout: time.Duration(cfg.CircuitBreakerResetTimeout) * time.Second,
	})
	if !cfg.SummarizationEnabled() {
		logger.Warn().Msg("HUGGINGFACE_API_KEY not set, using local fallback summaries")
	}

	checks := map[string]observability.HealthCheckFunc{}

	var cache *summary.RedisCache
	if cfg.RedisAddr != "" {
		cache = connectCache(cfg, logger)
		if cache != nil {
			summarizer.WithCache(cache, cfg.SummaryCacheTTLDuration())
			checks["redis"] = func(ctx context.Context) (bool, error) {
				if err := cache.Ping(ctx); err != nil {
					return false, err
				}
				return true, nil
			}
		}
	}

	checks["summarization"] = summarizer.HealthCheck

	// Feed aggregation
	retry := &resilience.RetryConfig{
		MaxAttempts:       cfg.RetryMaxAttempts,
		InitialBackoff:    time.Duration(cfg.RetryInitialBackoff) * time.Millisecond,
		MaxBackoff:        5 * time.Second,
		BackoffMultiplier: 2.0,
		Jitter:            true,
	}
	opts := feed.Options{
		Sources:          cfg.Sources,
		ItemsPerFeed:     cfg.ItemsPerFeed,
		MaxItems:         cfg.MaxNewsItems,
		SummaryMaxLength: cfg.SummaryMaxLength,
	}
	if cfg.ExtractFullText {
		opts.Extractor = feed.NewReadabilityExtractor(cfg.FeedTimeoutDuration())
	}
	aggregator := feed.NewAggregator(feed.NewRelayClient(cfg.FeedRelayURL, cfg.FeedTimeoutDuration(), retry), summarizer, opts)

	// Speech and audio
	engine, err := speech.NewEngine(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create speech engine")
	}
	store := clips.NewStore(cfg.PublicBaseURL)
	synthesizer := speech.NewSynthesizer(engine, nil, store, cfg.AudioSampleRate)

	checks["speech"] = func(ctx context.Context) (bool, error) {
		if _, err := engine.Voices(ctx); err != nil {
			return false, fmt.Errorf("%s engine: %w", engine.Name(), err)
		}
		return true, nil
	}

	events := api.NewEventHub()
	manager := playback.NewManager(synthesizer, playback.NewTimedPlayer(store), store, events)
	manager.OnChange = events.PlaybackChanged

	service := news.NewService(aggregator, manager, cfg.RefreshIntervalDuration())
	if err := service.Start(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to schedule news refresh")
	}
	service.RefreshAsync()

	router := api.NewRouter(api.Deps{
		News:           service,
		Playback:       manager,
		Voices:         synthesizer,
		Clips:          store,
		Events:         events,
		Checks:         checks,
		MetricsEnabled: cfg.MetricsEnabled,
	})
	if cfg.MetricsEnabled {
		logger.Info().Msg("Prometheus metrics enabled at /metrics")
	}

	// Create HTTP server with timeouts. Play requests wait for generation,
	// which is bounded by the speech fallback window.
	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info().
			Str("port", cfg.Port).
			Str("events", fmt.Sprintf("ws://localhost:%s/api/events", cfg.Port)).
			Msg("Server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	service.Stop()
	events.Close()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("Server forced to shutdown")
	}

	manager.Close()
	engine.Cancel()
	if cache != nil {
		if err := cache.Close(); err != nil {
			logger.Warn().Err(err).Msg("Error closing Redis connection")
		}
	}

	logger.Info().Msg("Server exited gracefully")
}

// connectCache connects to Redis with backoff. The service runs without a
// cache when Redis stays unreachable.
func connectCache(cfg *config.Config, logger zerolog.Logger) *summary.RedisCache {
	cache := summary.NewRedisCache(summary.NewRedisClient(summary.RedisOptions{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}))

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	err := resilience.Reconnect(ctx, func(ctx context.Context) error {
		return cache.Ping(ctx)
	}, &resilience.ReconnectConfig{
		MaxAttempts: cfg.ReconnectMaxAttempts,
		Backoff:     time.Duration(cfg.ReconnectBackoff) * time.Millisecond,
		Multiplier:  2.0,
		MaxBackoff:  10 * time.Second,
	}, logger.With().Str("component", "redis").Logger())
	if err != nil {
		logger.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("Redis unavailable, summary cache disabled")
		cache.Close()
		return nil
	}

	logger.Info().Str("addr", cfg.RedisAddr).Msg("Summary cache connected")
	return cache
}
