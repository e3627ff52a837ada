package api

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/newsbreeze/news-gateway/internal/clips"
	"github.com/newsbreeze/news-gateway/internal/feed"
	"github.com/newsbreeze/news-gateway/internal/observability"
	"github.com/newsbreeze/news-gateway/internal/playback"
	"github.com/newsbreeze/news-gateway/internal/speech"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RequestIDHeader carries the request correlation ID
const RequestIDHeader = "X-Request-ID"

// NewsService is the news list the API serves
type NewsService interface {
	Items() ([]feed.NewsItem, time.Time)
	Item(id string) (feed.NewsItem, bool)
	Refresh(ctx context.Context) ([]feed.NewsItem, error)
	RefreshAsync() bool
}

// PlaybackService controls per-item audio
type PlaybackService interface {
	RequestPlay(ctx context.Context, itemID string) (playback.Snapshot, error)
	Snapshot(itemID string) (playback.Snapshot, error)
	Snapshots() []playback.Snapshot
}

// VoiceSource lists speech voices
type VoiceSource interface {
	Voices(ctx context.Context) ([]speech.Voice, error)
	PreferredVoice(ctx context.Context) *speech.Voice
}

// ClipSource serves generated audio clips
type ClipSource interface {
	Get(ref string) (clips.Clip, []byte, error)
}

// Deps are the services behind the HTTP API
type Deps struct {
	News           NewsService
	Playback       PlaybackService
	Voices         VoiceSource
	Clips          ClipSource
	Events         *EventHub
	Checks         map[string]observability.HealthCheckFunc
	MetricsEnabled bool
}

// NewRouter constructs a Gin engine with registered routes
func NewRouter(deps Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestID())

	RegisterHealthRoutes(r, deps.Checks)
	if deps.MetricsEnabled {
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}
	RegisterNewsRoutes(r, deps.News, deps.Playback)
	RegisterAudioRoutes(r, deps.Clips, deps.Voices)
	if deps.Events != nil {
		r.GET("/api/events", deps.Events.Handle)
	}
	return r
}

// requestID tags each request with a correlation ID and a matching logger
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = observability.NewCorrelationID()
		}
		c.Header(RequestIDHeader, id)

		logger := observability.WithCorrelationID(id)
		c.Request = c.Request.WithContext(logger.WithContext(c.Request.Context()))

		start := time.Now()
		c.Next()

		logger.Debug().
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("Request handled")
	}
}

// RegisterHealthRoutes registers the liveness and readiness endpoints
func RegisterHealthRoutes(r *gin.Engine, checks map[string]observability.HealthCheckFunc) {
	r.GET("/health", gin.WrapF(observability.HealthCheckHandler()))
	r.GET("/ready", gin.WrapF(observability.ReadinessHandler(checks)))
}
