package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/newsbreeze/news-gateway/internal/feed"
	"github.com/newsbreeze/news-gateway/internal/playback"
	"github.com/rs/zerolog"
)

// NewsResponse is the body of GET /api/news
type NewsResponse struct {
	Items     []feed.NewsItem `json:"items"`
	Count     int             `json:"count"`
	FetchedAt *time.Time      `json:"fetched_at,omitempty"`
}

type newsController struct {
	news     NewsService
	playback PlaybackService
}

// RegisterNewsRoutes registers the news list and per-item playback endpoints
func RegisterNewsRoutes(r *gin.Engine, news NewsService, pb PlaybackService) {
	ctrl := &newsController{news: news, playback: pb}

	g := r.Group("/api/news")
	g.GET("", ctrl.list)
	g.POST("/refresh", ctrl.refresh)
	g.GET("/:id", ctrl.item)
	g.GET("/:id/audio", ctrl.audioState)
	g.POST("/:id/audio/play", ctrl.play)

	r.GET("/api/audio", ctrl.audioStates)
}

// list returns the current news, refreshing first when nothing is loaded yet
func (ctrl *newsController) list(c *gin.Context) {
	items, fetchedAt := ctrl.news.Items()
	if fetchedAt.IsZero() {
		var err error
		items, err = ctrl.news.Refresh(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "news refresh did not finish", "detail": err.Error()})
			return
		}
		_, fetchedAt = ctrl.news.Items()
	}

	resp := NewsResponse{Items: items, Count: len(items)}
	if resp.Items == nil {
		resp.Items = []feed.NewsItem{}
	}
	if !fetchedAt.IsZero() {
		resp.FetchedAt = &fetchedAt
	}
	c.JSON(http.StatusOK, resp)
}

// refresh starts a refresh and returns 202 Accepted immediately
func (ctrl *newsController) refresh(c *gin.Context) {
	if ctrl.news.RefreshAsync() {
		c.JSON(http.StatusAccepted, gin.H{"status": "refresh started"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "refresh already running"})
}

func (ctrl *newsController) item(c *gin.Context) {
	it, ok := ctrl.news.Item(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "news item not found"})
		return
	}
	c.JSON(http.StatusOK, it)
}

func (ctrl *newsController) audioState(c *gin.Context) {
	snap, err := ctrl.playback.Snapshot(c.Param("id"))
	if err != nil {
		respondPlaybackError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// audioStates lists the playback state of every registered item
func (ctrl *newsController) audioStates(c *gin.Context) {
	snaps := ctrl.playback.Snapshots()
	c.JSON(http.StatusOK, gin.H{"items": snaps, "count": len(snaps)})
}

// play toggles playback. Generation runs within the request, so the response
// reflects the state after the toggle completes.
func (ctrl *newsController) play(c *gin.Context) {
	id := c.Param("id")
	snap, err := ctrl.playback.RequestPlay(c.Request.Context(), id)
	if err != nil {
		respondPlaybackError(c, err)
		return
	}

	zerolog.Ctx(c.Request.Context()).Info().
		Str("item_id", id).
		Stringer("state", snap.State).
		Msg("Playback toggled")
	c.JSON(http.StatusOK, snap)
}

func respondPlaybackError(c *gin.Context, err error) {
	if errors.Is(err, playback.ErrUnknownItem) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
