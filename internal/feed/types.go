package feed

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/newsbreeze/news-gateway/internal/config"
)

// Source is a configured RSS feed
type Source = config.FeedSource

// Defaults for fields missing from a feed item
const (
	DefaultTitle       = "No title"
	DefaultDescription = "No description"
	DefaultLink        = "#"
)

// NewsItem is one aggregated, summarized article
type NewsItem struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Summary     string    `json:"summary"`
	Link        string    `json:"link"`
	Source      string    `json:"source"`
	PublishedAt time.Time `json:"published_at"`
	AudioURL    string    `json:"audio_url,omitempty"`
}

// GenerateID creates a short, stable ID by hashing the provided input
func GenerateID(input string) string {
	hash := sha256.Sum256([]byte(input))
	return hex.EncodeToString(hash[:])[:16]
}

func itemID(link, title, source string) string {
	if link != "" && link != DefaultLink {
		return GenerateID(link)
	}
	return GenerateID(title + "\x00" + source)
}
