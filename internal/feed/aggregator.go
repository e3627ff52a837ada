package feed

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/mmcdole/gofeed"
	"github.com/newsbreeze/news-gateway/internal/observability"
	"github.com/rs/zerolog"
)

// extractBelow is the description length under which full text is extracted
const extractBelow = 100

// Summarizer condenses article text. It must not fail.
type Summarizer interface {
	Summarize(ctx context.Context, text string) string
}

// Options configures an Aggregator
type Options struct {
	Sources          []Source
	ItemsPerFeed     int
	MaxItems         int
	SummaryMaxLength int       // truncation length when a summary comes back empty
	Extractor        Extractor // nil disables full-text extraction
}

// Aggregator fetches, cleans, summarizes and merges news from several feeds
type Aggregator struct {
	fetcher    Fetcher
	summarizer Summarizer
	opts       Options
	logger     zerolog.Logger
	now        func() time.Time
}

// NewAggregator creates an aggregator
func NewAggregator(fetcher Fetcher, summarizer Summarizer, opts Options) *Aggregator {
	if opts.SummaryMaxLength <= 0 {
		opts.SummaryMaxLength = 200
	}
	return &Aggregator{
		fetcher:    fetcher,
		summarizer: summarizer,
		opts:       opts,
		logger:     observability.WithComponent("feed"),
		now:        time.Now,
	}
}

// Sources returns the enabled sources in fetch order
func (a *Aggregator) Sources() []Source {
	enabled := make([]Source, 0, len(a.opts.Sources))
	for _, s := range a.opts.Sources {
		if s.Enabled {
			enabled = append(enabled, s)
		}
	}
	return enabled
}

// Fetch aggregates every enabled source. Feeds are fetched one after another
// and items are summarized in order. A failing feed is logged and skipped.
// The result is sorted newest first and capped at MaxItems; it is empty,
// never an error, when every feed fails.
func (a *Aggregator) Fetch(ctx context.Context) []NewsItem {
	var all []NewsItem

	for _, source := range a.Sources() {
		if ctx.Err() != nil {
			a.logger.Warn().Err(ctx.Err()).Msg("Aggregation interrupted")
			break
		}

		start := time.Now()
		items, err := a.fetchSource(ctx, source)
		observability.RecordFeedFetch(source.Name, start, err == nil)
		if err != nil {
			observability.RecordError("feed_fetch", "feed")
			a.logger.Error().Err(err).Str("source", source.Name).Str("url", source.URL).Msg("Error fetching feed")
			continue
		}

		a.logger.Debug().Str("source", source.Name).Int("items", len(items)).Dur("elapsed", time.Since(start)).Msg("Fetched feed")
		all = append(all, items...)
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].PublishedAt.After(all[j].PublishedAt)
	})
	if a.opts.MaxItems > 0 && len(all) > a.opts.MaxItems {
		all = all[:a.opts.MaxItems]
	}

	observability.SetNewsItems(len(all))
	return all
}

func (a *Aggregator) fetchSource(ctx context.Context, source Source) ([]NewsItem, error) {
	xml, err := a.fetcher.Fetch(ctx, source.URL)
	if err != nil {
		return nil, err
	}

	parsed, err := gofeed.NewParser().ParseString(xml)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	count := len(parsed.Items)
	if a.opts.ItemsPerFeed > 0 && count > a.opts.ItemsPerFeed {
		count = a.opts.ItemsPerFeed
	}

	items := make([]NewsItem, 0, count)
	for _, raw := range parsed.Items[:count] {
		item := a.convert(raw, source)
		item.Summary = a.summarize(ctx, item)
		items = append(items, item)
	}
	return items, nil
}

func (a *Aggregator) convert(raw *gofeed.Item, source Source) NewsItem {
	title := CleanText(raw.Title)
	if title == "" {
		title = DefaultTitle
	}

	description := raw.Description
	if strings.TrimSpace(description) == "" {
		description = raw.Content
	}
	description = CleanText(description)
	if description == "" {
		description = DefaultDescription
	}

	link := strings.TrimSpace(raw.Link)
	if link == "" {
		link = DefaultLink
	}

	published := a.now()
	if raw.PublishedParsed != nil {
		published = *raw.PublishedParsed
	} else if raw.UpdatedParsed != nil {
		published = *raw.UpdatedParsed
	}

	return NewsItem{
		ID:          itemID(link, title, source.Name),
		Title:       title,
		Description: description,
		Link:        link,
		Source:      source.Name,
		PublishedAt: published,
	}
}

func (a *Aggregator) summarize(ctx context.Context, item NewsItem) string {
	text := item.Description

	if a.opts.Extractor != nil && item.Link != DefaultLink && utf8.RuneCountInString(text) < extractBelow {
		full, err := a.opts.Extractor.Extract(ctx, item.Link)
		if err != nil {
			a.logger.Debug().Err(err).Str("link", item.Link).Msg("Full-text extraction failed")
		} else if utf8.RuneCountInString(full) > utf8.RuneCountInString(text) {
			text = full
		}
	}

	summary := a.summarizer.Summarize(ctx, text)
	if summary == "" {
		return truncate(item.Description, a.opts.SummaryMaxLength) + "..."
	}
	return summary
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
