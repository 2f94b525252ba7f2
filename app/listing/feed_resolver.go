package listing

import (
	"bytes"
	"context"
	"log/slog"
	"net/url"
	"strings"
	"sync"

	"github.com/mmcdole/gofeed"
)

// FeedResolver looks a talk up in the conference's podcast feed, whose item
// links point at release pages. The parsed feed is reused until Reset.
type FeedResolver struct {
	fetcher      DocumentFetcher
	feedURL      string
	matcher      Matcher
	gofeedParser *gofeed.Parser

	mu   sync.Mutex
	feed *gofeed.Feed
}

func NewFeedResolver(fetcher DocumentFetcher, feedURL string) *FeedResolver {
	return &FeedResolver{
		fetcher:      fetcher,
		feedURL:      feedURL,
		matcher:      SubstringMatcher{},
		gofeedParser: gofeed.NewParser(),
	}
}

func (r *FeedResolver) Resolve(ctx context.Context, title string) (string, bool) {
	if strings.TrimSpace(title) == "" {
		return "", false
	}

	feed, ok := r.load(ctx)
	if !ok {
		return "", false
	}

	for _, item := range feed.Items {
		if item == nil || item.Link == "" || !r.matcher.Match(item.Title, title) {
			continue
		}

		link := item.Link
		if base, err := url.Parse(r.feedURL); err == nil {
			if ref, err := url.Parse(link); err == nil {
				link = base.ResolveReference(ref).String()
			}
		}
		return link, true
	}

	return "", false
}

func (r *FeedResolver) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.feed = nil
}

func (r *FeedResolver) load(ctx context.Context) (*gofeed.Feed, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.feed != nil {
		return r.feed, true
	}

	data, err := r.fetcher.Document(ctx, r.feedURL)
	if err != nil {
		slog.Warn("Failed to fetch podcast feed", "url", r.feedURL, "error", err)
		return nil, false
	}

	feed, err := r.gofeedParser.Parse(bytes.NewReader(data))
	if err != nil {
		slog.Warn("Failed to parse podcast feed", "url", r.feedURL, "error", err)
		return nil, false
	}

	r.feed = feed
	return feed, true
}

// Chain tries each resolver in order and returns the first hit.
type Chain []Resolver

func (c Chain) Resolve(ctx context.Context, title string) (string, bool) {
	for _, r := range c {
		if link, ok := r.Resolve(ctx, title); ok {
			return link, true
		}
	}
	return "", false
}

func (c Chain) Reset() {
	for _, r := range c {
		if resetter, ok := r.(Resetter); ok {
			resetter.Reset()
		}
	}
}
