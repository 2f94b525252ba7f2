package listing

import (
	"bytes"
	"context"
	"log/slog"
	"net/url"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"

	"github.com/lysyi3m/relive-sync/app/selectors"
)

type DocumentFetcher interface {
	Document(ctx context.Context, url string) ([]byte, error)
}

// Resolver finds the release page of a talk by its title.
type Resolver interface {
	Resolve(ctx context.Context, title string) (string, bool)
}

// Resetter is implemented by resolvers that memoize fetched pages for the
// duration of one pass.
type Resetter interface {
	Reset()
}

type listingEntry struct {
	text string
	href string // resolved against the listing URL
}

// ListingResolver scans the conference listing page for a talk link. A parsed
// listing is reused until Reset.
type ListingResolver struct {
	fetcher    DocumentFetcher
	sel        selectors.ListingSelectors
	listingURL string
	matcher    Matcher

	mu      sync.Mutex
	entries map[string][]listingEntry
}

func NewListingResolver(fetcher DocumentFetcher, sel selectors.ListingSelectors, listingURL string) *ListingResolver {
	return &ListingResolver{
		fetcher:    fetcher,
		sel:        sel,
		listingURL: listingURL,
		matcher:    SubstringMatcher{},
		entries:    make(map[string][]listingEntry),
	}
}

func (r *ListingResolver) WithMatcher(m Matcher) *ListingResolver {
	r.matcher = m
	return r
}

// Reset drops memoized listings so the next lookup fetches again.
func (r *ListingResolver) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = make(map[string][]listingEntry)
}

func (r *ListingResolver) Resolve(ctx context.Context, title string) (string, bool) {
	return r.Lookup(ctx, title, r.listingURL)
}

// Lookup returns the href of the first listing entry whose link text contains
// title, resolved against listingURL. Fetch or parse failures mean not found.
func (r *ListingResolver) Lookup(ctx context.Context, title string, listingURL string) (string, bool) {
	if strings.TrimSpace(title) == "" {
		return "", false
	}

	entries, ok := r.listing(ctx, listingURL)
	if !ok {
		return "", false
	}

	for _, entry := range entries {
		if r.matcher.Match(entry.text, title) {
			slog.Debug("Release page resolved", "title", title, "url", entry.href)
			return entry.href, true
		}
	}

	slog.Debug("Talk not found on listing page", "title", title, "url", listingURL)
	return "", false
}

// listing returns the parsed entries of listingURL. Failures are not memoized.
func (r *ListingResolver) listing(ctx context.Context, listingURL string) ([]listingEntry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if entries, ok := r.entries[listingURL]; ok {
		return entries, true
	}

	base, err := url.Parse(listingURL)
	if err != nil {
		slog.Warn("Invalid listing URL", "url", listingURL, "error", err)
		return nil, false
	}

	data, err := r.fetcher.Document(ctx, listingURL)
	if err != nil {
		slog.Warn("Failed to fetch listing page", "url", listingURL, "error", err)
		return nil, false
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		slog.Warn("Failed to parse listing page", "url", listingURL, "error", err)
		return nil, false
	}

	var entries []listingEntry
	doc.Find(r.sel.Entry).Each(func(_ int, preview *goquery.Selection) {
		link := preview.Find(r.sel.Link).First()
		href, ok := link.Attr("href")
		if !ok || strings.TrimSpace(href) == "" {
			return
		}

		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			slog.Debug("Skipping listing entry with invalid href", "href", href, "error", err)
			return
		}

		entries = append(entries, listingEntry{
			text: link.Text(),
			href: base.ResolveReference(ref).String(),
		})
	})

	slog.Debug("Listing page loaded", "url", listingURL, "entries", len(entries))

	r.entries[listingURL] = entries
	return entries, true
}
