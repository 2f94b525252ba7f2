package release

import (
	"bytes"
	"context"
	"log/slog"
	"net/url"
	"path"
	"slices"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
	"golang.org/x/net/html"

	"github.com/lysyi3m/relive-sync/app/selectors"
)

const unknownLanguage = "unknown"

type DocumentFetcher interface {
	Document(ctx context.Context, url string) ([]byte, error)
}

type Extractor struct {
	fetcher  DocumentFetcher
	sel      selectors.ReleaseSelectors
	fallback bool
}

// NewExtractor builds a release page extractor. With fallback set, a page
// without a description region gets its readability text as description.
func NewExtractor(fetcher DocumentFetcher, sel selectors.ReleaseSelectors, fallback bool) *Extractor {
	return &Extractor{
		fetcher:  fetcher,
		sel:      sel,
		fallback: fallback,
	}
}

// Extract scrapes a release page. Any fetch or parse failure yields an empty bundle.
func (e *Extractor) Extract(ctx context.Context, pageURL string) Bundle {
	data, err := e.fetcher.Document(ctx, pageURL)
	if err != nil {
		slog.Warn("Failed to fetch release page", "url", pageURL, "error", err)
		return Bundle{}
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		slog.Warn("Invalid release page URL", "url", pageURL, "error", err)
		return Bundle{}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		slog.Warn("Failed to parse release page", "url", pageURL, "error", err)
		return Bundle{}
	}

	bundle := Bundle{
		Authors:     e.authors(doc),
		Description: e.description(doc),
		VideoHDURL:  e.videoHD(doc, base),
		Audio:       e.audio(doc, base),
	}

	if bundle.Description == "" && e.fallback && doc.Find(e.sel.Description).Length() == 0 {
		bundle.Description = readableText(data, base)
	}

	slog.Debug("Release page extracted",
		"url", pageURL,
		"authors", bundle.Authors,
		"description_length", len(bundle.Description),
		"video_hd", bundle.VideoHDURL != "",
		"audio", len(bundle.Audio))

	return bundle
}

func (e *Extractor) authors(doc *goquery.Document) string {
	var names []string
	doc.Find(e.sel.Persons).First().Find(e.sel.PersonLink).Each(func(_ int, s *goquery.Selection) {
		if name := strings.TrimSpace(s.Text()); name != "" {
			names = append(names, name)
		}
	})
	return strings.Join(names, ", ")
}

func (e *Extractor) description(doc *goquery.Document) string {
	region := doc.Find(e.sel.Description).First()
	if region.Length() == 0 {
		return ""
	}

	var lines []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if line := strings.TrimSpace(n.Data); line != "" {
				lines = append(lines, line)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(region.Get(0))

	return strings.Join(lines, "\n")
}

func (e *Extractor) videoHD(doc *goquery.Document, base *url.URL) string {
	var found string
	doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, _ := s.Attr("href")
		if strings.Contains(href, e.sel.HDMarker) && strings.HasSuffix(href, e.sel.VideoExt) {
			found = resolve(base, href)
			return false
		}
		return true
	})
	return found
}

func (e *Extractor) audio(doc *goquery.Document, base *url.URL) []AudioAsset {
	var assets []AudioAsset
	doc.Find(e.sel.AudioLink).Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok || strings.TrimSpace(href) == "" {
			return
		}

		link := resolve(base, strings.TrimSpace(href))
		class, _ := s.Attr("class")

		assets = append(assets, AudioAsset{
			FileType: "audio_" + e.language(class) + "_" + codec(link),
			URL:      link,
		})
	})
	return assets
}

// language returns the last class token that is a known language code.
func (e *Extractor) language(class string) string {
	lang := unknownLanguage
	for _, token := range strings.Fields(class) {
		if slices.Contains(e.sel.Languages, token) {
			lang = token
		}
	}
	return lang
}

func codec(link string) string {
	p := link
	if u, err := url.Parse(link); err == nil {
		p = u.Path
	}

	switch strings.ToLower(path.Ext(p)) {
	case ".mp3":
		return "mp3"
	case ".opus":
		return "opus"
	default:
		return "other"
	}
}

func resolve(base *url.URL, href string) string {
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

func readableText(data []byte, base *url.URL) string {
	article, err := readability.FromReader(bytes.NewReader(data), base)
	if err != nil {
		slog.Debug("Readability fallback failed", "url", base.String(), "error", err)
		return ""
	}
	return strings.TrimSpace(article.TextContent)
}
