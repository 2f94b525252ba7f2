package relive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

var ErrMissingID = errors.New("entry has no id")

type DocumentFetcher interface {
	Document(ctx context.Context, url string) ([]byte, error)
}

// Index is the published relive index of one conference.
type Index struct {
	fetcher DocumentFetcher
	url     string
}

func NewIndex(fetcher DocumentFetcher, url string) *Index {
	return &Index{
		fetcher: fetcher,
		url:     url,
	}
}

func (i *Index) URL() string {
	return i.url
}

// Fetch downloads and decodes the index. Any error here is fatal to a pass.
func (i *Index) Fetch(ctx context.Context) ([]Entry, error) {
	data, err := i.fetcher.Document(ctx, i.url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch index: %w", err)
	}

	entries, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode index: %w", err)
	}

	return entries, nil
}

type rawEntry struct {
	ID         *flexInt `json:"id"`
	GUID       string   `json:"guid"`
	Title      string   `json:"title"`
	Room       string   `json:"room"`
	Status     string   `json:"status"`
	Start      flexInt  `json:"start"`
	Duration   flexInt  `json:"duration"`
	ReleaseURL string   `json:"release_url"`
	Mtime      flexInt  `json:"mtime"`
	Thumbnail  string   `json:"thumbnail"`
}

// Decode parses the index document. Elements that fail to decode are skipped
// with a warning; only a document that is not a JSON array is an error.
func Decode(data []byte) ([]Entry, error) {
	var elements []json.RawMessage
	if err := json.Unmarshal(data, &elements); err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(elements))
	for pos, element := range elements {
		entry, err := decodeEntry(element)
		if err != nil {
			slog.Warn("Skipping malformed index entry", "position", pos, "error", err)
			continue
		}
		entries = append(entries, entry)
	}

	return entries, nil
}

func decodeEntry(element []byte) (Entry, error) {
	var raw rawEntry
	if err := json.Unmarshal(element, &raw); err != nil {
		return Entry{}, err
	}
	if raw.ID == nil {
		return Entry{}, ErrMissingID
	}

	return Entry{
		ID:         int64(*raw.ID),
		GUID:       raw.GUID,
		Title:      raw.Title,
		Room:       raw.Room,
		Status:     raw.Status,
		Start:      int64(raw.Start),
		Duration:   int64(raw.Duration),
		ReleaseURL: strings.TrimSpace(raw.ReleaseURL),
		Mtime:      int64(raw.Mtime),
		Thumbnail:  strings.TrimSpace(raw.Thumbnail),
	}, nil
}

// flexInt accepts integers given as JSON numbers or numeric strings. Null leaves it at zero.
type flexInt int64

func (f *flexInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}

	text := string(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		text = strings.TrimSpace(s)
	}

	if n, err := strconv.ParseInt(text, 10, 64); err == nil {
		*f = flexInt(n)
		return nil
	}

	v, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("invalid integer value %s", string(data))
	}
	*f = flexInt(int64(v))
	return nil
}
