package relive

import (
	"slices"
	"strings"

	"github.com/lysyi3m/relive-sync/app/database"
)

const (
	StatusScheduled = "scheduled"
	StatusLive      = "live"
	StatusRecorded  = "recorded"
	StatusReleased  = "released"
)

// Entry is one normalized element of the relive index.
type Entry struct {
	ID         int64
	GUID       string
	Title      string
	Room       string
	Status     string
	Start      int64
	Duration   int64
	ReleaseURL string
	Mtime      int64
	Thumbnail  string
}

// HasRecording reports whether the talk has a recording to fetch.
func (e Entry) HasRecording() bool {
	return slices.Contains([]string{StatusRecorded, StatusReleased}, e.Status)
}

// ThumbnailURL returns the thumbnail reference with protocol-relative URLs made absolute.
func (e Entry) ThumbnailURL() string {
	if strings.HasPrefix(e.Thumbnail, "//") {
		return "https:" + e.Thumbnail
	}
	return e.Thumbnail
}

func (e Entry) Snapshot() database.TalkSnapshot {
	return database.TalkSnapshot{
		ID:         e.ID,
		GUID:       e.GUID,
		Title:      e.Title,
		Room:       e.Room,
		Status:     e.Status,
		Start:      e.Start,
		Duration:   e.Duration,
		ReleaseURL: e.ReleaseURL,
		Mtime:      e.Mtime,
	}
}
