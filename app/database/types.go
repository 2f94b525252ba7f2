package database

// Talk is a catalog row for one conference session.
type Talk struct {
	ID          int64
	GUID        string
	Title       string
	Room        string
	Status      string
	Start       int64
	Duration    int64
	ReleaseURL  *string // nil until resolved
	Authors     string
	Description string
	LastMtime   int64
}

// TalkSnapshot is one normalized feed entry as merged by UpsertTalk.
type TalkSnapshot struct {
	ID         int64
	GUID       string
	Title      string
	Room       string
	Status     string
	Start      int64
	Duration   int64
	ReleaseURL string // empty means absent
	Mtime      int64
}

// File is a catalog row for one successfully retrieved asset.
type File struct {
	ID        int64
	TalkID    int64
	FileType  string
	FileURL   string
	LocalPath string
}

type UpsertResult string

const (
	UpsertInserted UpsertResult = "inserted"
	UpsertUpdated  UpsertResult = "updated"
	UpsertStale    UpsertResult = "stale"
)

type StatusCount struct {
	Status string
	Count  int
}
