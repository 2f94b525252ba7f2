package cfg

import "time"

type Cfg struct {
	// Sources
	FeedURL             string
	AssetBaseURL        string
	ListingURL          string
	PodcastFeedURL      string
	SelectorsFile       string
	DescriptionFallback bool

	// Transport
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	ChunkSize      int
	UserAgent      string

	// Storage
	DownloadDir string
	DBPath      string

	// Daemon mode
	Daemon   bool
	Interval time.Duration
	Port     string

	// Application metadata
	Timezone string
	Debug    bool
	Version  string
}
