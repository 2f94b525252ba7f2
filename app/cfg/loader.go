package cfg

import (
	"cmp"
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Sources
	FeedURL         string `long:"feed-url" env:"FEED_URL" default:"https://relive.c3voc.de/relive/38c3/index.json" description:"Primary event index (JSON array)"`
	AssetBaseURL    string `long:"asset-base-url" env:"ASSET_BASE_URL" default:"https://cdn.c3voc.de/relive/38c3/" description:"Base URL for muxed recordings (<base><id>/muxed.mp4)"`
	ListingURL      string `long:"listing-url" env:"LISTING_URL" default:"https://media.ccc.de/c/38c3" description:"Listing page searched when an entry has no release URL"`
	PodcastFeedURL  string `long:"podcast-feed-url" env:"PODCAST_FEED_URL" description:"Optional RSS/Atom feed searched after the listing page"`
	SelectorsFile   string `long:"selectors" env:"SELECTORS_FILE" description:"YAML file overriding the release/listing page selectors"`
	DescriptionFall bool   `long:"description-fallback" env:"DESCRIPTION_FALLBACK" description:"Use readability text when the release page has no description region"`

	// Transport
	ConnectTimeout time.Duration `long:"connect-timeout" env:"CONNECT_TIMEOUT" default:"5s" description:"Deadline for connection establishment"`
	ReadTimeout    time.Duration `long:"read-timeout" env:"READ_TIMEOUT" default:"60s" description:"Deadline for response headers and for every stalled read"`
	ChunkSize      int           `long:"chunk-size" env:"CHUNK_SIZE" default:"8192" description:"Download chunk size in bytes"`
	UserAgent      string        `long:"user-agent" env:"USER_AGENT" default:"relive-sync/1.0" description:"User agent string for HTTP requests"`

	// Storage
	DownloadDir string `long:"download-dir" env:"DOWNLOAD_DIR" default:"./download" description:"Root directory for downloaded assets"`
	DBPath      string `long:"db-path" env:"DB_PATH" default:"relive_data.sqlite" description:"SQLite catalog file"`

	// Daemon mode
	Daemon   bool          `long:"daemon" env:"DAEMON" description:"Keep running, repeat the pass on an interval and serve the catalog API"`
	Interval time.Duration `long:"interval" env:"SYNC_INTERVAL" default:"15m" description:"Time between passes in daemon mode"`
	Port     string        `long:"port" env:"PORT" default:"8080" description:"HTTP API port in daemon mode"`

	// Application metadata
	Timezone string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, Europe/Berlin)"`
	Debug    bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

// Load parses args and the environment. It returns a nil config when help was requested.
func Load(args []string) (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.ParseArgs(args); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		FeedURL:             raw.FeedURL,
		AssetBaseURL:        raw.AssetBaseURL,
		ListingURL:          raw.ListingURL,
		PodcastFeedURL:      raw.PodcastFeedURL,
		SelectorsFile:       raw.SelectorsFile,
		DescriptionFallback: raw.DescriptionFall,
		ConnectTimeout:      raw.ConnectTimeout,
		ReadTimeout:         raw.ReadTimeout,
		ChunkSize:           raw.ChunkSize,
		UserAgent:           raw.UserAgent,
		DownloadDir:         raw.DownloadDir,
		DBPath:              raw.DBPath,
		Daemon:              raw.Daemon,
		Interval:            raw.Interval,
		Port:                raw.Port,
		Timezone:            raw.Timezone,
		Debug:               raw.Debug,
		Version:             GetVersion(),
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

func validate(cfg *Cfg) error {
	requiredFields := map[string]string{
		"feed URL":       cfg.FeedURL,
		"asset base URL": cfg.AssetBaseURL,
		"download dir":   cfg.DownloadDir,
		"db path":        cfg.DBPath,
	}
	for fieldName, fieldValue := range requiredFields {
		if fieldValue == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
	}

	positiveDurations := map[string]time.Duration{
		"connect timeout": cfg.ConnectTimeout,
		"read timeout":    cfg.ReadTimeout,
	}
	for fieldName, fieldValue := range positiveDurations {
		if fieldValue <= 0 {
			return fmt.Errorf("%s must be positive", fieldName)
		}
	}

	if cfg.ChunkSize <= 0 {
		return fmt.Errorf("chunk size must be positive")
	}
	if cfg.Daemon && cfg.Interval <= 0 {
		return fmt.Errorf("interval must be positive in daemon mode")
	}

	return nil
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
		}
	}
	return nil
}
