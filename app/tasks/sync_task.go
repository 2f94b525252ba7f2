package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/lysyi3m/relive-sync/app/database"
	"github.com/lysyi3m/relive-sync/app/listing"
	"github.com/lysyi3m/relive-sync/app/relive"
)

const (
	FileTypeMuxed     = "muxed"
	FileTypeThumbnail = "thumbnail"
	FileTypeVideoHD   = "video_hd"
)

// Stats counts what one pass did.
type Stats struct {
	Entries    int `json:"entries"`
	Inserted   int `json:"inserted"`
	Updated    int `json:"updated"`
	Stale      int `json:"stale"`
	Downloaded int `json:"downloaded"`
	Skipped    int `json:"skipped"`
	Failed     int `json:"failed"`
	Enriched   int `json:"enriched"`
}

// SyncTask is one ingestion pass over the relive index. Entries and their
// assets are processed strictly one after another in index order.
type SyncTask struct {
	Task
	index        IndexSource
	resolver     listing.Resolver
	extractor    PageExtractor
	fetcher      AssetFetcher
	talkRepo     database.TalkRepository
	fileRepo     database.FileRepository
	assetBaseURL string
	downloadDir  string
	stats        Stats
}

func NewSyncTask(index IndexSource, resolver listing.Resolver, extractor PageExtractor, fetcher AssetFetcher,
	talkRepo database.TalkRepository, fileRepo database.FileRepository, assetBaseURL string, downloadDir string) *SyncTask {
	return &SyncTask{
		Task:         NewTask(TaskTypeSync),
		index:        index,
		resolver:     resolver,
		extractor:    extractor,
		fetcher:      fetcher,
		talkRepo:     talkRepo,
		fileRepo:     fileRepo,
		assetBaseURL: assetBaseURL,
		downloadDir:  downloadDir,
	}
}

func (t *SyncTask) Stats() Stats {
	return t.stats
}

// Execute runs the pass. Index failures and catalog write failures abort it;
// asset and page failures are logged and skipped. Cancellation is observed
// between entries.
func (t *SyncTask) Execute(ctx context.Context) error {
	if t.StartedAt == nil {
		t.Start()
	}

	// Listing pages are fetched at most once per pass.
	if resetter, ok := t.resolver.(listing.Resetter); ok {
		resetter.Reset()
	}

	entries, err := t.index.Fetch(ctx)
	if err != nil {
		return err
	}
	t.stats.Entries = len(entries)

	slog.Debug("Index fetched", "id", t.ID, "url", t.index.URL(), "entries", len(entries))

	for _, entry := range entries {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := t.processEntry(ctx, entry); err != nil {
			return fmt.Errorf("failed to process talk %d: %w", entry.ID, err)
		}
	}

	slog.Info("Task completed",
		"type", string(t.Type),
		"id", t.ID,
		"duration", t.GetDuration(),
		"entries", t.stats.Entries,
		"inserted", t.stats.Inserted,
		"updated", t.stats.Updated,
		"stale", t.stats.Stale,
		"downloaded", t.stats.Downloaded,
		"skipped", t.stats.Skipped,
		"failed", t.stats.Failed,
		"enriched", t.stats.Enriched)

	return nil
}

func (t *SyncTask) processEntry(ctx context.Context, entry relive.Entry) error {
	snapshot := entry.Snapshot()

	if entry.HasRecording() && snapshot.ReleaseURL == "" && t.resolver != nil {
		if link, ok := t.resolver.Resolve(ctx, entry.Title); ok {
			slog.Debug("Release URL resolved", "talk_id", entry.ID, "url", link)
			snapshot.ReleaseURL = link
		}
	}

	result, err := t.talkRepo.UpsertTalk(snapshot)
	if err != nil {
		return fmt.Errorf("failed to upsert talk: %w", err)
	}

	switch result {
	case database.UpsertInserted:
		t.stats.Inserted++
	case database.UpsertUpdated:
		t.stats.Updated++
	case database.UpsertStale:
		t.stats.Stale++
		slog.Debug("Stale snapshot ignored", "talk_id", entry.ID, "mtime", entry.Mtime)
	}

	dir := filepath.Join(t.downloadDir, strconv.FormatInt(entry.ID, 10))

	if entry.HasRecording() {
		if err := t.retrieve(ctx, entry.ID, FileTypeMuxed, t.muxedURL(entry.ID), filepath.Join(dir, "muxed.mp4")); err != nil {
			return err
		}
	}

	if thumbnail := entry.ThumbnailURL(); thumbnail != "" {
		if err := t.retrieve(ctx, entry.ID, FileTypeThumbnail, thumbnail, filepath.Join(dir, "thumb.jpg")); err != nil {
			return err
		}
	}

	if !entry.HasRecording() || snapshot.ReleaseURL == "" {
		return nil
	}

	bundle := t.extractor.Extract(ctx, snapshot.ReleaseURL)

	if bundle.HasEnrichment() {
		updated, err := t.talkRepo.UpdateEnrichment(entry.ID, bundle.Authors, bundle.Description)
		if err != nil {
			return fmt.Errorf("failed to update enrichment: %w", err)
		}
		if updated {
			t.stats.Enriched++
		}
	}

	if bundle.VideoHDURL != "" {
		if err := t.retrieve(ctx, entry.ID, FileTypeVideoHD, bundle.VideoHDURL, filepath.Join(dir, "video_hd.mp4")); err != nil {
			return err
		}
	}

	for _, audio := range bundle.Audio {
		dest := filepath.Join(dir, assetFileName(audio.URL, audio.FileType))
		if err := t.retrieve(ctx, entry.ID, audio.FileType, audio.URL, dest); err != nil {
			return err
		}
	}

	return nil
}

// retrieve downloads one asset and records it. Only catalog failures are returned.
func (t *SyncTask) retrieve(ctx context.Context, talkID int64, fileType string, url string, dest string) error {
	result, err := t.fetcher.Download(ctx, url, dest)
	if err != nil {
		t.stats.Failed++
		slog.Warn("Asset download failed", "talk_id", talkID, "file_type", fileType, "url", url, "error", err)
		return nil
	}

	if result.Skipped {
		t.stats.Skipped++
	} else {
		t.stats.Downloaded++
	}

	if _, err := t.fileRepo.RecordFileIfAbsent(talkID, fileType, url, dest); err != nil {
		return fmt.Errorf("failed to record file: %w", err)
	}

	return nil
}

func (t *SyncTask) muxedURL(talkID int64) string {
	base := t.assetBaseURL
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return base + strconv.FormatInt(talkID, 10) + "/muxed.mp4"
}

// assetFileName is the last path segment of rawURL, or fallback when it has none.
func assetFileName(rawURL string, fallback string) string {
	p := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		p = u.Path
	}

	name := path.Base(p)
	switch name {
	case "", ".", "..", "/":
		return fallback
	}
	return name
}
