package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gofrs/flock"

	"github.com/lysyi3m/relive-sync/app/api"
	"github.com/lysyi3m/relive-sync/app/cfg"
	"github.com/lysyi3m/relive-sync/app/database"
	"github.com/lysyi3m/relive-sync/app/fetch"
	"github.com/lysyi3m/relive-sync/app/listing"
	"github.com/lysyi3m/relive-sync/app/release"
	"github.com/lysyi3m/relive-sync/app/relive"
	"github.com/lysyi3m/relive-sync/app/selectors"
	"github.com/lysyi3m/relive-sync/app/tasks"
)

func main() {
	appCfg, err := cfg.Load(os.Args[1:])
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown
		return
	}

	level := slog.LevelInfo
	if appCfg.Debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	if err := run(); err != nil {
		slog.Error("relive-sync failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	appCfg := cfg.Get()
	slog.Info("Starting relive-sync", "version", appCfg.Version, "daemon", appCfg.Daemon)

	if err := os.MkdirAll(filepath.Dir(appCfg.DBPath), 0o755); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}

	lock := flock.New(appCfg.DBPath + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !locked {
		return errors.New("another relive-sync instance is using this catalog")
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			slog.Warn("Failed to release lock", "error", err)
		}
	}()

	db, err := database.NewConnection(appCfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("Catalog ready", "path", db.Path(), "schema_version", version, "dirty", dirty)

	sel, err := selectors.Load(appCfg.SelectorsFile)
	if err != nil {
		return fmt.Errorf("failed to load selectors: %w", err)
	}

	client := fetch.NewClient(fetch.Options{
		ConnectTimeout: appCfg.ConnectTimeout,
		ReadTimeout:    appCfg.ReadTimeout,
		ChunkSize:      appCfg.ChunkSize,
		UserAgent:      appCfg.UserAgent,
	})

	var resolver listing.Resolver = listing.NewListingResolver(client, sel.Listing, appCfg.ListingURL)
	if appCfg.PodcastFeedURL != "" {
		resolver = listing.Chain{resolver, listing.NewFeedResolver(client, appCfg.PodcastFeedURL)}
	}

	index := relive.NewIndex(client, appCfg.FeedURL)
	extractor := release.NewExtractor(client, sel.Release, appCfg.DescriptionFallback)
	talkRepo := database.NewTalkRepository(db)
	fileRepo := database.NewFileRepository(db)

	newPass := func() tasks.TaskInterface {
		return tasks.NewSyncTask(index, resolver, extractor, client, talkRepo, fileRepo,
			appCfg.AssetBaseURL, appCfg.DownloadDir)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !appCfg.Daemon {
		pass := newPass()
		pass.Start()
		return pass.Execute(ctx)
	}

	scheduler := tasks.NewScheduler(newPass, appCfg.Interval)
	scheduler.Start()
	defer scheduler.Stop()

	handler := api.NewHandler(talkRepo, fileRepo, scheduler, appCfg.Version)
	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      api.NewServer(handler),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "port", appCfg.Port, "interval", appCfg.Interval)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		slog.Info("Shutdown signal received")
	case runErr = <-serverErrChan:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	slog.Info("relive-sync stopped")
	return runErr
}
