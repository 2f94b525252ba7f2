package tasks

import (
	"context"

	"github.com/lysyi3m/relive-sync/app/fetch"
	"github.com/lysyi3m/relive-sync/app/release"
	"github.com/lysyi3m/relive-sync/app/relive"
)

// TaskSchedulerInterface runs passes one at a time, on an interval or on demand.
//
//	scheduler := NewScheduler(newPass, interval)
//	scheduler.Start()
//	defer scheduler.Stop()
//	scheduler.Trigger()
type TaskSchedulerInterface interface {
	Start()
	Stop()
	Trigger() bool
	Status() Status
}

type IndexSource interface {
	Fetch(ctx context.Context) ([]relive.Entry, error)
	URL() string
}

type AssetFetcher interface {
	Download(ctx context.Context, url string, dest string) (*fetch.Result, error)
}

type PageExtractor interface {
	Extract(ctx context.Context, pageURL string) release.Bundle
}
