package api

import (
	"github.com/lysyi3m/relive-sync/app/database"
	"github.com/lysyi3m/relive-sync/app/tasks"
)

type Handler struct {
	talkRepo  database.TalkRepository
	fileRepo  database.FileRepository
	scheduler tasks.TaskSchedulerInterface
	version   string
}

type TalkResponse struct {
	ID          int64   `json:"id"`
	GUID        string  `json:"guid"`
	Title       string  `json:"title"`
	Room        string  `json:"room"`
	Status      string  `json:"status"`
	Start       int64   `json:"start"`
	Duration    int64   `json:"duration"`
	ReleaseURL  *string `json:"release_url"`
	Authors     string  `json:"authors"`
	Description string  `json:"description"`
	LastMtime   int64   `json:"last_mtime"`
}

type FileResponse struct {
	ID        int64  `json:"id"`
	FileType  string `json:"file_type"`
	FileURL   string `json:"file_url"`
	LocalPath string `json:"local_path"`
}

type TalkDetailsResponse struct {
	TalkResponse
	Files []FileResponse `json:"files"`
}

func newTalkResponse(t database.Talk) TalkResponse {
	return TalkResponse{
		ID:          t.ID,
		GUID:        t.GUID,
		Title:       t.Title,
		Room:        t.Room,
		Status:      t.Status,
		Start:       t.Start,
		Duration:    t.Duration,
		ReleaseURL:  t.ReleaseURL,
		Authors:     t.Authors,
		Description: t.Description,
		LastMtime:   t.LastMtime,
	}
}

func newFileResponse(f database.File) FileResponse {
	return FileResponse{
		ID:        f.ID,
		FileType:  f.FileType,
		FileURL:   f.FileURL,
		LocalPath: f.LocalPath,
	}
}
