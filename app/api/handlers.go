package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lysyi3m/relive-sync/app/database"
	"github.com/lysyi3m/relive-sync/app/tasks"
)

func NewHandler(talkRepo database.TalkRepository, fileRepo database.FileRepository,
	scheduler tasks.TaskSchedulerInterface, version string) *Handler {
	return &Handler{
		talkRepo:  talkRepo,
		fileRepo:  fileRepo,
		scheduler: scheduler,
		version:   version,
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	if talkCount, err := h.talkRepo.GetTalkCount(); err == nil {
		health["talks"] = talkCount
	}

	if h.scheduler != nil {
		health["scheduler"] = h.scheduler.Status()
	}

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	talkCount, err := h.talkRepo.GetTalkCount()
	if err != nil {
		slog.Error("Database error", "operation", "get_talk_count", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	fileCount, err := h.fileRepo.GetFileCount()
	if err != nil {
		slog.Error("Database error", "operation", "get_file_count", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	statusCounts, err := h.talkRepo.GetStatusCounts()
	if err != nil {
		slog.Error("Database error", "operation", "get_status_counts", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	byStatus := make(map[string]int, len(statusCounts))
	for _, sc := range statusCounts {
		byStatus[sc.Status] = sc.Count
	}

	stats := map[string]interface{}{
		"talks":     talkCount,
		"files":     fileCount,
		"by_status": byStatus,
	}

	if h.scheduler != nil {
		if lastRun := h.scheduler.Status().LastRun; lastRun != nil {
			stats["last_run"] = lastRun
		}
	}

	c.JSON(http.StatusOK, stats)
}

func (h *Handler) ListTalks(c *gin.Context) {
	status := c.Query("status")

	talks, err := h.talkRepo.ListTalks(status)
	if err != nil {
		slog.Error("Database error", "operation", "list_talks", "status", status, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	response := make([]TalkResponse, 0, len(talks))
	for _, talk := range talks {
		response = append(response, newTalkResponse(talk))
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"talks": response,
		"total": len(response),
	})
}

func (h *Handler) GetTalk(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid talk id"})
		return
	}

	talk, err := h.talkRepo.GetTalk(id)
	if err != nil {
		slog.Error("Database error", "operation", "get_talk", "talk_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	if talk == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Talk not found"})
		return
	}

	files, err := h.fileRepo.ListFiles(id)
	if err != nil {
		slog.Error("Database error", "operation", "list_files", "talk_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	details := TalkDetailsResponse{
		TalkResponse: newTalkResponse(*talk),
		Files:        make([]FileResponse, 0, len(files)),
	}
	for _, file := range files {
		details.Files = append(details.Files, newFileResponse(file))
	}

	c.JSON(http.StatusOK, details)
}

func (h *Handler) TriggerSync(c *gin.Context) {
	if h.scheduler == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Scheduler not running"})
		return
	}

	if !h.scheduler.Trigger() {
		c.JSON(http.StatusConflict, gin.H{"error": "Sync already pending"})
		return
	}

	slog.Info("Sync triggered via API")

	c.JSON(http.StatusAccepted, gin.H{"status": "queued"})
}
