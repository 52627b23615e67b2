package routes

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"docchat-backend/internal/config"
	"docchat-backend/internal/queue"
	"docchat-backend/utils"
)

// SetupIngestRoutes wires the knowledge-document management endpoints.
// Both endpoints enqueue background ingestion so the request returns
// quickly; the worker does the heavy lifting.
func SetupIngestRoutes(router *gin.Engine, cfg *config.Config, client *asynq.Client) {
	api := router.Group("/api")

	// Re-ingest the configured knowledge PDF from disk.
	api.POST("/reingest", func(c *gin.Context) {
		task, err := queue.NewIngestPDFTask(cfg.KnowledgePDFPath, true)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to create ingestion task", nil)
			return
		}
		info, err := client.Enqueue(task)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to enqueue ingestion task", gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusAccepted, gin.H{
			"message": "Re-ingestion scheduled",
			"task_id": info.ID,
		})
	})

	// Upload a new knowledge PDF that replaces the current corpus.
	api.POST("/upload-pdf", func(c *gin.Context) {
		fileHeader, err := c.FormFile("file")
		if err != nil {
			utils.RespondWithBadRequest(c, "A PDF file is required", gin.H{"error": err.Error()})
			return
		}
		if fileHeader.Size > cfg.MaxFileSize {
			utils.RespondWithBadRequest(c,
				fmt.Sprintf("File exceeds the %d byte limit", cfg.MaxFileSize), nil)
			return
		}
		if ct := fileHeader.Header.Get("Content-Type"); ct != "application/pdf" {
			utils.RespondWithBadRequest(c, "Invalid file format. Please upload a PDF.", gin.H{"content_type": ct})
			return
		}

		if err := os.MkdirAll(cfg.FileStorageDir, 0o755); err != nil {
			utils.RespondWithInternalError(c, "Failed to prepare storage directory", nil)
			return
		}
		dest := filepath.Join(cfg.FileStorageDir, uuid.NewString()+".pdf")
		if err := c.SaveUploadedFile(fileHeader, dest); err != nil {
			utils.RespondWithInternalError(c, "Failed to store uploaded file", nil)
			return
		}

		task, err := queue.NewIngestPDFTask(dest, true)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to create ingestion task", nil)
			return
		}
		info, err := client.Enqueue(task)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to enqueue ingestion task", gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusAccepted, gin.H{
			"message": "PDF stored; ingestion scheduled",
			"task_id": info.ID,
		})
	})
}
