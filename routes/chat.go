package routes

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"docchat-backend/internal/logger"
	"docchat-backend/middleware"
	"docchat-backend/models"
	"docchat-backend/services"
	"docchat-backend/utils"
)

// SetupChatRoutes wires the question-answering endpoint.
func SetupChatRoutes(router *gin.Engine, pipeline *services.ChatPipeline) {
	api := router.Group("/api")

	api.POST("/chat", func(c *gin.Context) {
		var req models.ChatRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}

		answer, sessionID, err := pipeline.Answer(c.Request.Context(), req.SessionID, req.Message)
		if err != nil {
			logger.Error("Chat request failed",
				"request_id", middleware.GetRequestID(c),
				"session_id", sessionID,
				"error", err)
			switch {
			case errors.Is(err, services.ErrRetrievalUnavailable):
				utils.RespondWithUnavailable(c, "retrieval_unavailable",
					"Unable to answer right now. Please try again in a moment.")
			case errors.Is(err, services.ErrGenerationFailed):
				utils.RespondWithUnavailable(c, "generation_failed",
					"Unable to answer right now. Please try again in a moment.")
			default:
				utils.RespondWithInternalError(c, "Failed to process the question", nil)
			}
			return
		}

		c.JSON(http.StatusOK, models.ChatResponse{
			Answer:       answer.Text,
			CitedSources: answer.UsedChunkIDs,
			SessionID:    sessionID,
			Timestamp:    time.Now(),
		})
	})
}
