package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"docchat-backend/models"
	"docchat-backend/services"
	"docchat-backend/utils"
)

// SetupNotificationRoutes wires device-token registration and push
// dispatch. These endpoints are independent of the answering pipeline.
func SetupNotificationRoutes(router *gin.Engine, notifications *services.NotificationService) {
	api := router.Group("/api")

	api.POST("/register-token", func(c *gin.Context) {
		var req models.TokenRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "A device token is required", gin.H{"error": err.Error()})
			return
		}

		if err := notifications.RegisterToken(c.Request.Context(), req.Token); err != nil {
			utils.RespondWithInternalError(c, "Failed to register device token", nil)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Device token registered"})
	})

	api.POST("/send-notification", func(c *gin.Context) {
		var req models.NotificationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Title and body are required", gin.H{"error": err.Error()})
			return
		}

		success, failure, err := notifications.SendToAll(c.Request.Context(), req.Title, req.Body)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to send notifications", gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"message": "Notifications sent",
			"success": success,
			"failure": failure,
		})
	})
}
