package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/plantbazaar/backend/middleware"
	"github.com/plantbazaar/backend/repository"
	"github.com/plantbazaar/backend/services"
)

type NotificationController struct {
	notifications *services.NotificationService
	repo          repository.NotificationRepository
}

func NewNotificationController(notifications *services.NotificationService, repo repository.NotificationRepository) *NotificationController {
	return &NotificationController{
		notifications: notifications,
		repo:          repo,
	}
}

// GetNotifications returns the user's notifications newest-first.
func (nc *NotificationController) GetNotifications(ctx *gin.Context) {
	userID, err := middleware.GetUserID(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	notifications, err := nc.notifications.ListForUser(ctx.Request.Context(), userID)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch notifications"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"notifications": notifications})
}

// MarkRead flips one notification's read flag.
func (nc *NotificationController) MarkRead(ctx *gin.Context) {
	if _, err := middleware.GetUserID(ctx); err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	id, err := primitive.ObjectIDFromHex(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid notification id"})
		return
	}

	if err := nc.repo.MarkRead(ctx.Request.Context(), id); err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update notification"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Notification marked as read"})
}
