package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"skill-exchange/challenge-service/internal/services"
)

type ProgressionHandler struct {
	service *services.ChallengeService
}

func NewProgressionHandler(s *services.ChallengeService) *ProgressionHandler {
	return &ProgressionHandler{service: s}
}

// GET /api/users/progress
func (h *ProgressionHandler) GetProgress(c *gin.Context) {
	userID, err := primitive.ObjectIDFromHex(c.GetString("userID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user ID"})
		return
	}

	snap, err := h.service.GetProgression(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, snap)
}
