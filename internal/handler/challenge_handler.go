package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"skill-exchange/challenge-service/internal/models"
	"skill-exchange/challenge-service/internal/services"
)

type ChallengeHandler struct {
	service *services.ChallengeService
}

func NewChallengeHandler(s *services.ChallengeService) *ChallengeHandler {
	return &ChallengeHandler{service: s}
}

// GET /api/challenges
func (h *ChallengeHandler) ListAll(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	challenges, err := h.service.ListAll(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, challenges)
}

// GET /api/challenges/personalized
func (h *ChallengeHandler) ListPersonalized(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	challenges, err := h.service.ListPersonalized(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, challenges)
}

// GET /api/challenges/daily
func (h *ChallengeHandler) ListDaily(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	challenges, err := h.service.ListDaily(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, challenges)
}

// GET /api/challenges/recommended?limit=N
func (h *ChallengeHandler) ListRecommended(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = parsed
	}

	challenges, err := h.service.ListRecommended(c.Request.Context(), userID, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, challenges)
}

// GET /api/challenges/completed
func (h *ChallengeHandler) ListCompleted(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	challenges, err := h.service.ListCompleted(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, challenges)
}

// GET /api/challenges/:id
func (h *ChallengeHandler) GetByID(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	challengeID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid challenge ID"})
		return
	}

	challenge, err := h.service.GetChallenge(c.Request.Context(), userID, challengeID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, challenge)
}

// POST /api/challenges/:id/complete
func (h *ChallengeHandler) Complete(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	challengeID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid challenge ID"})
		return
	}

	outcome, err := h.service.CompleteChallenge(c.Request.Context(), userID, challengeID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, outcome)
}

// POST /api/admin/challenges
func (h *ChallengeHandler) Create(c *gin.Context) {
	var challenge models.Challenge
	if err := c.ShouldBindJSON(&challenge); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.service.CreateChallenge(c.Request.Context(), &challenge); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, challenge)
}

// PUT /api/admin/challenges/:id
func (h *ChallengeHandler) Update(c *gin.Context) {
	challengeID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid challenge ID"})
		return
	}

	var challenge models.Challenge
	if err := c.ShouldBindJSON(&challenge); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	challenge.ID = challengeID

	if err := h.service.UpdateChallenge(c.Request.Context(), &challenge); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, challenge)
}

// DELETE /api/admin/challenges/:id
func (h *ChallengeHandler) Delete(c *gin.Context) {
	challengeID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid challenge ID"})
		return
	}

	if err := h.service.DeleteChallenge(c.Request.Context(), challengeID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "challenge deleted"})
}

func currentUserID(c *gin.Context) (primitive.ObjectID, bool) {
	userID, err := primitive.ObjectIDFromHex(c.GetString("userID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user ID"})
		return primitive.NilObjectID, false
	}
	return userID, true
}

func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
	case errors.Is(err, models.ErrChallengeNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "challenge not found"})
	case errors.Is(err, models.ErrInvalidID):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
	case errors.Is(err, models.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "progression updated concurrently, retry"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
