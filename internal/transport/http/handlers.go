package http

import (
	"errors"
	"net/http"

	"dsa-tracker/internal/domain"
	"github.com/gin-gonic/gin"
)

type handler struct {
	service Service
}

type signupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type markRequest struct {
	TopicID    string `json:"topicId" binding:"required"`
	SubtopicID *int   `json:"subtopicId" binding:"required"`
	IsComplete *bool  `json:"isComplete" binding:"required"`
}

func (h *handler) signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	token, err := h.service.Signup(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		respondError(c, err, "Failed to signup")
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}

func (h *handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	token, err := h.service.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err, "Failed to login")
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}

func (h *handler) me(c *gin.Context) {
	user, err := h.service.Me(c.Request.Context(), c.GetString(accountIDKey))
	if err != nil {
		respondError(c, err, "Failed to load user")
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *handler) topics(c *gin.Context) {
	topics, err := h.service.Topics(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to load topics")
		return
	}
	c.JSON(http.StatusOK, topics)
}

func (h *handler) mark(c *gin.Context) {
	var req markRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "topicId, subtopicId and isComplete are required"})
		return
	}
	completion := domain.Completion{
		TopicID:    req.TopicID,
		SubtopicID: *req.SubtopicID,
		IsComplete: *req.IsComplete,
	}
	if _, err := h.service.MarkCompletion(c.Request.Context(), c.GetString(accountIDKey), completion); err != nil {
		respondError(c, err, "Failed to update progress")
		return
	}
	msg := "Topic marked as incomplete"
	if completion.IsComplete {
		msg = "Topic marked as completed"
	}
	c.JSON(http.StatusOK, gin.H{"message": msg})
}

// respondError maps domain errors to status codes; anything unknown is a 500 with fallback.
func respondError(c *gin.Context, err error, fallback string) {
	status, msg := http.StatusInternalServerError, fallback
	switch {
	case errors.Is(err, domain.ErrMissingFields):
		status, msg = http.StatusBadRequest, "Name, email and password are required"
	case errors.Is(err, domain.ErrAccountExists):
		status, msg = http.StatusBadRequest, "User already exists"
	case errors.Is(err, domain.ErrInvalidCredentials):
		status, msg = http.StatusUnauthorized, "Invalid credentials"
	case errors.Is(err, domain.ErrAccountNotFound):
		status, msg = http.StatusNotFound, "User not found"
	case errors.Is(err, domain.ErrTopicNotFound):
		status, msg = http.StatusNotFound, "Topic not found"
	case errors.Is(err, domain.ErrSubtopicNotFound):
		status, msg = http.StatusNotFound, "Subtopic not found"
	}
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.JSON(status, gin.H{"error": msg})
}
