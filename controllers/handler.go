package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"citizenconnect/apperrors"
	"citizenconnect/config"
	"citizenconnect/logging"
	"citizenconnect/models"
	"citizenconnect/notify"
	"citizenconnect/repository"
	"citizenconnect/targeting"
	"citizenconnect/workflow"
)

// Handler serves the HTTP API.
type Handler struct {
	stores    repository.Stores
	replies   *workflow.Service
	encoder   *targeting.Encoder
	publisher notify.Publisher
	cfg       config.Config
	now       func() time.Time
}

func NewHandler(stores repository.Stores, replies *workflow.Service, encoder *targeting.Encoder, publisher notify.Publisher, cfg config.Config) *Handler {
	if publisher == nil {
		publisher = notify.Nop{}
	}
	return &Handler{
		stores:    stores,
		replies:   replies,
		encoder:   encoder,
		publisher: publisher,
		cfg:       cfg,
		now:       time.Now,
	}
}

// WithClock overrides the time source.
func (h *Handler) WithClock(now func() time.Time) *Handler {
	h.now = now
	return h
}

// actor resolves the authenticated caller set by the auth middleware.
func (h *Handler) actor(c *gin.Context) (workflow.Actor, bool) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return workflow.Actor{}, false
	}
	id, err := primitive.ObjectIDFromHex(userID.(string))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return workflow.Actor{}, false
	}

	actor := workflow.Actor{ID: id, Role: models.RoleCitizen}
	if role, ok := c.Get("role"); ok {
		if r, ok := role.(models.Role); ok {
			actor.Role = r
		}
	}
	if user, err := h.stores.Users.Get(c.Request.Context(), id); err == nil {
		actor.Name = user.Name
	}
	return actor, true
}

func objectIDParam(c *gin.Context, name, what string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + what + " ID"})
		return primitive.NilObjectID, false
	}
	return id, true
}

// respondError maps domain errors onto HTTP responses.
func respondError(c *gin.Context, err error) {
	if ve, ok := apperrors.AsValidation(err); ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "fields": ve.Fields})
		return
	}

	switch {
	case errors.Is(err, apperrors.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrRepliesClosed), errors.Is(err, apperrors.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		logging.Error().
			Add(logging.Str("path", c.FullPath())).
			Add(logging.Err(err)).
			Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong"})
	}
}
