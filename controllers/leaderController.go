package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"citizenconnect/logging"
	"citizenconnect/models"
)

// CreateLeader registers an official's jurisdiction and promotes the linked
// account to the official role.
func (h *Handler) CreateLeader(c *gin.Context) {
	var input struct {
		UserID   string          `json:"userId" binding:"required"`
		Name     string          `json:"name" binding:"required,max=100"`
		Title    string          `json:"title" binding:"required,max=100"`
		Level    string          `json:"level" binding:"required"`
		Location models.Location `json:"location"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, err := primitive.ObjectIDFromHex(input.UserID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	ctx := c.Request.Context()
	user, err := h.stores.Users.Get(ctx, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	leader := models.Leader{
		UserID:    userID,
		Name:      strings.TrimSpace(input.Name),
		Title:     strings.TrimSpace(input.Title),
		Level:     models.Level(input.Level),
		Location:  input.Location,
		CreatedAt: h.now(),
	}
	if err := h.encoder.ValidateLeader(&leader); err != nil {
		respondError(c, err)
		return
	}

	if err := h.stores.Leaders.Create(ctx, &leader); err != nil {
		respondError(c, err)
		return
	}
	if user.Role == models.RoleCitizen {
		if err := h.stores.Users.SetRole(ctx, userID, models.RoleOfficial); err != nil {
			respondError(c, err)
			return
		}
	}

	logging.Info().
		Add(logging.UserID(userID.Hex())).
		Add(logging.Str("leader_id", leader.ID.Hex())).
		Add(logging.Str("level", string(leader.Level))).
		Msg("leader registered")

	c.JSON(http.StatusCreated, leader)
}

// GetLeaders searches leaders by name, level and district.
func (h *Handler) GetLeaders(c *gin.Context) {
	leaders, err := h.stores.Leaders.Search(c.Request.Context(), models.LeaderFilter{
		Query:    c.Query("search"),
		Level:    models.Level(c.Query("level")),
		District: c.Query("district"),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"leaders": leaders, "total": len(leaders)})
}

// GetLeader retrieves a leader by its ID.
func (h *Handler) GetLeader(c *gin.Context) {
	id, ok := objectIDParam(c, "id", "leader")
	if !ok {
		return
	}
	leader, err := h.stores.Leaders.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, leader)
}
