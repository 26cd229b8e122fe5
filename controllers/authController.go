package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"citizenconnect/logging"
	"citizenconnect/middlewares"
	"citizenconnect/models"
	authUtils "citizenconnect/utils"
)

func userPayload(user *models.User) gin.H {
	return gin.H{
		"id":        user.ID,
		"name":      user.Name,
		"email":     user.Email,
		"phone":     user.Phone,
		"role":      user.Role,
		"createdAt": user.CreatedAt,
	}
}

// RegisterUser handles user registration. New accounts are always citizens.
func (h *Handler) RegisterUser(c *gin.Context) {
	var input struct {
		Name     string `json:"name" binding:"required,max=50"`
		Email    string `json:"email" binding:"required,email"`
		Phone    string `json:"phone" binding:"omitempty,max=20"`
		Password string `json:"password" binding:"required,min=6"`
	}

	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	now := h.now()
	user := models.User{
		Name:      strings.TrimSpace(input.Name),
		Email:     strings.ToLower(strings.TrimSpace(input.Email)),
		Phone:     input.Phone,
		Role:      models.RoleCitizen,
		Password:  input.Password,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := user.HashPassword(); err != nil {
		respondError(c, err)
		return
	}

	if err := h.stores.Users.Create(c.Request.Context(), &user); err != nil {
		respondError(c, err)
		return
	}

	logging.Info().Add(logging.UserID(user.ID.Hex())).Msg("user registered")
	c.JSON(http.StatusCreated, userPayload(&user))
}

// LoginUser handles user login
func (h *Handler) LoginUser(c *gin.Context) {
	var input struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}

	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.stores.Users.GetByEmail(c.Request.Context(), strings.ToLower(strings.TrimSpace(input.Email)))
	if err != nil || !user.ComparePassword(input.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	token, err := authUtils.GenerateToken(h.cfg.JWTSecret, user.ID.Hex(), string(user.Role), h.cfg.TokenTTL)
	if err != nil {
		respondError(c, err)
		return
	}

	// For production, don't set domain to allow cross-origin cookies
	domain := h.cfg.Domain
	if h.cfg.Production() {
		domain = ""
	}

	http.SetCookie(c.Writer, &http.Cookie{
		Name:     middlewares.AuthCookie,
		Value:    token,
		MaxAge:   int(h.cfg.TokenTTL.Seconds()),
		Path:     "/",
		Domain:   domain,
		Secure:   h.cfg.Production(),
		HttpOnly: true,
		SameSite: http.SameSiteNoneMode,
	})

	payload := userPayload(user)
	payload["token"] = token
	c.JSON(http.StatusOK, payload)
}

// GetMe retrieves the authenticated user's information
func (h *Handler) GetMe(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	user, err := h.stores.Users.Get(c.Request.Context(), actor.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	payload := userPayload(user)
	if leader, err := h.stores.Leaders.GetByUser(c.Request.Context(), user.ID); err == nil {
		payload["leader"] = leader
	}
	c.JSON(http.StatusOK, payload)
}

// LogoutUser clears the auth cookie.
func (h *Handler) LogoutUser(c *gin.Context) {
	c.SetCookie(middlewares.AuthCookie, "", -1, "/", h.cfg.Domain, h.cfg.Production(), true)
	c.JSON(http.StatusOK, gin.H{
		"message": "Logged out successfully",
	})
}
