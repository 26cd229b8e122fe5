package routes

import (
	"github.com/gin-gonic/gin"

	"citizenconnect/controllers"
	"citizenconnect/middlewares"
	"citizenconnect/models"
)

// AuthRoutes sets up the authentication routes
func AuthRoutes(r *gin.Engine, h *controllers.Handler, auth gin.HandlerFunc) {
	group := r.Group("/api/auth")
	{
		group.POST("/register", h.RegisterUser)
		group.POST("/login", h.LoginUser)
		group.GET("/me", auth, h.GetMe)
		group.POST("/logout", auth, h.LogoutUser)
	}
}

// LeaderRoutes sets up leader administration and lookup.
func LeaderRoutes(r *gin.Engine, h *controllers.Handler, auth gin.HandlerFunc) {
	group := r.Group("/api/leaders", auth)
	{
		group.POST("", middlewares.RequireRole(models.RoleAdmin), h.CreateLeader)
		group.GET("", h.GetLeaders)
		group.GET("/:id", h.GetLeader)
	}
}
