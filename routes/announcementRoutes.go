package routes

import (
	"github.com/gin-gonic/gin"

	"citizenconnect/controllers"
	"citizenconnect/middlewares"
)

// AnnouncementRoutes sets up announcement publishing and the audience preview.
func AnnouncementRoutes(r *gin.Engine, h *controllers.Handler, auth gin.HandlerFunc) {
	official := middlewares.RequireOfficial()

	group := r.Group("/api/announcements", auth)
	{
		group.POST("", official, h.CreateAnnouncement)
		group.PUT("/:id", official, h.UpdateAnnouncement)
		group.GET("", h.GetAnnouncements)
		group.GET("/:id", h.GetAnnouncement)
	}

	r.POST("/api/audience/preview", auth, official, h.PreviewAudience)
}
