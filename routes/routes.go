package routes

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"citizenconnect/config"
	"citizenconnect/controllers"
	"citizenconnect/middlewares"
)

// Setup registers middleware and every route on r. rdb may be nil, which
// disables the issue rate limit.
func Setup(r *gin.Engine, h *controllers.Handler, cfg config.Config, rdb *redis.Client) {
	r.Use(middlewares.RequestLogger())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	auth := middlewares.AuthMiddleware(cfg.JWTSecret)
	issueLimit := middlewares.IssueRateLimiter(rdb, cfg.IssueLimitPrefix, cfg.IssueDailyLimit)

	AuthRoutes(r, h, auth)
	LeaderRoutes(r, h, auth)
	IssueRoutes(r, h, auth, issueLimit)
	AnnouncementRoutes(r, h, auth)

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
}
