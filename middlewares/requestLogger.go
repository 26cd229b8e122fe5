package middlewares

import (
	"time"

	"github.com/gin-gonic/gin"

	"citizenconnect/logging"
)

// RequestLogger logs one line per request.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		event := logging.Info()
		if status >= 500 {
			event = logging.Error()
		}
		event.
			Add(logging.Str("method", c.Request.Method)).
			Add(logging.Str("path", c.FullPath())).
			Add(logging.Int("status", status)).
			Add(logging.Duration(time.Since(start))).
			Add(logging.UserID(c.GetString("user_id"))).
			Msg("request")
	}
}
