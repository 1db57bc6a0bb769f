package middleware

import (
	"hms-server/pkg/logger"

	"github.com/gin-gonic/gin"
)

// ErrorHandler logs errors attached to the context after the handlers
// have already written their structured responses.
func ErrorHandler(l *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		if l != nil {
			l.ErrorfCtx(c.Request.Context(), "request error: %s", c.Errors.Last().Err.Error())
		}
	}
}
