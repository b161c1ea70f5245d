package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/todoapp/todo-reminder-api/internal/constants"
	"go.uber.org/zap"
)

// RecoveryWithLog turns a panic into the generic 500 body and logs the stack.
func RecoveryWithLog(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if recovered := recover(); recovered != nil {
				log.Error("panic recovered",
					zap.Any("panic", recovered),
					zap.String("path", c.Request.URL.Path),
					zap.String("request_id", c.GetString(constants.ContextKeyRequestID)),
					zap.Stack("stack"),
				)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error": "An internal server error occurred",
				})
			}
		}()
		c.Next()
	}
}
