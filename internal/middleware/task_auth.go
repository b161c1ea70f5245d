package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	apierrors "github.com/todoapp/todo-reminder-api/internal/errors"
)

// RequireTaskID rejects a malformed :id before any store access. It answers
// 404 like a missing or foreign task so ids cannot be probed.
func RequireTaskID() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, err := uuid.Parse(c.Param("id")); err != nil {
			apierrors.NotFound(c, "Todo not found")
			return
		}
		c.Next()
	}
}
