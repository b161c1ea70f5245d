package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/todoapp/todo-reminder-api/internal/dto"
	apierrors "github.com/todoapp/todo-reminder-api/internal/errors"
	"github.com/todoapp/todo-reminder-api/internal/middleware"
	"github.com/todoapp/todo-reminder-api/internal/services"
	"go.uber.org/zap"
)

type ReminderHandler struct {
	reminders *services.ReminderService
	now       func() time.Time
	log       *zap.Logger
}

func NewReminderHandler(reminders *services.ReminderService, now func() time.Time, log *zap.Logger) *ReminderHandler {
	if now == nil {
		now = time.Now
	}
	return &ReminderHandler{
		reminders: reminders,
		now:       now,
		log:       log,
	}
}

// SendReminder mails the caller their incomplete tasks due today.
func (h *ReminderHandler) SendReminder(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	count, err := h.reminders.SendNow(c.Request.Context(), userID, h.now())
	if err != nil {
		if errors.Is(err, services.ErrReminderDispatch) {
			h.log.Warn("manual reminder failed", zap.String("user_id", userID), zap.Error(err))
			apierrors.BadGateway(c, "Failed to send reminder email")
			return
		}
		h.log.Error("manual reminder failed", zap.String("user_id", userID), zap.Error(err))
		apierrors.InternalError(c, "")
		return
	}

	message := "Reminder email sent"
	if count == 0 {
		message = "No tasks due today"
	}
	c.JSON(http.StatusOK, dto.ReminderResponse{Message: message, Count: count})
}
