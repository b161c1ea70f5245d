package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/todoapp/todo-reminder-api/internal/dto"
	apierrors "github.com/todoapp/todo-reminder-api/internal/errors"
	"github.com/todoapp/todo-reminder-api/internal/middleware"
	"github.com/todoapp/todo-reminder-api/internal/repository"
	"github.com/todoapp/todo-reminder-api/internal/services"
	"github.com/todoapp/todo-reminder-api/internal/utils"
	"github.com/todoapp/todo-reminder-api/internal/validation"
	"go.uber.org/zap"
)

type TaskHandler struct {
	taskService *services.TaskService
	log         *zap.Logger
}

func NewTaskHandler(taskService *services.TaskService, log *zap.Logger) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
		log:         log,
	}
}

// ListTasks returns the caller's tasks ordered by due date.
// Optional query: page, limit, completed.
func (h *TaskHandler) ListTasks(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}

	filter := repository.TaskFilter{Pagination: utils.GetPaginationParams(c)}
	if raw, present := c.GetQuery("completed"); present {
		completed, err := strconv.ParseBool(raw)
		if err != nil {
			apierrors.BadRequest(c, "completed must be true or false")
			return
		}
		filter.Completed = &completed
	}

	tasks, err := h.taskService.ListTasks(c.Request.Context(), userID, filter)
	if err != nil {
		h.respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTOs(tasks))
}

// SearchTasks matches ?term= against the caller's titles and descriptions.
func (h *TaskHandler) SearchTasks(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}

	tasks, err := h.taskService.SearchTasks(c.Request.Context(), userID, c.Query("term"))
	if err != nil {
		h.respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTOs(tasks))
}

func (h *TaskHandler) GetTask(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}

	task, err := h.taskService.GetTask(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		h.respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*task))
}

func (h *TaskHandler) CreateTask(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}

	var req validation.TaskCreate
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	task, err := h.taskService.CreateTask(c.Request.Context(), userID, req)
	if err != nil {
		h.respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToTaskDTO(*task))
}

// UpdateTask applies the fields present in the body and leaves the rest.
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}

	var req validation.TaskUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	task, err := h.taskService.UpdateTask(c.Request.Context(), userID, c.Param("id"), req)
	if err != nil {
		h.respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*task))
}

func (h *TaskHandler) ToggleTask(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}

	task, err := h.taskService.ToggleTask(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		h.respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*task))
}

func (h *TaskHandler) DeleteTask(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}

	if err := h.taskService.DeleteTask(c.Request.Context(), userID, c.Param("id")); err != nil {
		h.respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Todo deleted successfully"})
}

func (h *TaskHandler) currentUser(c *gin.Context) (string, bool) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return "", false
	}
	return userID, true
}

func (h *TaskHandler) respondTaskError(c *gin.Context, err error) {
	if respondValidationError(c, err) {
		return
	}

	switch {
	case errors.Is(err, services.ErrTaskNotFound):
		apierrors.NotFound(c, "Todo not found")
	default:
		h.log.Error("task request failed", zap.Error(err))
		apierrors.InternalError(c, "")
	}
}
