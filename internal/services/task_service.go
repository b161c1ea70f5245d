package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/todoapp/todo-reminder-api/internal/models"
	"github.com/todoapp/todo-reminder-api/internal/repository"
	"github.com/todoapp/todo-reminder-api/internal/validation"
)

var (
	ErrTaskNotFound = errors.New("task not found")
)

// TaskService handles task business logic. Every method takes the caller's
// user id from the verified token; nothing else decides ownership.
type TaskService struct {
	taskRepo repository.TaskRepository
	loc      *time.Location
}

// NewTaskService creates a new TaskService. loc is used to read due dates
// that carry no zone.
func NewTaskService(taskRepo repository.TaskRepository, loc *time.Location) *TaskService {
	if loc == nil {
		loc = time.Local
	}
	return &TaskService{
		taskRepo: taskRepo,
		loc:      loc,
	}
}

// ListTasks returns the caller's tasks ordered by due date.
func (s *TaskService) ListTasks(ctx context.Context, userID string, filter repository.TaskFilter) ([]models.Task, error) {
	tasks, err := s.taskRepo.FindByOwner(ctx, userID, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, nil
}

// SearchTasks matches term against the caller's task titles and descriptions.
func (s *TaskService) SearchTasks(ctx context.Context, userID, term string) ([]models.Task, error) {
	term, result := validation.SearchTerm(term)
	if err := result.Err(); err != nil {
		return nil, err
	}

	tasks, err := s.taskRepo.Search(ctx, userID, term)
	if err != nil {
		return nil, fmt.Errorf("failed to search tasks: %w", err)
	}
	return tasks, nil
}

// GetTask returns one of the caller's tasks
func (s *TaskService) GetTask(ctx context.Context, userID, taskID string) (*models.Task, error) {
	task, err := s.taskRepo.FindByIDForOwner(ctx, taskID, userID)
	if err != nil {
		return nil, mapTaskError(err, "failed to find task")
	}
	return task, nil
}

// CreateTask validates input and stores a task owned by the caller
func (s *TaskService) CreateTask(ctx context.Context, userID string, input validation.TaskCreate) (*models.Task, error) {
	task, result := validation.NewTask(input, userID, s.loc)
	if err := result.Err(); err != nil {
		return nil, err
	}

	if err := s.taskRepo.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}
	return task, nil
}

// UpdateTask applies a partial update to one of the caller's tasks
func (s *TaskService) UpdateTask(ctx context.Context, userID, taskID string, input validation.TaskUpdate) (*models.Task, error) {
	patch, result := validation.TaskChanges(input, s.loc)
	if err := result.Err(); err != nil {
		return nil, err
	}

	task, err := s.taskRepo.Update(ctx, taskID, userID, patch)
	if err != nil {
		return nil, mapTaskError(err, "failed to update task")
	}
	return task, nil
}

// ToggleTask flips the completed flag of one of the caller's tasks
func (s *TaskService) ToggleTask(ctx context.Context, userID, taskID string) (*models.Task, error) {
	task, err := s.taskRepo.Toggle(ctx, taskID, userID)
	if err != nil {
		return nil, mapTaskError(err, "failed to toggle task")
	}
	return task, nil
}

// DeleteTask removes one of the caller's tasks
func (s *TaskService) DeleteTask(ctx context.Context, userID, taskID string) error {
	deleted, err := s.taskRepo.Delete(ctx, taskID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	if !deleted {
		return ErrTaskNotFound
	}
	return nil
}

func mapTaskError(err error, action string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrTaskNotFound
	}
	return fmt.Errorf("%s: %w", action, err)
}
