package repository

import (
	"context"
	"errors"
	"time"

	"github.com/todoapp/todo-reminder-api/internal/models"
	"github.com/todoapp/todo-reminder-api/internal/utils"
)

var (
	// ErrNotFound is returned when a record is absent or not owned by the caller.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateEmail is returned when a signup reuses an existing email.
	ErrDuplicateEmail = errors.New("email already registered")
)

// TaskRepository defines the interface for task data access. Every
// single-task operation takes the owner id and matches on (id, owner) in one
// predicate, so another user's task is indistinguishable from a missing one.
type TaskRepository interface {
	// Create inserts a new task
	Create(ctx context.Context, task *models.Task) error

	// FindByOwner lists a user's tasks ordered by due date, then creation time
	FindByOwner(ctx context.Context, ownerID string, filter TaskFilter) ([]models.Task, error)

	// FindByIDForOwner finds a single task owned by ownerID
	FindByIDForOwner(ctx context.Context, id, ownerID string) (*models.Task, error)

	// Search matches term case-insensitively against title and description
	Search(ctx context.Context, ownerID, term string) ([]models.Task, error)

	// FindDueWithin returns incomplete tasks due in [start, end] with their
	// owner loaded. A nil ownerID spans every user.
	FindDueWithin(ctx context.Context, start, end time.Time, ownerID *string) ([]models.Task, error)

	// Update applies a partial update and returns the stored task
	Update(ctx context.Context, id, ownerID string, patch TaskPatch) (*models.Task, error)

	// Toggle flips the completed flag and returns the stored task
	Toggle(ctx context.Context, id, ownerID string) (*models.Task, error)

	// Delete removes a task and reports whether one was removed
	Delete(ctx context.Context, id, ownerID string) (bool, error)

	// Ping checks the backing store
	Ping(ctx context.Context) error
}

// TaskFilter holds filtering options for listing tasks
type TaskFilter struct {
	Completed  *bool
	Pagination utils.PaginationParams
}

// TaskPatch carries the fields of a partial update. Nil fields are unchanged.
type TaskPatch struct {
	Title       *string
	Description *string
	Priority    *models.Priority
	DueDate     *time.Time
	Completed   *bool
}

// Empty reports whether the patch changes nothing.
func (p TaskPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Priority == nil && p.DueDate == nil && p.Completed == nil
}

// Columns maps the patch onto store column names.
func (p TaskPatch) Columns() map[string]interface{} {
	updates := map[string]interface{}{}
	if p.Title != nil {
		updates["title"] = *p.Title
	}
	if p.Description != nil {
		updates["description"] = *p.Description
	}
	if p.Priority != nil {
		updates["priority"] = *p.Priority
	}
	if p.DueDate != nil {
		updates["due_date"] = p.DueDate.UTC()
	}
	if p.Completed != nil {
		updates["completed"] = *p.Completed
	}
	return updates
}

// UserRepository defines the interface for user data access
type UserRepository interface {
	// Create inserts a new user, returning ErrDuplicateEmail on a taken email
	Create(ctx context.Context, user *models.User) error

	// FindByID finds a user by ID
	FindByID(ctx context.Context, id string) (*models.User, error)

	// FindByEmail finds a user by normalised email
	FindByEmail(ctx context.Context, email string) (*models.User, error)
}
