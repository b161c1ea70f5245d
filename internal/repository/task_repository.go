package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/todoapp/todo-reminder-api/internal/database"
	"github.com/todoapp/todo-reminder-api/internal/models"
	"gorm.io/gorm"
)

// GormTaskRepository is a GORM implementation of TaskRepository
type GormTaskRepository struct {
	db *gorm.DB
}

// NewTaskRepository creates a new TaskRepository
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &GormTaskRepository{db: db}
}

// Create inserts a new task
func (r *GormTaskRepository) Create(ctx context.Context, task *models.Task) error {
	if err := r.db.WithContext(ctx).Create(task).Error; err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

// FindByOwner lists a user's tasks
func (r *GormTaskRepository) FindByOwner(ctx context.Context, ownerID string, filter TaskFilter) ([]models.Task, error) {
	query := r.db.WithContext(ctx).Model(&models.Task{}).Scopes(database.OwnedBy(ownerID))

	if filter.Completed != nil {
		query = query.Where("tasks.completed = ?", *filter.Completed)
	}

	tasks := []models.Task{}
	if err := query.Scopes(database.DueOrder, database.Paginate(filter.Pagination)).Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// FindByIDForOwner finds a single task owned by ownerID
func (r *GormTaskRepository) FindByIDForOwner(ctx context.Context, id, ownerID string) (*models.Task, error) {
	var task models.Task
	err := r.db.WithContext(ctx).
		Scopes(database.OwnedBy(ownerID)).
		Where("tasks.id = ?", id).
		First(&task).Error
	if err != nil {
		return nil, translate(err)
	}
	return &task, nil
}

// Search matches term against title and description
func (r *GormTaskRepository) Search(ctx context.Context, ownerID, term string) ([]models.Task, error) {
	pattern := "%" + escapeLike(strings.ToLower(term)) + "%"

	tasks := []models.Task{}
	err := r.db.WithContext(ctx).
		Model(&models.Task{}).
		Scopes(database.OwnedBy(ownerID)).
		Where("(LOWER(tasks.title) LIKE ? ESCAPE '!' OR LOWER(tasks.description) LIKE ? ESCAPE '!')", pattern, pattern).
		Scopes(database.DueOrder).
		Find(&tasks).Error
	if err != nil {
		return nil, fmt.Errorf("search tasks: %w", err)
	}
	return tasks, nil
}

// FindDueWithin returns incomplete tasks due in [start, end]
func (r *GormTaskRepository) FindDueWithin(ctx context.Context, start, end time.Time, ownerID *string) ([]models.Task, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Task{}).
		Preload("User").
		Where("tasks.completed = ?", false).
		Where("tasks.due_date >= ? AND tasks.due_date <= ?", start.UTC(), end.UTC())

	if ownerID != nil {
		query = query.Scopes(database.OwnedBy(*ownerID))
	}

	tasks := []models.Task{}
	if err := query.Scopes(database.DueOrder).Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("find due tasks: %w", err)
	}
	return tasks, nil
}

// Update applies a partial update in one transaction
func (r *GormTaskRepository) Update(ctx context.Context, id, ownerID string, patch TaskPatch) (*models.Task, error) {
	var task models.Task
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Scopes(database.OwnedBy(ownerID)).Where("tasks.id = ?", id).First(&task).Error; err != nil {
			return translate(err)
		}
		if patch.Empty() {
			return nil
		}
		if err := tx.Model(&task).Updates(patch.Columns()).Error; err != nil {
			return fmt.Errorf("update task: %w", err)
		}
		return tx.Where("id = ?", id).First(&task).Error
	})
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// Toggle flips the completed flag with a single conditional UPDATE
func (r *GormTaskRepository) Toggle(ctx context.Context, id, ownerID string) (*models.Task, error) {
	var task models.Task
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Task{}).
			Where("id = ? AND user_id = ?", id, ownerID).
			Updates(map[string]interface{}{
				"completed":  gorm.Expr("NOT completed"),
				"updated_at": tx.NowFunc(),
			})
		if result.Error != nil {
			return fmt.Errorf("toggle task: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return tx.Where("id = ?", id).First(&task).Error
	})
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// Delete removes a task owned by ownerID
func (r *GormTaskRepository) Delete(ctx context.Context, id, ownerID string) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, ownerID).
		Delete(&models.Task{})
	if result.Error != nil {
		return false, fmt.Errorf("delete task: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// Ping checks the connection pool
func (r *GormTaskRepository) Ping(ctx context.Context) error {
	return database.Ping(ctx, r.db)
}

// escapeLike escapes LIKE wildcards using '!' as the escape character.
func escapeLike(term string) string {
	return strings.NewReplacer("!", "!!", "%", "!%", "_", "!_").Replace(term)
}
