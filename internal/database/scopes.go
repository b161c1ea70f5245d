package database

import (
	"gorm.io/gorm"

	"github.com/todoapp/todo-reminder-api/internal/utils"
)

// Paginate applies pagination to a GORM query. A zero limit leaves the
// query untouched.
func Paginate(params utils.PaginationParams) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if !params.Enabled() {
			return db
		}
		return db.Offset(params.Offset).Limit(params.Limit)
	}
}

// OwnedBy restricts a task query to one owner.
func OwnedBy(userID string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("tasks.user_id = ?", userID)
	}
}

// DueOrder is the stable ordering shared by listings and the reminder sweep.
func DueOrder(db *gorm.DB) *gorm.DB {
	return db.Order("tasks.due_date ASC").Order("tasks.created_at ASC").Order("tasks.id ASC")
}
