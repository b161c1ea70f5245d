package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Valid reports whether p is one of the three known priorities.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// ParsePriority falls back to medium for empty or unknown values.
func ParsePriority(s string) Priority {
	p := Priority(s)
	if p.Valid() {
		return p
	}
	return PriorityMedium
}

type Task struct {
	ID          string    `gorm:"type:varchar(36);primaryKey" json:"_id" bson:"_id"`
	UserID      string    `gorm:"type:varchar(36);not null" json:"userId" bson:"userId"`
	Title       string    `gorm:"type:varchar(255);not null" json:"title" bson:"title"`
	Description string    `gorm:"type:text" json:"description" bson:"description"`
	Priority    Priority  `gorm:"type:varchar(10);not null;default:'medium'" json:"priority" bson:"priority"`
	DueDate     time.Time `gorm:"not null" json:"dueDate" bson:"dueDate"`
	Completed   bool      `gorm:"not null;default:false" json:"completed" bson:"completed"`
	CreatedAt   time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt" bson:"updatedAt"`

	// Relations
	User User `gorm:"foreignKey:UserID" json:"-" bson:"-"`
}

func (t *Task) BeforeCreate(tx *gorm.DB) error {
	t.PrepareInsert()
	return nil
}

func (t *Task) BeforeSave(tx *gorm.DB) error {
	t.DueDate = t.DueDate.UTC()
	return nil
}

// PrepareInsert fills defaults for a new task: id, priority and a UTC due date.
func (t *Task) PrepareInsert() {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	t.Priority = ParsePriority(string(t.Priority))
	t.DueDate = t.DueDate.UTC()
}
