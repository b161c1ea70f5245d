package database

import (
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type index struct {
	table   string
	name    string
	columns string
}

// taskIndexes back the two hot paths: a user's list ordered by due date and
// the reminder sweep over incomplete tasks.
var taskIndexes = []index{
	{"tasks", "idx_tasks_user_due", "user_id, due_date"},
	{"tasks", "idx_tasks_user_completed", "user_id, completed"},
	{"tasks", "idx_tasks_due_date", "due_date"},
}

// AddIndexes creates the composite indexes that struct tags do not express.
// Existing indexes are left alone so the call is idempotent.
func AddIndexes(db *gorm.DB, log *zap.Logger) error {
	migrator := db.Migrator()

	for _, idx := range taskIndexes {
		if migrator.HasIndex(idx.table, idx.name) {
			log.Debug("index already exists, skipping", zap.String("index", idx.name))
			continue
		}

		sql := fmt.Sprintf("CREATE INDEX %s ON %s (%s)", idx.name, idx.table, idx.columns)
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}

		log.Info("created index",
			zap.String("index", idx.name),
			zap.String("table", idx.table),
			zap.String("columns", idx.columns),
		)
	}

	return nil
}
