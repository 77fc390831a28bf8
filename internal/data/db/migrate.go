package db

import (
	"fmt"

	"gorm.io/gorm"

	types "github.com/yungbote/microlearn-backend/internal/domain"
)

// Partial indexes the stale sweeper scans. Both drivers accept this syntax.
var sweeperIndexes = []string{
	`CREATE INDEX IF NOT EXISTS idx_lesson_generating_since ON lesson (generation_started_at) WHERE status = 'generating'`,
	`CREATE INDEX IF NOT EXISTS idx_course_research_generating_since ON course_research (started_at) WHERE status = 'generating'`,
}

// AutoMigrateAll creates or updates every table, then the sweeper indexes. Safe to rerun.
func AutoMigrateAll(db *gorm.DB) error {
	models := types.AllModels()
	if err := db.AutoMigrate(models...); err != nil {
		return fmt.Errorf("auto migrate %d models: %w", len(models), err)
	}
	for _, stmt := range sweeperIndexes {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("create sweeper index: %w", err)
		}
	}
	return nil
}
