package courses

import (
	"time"

	"github.com/google/uuid"
)

type LessonProgress struct {
	UserID      uuid.UUID  `gorm:"type:uuid;primaryKey" json:"user_id"`
	LessonID    uuid.UUID  `gorm:"type:uuid;primaryKey" json:"lesson_id"`
	CourseID    uuid.UUID  `gorm:"type:uuid;not null;index" json:"course_id"`
	Completed   bool       `gorm:"column:completed;not null;default:false" json:"completed"`
	CompletedAt *time.Time `gorm:"column:completed_at" json:"completed_at,omitempty"`
	CreatedAt   time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"not null" json:"updated_at"`
}

func (LessonProgress) TableName() string { return "lesson_progress" }
