package courses

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LessonFeedback is append-only.
type LessonFeedback struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	LessonID  uuid.UUID `gorm:"type:uuid;not null;index" json:"lesson_id"`
	CourseID  uuid.UUID `gorm:"type:uuid;not null;index:idx_feedback_course_created,priority:1" json:"course_id"`
	Feedback  string    `gorm:"column:feedback;type:text;not null" json:"feedback"`
	CreatedAt time.Time `gorm:"not null;index:idx_feedback_course_created,priority:2" json:"created_at"`
	// Seq is the per-course insert order; it breaks created_at ties.
	Seq int64 `gorm:"column:seq;not null;default:0;index:idx_feedback_course_created,priority:3" json:"-"`
}

func (LessonFeedback) TableName() string { return "lesson_feedback" }

func (f *LessonFeedback) BeforeCreate(tx *gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	if f.Seq == 0 {
		var last int64
		if err := tx.Session(&gorm.Session{NewDB: true}).
			Model(&LessonFeedback{}).
			Where("course_id = ?", f.CourseID).
			Select("COALESCE(MAX(seq), 0)").
			Scan(&last).Error; err != nil {
			return err
		}
		f.Seq = last + 1
	}
	return nil
}
