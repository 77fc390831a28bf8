package courses

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TopicExpansion struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	LessonID  uuid.UUID `gorm:"type:uuid;not null;index" json:"lesson_id"`
	Topic     string    `gorm:"column:topic;not null" json:"topic"`
	Content   string    `gorm:"column:content;type:text;not null" json:"content"`
	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
}

func (TopicExpansion) TableName() string { return "topic_expansion" }

func (e *TopicExpansion) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
