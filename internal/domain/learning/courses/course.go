package courses

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Course struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID          uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	Topic           string     `gorm:"column:topic;not null;default:''" json:"topic"`
	Title           string     `gorm:"column:title;not null" json:"title"`
	Description     string     `gorm:"column:description;type:text" json:"description"`
	TotalLessons    int        `gorm:"column:total_lessons;not null;default:0" json:"total_lessons"`
	Completed       bool       `gorm:"column:completed;not null;default:false;index" json:"completed"`
	CompletedAt     *time.Time `gorm:"column:completed_at" json:"completed_at,omitempty"`
	Archived        bool       `gorm:"column:archived;not null;default:false;index" json:"archived"`
	ArchivedAt      *time.Time `gorm:"column:archived_at" json:"archived_at,omitempty"`
	ResearchEnabled bool       `gorm:"column:research_enabled;not null;default:false" json:"research_enabled"`
	CreatedAt       time.Time  `gorm:"not null;index" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"not null" json:"updated_at"`
}

func (Course) TableName() string { return "course" }

func (c *Course) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
