package courses

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type LessonStatus string

const (
	LessonStatusPending    LessonStatus = "pending"
	LessonStatusGenerating LessonStatus = "generating"
	LessonStatusReady      LessonStatus = "ready"
)

type Lesson struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CourseID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_lesson_course_session,priority:1" json:"course_id"`
	Course        *Course   `gorm:"constraint:OnDelete:CASCADE;foreignKey:CourseID;references:ID" json:"-"`
	SessionNumber int       `gorm:"column:session_number;not null;uniqueIndex:idx_lesson_course_session,priority:2" json:"session_number"`
	Title         string    `gorm:"column:title;not null" json:"title"`
	Subtitle      string    `gorm:"column:subtitle;not null;default:''" json:"subtitle"`

	// Content is empty until Status is ready.
	Content             string       `gorm:"column:content;type:text;not null;default:''" json:"content"`
	Status              LessonStatus `gorm:"column:status;not null;default:'pending';index" json:"status"`
	GenerationToken     *uuid.UUID   `gorm:"type:uuid;column:generation_token" json:"-"`
	GenerationStartedAt *time.Time   `gorm:"column:generation_started_at;index" json:"-"`
	GeneratedAt         *time.Time   `gorm:"column:generated_at" json:"generated_at,omitempty"`
	LastError           string       `gorm:"column:last_error;not null;default:''" json:"-"`

	// Citations maps marker number to source url, {"1":"https://..."}. NULL when the text cites nothing.
	Citations        datatypes.JSON `gorm:"column:citations" json:"citations,omitempty"`
	EstimatedMinutes int            `gorm:"column:estimated_minutes;not null;default:0" json:"estimated_minutes"`

	// UserFeedback is the latest entry from the feedback log, filled in on read.
	UserFeedback *string `gorm:"-" json:"user_feedback,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Lesson) TableName() string { return "lesson" }

func (l *Lesson) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	if l.Status == "" {
		l.Status = LessonStatusPending
	}
	return nil
}

func (l *Lesson) IsReady() bool { return l != nil && l.Status == LessonStatusReady }

// CitationMap decodes Citations. Returns nil when absent or malformed.
func (l *Lesson) CitationMap() map[int]string {
	if l == nil || len(l.Citations) == 0 {
		return nil
	}
	raw := map[string]string{}
	if err := json.Unmarshal(l.Citations, &raw); err != nil || len(raw) == 0 {
		return nil
	}
	out := make(map[int]string, len(raw))
	for k, v := range raw {
		n, err := strconv.Atoi(k)
		if err != nil {
			continue
		}
		out[n] = v
	}
	return out
}
