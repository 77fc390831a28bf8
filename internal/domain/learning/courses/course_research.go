package courses

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ResearchStatus string

const (
	ResearchStatusPending    ResearchStatus = "pending"
	ResearchStatusGenerating ResearchStatus = "generating"
	ResearchStatusCompleted  ResearchStatus = "completed"
	ResearchStatusFailed     ResearchStatus = "failed"
)

// ResearchCitation.Index is the 1-based position in the list.
type ResearchCitation struct {
	Index   int    `json:"index"`
	Title   string `json:"title"`
	URL     string `json:"url"`
	Domain  string `json:"domain"`
	Snippet string `json:"snippet,omitempty"`
}

type CourseResearch struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CourseID        uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex" json:"course_id"`
	Course          *Course        `gorm:"constraint:OnDelete:CASCADE;foreignKey:CourseID;references:ID" json:"-"`
	Status          ResearchStatus `gorm:"column:status;not null;default:'pending';index" json:"status"`
	Content         string         `gorm:"column:content;type:text;not null;default:''" json:"content,omitempty"`
	Citations       datatypes.JSON `gorm:"column:citations" json:"citations,omitempty"`
	ConfidenceScore float64        `gorm:"column:confidence_score;not null;default:0" json:"confidence_score"`
	ErrorMessage    string         `gorm:"column:error_message;not null;default:''" json:"error_message,omitempty"`
	TokenCount      int            `gorm:"column:token_count;not null;default:0" json:"token_count"`
	GenerationToken *uuid.UUID     `gorm:"type:uuid;column:generation_token" json:"-"`
	StartedAt       *time.Time     `gorm:"column:started_at;index" json:"started_at,omitempty"`
	CompletedAt     *time.Time     `gorm:"column:completed_at" json:"completed_at,omitempty"`
	CreatedAt       time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"not null" json:"updated_at"`
}

func (CourseResearch) TableName() string { return "course_research" }

func (r *CourseResearch) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.Status == "" {
		r.Status = ResearchStatusPending
	}
	return nil
}

// CitationList decodes Citations in stored order.
func (r *CourseResearch) CitationList() []ResearchCitation {
	if r == nil || len(r.Citations) == 0 {
		return nil
	}
	var out []ResearchCitation
	if err := json.Unmarshal(r.Citations, &out); err != nil {
		return nil
	}
	return out
}

func EncodeCitations(list []ResearchCitation) datatypes.JSON {
	if len(list) == 0 {
		return nil
	}
	b, err := json.Marshal(list)
	if err != nil {
		return nil
	}
	return datatypes.JSON(b)
}
