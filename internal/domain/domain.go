package domain

import "github.com/yungbote/microlearn-backend/internal/domain/learning/courses"

const (
	LessonStatusPending    = courses.LessonStatusPending
	LessonStatusGenerating = courses.LessonStatusGenerating
	LessonStatusReady      = courses.LessonStatusReady

	ResearchStatusPending    = courses.ResearchStatusPending
	ResearchStatusGenerating = courses.ResearchStatusGenerating
	ResearchStatusCompleted  = courses.ResearchStatusCompleted
	ResearchStatusFailed     = courses.ResearchStatusFailed
)

type (
	Course           = courses.Course
	Lesson           = courses.Lesson
	LessonStatus     = courses.LessonStatus
	LessonProgress   = courses.LessonProgress
	LessonFeedback   = courses.LessonFeedback
	TopicExpansion   = courses.TopicExpansion
	CourseResearch   = courses.CourseResearch
	ResearchStatus   = courses.ResearchStatus
	ResearchCitation = courses.ResearchCitation
)

var EncodeResearchCitations = courses.EncodeCitations

// AllModels lists every table this service migrates.
func AllModels() []interface{} {
	return []interface{}{
		&Course{},
		&Lesson{},
		&LessonProgress{},
		&LessonFeedback{},
		&TopicExpansion{},
		&CourseResearch{},
	}
}
