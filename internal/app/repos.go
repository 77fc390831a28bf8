package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/microlearn-backend/internal/data/repos"
	"github.com/yungbote/microlearn-backend/internal/platform/logger"
)

type Repos struct {
	Course         repos.CourseRepo
	Lesson         repos.LessonRepo
	LessonProgress repos.LessonProgressRepo
	LessonFeedback repos.LessonFeedbackRepo
	TopicExpansion repos.TopicExpansionRepo
	CourseResearch repos.CourseResearchRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Course:         repos.NewCourseRepo(db, log),
		Lesson:         repos.NewLessonRepo(db, log),
		LessonProgress: repos.NewLessonProgressRepo(db, log),
		LessonFeedback: repos.NewLessonFeedbackRepo(db, log),
		TopicExpansion: repos.NewTopicExpansionRepo(db, log),
		CourseResearch: repos.NewCourseResearchRepo(db, log),
	}
}
