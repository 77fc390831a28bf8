package repos

import (
	"github.com/yungbote/microlearn-backend/internal/data/repos/learning"
	"github.com/yungbote/microlearn-backend/internal/platform/logger"
	"gorm.io/gorm"
)

type CourseRepo = learning.CourseRepo
type LessonRepo = learning.LessonRepo
type LessonProgressRepo = learning.LessonProgressRepo
type LessonFeedbackRepo = learning.LessonFeedbackRepo
type TopicExpansionRepo = learning.TopicExpansionRepo
type CourseResearchRepo = learning.CourseResearchRepo

func NewCourseRepo(db *gorm.DB, baseLog *logger.Logger) CourseRepo {
	return learning.NewCourseRepo(db, baseLog)
}

func NewLessonRepo(db *gorm.DB, baseLog *logger.Logger) LessonRepo {
	return learning.NewLessonRepo(db, baseLog)
}

func NewLessonProgressRepo(db *gorm.DB, baseLog *logger.Logger) LessonProgressRepo {
	return learning.NewLessonProgressRepo(db, baseLog)
}

func NewLessonFeedbackRepo(db *gorm.DB, baseLog *logger.Logger) LessonFeedbackRepo {
	return learning.NewLessonFeedbackRepo(db, baseLog)
}

func NewTopicExpansionRepo(db *gorm.DB, baseLog *logger.Logger) TopicExpansionRepo {
	return learning.NewTopicExpansionRepo(db, baseLog)
}

func NewCourseResearchRepo(db *gorm.DB, baseLog *logger.Logger) CourseResearchRepo {
	return learning.NewCourseResearchRepo(db, baseLog)
}
