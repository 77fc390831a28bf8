package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/microlearn-backend/internal/modules/learning/outline"
	"github.com/yungbote/microlearn-backend/internal/platform/logger"
	"github.com/yungbote/microlearn-backend/internal/services"
)

type Services struct {
	Course   services.CourseService
	Lesson   services.LessonService
	Outline  services.OutlineService
	Research services.ResearchService
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, r Repos, g Gates, c Clients, jobs services.JobSpawner) Services {
	log.Info("Wiring services...")
	return Services{
		Course: services.NewCourseService(
			db, log, r.Course, r.Lesson, r.LessonProgress, r.LessonFeedback, r.TopicExpansion, r.CourseResearch,
			jobs, cfg.ResearchEnabled,
		),
		Lesson: services.NewLessonService(
			db, log, r.Course, r.Lesson, r.LessonProgress, r.LessonFeedback, r.TopicExpansion,
			g.Lesson, c.OpenAI, jobs, cfg.PrefetchNextLesson,
		),
		Outline:  services.NewOutlineService(log, outline.NewNegotiator(c.OpenAI, log)),
		Research: services.NewResearchService(log, r.Course, r.CourseResearch, g.Research, jobs, cfg.ResearchEnabled),
	}
}
