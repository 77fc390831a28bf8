package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/microlearn-backend/internal/http/handlers"
	httpMW "github.com/yungbote/microlearn-backend/internal/http/middleware"
	"github.com/yungbote/microlearn-backend/internal/observability"
	"github.com/yungbote/microlearn-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	Metrics        *observability.Metrics
	ServiceName    string
	CORSOrigins    []string
	AuthMiddleware *httpMW.AuthMiddleware

	OutlineHandler  *httpH.OutlineHandler
	CourseHandler   *httpH.CourseHandler
	LessonHandler   *httpH.LessonHandler
	ResearchHandler *httpH.ResearchHandler
	HealthHandler   *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.Observe(cfg.Log, cfg.Metrics))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	protected := r.Group("/api")
	{
		// Middleware
		if cfg.AuthMiddleware != nil {
			protected.Use(cfg.AuthMiddleware.RequireAuth())
		}

		// Outline negotiation
		if cfg.OutlineHandler != nil {
			protected.POST("/outlines/preview", cfg.OutlineHandler.Preview)
		}

		// Courses
		if cfg.CourseHandler != nil {
			protected.POST("/courses", cfg.CourseHandler.Build)
			protected.GET("/courses", cfg.CourseHandler.List)
			protected.GET("/courses/:id", cfg.CourseHandler.Get)
			protected.POST("/courses/:id/archive", cfg.CourseHandler.Archive)
			protected.POST("/courses/:id/unarchive", cfg.CourseHandler.Unarchive)
			protected.DELETE("/courses/:id", cfg.CourseHandler.Delete)
		}

		// Research
		if cfg.ResearchHandler != nil {
			protected.GET("/courses/:id/research", cfg.ResearchHandler.Get)
			protected.POST("/courses/:id/research/retry", cfg.ResearchHandler.Retry)
		}

		// Lessons
		if cfg.LessonHandler != nil {
			protected.GET("/lessons/:id", cfg.LessonHandler.GetLesson)
			protected.POST("/lessons/:id/complete", cfg.LessonHandler.Complete)
			protected.POST("/lessons/:id/feedback", cfg.LessonHandler.SubmitFeedback)
			protected.GET("/lessons/:id/expansions", cfg.LessonHandler.ListExpansions)
			protected.POST("/lessons/:id/expansions", cfg.LessonHandler.CreateExpansion)
		}
	}

	return r
}
