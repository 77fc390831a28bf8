package app

import (
	"net"

	httpserver "github.com/yungbote/microlearn-backend/internal/http"
	httpH "github.com/yungbote/microlearn-backend/internal/http/handlers"
	httpMW "github.com/yungbote/microlearn-backend/internal/http/middleware"
	"github.com/yungbote/microlearn-backend/internal/observability"
	"github.com/yungbote/microlearn-backend/internal/platform/logger"
)

type Middleware struct {
	Auth *httpMW.AuthMiddleware
}

type Handlers struct {
	Health   *httpH.HealthHandler
	Outline  *httpH.OutlineHandler
	Course   *httpH.CourseHandler
	Lesson   *httpH.LessonHandler
	Research *httpH.ResearchHandler
}

func wireHandlers(log *logger.Logger, services Services, db httpH.Pinger) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:   httpH.NewHealthHandler(db),
		Outline:  httpH.NewOutlineHandler(log, services.Outline),
		Course:   httpH.NewCourseHandler(log, services.Course),
		Lesson:   httpH.NewLessonHandler(log, services.Lesson),
		Research: httpH.NewResearchHandler(log, services.Research),
	}
}

func wireMiddleware(log *logger.Logger, cfg Config) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{
		Auth: httpMW.NewAuthMiddleware(log, cfg.JWTSecret),
	}
}

func wireServer(log *logger.Logger, cfg Config, metrics *observability.Metrics, handlers Handlers, middleware Middleware) *httpserver.Server {
	serviceName := ""
	if cfg.Otel.Enabled {
		serviceName = cfg.Otel.ServiceName
	}
	return httpserver.NewServer(net.JoinHostPort("", cfg.Port), httpserver.RouterConfig{
		Log:             log,
		Metrics:         metrics,
		ServiceName:     serviceName,
		CORSOrigins:     cfg.CORSOrigins,
		AuthMiddleware:  middleware.Auth,
		HealthHandler:   handlers.Health,
		OutlineHandler:  handlers.Outline,
		CourseHandler:   handlers.Course,
		LessonHandler:   handlers.Lesson,
		ResearchHandler: handlers.Research,
	})
}
