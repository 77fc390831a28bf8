package app

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/yungbote/microlearn-backend/internal/data/db"
	"github.com/yungbote/microlearn-backend/internal/observability"
	"github.com/yungbote/microlearn-backend/internal/platform/envutil"
	"github.com/yungbote/microlearn-backend/internal/platform/logger"
	"github.com/yungbote/microlearn-backend/internal/platform/openai"
	"github.com/yungbote/microlearn-backend/internal/platform/research"
	"github.com/yungbote/microlearn-backend/internal/realtime/bus"
)

const (
	ModeServe   = "serve"
	ModeMigrate = "migrate"
)

type Config struct {
	Port     string
	LogMode  string
	LogLevel string

	DB db.Config

	OpenAI        openai.Config
	LessonTimeout time.Duration

	ResearchEnabled bool
	Research        research.Config

	JobMaxConcurrency  int
	StaleGeneration    time.Duration
	SweeperSchedule    string
	PrefetchNextLesson bool

	RedisEnabled bool
	Redis        bus.Config

	JWTSecret   string
	CORSOrigins []string

	Otel observability.OtelConfig
}

// LoadEnv populates the process environment from an optional .env file and an
// optional YAML file named by CONFIG_FILE. Variables already set are never overwritten.
func LoadEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	path := strings.TrimSpace(os.Getenv("CONFIG_FILE"))
	if path == "" {
		return nil
	}
	return applyYAML(path)
}

func applyYAML(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	values := map[string]interface{}{}
	if err := yaml.Unmarshal(raw, &values); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	for k, v := range values {
		key := strings.ToUpper(strings.TrimSpace(k))
		if key == "" || v == nil {
			continue
		}
		if _, set := os.LookupEnv(key); set {
			continue
		}
		var s string
		switch tv := v.(type) {
		case []interface{}:
			parts := make([]string, 0, len(tv))
			for _, p := range tv {
				parts = append(parts, fmt.Sprint(p))
			}
			s = strings.Join(parts, ",")
		default:
			s = fmt.Sprint(tv)
		}
		if err := os.Setenv(key, s); err != nil {
			return fmt.Errorf("set %s: %w", key, err)
		}
	}
	return nil
}

func LoadConfig(log *logger.Logger) Config {
	researchTimeout := envutil.Seconds("RESEARCH_TIMEOUT_SECONDS", research.MaxTimeout)
	if researchTimeout > research.MaxTimeout {
		researchTimeout = research.MaxTimeout
	}

	cfg := Config{
		Port:     envutil.String("PORT", "8080"),
		LogMode:  envutil.String("LOG_MODE", "dev"),
		LogLevel: envutil.String("LOG_LEVEL", ""),

		DB: db.Config{
			Driver:     envutil.String("DB_DRIVER", db.DriverPostgres),
			DSN:        postgresDSN(),
			SQLitePath: envutil.String("SQLITE_PATH", ""),
			MaxOpen:    envutil.Int("DB_MAX_OPEN_CONNS", 20),
			MaxIdle:    envutil.Int("DB_MAX_IDLE_CONNS", 5),
		},

		OpenAI: openai.Config{
			APIKey:     envutil.String("OPENAI_API_KEY", ""),
			BaseURL:    envutil.String("OPENAI_BASE_URL", ""),
			Model:      envutil.String("OPENAI_MODEL", ""),
			Timeout:    envutil.Seconds("OPENAI_TIMEOUT_SECONDS", 90*time.Second),
			MaxRetries: envutil.Int("OPENAI_MAX_RETRIES", 2),
		},
		LessonTimeout: envutil.Seconds("LESSON_GENERATION_TIMEOUT_SECONDS", 60*time.Second),

		Research: research.Config{
			APIKey:  envutil.String("RESEARCH_API_KEY", ""),
			BaseURL: envutil.String("RESEARCH_BASE_URL", ""),
			Model:   envutil.String("RESEARCH_MODEL", ""),
			Timeout: researchTimeout,
		},

		JobMaxConcurrency:  envutil.Int("JOB_MAX_CONCURRENCY", 8),
		StaleGeneration:    time.Duration(envutil.Int("STALE_GENERATION_MINUTES", 10)) * time.Minute,
		SweeperSchedule:    envutil.String("SWEEPER_SCHEDULE", "@every 1m"),
		PrefetchNextLesson: envutil.Bool("PREFETCH_NEXT_LESSON", true),

		Redis: bus.Config{
			Addr:     envutil.String("REDIS_ADDR", ""),
			Password: envutil.String("REDIS_PASSWORD", ""),
			DB:       envutil.Int("REDIS_DB", 0),
			Channel:  envutil.String("REDIS_CHANNEL", ""),
		},

		JWTSecret:   envutil.String("AUTH_JWT_SECRET", ""),
		CORSOrigins: envutil.StringList("CORS_ALLOWED_ORIGINS", nil),

		Otel: observability.OtelConfig{
			Enabled:     envutil.Bool("OTEL_ENABLED", false),
			ServiceName: envutil.String("OTEL_SERVICE_NAME", "microlearn-backend"),
			Environment: envutil.String("OTEL_ENVIRONMENT", envutil.String("LOG_MODE", "dev")),
			Version:     Version,
			Endpoint:    envutil.String("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			Insecure:    envutil.Bool("OTEL_EXPORTER_OTLP_INSECURE", true),
			SampleRatio: envutil.Float("OTEL_SAMPLE_RATIO", 1),
		},
	}
	if cfg.StaleGeneration <= 0 {
		cfg.StaleGeneration = 10 * time.Minute
	}
	cfg.ResearchEnabled = cfg.Research.APIKey != ""
	cfg.RedisEnabled = cfg.Redis.Addr != ""

	if log != nil {
		log.Info("Config loaded",
			"db_driver", cfg.DB.Driver,
			"research_enabled", cfg.ResearchEnabled,
			"redis_enabled", cfg.RedisEnabled,
			"otel_enabled", cfg.Otel.Enabled,
			"job_max_concurrency", cfg.JobMaxConcurrency,
			"prefetch_next_lesson", cfg.PrefetchNextLesson,
		)
	}
	return cfg
}

// Validate checks what the given mode cannot run without.
func (c Config) Validate(mode string) error {
	var problems []string
	if c.DB.Driver == db.DriverPostgres && c.DB.DSN == "" {
		problems = append(problems, "DATABASE_URL or POSTGRES_HOST is required for postgres")
	}
	if mode == ModeServe {
		if c.OpenAI.APIKey == "" {
			problems = append(problems, "OPENAI_API_KEY is required")
		}
		if c.IsProd() && c.JWTSecret == "" {
			problems = append(problems, "AUTH_JWT_SECRET is required in prod")
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

func (c Config) IsProd() bool {
	m := strings.ToLower(c.LogMode)
	return m == "prod" || m == "production"
}

// ResearchStale is how long research may stay generating before the sweeper fails it.
func (c Config) ResearchStale() time.Duration {
	return 2 * c.Research.Timeout
}

func postgresDSN() string {
	if dsn := envutil.String("DATABASE_URL", ""); dsn != "" {
		return dsn
	}
	host := envutil.String("POSTGRES_HOST", "")
	if host == "" {
		return ""
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		host,
		envutil.String("POSTGRES_PORT", "5432"),
		envutil.String("POSTGRES_USER", "postgres"),
		envutil.String("POSTGRES_PASSWORD", ""),
		envutil.String("POSTGRES_NAME", "microlearn"),
		envutil.String("POSTGRES_SSLMODE", "disable"),
	)
}
