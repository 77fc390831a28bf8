package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/microlearn-backend/internal/platform/logger"
)

const (
	EventLessonReady       = "lesson.ready"
	EventResearchCompleted = "research.completed"
	EventResearchFailed    = "research.failed"
)

// Event is the wire message. Polling stays the contract; these are hints for clients
// that hold a subscription.
type Event struct {
	Event    string    `json:"event"`
	CourseID string    `json:"course_id"`
	LessonID string    `json:"lesson_id,omitempty"`
	UserID   string    `json:"user_id,omitempty"`
	At       time.Time `json:"at"`
}

type Notifier interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

type Config struct {
	Addr     string
	Password string
	DB       int
	Channel  string
}

type redisNotifier struct {
	log     *logger.Logger
	rdb     *goredis.Client
	channel string
}

func NewRedisNotifier(log *logger.Logger, cfg Config) (Notifier, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	ch := strings.TrimSpace(cfg.Channel)
	if ch == "" {
		ch = "microlearn.events"
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &redisNotifier{
		log:     log.With("service", "RedisNotifier"),
		rdb:     rdb,
		channel: ch,
	}, nil
}

func (n *redisNotifier) Publish(ctx context.Context, ev Event) error {
	if n == nil || n.rdb == nil {
		return fmt.Errorf("redis notifier not initialized")
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	raw, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return n.rdb.Publish(ctx, n.channel, raw).Err()
}

func (n *redisNotifier) Close() error {
	if n == nil || n.rdb == nil {
		return nil
	}
	return n.rdb.Close()
}

type noopNotifier struct{}

// Noop is used when redis is not configured.
func Noop() Notifier { return noopNotifier{} }

func (noopNotifier) Publish(context.Context, Event) error { return nil }
func (noopNotifier) Close() error                         { return nil }

// PublishBestEffort logs instead of failing; a lost hint never breaks generation.
func PublishBestEffort(ctx context.Context, n Notifier, log *logger.Logger, ev Event) {
	if n == nil {
		return
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := n.Publish(pubCtx, ev); err != nil && log != nil {
		log.Warn("Notification publish failed", "event", ev.Event, "course_id", ev.CourseID, "error", err)
	}
}
