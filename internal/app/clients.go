package app

import (
	"fmt"

	"github.com/yungbote/microlearn-backend/internal/observability"
	"github.com/yungbote/microlearn-backend/internal/platform/logger"
	"github.com/yungbote/microlearn-backend/internal/platform/openai"
	"github.com/yungbote/microlearn-backend/internal/platform/research"
	"github.com/yungbote/microlearn-backend/internal/realtime/bus"
)

type Clients struct {
	OpenAI   openai.Client
	Research research.Client // nil when research is disabled
	Notifier bus.Notifier
}

func wireClients(log *logger.Logger, cfg Config, metrics *observability.Metrics) (Clients, error) {
	log.Info("Wiring clients...")

	// Openai
	ai, err := openai.NewClient(log, cfg.OpenAI, metrics)
	if err != nil {
		return Clients{}, fmt.Errorf("init openai client: %w", err)
	}

	// Research
	var rc research.Client
	if cfg.ResearchEnabled {
		rc, err = research.NewClient(log, cfg.Research)
		if err != nil {
			return Clients{}, fmt.Errorf("init research client: %w", err)
		}
	}

	// Redis
	notifier := bus.Noop()
	if cfg.RedisEnabled {
		n, err := bus.NewRedisNotifier(log, cfg.Redis)
		if err != nil {
			return Clients{}, fmt.Errorf("init redis notifier: %w", err)
		}
		notifier = n
	}

	return Clients{OpenAI: ai, Research: rc, Notifier: notifier}, nil
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.Notifier != nil {
		_ = c.Notifier.Close()
	}
}
