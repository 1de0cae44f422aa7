package app

import (
	"context"
	"fmt"

	"github.com/yungbote/blueprintx-backend/internal/clients/redis"
	"github.com/yungbote/blueprintx-backend/internal/platform/llm"
	"github.com/yungbote/blueprintx-backend/internal/platform/logger"
)

type Clients struct {
	AnalysisCache *redis.AnalysisCache
	LLM           map[string]*llm.Client
}

func wireClients(ctx context.Context, log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")

	// Redis
	var cache *redis.AnalysisCache
	if cfg.RedisAddr != "" {
		c, err := redis.NewAnalysisCache(ctx, log, redis.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.AnalysisCacheTTL,
		})
		if err != nil {
			return Clients{}, fmt.Errorf("init redis analysis cache: %w", err)
		}
		cache = c
	} else {
		log.Info("REDIS_ADDR not set, analysis cache disabled")
	}

	// LLM endpoints
	clients := map[string]*llm.Client{}
	for _, p := range cfg.Providers {
		if p.Kind != ProviderKindOpenAI {
			continue
		}
		c, err := llm.New(log.With("provider", p.Name), llm.Config{
			BaseURL:    p.BaseURL,
			APIKey:     p.APIKey,
			Model:      p.Model,
			Timeout:    p.Timeout,
			MaxRetries: maxRetries(p.MaxRetries),
			JSONMode:   true,
		})
		if err != nil {
			return Clients{}, fmt.Errorf("init %s client: %w", p.Name, err)
		}
		clients[p.Name] = c
	}

	return Clients{AnalysisCache: cache, LLM: clients}, nil
}

func maxRetries(n int) int {
	if n <= 0 {
		return 3
	}
	return n
}

func (c Clients) Close() {
	if c.AnalysisCache != nil {
		_ = c.AnalysisCache.Close()
	}
}
