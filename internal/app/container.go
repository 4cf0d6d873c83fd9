package app

import (
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/quicktrans/quicktransd/internal/cache"
	"github.com/quicktrans/quicktransd/internal/config"
	"github.com/quicktrans/quicktransd/internal/observability"
	"github.com/quicktrans/quicktransd/internal/settings"
	"github.com/quicktrans/quicktransd/internal/translate"
	"github.com/quicktrans/quicktransd/internal/tts"
	"github.com/quicktrans/quicktransd/internal/usage"
)

// Container aggregates runtime dependencies for handlers and services.
type Container struct {
	Config        *config.Config
	Redis         *redis.Client
	Cache         *cache.ResultCache
	Settings      *settings.Service
	Usage         *usage.Service
	Translate     *translate.Service
	TTS           *tts.Service
	Observability *observability.Provider
}

// NewContainer builds a dependency container from the provided primitives.
func NewContainer(cfg *config.Config, redisClient *redis.Client) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if redisClient == nil {
		return nil, fmt.Errorf("redis client is required")
	}

	obs, err := observability.Setup(cfg.Observability)
	if err != nil {
		return nil, fmt.Errorf("setup observability: %w", err)
	}

	resultCache := cache.New(redisClient, cfg.Cache.TTL)
	settingsSvc := settings.NewService(redisClient)
	usageSvc := usage.NewService(redisClient)
	translateSvc := translate.NewService(settingsSvc, resultCache, usageSvc, obs, translate.Options{
		Timeout:   cfg.Upstream.RequestTimeout,
		MaxTokens: cfg.Upstream.DefaultMaxTokens,
	})
	ttsSvc := tts.NewService(settingsSvc, obs, tts.Options{
		Timeout: cfg.Upstream.RequestTimeout,
	})

	return &Container{
		Config:        cfg,
		Redis:         redisClient,
		Cache:         resultCache,
		Settings:      settingsSvc,
		Usage:         usageSvc,
		Translate:     translateSvc,
		TTS:           ttsSvc,
		Observability: obs,
	}, nil
}
