// Package settings persists the user-managed provider configurations:
// which LLM endpoint serves translations and which speech endpoint serves
// synthesis. Exactly one config of each kind is active at a time.
package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	apiConfigsKey = "settings:api_configs"
	ttsConfigsKey = "settings:tts_configs"
)

// ErrNotFound is returned when no config matches, including when no config
// is active because none exist yet.
var ErrNotFound = errors.New("settings: config not found")

// APIConfig is one saved LLM endpoint.
type APIConfig struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Endpoint    string  `json:"endpoint"`
	APIKey      string  `json:"apiKey"`
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"maxTokens"`
	Active      bool    `json:"active"`
	CreatedAt   int64   `json:"createdAt"`
	UpdatedAt   int64   `json:"updatedAt"`
}

// TTSConfig is one saved speech endpoint.
type TTSConfig struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Endpoint  string `json:"endpoint"`
	APIKey    string `json:"apiKey"`
	Provider  string `json:"provider"`
	Model     string `json:"model"`
	Voice     string `json:"voice"`
	Format    string `json:"format"`
	Active    bool   `json:"active"`
	CreatedAt int64  `json:"createdAt"`
	UpdatedAt int64  `json:"updatedAt"`
}

// Service owns both config collections.
type Service struct {
	client *redis.Client
	now    func() time.Time
}

func NewService(client *redis.Client) *Service {
	return &Service{client: client, now: time.Now}
}

// --- LLM API configs ---

// ListAPIConfigs returns every saved LLM config in insertion order.
func (s *Service) ListAPIConfigs(ctx context.Context) ([]APIConfig, error) {
	var configs []APIConfig
	if err := s.load(ctx, apiConfigsKey, &configs); err != nil {
		return nil, err
	}
	return configs, nil
}

// AddAPIConfig saves a new config. The first config ever added becomes
// active automatically so a fresh install works without a second step.
func (s *Service) AddAPIConfig(ctx context.Context, cfg APIConfig) (APIConfig, error) {
	configs, err := s.ListAPIConfigs(ctx)
	if err != nil {
		return APIConfig{}, err
	}
	now := s.now().UnixMilli()
	cfg.ID = uuid.NewString()
	cfg.CreatedAt = now
	cfg.UpdatedAt = now
	cfg.Active = len(configs) == 0
	configs = append(configs, cfg)
	if err := s.store(ctx, apiConfigsKey, configs); err != nil {
		return APIConfig{}, err
	}
	return cfg, nil
}

// UpdateAPIConfig rewrites the named config in place. ID, CreatedAt and
// Active are owned by the service and ignored on input.
func (s *Service) UpdateAPIConfig(ctx context.Context, id string, cfg APIConfig) (APIConfig, error) {
	configs, err := s.ListAPIConfigs(ctx)
	if err != nil {
		return APIConfig{}, err
	}
	for i := range configs {
		if configs[i].ID != id {
			continue
		}
		cfg.ID = id
		cfg.CreatedAt = configs[i].CreatedAt
		cfg.Active = configs[i].Active
		cfg.UpdatedAt = s.now().UnixMilli()
		configs[i] = cfg
		if err := s.store(ctx, apiConfigsKey, configs); err != nil {
			return APIConfig{}, err
		}
		return cfg, nil
	}
	return APIConfig{}, fmt.Errorf("settings: update api config %s: %w", id, ErrNotFound)
}

// DeleteAPIConfig removes the named config. Deleting the active config
// promotes the first remaining one so an active config always exists while
// any exist at all.
func (s *Service) DeleteAPIConfig(ctx context.Context, id string) error {
	configs, err := s.ListAPIConfigs(ctx)
	if err != nil {
		return err
	}
	kept := configs[:0]
	wasActive := false
	found := false
	for _, c := range configs {
		if c.ID == id {
			found = true
			wasActive = c.Active
			continue
		}
		kept = append(kept, c)
	}
	if !found {
		return fmt.Errorf("settings: delete api config %s: %w", id, ErrNotFound)
	}
	if wasActive && len(kept) > 0 {
		kept[0].Active = true
		kept[0].UpdatedAt = s.now().UnixMilli()
	}
	return s.store(ctx, apiConfigsKey, kept)
}

// ActivateAPIConfig marks the named config active and deactivates the rest.
func (s *Service) ActivateAPIConfig(ctx context.Context, id string) error {
	configs, err := s.ListAPIConfigs(ctx)
	if err != nil {
		return err
	}
	found := false
	now := s.now().UnixMilli()
	for i := range configs {
		active := configs[i].ID == id
		if active {
			found = true
		}
		if configs[i].Active != active {
			configs[i].Active = active
			configs[i].UpdatedAt = now
		}
	}
	if !found {
		return fmt.Errorf("settings: activate api config %s: %w", id, ErrNotFound)
	}
	return s.store(ctx, apiConfigsKey, configs)
}

// ActiveAPIConfig returns the active LLM config, or ErrNotFound when no
// config has been saved or activated.
func (s *Service) ActiveAPIConfig(ctx context.Context) (APIConfig, error) {
	configs, err := s.ListAPIConfigs(ctx)
	if err != nil {
		return APIConfig{}, err
	}
	for _, c := range configs {
		if c.Active {
			return c, nil
		}
	}
	return APIConfig{}, ErrNotFound
}

// --- TTS configs ---

func (s *Service) ListTTSConfigs(ctx context.Context) ([]TTSConfig, error) {
	var configs []TTSConfig
	if err := s.load(ctx, ttsConfigsKey, &configs); err != nil {
		return nil, err
	}
	return configs, nil
}

func (s *Service) AddTTSConfig(ctx context.Context, cfg TTSConfig) (TTSConfig, error) {
	configs, err := s.ListTTSConfigs(ctx)
	if err != nil {
		return TTSConfig{}, err
	}
	now := s.now().UnixMilli()
	cfg.ID = uuid.NewString()
	cfg.CreatedAt = now
	cfg.UpdatedAt = now
	cfg.Active = len(configs) == 0
	configs = append(configs, cfg)
	if err := s.store(ctx, ttsConfigsKey, configs); err != nil {
		return TTSConfig{}, err
	}
	return cfg, nil
}

func (s *Service) UpdateTTSConfig(ctx context.Context, id string, cfg TTSConfig) (TTSConfig, error) {
	configs, err := s.ListTTSConfigs(ctx)
	if err != nil {
		return TTSConfig{}, err
	}
	for i := range configs {
		if configs[i].ID != id {
			continue
		}
		cfg.ID = id
		cfg.CreatedAt = configs[i].CreatedAt
		cfg.Active = configs[i].Active
		cfg.UpdatedAt = s.now().UnixMilli()
		configs[i] = cfg
		if err := s.store(ctx, ttsConfigsKey, configs); err != nil {
			return TTSConfig{}, err
		}
		return cfg, nil
	}
	return TTSConfig{}, fmt.Errorf("settings: update tts config %s: %w", id, ErrNotFound)
}

func (s *Service) DeleteTTSConfig(ctx context.Context, id string) error {
	configs, err := s.ListTTSConfigs(ctx)
	if err != nil {
		return err
	}
	kept := configs[:0]
	wasActive := false
	found := false
	for _, c := range configs {
		if c.ID == id {
			found = true
			wasActive = c.Active
			continue
		}
		kept = append(kept, c)
	}
	if !found {
		return fmt.Errorf("settings: delete tts config %s: %w", id, ErrNotFound)
	}
	if wasActive && len(kept) > 0 {
		kept[0].Active = true
		kept[0].UpdatedAt = s.now().UnixMilli()
	}
	return s.store(ctx, ttsConfigsKey, kept)
}

func (s *Service) ActivateTTSConfig(ctx context.Context, id string) error {
	configs, err := s.ListTTSConfigs(ctx)
	if err != nil {
		return err
	}
	found := false
	now := s.now().UnixMilli()
	for i := range configs {
		active := configs[i].ID == id
		if active {
			found = true
		}
		if configs[i].Active != active {
			configs[i].Active = active
			configs[i].UpdatedAt = now
		}
	}
	if !found {
		return fmt.Errorf("settings: activate tts config %s: %w", id, ErrNotFound)
	}
	return s.store(ctx, ttsConfigsKey, configs)
}

func (s *Service) ActiveTTSConfig(ctx context.Context) (TTSConfig, error) {
	configs, err := s.ListTTSConfigs(ctx)
	if err != nil {
		return TTSConfig{}, err
	}
	for _, c := range configs {
		if c.Active {
			return c, nil
		}
	}
	return TTSConfig{}, ErrNotFound
}

// --- storage helpers ---

func (s *Service) load(ctx context.Context, key string, out any) error {
	data, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("settings: load %s: %w", key, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("settings: decode %s: %w", key, err)
	}
	return nil
}

func (s *Service) store(ctx context.Context, key string, configs any) error {
	data, err := json.Marshal(configs)
	if err != nil {
		return fmt.Errorf("settings: encode %s: %w", key, err)
	}
	if err := s.client.Set(ctx, key, data, 0).Err(); err != nil {
		return fmt.Errorf("settings: store %s: %w", key, err)
	}
	return nil
}
