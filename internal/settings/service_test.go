package settings

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewService(client)
}

func TestFirstAPIConfigAutoActivates(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	first, err := s.AddAPIConfig(ctx, APIConfig{Name: "primary", Endpoint: "https://api.example.com/v1/chat/completions", Model: "qwen-turbo"})
	require.NoError(t, err)
	assert.True(t, first.Active)
	assert.NotEmpty(t, first.ID)

	second, err := s.AddAPIConfig(ctx, APIConfig{Name: "backup", Endpoint: "https://backup.example.com/v1/chat/completions", Model: "gpt-4o-mini"})
	require.NoError(t, err)
	assert.False(t, second.Active, "only the first config auto-activates")

	active, err := s.ActiveAPIConfig(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.ID, active.ID)
}

func TestActivateDeactivatesOthers(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	_, err := s.AddAPIConfig(ctx, APIConfig{Name: "a"})
	require.NoError(t, err)
	second, err := s.AddAPIConfig(ctx, APIConfig{Name: "b"})
	require.NoError(t, err)

	require.NoError(t, s.ActivateAPIConfig(ctx, second.ID))

	configs, err := s.ListAPIConfigs(ctx)
	require.NoError(t, err)
	require.Len(t, configs, 2)
	for _, c := range configs {
		assert.Equal(t, c.ID == second.ID, c.Active, "config %s", c.Name)
	}
}

func TestDeleteActivePromotesFirstRemaining(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	first, err := s.AddAPIConfig(ctx, APIConfig{Name: "a"})
	require.NoError(t, err)
	second, err := s.AddAPIConfig(ctx, APIConfig{Name: "b"})
	require.NoError(t, err)
	_, err = s.AddAPIConfig(ctx, APIConfig{Name: "c"})
	require.NoError(t, err)

	require.NoError(t, s.DeleteAPIConfig(ctx, first.ID))

	active, err := s.ActiveAPIConfig(ctx)
	require.NoError(t, err)
	assert.Equal(t, second.ID, active.ID)
}

func TestActiveWithoutConfigsIsNotFound(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	_, err := s.ActiveAPIConfig(ctx)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.ActiveTTSConfig(ctx)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdatePreservesIdentityAndActivation(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	cfg, err := s.AddAPIConfig(ctx, APIConfig{Name: "a", Model: "qwen-turbo"})
	require.NoError(t, err)

	updated, err := s.UpdateAPIConfig(ctx, cfg.ID, APIConfig{Name: "renamed", Model: "qwen-plus", Active: false})
	require.NoError(t, err)
	assert.Equal(t, cfg.ID, updated.ID)
	assert.Equal(t, cfg.CreatedAt, updated.CreatedAt)
	assert.True(t, updated.Active, "update must not toggle activation")
	assert.Equal(t, "qwen-plus", updated.Model)

	_, err = s.UpdateAPIConfig(ctx, "no-such-id", APIConfig{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTTSConfigLifecycle(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	cfg, err := s.AddTTSConfig(ctx, TTSConfig{Name: "qwen voice", Provider: "qwen", Model: "qwen-tts", Voice: "Cherry"})
	require.NoError(t, err)
	assert.True(t, cfg.Active)

	active, err := s.ActiveTTSConfig(ctx)
	require.NoError(t, err)
	assert.Equal(t, "qwen", active.Provider)

	require.NoError(t, s.DeleteTTSConfig(ctx, cfg.ID))
	_, err = s.ActiveTTSConfig(ctx)
	assert.ErrorIs(t, err, ErrNotFound)
}
