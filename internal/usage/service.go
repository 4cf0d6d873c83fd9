// Package usage accumulates lifetime token counters across requests.
package usage

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/quicktrans/quicktransd/internal/models"
)

const tokensKey = "usage:tokens"

const (
	fieldPromptTokens     = "totalPromptTokens"
	fieldCompletionTokens = "totalCompletionTokens"
	fieldTotalTokens      = "totalTokens"
	fieldRequestCount     = "requestCount"
	fieldLastUpdated      = "lastUpdated"
)

// Totals is the lifetime accumulation since the last reset.
type Totals struct {
	TotalPromptTokens     int64 `json:"totalPromptTokens"`
	TotalCompletionTokens int64 `json:"totalCompletionTokens"`
	TotalTokens           int64 `json:"totalTokens"`
	RequestCount          int64 `json:"requestCount"`
	LastUpdated           int64 `json:"lastUpdated"`
}

// Service records per-request usage into a Redis hash. HIncrBy keeps the
// counters atomic across concurrent requests without a lock.
type Service struct {
	client *redis.Client
	now    func() time.Time
}

func NewService(client *redis.Client) *Service {
	return &Service{client: client, now: time.Now}
}

// Record folds one request's usage into the totals. A nil usage still
// counts the request; providers do not always report token counts.
func (s *Service) Record(ctx context.Context, u *models.Usage) error {
	pipe := s.client.Pipeline()
	if u != nil {
		pipe.HIncrBy(ctx, tokensKey, fieldPromptTokens, int64(u.PromptTokens))
		pipe.HIncrBy(ctx, tokensKey, fieldCompletionTokens, int64(u.CompletionTokens))
		pipe.HIncrBy(ctx, tokensKey, fieldTotalTokens, int64(u.TotalTokens))
	}
	pipe.HIncrBy(ctx, tokensKey, fieldRequestCount, 1)
	pipe.HSet(ctx, tokensKey, fieldLastUpdated, s.now().UnixMilli())
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("usage: record: %w", err)
	}
	return nil
}

// Totals reads the current accumulation. Missing fields read as zero.
func (s *Service) Totals(ctx context.Context) (Totals, error) {
	fields, err := s.client.HGetAll(ctx, tokensKey).Result()
	if err != nil {
		return Totals{}, fmt.Errorf("usage: totals: %w", err)
	}
	parse := func(field string) int64 {
		n, _ := strconv.ParseInt(fields[field], 10, 64)
		return n
	}
	return Totals{
		TotalPromptTokens:     parse(fieldPromptTokens),
		TotalCompletionTokens: parse(fieldCompletionTokens),
		TotalTokens:           parse(fieldTotalTokens),
		RequestCount:          parse(fieldRequestCount),
		LastUpdated:           parse(fieldLastUpdated),
	}, nil
}

// Reset zeroes the accumulation.
func (s *Service) Reset(ctx context.Context) error {
	if err := s.client.Del(ctx, tokensKey).Err(); err != nil {
		return fmt.Errorf("usage: reset: %w", err)
	}
	return nil
}
