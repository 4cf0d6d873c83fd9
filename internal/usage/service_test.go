package usage

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quicktrans/quicktransd/internal/models"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewService(client)
}

func TestRecordAccumulates(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	require.NoError(t, s.Record(ctx, &models.Usage{PromptTokens: 12, CompletionTokens: 8, TotalTokens: 20}))
	require.NoError(t, s.Record(ctx, &models.Usage{PromptTokens: 5, CompletionTokens: 5, TotalTokens: 10}))

	totals, err := s.Totals(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 17, totals.TotalPromptTokens)
	assert.EqualValues(t, 13, totals.TotalCompletionTokens)
	assert.EqualValues(t, 30, totals.TotalTokens)
	assert.EqualValues(t, 2, totals.RequestCount)
	assert.Positive(t, totals.LastUpdated)
}

func TestRecordWithoutUsageCountsRequest(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	require.NoError(t, s.Record(ctx, nil))

	totals, err := s.Totals(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, totals.RequestCount)
	assert.Zero(t, totals.TotalTokens)
}

func TestReset(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	require.NoError(t, s.Record(ctx, &models.Usage{TotalTokens: 9}))
	require.NoError(t, s.Reset(ctx))

	totals, err := s.Totals(ctx)
	require.NoError(t, err)
	assert.Zero(t, totals.TotalTokens)
	assert.Zero(t, totals.RequestCount)
}

func TestTotalsOnEmptyStore(t *testing.T) {
	s := newTestService(t)

	totals, err := s.Totals(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Totals{}, totals)
}
