package services

import (
	"context"
	"testing"
	"time"

	"github.com/samber/do"
	"github.com/stretchr/testify/require"

	"idiomguess/internal/models"
	"idiomguess/internal/pkg/caching"
)

func newLeaderboardFixture(t *testing.T, cache caching.Cache) (*ServiceLeaderboard, *fakeStats) {
	t.Helper()

	stats := newFakeStats()
	injector := do.New()
	do.ProvideValue[StatsStore](injector, stats)
	do.ProvideValue[caching.Cache](injector, cache)

	service, err := NewServiceLeaderboard(injector)
	require.NoError(t, err)
	return service, stats
}

func TestTopServesFromCacheOnRepeat(t *testing.T) {
	service, stats := newLeaderboardFixture(t, newMemoryCache())
	stats.top = []models.GameStat{{UserID: 1, TotalPoints: 300}}
	ctx := context.Background()

	first, err := service.Top(ctx)
	require.NoError(t, err)
	require.Len(t, first, 1)
	require.Equal(t, 1, stats.topCalls)

	second, err := service.Top(ctx)
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, 1, stats.topCalls)
}

func TestTopFallsThroughOnMiss(t *testing.T) {
	service, stats := newLeaderboardFixture(t, missCache{})
	stats.top = []models.GameStat{
		{UserID: 1, TotalPoints: 300, LastUpdated: time.Now()},
		{UserID: 2, TotalPoints: 120, LastUpdated: time.Now()},
	}
	ctx := context.Background()

	top, err := service.Top(ctx)
	require.NoError(t, err)
	require.Len(t, top, 2)

	_, err = service.Top(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, stats.topCalls)
}
