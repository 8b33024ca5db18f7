package services

import (
	"context"

	"github.com/samber/do"

	"idiomguess/internal/models"
	"idiomguess/internal/pkg/caching"
)

type ServiceLeaderboard struct {
	container *do.Injector
	cache     caching.Cache
	stats     StatsStore
}

func NewServiceLeaderboard(container *do.Injector) (*ServiceLeaderboard, error) {
	cache, err := do.Invoke[caching.Cache](container)
	if err != nil {
		return nil, err
	}

	stats, err := do.Invoke[StatsStore](container)
	if err != nil {
		return nil, err
	}

	return &ServiceLeaderboard{container, cache, stats}, nil
}

// Top returns the TOP5 by total points, cached briefly since every menu
// command renders it.
func (service *ServiceLeaderboard) Top(ctx context.Context) ([]models.GameStat, error) {
	return caching.UseCache(ctx, service.cache, DBKeyTopGameStats(LEADERBOARD_DEFAULT_LIMIT), CACHE_TTL_15_SECONDS, func() ([]models.GameStat, error) {
		return service.stats.TopN(ctx, LEADERBOARD_DEFAULT_LIMIT)
	})
}
