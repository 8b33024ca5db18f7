package services

import (
	"context"

	"github.com/samber/do"
	"github.com/uptrace/bun"

	"idiomguess/internal/datastore"
	"idiomguess/internal/models"
)

// ServiceStats implements StatsStore over Postgres.
type ServiceStats struct {
	postgresDB *bun.DB
}

func NewServiceStats(container *do.Injector) (*ServiceStats, error) {
	postgresDB, err := do.Invoke[*bun.DB](container)
	if err != nil {
		return nil, err
	}

	return &ServiceStats{postgresDB}, nil
}

func (service *ServiceStats) RecordResult(ctx context.Context, userID int64, points int, correct bool) error {
	return datastore.UpsertGameResult(ctx, service.postgresDB, userID, points, correct)
}

func (service *ServiceStats) Get(ctx context.Context, userID int64) (*models.GameStat, error) {
	return datastore.GetGameStat(ctx, service.postgresDB, userID)
}

func (service *ServiceStats) TopN(ctx context.Context, n int) ([]models.GameStat, error) {
	return datastore.TopGameStats(ctx, service.postgresDB, n)
}
