package datastore

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uptrace/bun"

	"idiomguess/internal/models"
)

func CreateTableGameStat(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*models.GameStat)(nil)).IfNotExists().Exec(ctx)
	return err
}

// UpsertGameResult records one resolved guess: play_count always grows by 1,
// correct_count and total_points only when the guess was right. The whole
// update is a single atomic statement.
func UpsertGameResult(ctx context.Context, db *bun.DB, userID int64, points int, correct bool) error {
	correctDelta := 0
	if correct {
		correctDelta = 1
	}

	stat := &models.GameStat{
		UserID:       userID,
		PlayCount:    1,
		CorrectCount: correctDelta,
		TotalPoints:  points,
	}

	_, err := db.NewInsert().Model(stat).
		On("CONFLICT (user_id) DO UPDATE").
		Set("play_count = game_stat.play_count + 1").
		Set("correct_count = game_stat.correct_count + EXCLUDED.correct_count").
		Set("total_points = game_stat.total_points + EXCLUDED.total_points").
		Set("last_updated = current_timestamp").
		Exec(ctx)
	return err
}

func GetGameStat(ctx context.Context, db *bun.DB, userID int64) (*models.GameStat, error) {
	var stat models.GameStat
	err := db.NewSelect().Model(&stat).Where("user_id = ?", userID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return &models.GameStat{UserID: userID}, nil
	}
	if err != nil {
		return nil, err
	}
	return &stat, nil
}

func TopGameStats(ctx context.Context, db *bun.DB, limit int) ([]models.GameStat, error) {
	var stats []models.GameStat
	err := db.NewSelect().Model(&stats).
		Order("total_points DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return stats, nil
}
