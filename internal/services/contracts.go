package services

import (
	"context"

	"idiomguess/internal"
	"idiomguess/internal/models"
)

// PuzzleClient talks to the remote puzzle service. The service tracks which
// puzzle a user is on; both calls are keyed by user identity only.
type PuzzleClient interface {
	StartLevel(ctx context.Context, userID int64) (*models.PuzzleLevel, error)
	CheckGuess(ctx context.Context, userID int64, guess string) (*models.GuessResult, error)
}

// StatsStore is the durable per-user aggregate record.
type StatsStore interface {
	RecordResult(ctx context.Context, userID int64, points int, correct bool) error
	Get(ctx context.Context, userID int64) (*models.GameStat, error)
	TopN(ctx context.Context, n int) ([]models.GameStat, error)
}

// AssetStore downloads a level image and hands over exclusive ownership.
type AssetStore interface {
	Fetch(ctx context.Context, url string) (internal.Asset, error)
}

// Messenger is the outbound half of the chat transport.
type Messenger interface {
	SendText(chatID int64, text string) error
	SendMention(chatID int64, userID int64, text string) error
	SendImage(chatID int64, image []byte) error
	Nickname(userID int64) string
}
