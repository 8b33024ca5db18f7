package main

import (
	"context"
	"strings"

	tele "gopkg.in/telebot.v3"

	"idiomguess/internal/services"
)

func registerHandlers(b *tele.Bot, game *services.ServiceGame) {
	b.Handle("/start", func(c tele.Context) error {
		return game.Menu(context.Background(), c.Chat().ID, c.Sender().ID)
	})

	b.Handle(tele.OnText, func(c tele.Context) error {
		ctx := context.Background()
		chatID := c.Chat().ID
		userID := c.Sender().ID
		content := strings.TrimSpace(c.Text())

		switch {
		case content == services.CommandMenu:
			return game.Menu(ctx, chatID, userID)
		case content == services.CommandMyStats:
			return game.MyStats(ctx, chatID, userID)
		case content == services.CommandLeaderboard:
			return game.Leaderboard(ctx, chatID)
		case content == services.CommandHint:
			return game.Hint(ctx, chatID, userID)
		case content == services.CommandQuit:
			return game.Quit(ctx, chatID, userID)
		case strings.HasPrefix(content, services.CommandGuessPrefix):
			guess := strings.TrimSpace(strings.TrimPrefix(content, services.CommandGuessPrefix))
			return game.Guess(ctx, chatID, userID, guess)
		}

		// Off-script text only belongs to us while the user has a running
		// session; everything else is someone else's conversation.
		_, err := game.Remind(chatID, userID)
		return err
	})
}
