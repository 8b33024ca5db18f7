package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis_rate/v10"
	"github.com/rs/zerolog"
	"github.com/samber/do"

	"idiomguess/internal"
	"idiomguess/internal/interfaces"
	"idiomguess/internal/models"
	"idiomguess/internal/pkg/limiter"
	"idiomguess/internal/sessions"
)

// ServiceGame drives the per-user game state machine: NoSession → Running(1)
// → ... → Running(5) → Completed, or → Terminated on quit/timeout. It owns
// the race between the timeout watcher and user actions; every transition for
// a user runs under that user's key mutex, so whichever of the three terminal
// triggers observes the session first performs teardown and the others no-op.
type ServiceGame struct {
	container   *do.Injector
	store       *sessions.Store
	locks       *sessions.KeyMutex
	puzzle      PuzzleClient
	stats       StatsStore
	assets      AssetStore
	messenger   Messenger
	limiter     interfaces.Limiter
	leaderboard *ServiceLeaderboard
	timeout     time.Duration
	log         zerolog.Logger
}

func NewServiceGame(container *do.Injector) (*ServiceGame, error) {
	puzzle, err := do.Invoke[PuzzleClient](container)
	if err != nil {
		return nil, err
	}

	stats, err := do.Invoke[StatsStore](container)
	if err != nil {
		return nil, err
	}

	assets, err := do.Invoke[AssetStore](container)
	if err != nil {
		return nil, err
	}

	messenger, err := do.Invoke[Messenger](container)
	if err != nil {
		return nil, err
	}

	rate, err := do.Invoke[interfaces.Limiter](container)
	if err != nil {
		return nil, err
	}

	leaderboard, err := do.Invoke[*ServiceLeaderboard](container)
	if err != nil {
		return nil, err
	}

	timeout, err := do.InvokeNamed[time.Duration](container, "game-timeout")
	if err != nil {
		timeout = DEFAULT_GAME_TIMEOUT
	}

	log, err := do.Invoke[zerolog.Logger](container)
	if err != nil {
		log = zerolog.Nop()
	}

	return &ServiceGame{
		container:   container,
		store:       sessions.NewStore(),
		locks:       sessions.NewKeyMutex(),
		puzzle:      puzzle,
		stats:       stats,
		assets:      assets,
		messenger:   messenger,
		limiter:     rate,
		leaderboard: leaderboard,
		timeout:     timeout,
		log:         log.With().Str("service", "game").Logger(),
	}, nil
}

func (service *ServiceGame) HasSession(userID int64) bool {
	_, ok := service.store.Get(userID)
	return ok
}

func (service *ServiceGame) ActiveSessions() int {
	return service.store.Len()
}

// Menu sends the gameplay menu, the caller's stats and the TOP5 board in one
// message, then starts a game if the user has none running.
func (service *ServiceGame) Menu(ctx context.Context, chatID, userID int64) error {
	stat, err := service.stats.Get(ctx, userID)
	if err != nil {
		service.log.Error().Err(err).Int64("user_id", userID).Msg("load stats")
		stat = &models.GameStat{UserID: userID}
	}

	top, err := service.leaderboard.Top(ctx)
	if err != nil {
		service.log.Error().Err(err).Msg("load leaderboard")
	}

	var b strings.Builder
	b.WriteString(textMenu)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "你的战绩:\n游玩次数: %d次 🎮\n猜对次数: %d次 ✅\n总积分: %d分 💰\n\n",
		stat.PlayCount, stat.CorrectCount, stat.TotalPoints)
	b.WriteString(service.formatLeaderboard(top))

	if err := service.messenger.SendText(chatID, b.String()); err != nil {
		return err
	}

	if service.HasSession(userID) {
		return nil
	}
	return service.StartGame(ctx, chatID, userID)
}

// StartGame is the NoSession → Running(1) transition. On any fetch or
// download failure no session is created and the user gets one apology.
func (service *ServiceGame) StartGame(ctx context.Context, chatID, userID int64) error {
	if limited, err := service.allowPlay(ctx, chatID, userID); limited {
		return err
	}

	unlock := service.locks.Lock(userID)
	defer unlock()

	if _, ok := service.store.Get(userID); ok {
		return service.messenger.SendText(chatID, textReminder)
	}

	session := &internal.GameSession{UserID: userID, ChatID: chatID, Level: 1}
	if err := service.beginLevel(ctx, session); err != nil {
		service.log.Error().Err(err).Int64("user_id", userID).Msg("start game")
		return service.messenger.SendText(chatID, textStartFailed)
	}

	service.store.Put(userID, session)
	service.log.Info().Int64("user_id", userID).Msg("game started")
	return nil
}

// Hint returns the first character of the stored answer. Pure: no state, no
// stats, no puzzle API.
func (service *ServiceGame) Hint(ctx context.Context, chatID, userID int64) error {
	unlock := service.locks.Lock(userID)
	defer unlock()

	session, ok := service.store.Get(userID)
	if !ok {
		return service.messenger.SendMention(chatID, userID, textNotPlaying)
	}

	runes := []rune(session.Answer)
	if len(runes) == 0 {
		return service.messenger.SendMention(chatID, userID, textNoHint)
	}
	return service.messenger.SendMention(chatID, userID, fmt.Sprintf(textHintFmt, string(runes[0])))
}

// Guess resolves a submitted answer: stats are updated exactly once per
// resolved guess; a correct answer advances the level or, at level 5,
// completes the game.
func (service *ServiceGame) Guess(ctx context.Context, chatID, userID int64, guess string) error {
	unlock := service.locks.Lock(userID)
	defer unlock()

	session, ok := service.store.Get(userID)
	if !ok {
		return service.messenger.SendMention(chatID, userID, textNotPlaying)
	}

	if limited, err := service.allowPlay(ctx, chatID, userID); limited {
		return err
	}

	result, err := service.puzzle.CheckGuess(ctx, userID, guess)
	if err != nil {
		service.log.Error().Err(err).Int64("user_id", userID).Msg("check guess")
		return service.messenger.SendText(chatID, textCheckFailed)
	}

	if !result.Correct {
		if err := service.stats.RecordResult(ctx, userID, 0, false); err != nil {
			service.log.Error().Err(err).Int64("user_id", userID).Msg("record result")
		}
		return service.messenger.SendMention(chatID, userID,
			fmt.Sprintf(textWrongFmt, result.Explanation, session.Level))
	}

	cleared := session.Level
	points := LevelReward(cleared)
	if err := service.stats.RecordResult(ctx, userID, points, true); err != nil {
		service.log.Error().Err(err).Int64("user_id", userID).Msg("record result")
	}

	congrats := fmt.Sprintf(textCorrectFmt, cleared, result.Answer, points)
	if cleared == MAX_LEVEL {
		service.teardown(session)
		service.log.Info().Int64("user_id", userID).Msg("game completed")
		return service.messenger.SendMention(chatID, userID, congrats+"\n"+textVictory)
	}

	if err := service.messenger.SendMention(chatID, userID,
		congrats+"\n"+fmt.Sprintf(textNextFmt, cleared+1)); err != nil {
		service.log.Warn().Err(err).Int64("user_id", userID).Msg("send congrats")
	}

	session.Level = cleared + 1
	if err := service.beginLevel(ctx, session); err != nil {
		// Points for the cleared level stay awarded; the session cannot keep
		// running with the old level's resources, so it ends here.
		service.log.Error().Err(err).Int64("user_id", userID).Int("level", session.Level).Msg("advance level")
		service.teardown(session)
		return service.messenger.SendMention(chatID, userID, textStranded)
	}
	return nil
}

// Quit is the Running(L) → Terminated transition.
func (service *ServiceGame) Quit(ctx context.Context, chatID, userID int64) error {
	unlock := service.locks.Lock(userID)
	defer unlock()

	session, ok := service.store.Get(userID)
	if !ok {
		return service.messenger.SendMention(chatID, userID, textNotPlaying)
	}

	service.teardown(session)
	service.log.Info().Int64("user_id", userID).Msg("game quit")
	return service.messenger.SendMention(chatID, userID, textQuit)
}

// Remind answers off-script input from a user with a running session and
// reports whether the message was consumed. Without a session the message
// falls through to the caller untouched.
func (service *ServiceGame) Remind(chatID, userID int64) (bool, error) {
	if !service.HasSession(userID) {
		return false, nil
	}
	return true, service.messenger.SendText(chatID, textReminder)
}

// MyStats sends the caller's lifetime record.
func (service *ServiceGame) MyStats(ctx context.Context, chatID, userID int64) error {
	stat, err := service.stats.Get(ctx, userID)
	if err != nil {
		service.log.Error().Err(err).Int64("user_id", userID).Msg("load stats")
		return service.messenger.SendText(chatID, textCheckFailed)
	}

	nickname := service.messenger.Nickname(userID)
	if stat.PlayCount == 0 {
		return service.messenger.SendMention(chatID, userID,
			fmt.Sprintf("%s 还没有玩过猜成语游戏哦，快来试试吧！", nickname))
	}

	msg := fmt.Sprintf("🎮 %s 的猜成语战绩 🎮\n\n总计获得: %d积分\n游玩次数: %d次\n猜对次数: %d次\n正确率: %.1f%%",
		nickname, stat.TotalPoints, stat.PlayCount, stat.CorrectCount, stat.Accuracy())
	return service.messenger.SendMention(chatID, userID, msg)
}

// Leaderboard sends the TOP5 board.
func (service *ServiceGame) Leaderboard(ctx context.Context, chatID int64) error {
	top, err := service.leaderboard.Top(ctx)
	if err != nil {
		service.log.Error().Err(err).Msg("load leaderboard")
		return service.messenger.SendText(chatID, textCheckFailed)
	}
	return service.messenger.SendText(chatID, service.formatLeaderboard(top))
}

func (service *ServiceGame) formatLeaderboard(top []models.GameStat) string {
	var b strings.Builder
	b.WriteString(textLeaderboardHeader)
	if len(top) == 0 {
		b.WriteString(textLeaderboardEmpty)
		return b.String()
	}
	for rank, stat := range top {
		fmt.Fprintf(&b, "第%d名: %s - %d积分 🎖️\n游玩%d次 | 猜对%d次 🥇\n------------------------\n",
			rank+1, service.messenger.Nickname(stat.UserID), stat.TotalPoints, stat.PlayCount, stat.CorrectCount)
	}
	return b.String()
}

// beginLevel fetches the puzzle and image for session.Level, swaps them into
// the session and arms a fresh watcher. On error the session keeps whatever
// it had: the swap happens only after both network calls succeeded.
func (service *ServiceGame) beginLevel(ctx context.Context, session *internal.GameSession) error {
	level, err := service.puzzle.StartLevel(ctx, session.UserID)
	if err != nil {
		return err
	}

	asset, err := service.assets.Fetch(ctx, level.ImageURL)
	if err != nil {
		return err
	}

	if session.Asset != nil {
		if err := session.Asset.Remove(); err != nil {
			service.log.Warn().Err(err).Int64("user_id", session.UserID).Msg("remove previous asset")
		}
	}
	session.Asset = asset
	session.Answer = level.Answer
	session.Hint = level.Hint

	if image, err := asset.Bytes(); err == nil {
		if err := service.messenger.SendImage(session.ChatID, image); err != nil {
			service.log.Warn().Err(err).Int64("user_id", session.UserID).Msg("send puzzle image")
		}
	}
	if err := service.messenger.SendMention(session.ChatID, session.UserID,
		fmt.Sprintf(textLevelStartFmt, session.Level)); err != nil {
		service.log.Warn().Err(err).Int64("user_id", session.UserID).Msg("send level prompt")
	}

	service.armWatcher(session)
	return nil
}

// armWatcher starts the per-level timeout task. ArmWatcher cancels the
// previous watcher, so exactly one is live per session.
func (service *ServiceGame) armWatcher(session *internal.GameSession) {
	ctx, cancel := context.WithCancel(context.Background())
	generation := session.ArmWatcher(cancel)
	chatID, userID := session.ChatID, session.UserID

	timer := time.NewTimer(service.timeout)
	go func() {
		defer timer.Stop()
		select {
		case <-ctx.Done():
		case <-timer.C:
			service.fireTimeout(chatID, userID, generation)
		}
	}()
}

// fireTimeout runs when a watcher's delay elapses. It re-checks, under the
// user's lock, that the session it was armed for still exists and is still on
// the same level; a session already torn down or re-armed makes this a no-op.
func (service *ServiceGame) fireTimeout(chatID, userID int64, generation int) {
	unlock := service.locks.Lock(userID)
	defer unlock()

	session, ok := service.store.Get(userID)
	if !ok || session.Generation != generation {
		return
	}

	service.teardown(session)
	service.log.Info().Int64("user_id", userID).Msg("game timed out")
	//nolint:errcheck
	service.messenger.SendMention(chatID, userID, textTimeout)
}

// teardown releases the asset, cancels the watcher and removes the session.
// Callers hold the user's lock; the first trigger to get here wins and later
// triggers find the store empty.
func (service *ServiceGame) teardown(session *internal.GameSession) {
	session.StopWatcher()
	if session.Asset != nil {
		if err := session.Asset.Remove(); err != nil {
			service.log.Warn().Err(err).Int64("user_id", session.UserID).Msg("remove asset")
		}
		session.Asset = nil
	}
	service.store.Remove(session.UserID)
}

// allowPlay applies the per-user start/guess rate limit. The limiter failing
// (redis down) fails open.
func (service *ServiceGame) allowPlay(ctx context.Context, chatID, userID int64) (bool, error) {
	err := service.limiter.Allow(ctx, LimitKeyUserPlay(userID), redis_rate.PerMinute(PLAY_RATE_LIMIT_PER_MINUTE))
	if err == nil {
		return false, nil
	}
	if errors.Is(err, limiter.ErrRateLimited) {
		return true, service.messenger.SendText(chatID, textRateLimited)
	}
	service.log.Warn().Err(err).Msg("rate limiter unavailable")
	return false, nil
}
