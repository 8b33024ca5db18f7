package services

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-redis/cache/v9"
	"github.com/go-redis/redis_rate/v10"
	"github.com/samber/do"
	"github.com/stretchr/testify/require"

	"idiomguess/internal"
	"idiomguess/internal/interfaces"
	"idiomguess/internal/models"
	"idiomguess/internal/pkg/caching"
)

var errPuzzleDown = errors.New("puzzle api down")

type fakePuzzle struct {
	mu sync.Mutex

	level  models.PuzzleLevel
	result models.GuessResult

	startErr error
	checkErr error
	// fail StartLevel calls after the first N succeeded; 0 disables
	failStartAfter int

	startCalls int
	checkCalls int
}

func (p *fakePuzzle) StartLevel(ctx context.Context, userID int64) (*models.PuzzleLevel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.startCalls++
	if p.startErr != nil {
		return nil, p.startErr
	}
	if p.failStartAfter > 0 && p.startCalls > p.failStartAfter {
		return nil, errPuzzleDown
	}
	level := p.level
	return &level, nil
}

func (p *fakePuzzle) CheckGuess(ctx context.Context, userID int64, guess string) (*models.GuessResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.checkCalls++
	if p.checkErr != nil {
		return nil, p.checkErr
	}
	result := p.result
	return &result, nil
}

func (p *fakePuzzle) starts() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.startCalls
}

type fakeStats struct {
	mu      sync.Mutex
	plays   map[int64]int
	correct map[int64]int
	points  map[int64]int

	top      []models.GameStat
	topCalls int

	recordErr error
	getErr    error
}

func newFakeStats() *fakeStats {
	return &fakeStats{
		plays:   map[int64]int{},
		correct: map[int64]int{},
		points:  map[int64]int{},
	}
}

func (s *fakeStats) RecordResult(ctx context.Context, userID int64, pts int, ok bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.recordErr != nil {
		return s.recordErr
	}
	s.plays[userID]++
	if ok {
		s.correct[userID]++
	}
	s.points[userID] += pts
	return nil
}

func (s *fakeStats) Get(ctx context.Context, userID int64) (*models.GameStat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, s.getErr
	}
	return &models.GameStat{
		UserID:       userID,
		PlayCount:    s.plays[userID],
		CorrectCount: s.correct[userID],
		TotalPoints:  s.points[userID],
		LastUpdated:  time.Now(),
	}, nil
}

func (s *fakeStats) TopN(ctx context.Context, n int) ([]models.GameStat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.topCalls++
	return s.top, nil
}

func (s *fakeStats) snapshot(userID int64) (plays, correct, points int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.plays[userID], s.correct[userID], s.points[userID]
}

type fakeMessenger struct {
	mu     sync.Mutex
	texts  []string
	images int
}

func (m *fakeMessenger) SendText(chatID int64, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.texts = append(m.texts, text)
	return nil
}

func (m *fakeMessenger) SendMention(chatID int64, userID int64, text string) error {
	return m.SendText(chatID, text)
}

func (m *fakeMessenger) SendImage(chatID int64, image []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.images++
	return nil
}

func (m *fakeMessenger) Nickname(userID int64) string {
	return "user" + strconv.FormatInt(userID, 10)
}

func (m *fakeMessenger) count(substr string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, text := range m.texts {
		if strings.Contains(text, substr) {
			n++
		}
	}
	return n
}

func (m *fakeMessenger) sentImages() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.images
}

type fakeAsset struct {
	removes int32
}

func (a *fakeAsset) Bytes() ([]byte, error) { return []byte("jpeg"), nil }

func (a *fakeAsset) Remove() error {
	atomic.AddInt32(&a.removes, 1)
	return nil
}

type fakeAssetStore struct {
	mu       sync.Mutex
	assets   []*fakeAsset
	fetchErr error
}

func (s *fakeAssetStore) Fetch(ctx context.Context, url string) (internal.Asset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	asset := &fakeAsset{}
	s.assets = append(s.assets, asset)
	return asset, nil
}

func (s *fakeAssetStore) created() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.assets)
}

// requireAllRemovedOnce asserts every fetched asset was deleted exactly once.
func (s *fakeAssetStore) requireAllRemovedOnce(t *testing.T) {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, asset := range s.assets {
		require.EqualValues(t, 1, atomic.LoadInt32(&asset.removes), "asset %d", i)
	}
}

type fakeLimiter struct {
	mu  sync.Mutex
	err error
}

func (l *fakeLimiter) Allow(ctx context.Context, key string, limit redis_rate.Limit) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

func (l *fakeLimiter) setErr(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.err = err
}

// missCache never holds anything, so leaderboard reads always hit the store.
type missCache struct{}

func (missCache) Get(ctx context.Context, key string, target any) error { return cache.ErrCacheMiss }
func (missCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	return nil
}
func (missCache) Delete(ctx context.Context, key string) error { return nil }

// memoryCache stores leaderboard slices verbatim, enough to observe hits.
type memoryCache struct {
	mu sync.Mutex
	m  map[string][]models.GameStat
}

func newMemoryCache() *memoryCache {
	return &memoryCache{m: map[string][]models.GameStat{}}
}

func (c *memoryCache) Get(ctx context.Context, key string, target any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.m[key]
	if !ok {
		return cache.ErrCacheMiss
	}
	*(target.(*[]models.GameStat)) = v
	return nil
}

func (c *memoryCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[key] = value.([]models.GameStat)
	return nil
}

func (c *memoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.m, key)
	return nil
}

type gameFixture struct {
	game      *ServiceGame
	puzzle    *fakePuzzle
	stats     *fakeStats
	messenger *fakeMessenger
	assets    *fakeAssetStore
	limiter   *fakeLimiter
}

func newGameFixture(t *testing.T, timeout time.Duration) *gameFixture {
	t.Helper()

	fx := &gameFixture{
		puzzle: &fakePuzzle{
			level:  models.PuzzleLevel{ImageURL: "http://img/puzzle.jpg", Answer: "画蛇添足", Hint: "多此一举"},
			result: models.GuessResult{Correct: true, Answer: "画蛇添足"},
		},
		stats:     newFakeStats(),
		messenger: &fakeMessenger{},
		assets:    &fakeAssetStore{},
		limiter:   &fakeLimiter{},
	}

	injector := do.New()
	do.ProvideValue[PuzzleClient](injector, fx.puzzle)
	do.ProvideValue[StatsStore](injector, fx.stats)
	do.ProvideValue[AssetStore](injector, fx.assets)
	do.ProvideValue[Messenger](injector, fx.messenger)
	do.ProvideValue[interfaces.Limiter](injector, fx.limiter)
	do.ProvideValue[caching.Cache](injector, missCache{})
	do.Provide(injector, NewServiceLeaderboard)
	do.ProvideNamedValue(injector, "game-timeout", timeout)

	game, err := NewServiceGame(injector)
	require.NoError(t, err)
	fx.game = game
	return fx
}
