package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gojek/heimdall/v7"
	"github.com/gojek/heimdall/v7/httpclient"
	"github.com/hiendaovinh/toolkit/pkg/db"
	"github.com/hiendaovinh/toolkit/pkg/env"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/samber/do"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
	tele "gopkg.in/telebot.v3"

	"idiomguess/internal"
	"idiomguess/internal/datastore"
	"idiomguess/internal/interfaces"
	"idiomguess/internal/pkg/assets"
	"idiomguess/internal/pkg/caching"
	"idiomguess/internal/pkg/limiter"
	"idiomguess/internal/services"
)

func init() {
	// for development
	//nolint:errcheck
	godotenv.Load("../../.env")

	// for production
	//nolint:errcheck
	godotenv.Load("./.env")
}

func main() {
	app := &cli.App{
		Name: "bot",
		Commands: []*cli.Command{
			commandBot(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func commandBot() *cli.Command {
	return &cli.Command{
		Name:   "server",
		Usage:  "start the game bot",
		Action: action,
	}
}

func action(c *cli.Context) error {
	vs, err := env.EnvsRequired(
		"BOT_TOKEN",
		"DB_DSN",
	)
	if err != nil {
		return err
	}

	pref := tele.Settings{
		Token:  vs["BOT_TOKEN"],
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}

	b, err := tele.NewBot(pref)
	if err != nil {
		return err
	}

	container, assetStore, err := newContainer(b)
	if err != nil {
		return err
	}

	serviceGame, err := do.Invoke[*services.ServiceGame](container)
	if err != nil {
		return err
	}

	registerHandlers(b, serviceGame)

	logger := do.MustInvoke[zerolog.Logger](container)

	cronRunner := cron.New()
	if _, err := cronRunner.AddFunc("@hourly", func() {
		removed, err := assetStore.Sweep(time.Hour)
		if err != nil {
			logger.Warn().Err(err).Msg("asset sweep")
			return
		}
		if removed > 0 {
			logger.Info().Int("removed", removed).Msg("swept orphaned assets")
		}
	}); err != nil {
		return err
	}
	cronRunner.Start()
	defer cronRunner.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errWg, errCtx := errgroup.WithContext(ctx)

	errWg.Go(func() error {
		logger.Info().Msg("bot started")
		b.Start()
		return nil
	})

	errWg.Go(func() error {
		<-errCtx.Done()
		b.Stop()
		return nil
	})

	return errWg.Wait()
}

func newContainer(b *tele.Bot) (*do.Injector, *assets.Store, error) {
	injector := do.New()

	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()
	do.ProvideValue(injector, logger)

	sqldb := sql.OpenDB(pgdriver.NewConnector(
		pgdriver.WithDSN(os.Getenv("DB_DSN")),
		pgdriver.WithPassword(os.Getenv("DB_PASSWORD")),
	))
	postgresDB := bun.NewDB(sqldb, pgdialect.New())
	do.ProvideValue(injector, postgresDB)

	redisCache, err := db.InitRedis(&db.RedisConfig{
		URL: os.Getenv("REDIS_CACHE"),
	})
	if err != nil {
		return nil, nil, err
	}
	do.ProvideNamedValue[redis.UniversalClient](injector, "redis-cache", redisCache)

	cache, err := caching.NewCacheRedis(redisCache, true)
	if err != nil {
		return nil, nil, err
	}
	do.ProvideValue[caching.Cache](injector, cache)
	do.ProvideValue[interfaces.Limiter](injector, limiter.NewLimiterRedis(redisCache))

	httpClient := httpclient.NewClient(
		httpclient.WithHTTPTimeout(10*time.Second),
		httpclient.WithRetryCount(2),
		httpclient.WithRetrier(heimdall.NewRetrier(heimdall.NewConstantBackoff(500*time.Millisecond, 100*time.Millisecond))),
	)

	gameAPIURL := os.Getenv("GAME_API_URL")
	if gameAPIURL == "" {
		gameAPIURL = services.GAME_API_DEFAULT_URL
	}
	do.ProvideValue[services.PuzzleClient](injector, datastore.NewPuzzleAPI(gameAPIURL, httpClient))

	cacheDir := os.Getenv("CACHE_DIR")
	if cacheDir == "" {
		cacheDir = "resources/cache"
	}
	assetStore, err := assets.NewStore(cacheDir, httpClient)
	if err != nil {
		return nil, nil, err
	}
	do.ProvideValue[services.AssetStore](injector, assetFetcher{assetStore})

	do.ProvideValue[services.Messenger](injector, &telegramMessenger{bot: b})

	if secs := os.Getenv("GAME_TIMEOUT_SECONDS"); secs != "" {
		if n, err := strconv.Atoi(secs); err == nil && n > 0 {
			do.ProvideNamedValue(injector, "game-timeout", time.Duration(n)*time.Second)
		}
	}

	do.Provide(injector, func(i *do.Injector) (services.StatsStore, error) {
		return services.NewServiceStats(i)
	})
	do.Provide(injector, services.NewServiceLeaderboard)
	do.Provide(injector, services.NewServiceGame)

	return injector, assetStore, nil
}

// assetFetcher narrows *assets.Store to the game service's AssetStore port.
type assetFetcher struct {
	store *assets.Store
}

func (f assetFetcher) Fetch(ctx context.Context, url string) (internal.Asset, error) {
	asset, err := f.store.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	return asset, nil
}
