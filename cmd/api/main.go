package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/hiendaovinh/toolkit/pkg/db"
	"github.com/hiendaovinh/toolkit/pkg/env"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"idiomguess/internal/api/handler"
	"idiomguess/internal/pkg/caching"
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
	_, err := env.EnvsRequired(
		"DB_DSN",
	)
	if err != nil {
		log.Fatal(err)
	}

	container, err := newContainer()
	if err != nil {
		log.Fatal(err)
	}

	app := &cli.App{
		Name: "api",
		Commands: []*cli.Command{
			commandServer(container),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func commandServer(container *do.Injector) *cli.Command {
	return &cli.Command{
		Name:  "server",
		Usage: "start the web server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Value: "0.0.0.0:8080",
				Usage: "serve address",
			},
		},
		Action: func(c *cli.Context) error {
			router, err := handler.New(&handler.Config{
				Container: container,
				Mode:      os.Getenv("API_MODE"),
			})
			if err != nil {
				return err
			}

			srv := &http.Server{
				Addr:    c.String("addr"),
				Handler: router,
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			errWg, errCtx := errgroup.WithContext(ctx)

			errWg.Go(func() error {
				log.Printf("ListenAndServe: %s\n", c.String("addr"))
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					return err
				}
				return nil
			})

			errWg.Go(func() error {
				<-errCtx.Done()
				return srv.Shutdown(context.TODO())
			})

			return errWg.Wait()
		},
	}
}

func newContainer() (*do.Injector, error) {
	injector := do.New()

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
		return nil, err
	}
	do.ProvideNamedValue[redis.UniversalClient](injector, "redis-cache", redisCache)

	cache, err := caching.NewCacheRedis(redisCache, true)
	if err != nil {
		return nil, err
	}
	do.ProvideValue[caching.Cache](injector, cache)

	do.Provide(injector, func(i *do.Injector) (services.StatsStore, error) {
		return services.NewServiceStats(i)
	})
	do.Provide(injector, services.NewServiceLeaderboard)

	return injector, nil
}
