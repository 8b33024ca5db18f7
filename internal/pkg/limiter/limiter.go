package limiter

import (
	"context"
	"errors"

	"github.com/go-redis/redis_rate/v10"
	"github.com/redis/go-redis/v9"
)

var ErrRateLimited = errors.New("rate limited")

// LimiterRedis implements interfaces.Limiter on top of redis_rate's GCRA.
type LimiterRedis struct {
	instance *redis_rate.Limiter
}

func NewLimiterRedis(client redis.UniversalClient) *LimiterRedis {
	return &LimiterRedis{instance: redis_rate.NewLimiter(client)}
}

func (l *LimiterRedis) Allow(ctx context.Context, key string, limit redis_rate.Limit) error {
	res, err := l.instance.Allow(ctx, key, limit)
	if err != nil {
		return err
	}
	if res.Allowed == 0 {
		return ErrRateLimited
	}
	return nil
}
