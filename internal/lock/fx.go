package lock

import (
	"context"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/invoicereminder/internal/clock"
	"github.com/smallbiznis/invoicereminder/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("lock",
	fx.Provide(Provide),
)

type Params struct {
	fx.In

	Lifecycle fx.Lifecycle
	Config    config.Config
	Clock     clock.Clock `optional:"true"`
	Log       *zap.Logger
}

// Provide returns a Redis locker when REDIS_ADDR is set and an in-process
// locker otherwise.
func Provide(p Params) Locker {
	log := p.Log.Named("lock")
	if p.Config.Redis.Addr == "" {
		log.Info("lock.backend", zap.String("backend", "memory"))
		return NewMemoryLocker(p.Clock)
	}

	client := redis.NewClient(&redis.Options{
		Addr:     p.Config.Redis.Addr,
		Password: p.Config.Redis.Password,
		DB:       p.Config.Redis.DB,
	})
	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := client.Ping(ctx).Err(); err != nil {
				log.Warn("lock.redis.ping_failed", zap.String("addr", p.Config.Redis.Addr), zap.Error(err))
			}
			return nil
		},
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
	log.Info("lock.backend", zap.String("backend", "redis"), zap.String("addr", p.Config.Redis.Addr))
	return NewRedisLocker(client)
}
