package data

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/KotFed0t/stocks_tracker_bot/config"
	"github.com/redis/go-redis/v9"
)

const redisPingTimeout = 5 * time.Second

// NewRedisClient - общий клиент для кэша лидеров рынка и сессий чатов
func NewRedisClient(cfg *config.Config) *redis.Client {
	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		slog.Error("can't connect to redis", slog.String("addr", rdb.Options().Addr), slog.String("err", err.Error()))
		panic(err)
	}
	slog.Info("redis connected", slog.String("addr", rdb.Options().Addr), slog.Int("db", cfg.Redis.DB))

	return rdb
}
