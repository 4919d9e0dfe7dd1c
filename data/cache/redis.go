package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/KotFed0t/stocks_tracker_bot/internal/model"
	"github.com/KotFed0t/stocks_tracker_bot/utils"
	"github.com/redis/go-redis/v9"
)

const marketMoversKey = "market_movers"

var ErrNotFound = errors.New("not found in cache")

type RedisCache struct {
	redis            *redis.Client
	moversExpiration time.Duration
}

func NewRedisCache(redisClient *redis.Client, moversExpiration time.Duration) *RedisCache {
	return &RedisCache{redis: redisClient, moversExpiration: moversExpiration}
}

func (r *RedisCache) SetMarketMovers(ctx context.Context, movers model.MarketMovers) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("SetMarketMovers start", slog.String("rqID", rqID))

	moversJson, err := json.Marshal(movers)
	if err != nil {
		slog.Error("can't marshall movers in SetMarketMovers", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return errors.New("can't marshall movers")
	}

	err = r.redis.Set(ctx, marketMoversKey, moversJson, r.moversExpiration).Err()
	if err != nil {
		slog.Error("failed on redis.Set", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return err
	}

	slog.Debug("SetMarketMovers completed", slog.String("rqID", rqID))

	return nil
}

func (r *RedisCache) GetMarketMovers(ctx context.Context) (model.MarketMovers, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("GetMarketMovers start", slog.String("rqID", rqID))

	res, err := r.redis.Get(ctx, marketMoversKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return model.MarketMovers{}, ErrNotFound
		}
		slog.Error("failed on redis.Get", slog.String("rqID", rqID), slog.String("err", err.Error()), slog.String("key", marketMoversKey))
		return model.MarketMovers{}, err
	}

	movers := model.MarketMovers{}
	err = json.Unmarshal([]byte(res), &movers)
	if err != nil {
		slog.Error(
			"can't unmarshall movers in GetMarketMovers",
			slog.String("rqID", rqID),
			slog.String("err", err.Error()),
			slog.String("resultFromRedis", res),
		)
		return model.MarketMovers{}, errors.New("can't unmarshall movers")
	}

	slog.Debug("GetMarketMovers finished", slog.String("rqID", rqID))

	return movers, nil
}
