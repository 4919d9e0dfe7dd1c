package session

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

const keyPrefix = "session:"

var ErrNotFound = errors.New("session not found")

type RedisSession struct {
	redis      *redis.Client
	expiration time.Duration
}

func NewRedisSession(redisClient *redis.Client, expiration time.Duration) *RedisSession {
	return &RedisSession{redis: redisClient, expiration: expiration}
}

func (s *RedisSession) GetSession(ctx context.Context, key string) (model.Session, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)

	res, err := s.redis.Get(ctx, keyPrefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return model.Session{}, ErrNotFound
		}
		slog.Error("failed on redis.Get", slog.String("rqID", rqID), slog.String("err", err.Error()), slog.String("key", key))
		return model.Session{}, err
	}

	chatSession := model.Session{}
	if err = json.Unmarshal([]byte(res), &chatSession); err != nil {
		slog.Error("can't unmarshall session", slog.String("rqID", rqID), slog.String("err", err.Error()), slog.String("resultFromRedis", res))
		return model.Session{}, err
	}

	return chatSession, nil
}

func (s *RedisSession) SetSession(ctx context.Context, key string, chatSession model.Session) error {
	rqID := utils.GetRequestIDFromCtx(ctx)

	sessionJson, err := json.Marshal(chatSession)
	if err != nil {
		slog.Error("can't marshall session", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return err
	}

	err = s.redis.Set(ctx, keyPrefix+key, sessionJson, s.expiration).Err()
	if err != nil {
		slog.Error("failed on redis.Set", slog.String("rqID", rqID), slog.String("err", err.Error()), slog.String("key", key))
		return err
	}

	return nil
}
