package cache

import (
	"context"
	"testing"
	"time"

	"github.com/KotFed0t/stocks_tracker_bot/internal/model"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisCache_MarketMovers(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	c := NewRedisCache(rdb, time.Minute)
	ctx := context.Background()

	_, err := c.GetMarketMovers(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	movers := model.MarketMovers{
		Gainers: []model.Mover{{
			Ticker:           "NVDA",
			Name:             "NVIDIA Corp",
			LastPrice:        decimal.RequireFromString("120.5"),
			PercentNetChange: decimal.RequireFromString("7.25"),
			Volume:           1000,
		}},
	}
	require.NoError(t, c.SetMarketMovers(ctx, movers))

	got, err := c.GetMarketMovers(ctx)
	require.NoError(t, err)
	require.Len(t, got.Gainers, 1)
	assert.Equal(t, "NVDA", got.Gainers[0].Ticker)
	assert.True(t, got.Gainers[0].LastPrice.Equal(decimal.RequireFromString("120.5")))
	assert.Empty(t, got.Actives)

	mr.FastForward(2 * time.Minute)

	_, err = c.GetMarketMovers(ctx)
	assert.ErrorIs(t, err, ErrNotFound)
}
