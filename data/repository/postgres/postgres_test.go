package postgres_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"

	"github.com/KotFed0t/stocks_tracker_bot/data"
	"github.com/KotFed0t/stocks_tracker_bot/data/repository"
	"github.com/KotFed0t/stocks_tracker_bot/data/repository/postgres"
	"github.com/KotFed0t/stocks_tracker_bot/internal/model"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Интеграционные тесты, запускаются только при заданном PG_TEST_DSN
func newTestRepo(t *testing.T) *postgres.Postgres {
	t.Helper()

	dsn := os.Getenv("PG_TEST_DSN")
	if dsn == "" {
		t.Skip("Integration test - requires PostgreSQL (set PG_TEST_DSN)")
	}

	db, err := sqlx.Connect("pgx", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, data.MigratePostgres(db, "../../../migrations"))

	_, err = db.Exec(`TRUNCATE stock_list_items, stock_lists, stocks RESTART IDENTITY CASCADE`)
	require.NoError(t, err)

	return postgres.NewPostgres(db)
}

func TestGetOrCreateList_Concurrent(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	const workers = 8
	ids := make([]int64, workers)
	errs := make([]error, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids[i], errs[i] = repo.GetOrCreateList(ctx, model.ListTypeActive)
		}(i)
	}
	wg.Wait()

	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, ids[0], ids[i])
	}
}

func TestListLifecycle(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.GetListID(ctx, model.ListTypeWatch)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	count, err := repo.CountListStocks(ctx, model.ListTypeWatch)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	aaplID, err := repo.InsertStock(ctx, model.Stock{Ticker: "AAPL", Name: "Apple Inc", PerformanceID: "0P000000GY"})
	require.NoError(t, err)
	msftID, err := repo.InsertStock(ctx, model.Stock{Ticker: "MSFT", Name: "Microsoft Corp"})
	require.NoError(t, err)

	listID, err := repo.GetOrCreateList(ctx, model.ListTypeWatch)
	require.NoError(t, err)

	added, err := repo.AppendStockToList(ctx, listID, aaplID)
	require.NoError(t, err)
	assert.True(t, added)

	added, err = repo.AppendStockToList(ctx, listID, aaplID)
	require.NoError(t, err)
	assert.False(t, added)

	_, err = repo.AppendStockToList(ctx, listID, msftID)
	require.NoError(t, err)

	stocks, err := repo.GetListStocks(ctx, model.ListTypeWatch)
	require.NoError(t, err)
	require.Len(t, stocks, 2)
	assert.Equal(t, "AAPL", stocks[0].Ticker)
	assert.Equal(t, "0P000000GY", stocks[0].PerformanceID)
	assert.Equal(t, "", stocks[1].PerformanceID)

	require.NoError(t, repo.ReplaceListStocks(ctx, listID, []int64{msftID, aaplID}))
	stocks, err = repo.GetListStocks(ctx, model.ListTypeWatch)
	require.NoError(t, err)
	require.Len(t, stocks, 2)
	assert.Equal(t, "MSFT", stocks[0].Ticker)

	require.NoError(t, repo.UpdateStockPrice(ctx, aaplID, decimal.RequireFromString("190.12")))
	require.NoError(t, repo.UpdateStockRank(ctx, aaplID, model.RankHot))
	aapl, err := repo.GetStockByID(ctx, aaplID)
	require.NoError(t, err)
	assert.True(t, aapl.Price.Equal(decimal.RequireFromString("190.12")))
	assert.Equal(t, model.RankHot, aapl.Rank)

	require.NoError(t, repo.DeleteStock(ctx, msftID))
	count, err = repo.CountListStocks(ctx, model.ListTypeWatch)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestWithinTransaction_Rollback(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	errBoom := errors.New("boom")
	err := repo.WithinTransaction(ctx, func(ctx context.Context) error {
		if _, err := repo.InsertStock(ctx, model.Stock{Ticker: "TSLA"}); err != nil {
			return err
		}
		return errBoom
	})
	assert.ErrorIs(t, err, errBoom)

	stocks, err := repo.FindStocksByTicker(ctx, "TSLA")
	require.NoError(t, err)
	assert.Empty(t, stocks)
}
