package dbConverter

import (
	"database/sql"
	"testing"

	"github.com/KotFed0t/stocks_tracker_bot/internal/model"
	"github.com/KotFed0t/stocks_tracker_bot/internal/model/dbModel"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestConvertStock(t *testing.T) {
	t.Run("nullable columns", func(t *testing.T) {
		stock := ConvertStock(dbModel.Stock{
			StockID: 7,
			Ticker:  "AAPL",
			Name:    "Apple Inc",
			Price:   decimal.RequireFromString("189.5"),
		})

		assert.Equal(t, int64(7), stock.ID)
		assert.Equal(t, "", stock.PerformanceID)
		assert.False(t, stock.HasPerformanceID())
		assert.Equal(t, model.RankNone, stock.Rank)
		assert.True(t, stock.Price.Equal(decimal.RequireFromString("189.5")))
	})

	t.Run("filled columns", func(t *testing.T) {
		stock := ConvertStock(dbModel.Stock{
			Ticker:        "MSFT",
			PerformanceID: sql.NullString{String: "0P000003MH", Valid: true},
			Rank:          sql.NullString{String: "Very Hot", Valid: true},
		})

		assert.Equal(t, "0P000003MH", stock.PerformanceID)
		assert.Equal(t, model.RankVeryHot, stock.Rank)
	})
}

func TestConvertRank(t *testing.T) {
	assert.False(t, ConvertRank(model.RankNone).Valid)
	assert.Equal(t, sql.NullString{String: "Hot", Valid: true}, ConvertRank(model.RankHot))
}
