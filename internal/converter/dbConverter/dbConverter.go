package dbConverter

import (
	"database/sql"

	"github.com/KotFed0t/stocks_tracker_bot/internal/model"
	"github.com/KotFed0t/stocks_tracker_bot/internal/model/dbModel"
)

func ConvertStock(dbStock dbModel.Stock) model.Stock {
	return model.Stock{
		ID:            dbStock.StockID,
		Ticker:        dbStock.Ticker,
		Name:          dbStock.Name,
		Exchange:      dbStock.Exchange,
		PerformanceID: dbStock.PerformanceID.String,
		Price:         dbStock.Price,
		Rank:          model.Rank(dbStock.Rank.String),
	}
}

func ConvertListStock(dbStock dbModel.ListStock) model.Stock {
	return ConvertStock(dbStock.Stock)
}

// NullString - пустая строка хранится как NULL
func NullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func ConvertRank(rank model.Rank) sql.NullString {
	return NullString(string(rank))
}
