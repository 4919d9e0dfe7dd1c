package dbModel

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

type Stock struct {
	StockID       int64           `db:"stock_id"`
	Ticker        string          `db:"ticker"`
	Name          string          `db:"name"`
	Exchange      string          `db:"exchange"`
	PerformanceID sql.NullString  `db:"performance_id"`
	Price         decimal.Decimal `db:"price"`
	Rank          sql.NullString  `db:"rank"`
	DtCreate      time.Time       `db:"dt_create"`
}

type ListStock struct {
	Stock
	ListID   int64 `db:"list_id"`
	Position int   `db:"position"`
}
