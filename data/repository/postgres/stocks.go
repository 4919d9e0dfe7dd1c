package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/KotFed0t/stocks_tracker_bot/data/repository"
	"github.com/KotFed0t/stocks_tracker_bot/internal/converter/dbConverter"
	"github.com/KotFed0t/stocks_tracker_bot/internal/model"
	"github.com/KotFed0t/stocks_tracker_bot/internal/model/dbModel"
	"github.com/KotFed0t/stocks_tracker_bot/utils"
	"github.com/shopspring/decimal"
)

const stockColumns = `s.stock_id, s.ticker, s.name, s.exchange, s.performance_id, s.price, s.rank, s.dt_create`

func (r *Postgres) InsertStock(ctx context.Context, stock model.Stock) (stockID int64, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.InsertStock"
	query := `
		INSERT INTO stocks(ticker, name, exchange, performance_id, price, rank)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING stock_id
		`

	slog.Debug("InsertStock start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query), slog.Any("stock", stock))
	defer func() {
		if err != nil {
			slog.Error("InsertStock failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("InsertStock completed", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("stockID", stockID))
		}
	}()

	err = r.txOrDb(ctx).QueryRowContext(
		ctx,
		query,
		stock.Ticker,
		stock.Name,
		stock.Exchange,
		dbConverter.NullString(stock.PerformanceID),
		stock.Price,
		dbConverter.ConvertRank(stock.Rank),
	).Scan(&stockID)
	if err != nil {
		return 0, err
	}

	return stockID, nil
}

func (r *Postgres) GetStockByID(ctx context.Context, stockID int64) (stock model.Stock, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.GetStockByID"
	query := `SELECT ` + stockColumns + ` FROM stocks s WHERE s.stock_id = $1`

	slog.Debug("GetStockByID start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query), slog.Int64("stockID", stockID))
	defer func() {
		if err != nil {
			slog.Error("GetStockByID failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetStockByID completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	dbStock := dbModel.Stock{}
	err = r.txOrDb(ctx).QueryRowxContext(ctx, query, stockID).StructScan(&dbStock)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Stock{}, repository.ErrNotFound
		}
		return model.Stock{}, err
	}

	return dbConverter.ConvertStock(dbStock), nil
}

func (r *Postgres) FindStocksByTicker(ctx context.Context, ticker string) (stocks []model.Stock, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.FindStocksByTicker"
	query := `SELECT ` + stockColumns + ` FROM stocks s WHERE s.ticker = $1 ORDER BY s.stock_id`

	slog.Debug("FindStocksByTicker start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query), slog.String("ticker", ticker))
	defer func() {
		if err != nil {
			slog.Error("FindStocksByTicker failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("FindStocksByTicker completed", slog.String("rqID", rqID), slog.String("op", op), slog.Int("found", len(stocks)))
		}
	}()

	rows, err := r.txOrDb(ctx).QueryxContext(ctx, query, ticker)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	stocks = make([]model.Stock, 0)
	for rows.Next() {
		var stock dbModel.Stock
		err = rows.StructScan(&stock)
		if err != nil {
			return nil, err
		}
		stocks = append(stocks, dbConverter.ConvertStock(stock))
	}

	return stocks, rows.Err()
}

func (r *Postgres) UpdateStockPrice(ctx context.Context, stockID int64, price decimal.Decimal) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.UpdateStockPrice"
	params := map[string]any{
		"stockID": stockID,
		"price":   price.String(),
	}
	query := `UPDATE stocks SET price = $1 WHERE stock_id = $2`

	slog.Debug("UpdateStockPrice start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query), slog.Any("params", params))
	defer func() {
		if err != nil {
			slog.Error("UpdateStockPrice failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("UpdateStockPrice completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	res, err := r.txOrDb(ctx).ExecContext(ctx, query, price, stockID)
	if err != nil {
		return err
	}

	return checkAffected(res)
}

func (r *Postgres) UpdateStockRank(ctx context.Context, stockID int64, rank model.Rank) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.UpdateStockRank"
	params := map[string]any{
		"stockID": stockID,
		"rank":    rank,
	}
	query := `UPDATE stocks SET rank = $1 WHERE stock_id = $2`

	slog.Debug("UpdateStockRank start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query), slog.Any("params", params))
	defer func() {
		if err != nil {
			slog.Error("UpdateStockRank failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("UpdateStockRank completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	res, err := r.txOrDb(ctx).ExecContext(ctx, query, dbConverter.ConvertRank(rank), stockID)
	if err != nil {
		return err
	}

	return checkAffected(res)
}

func (r *Postgres) DeleteStock(ctx context.Context, stockID int64) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.DeleteStock"

	// из списков удаляется каскадно
	query := `DELETE FROM stocks WHERE stock_id = $1`

	slog.Debug("DeleteStock start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query), slog.Int64("stockID", stockID))
	defer func() {
		if err != nil {
			slog.Error("DeleteStock failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("DeleteStock completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	_, err = r.txOrDb(ctx).ExecContext(ctx, query, stockID)
	return err
}

func checkAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return repository.ErrNotFound
	}
	return nil
}
