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
)

// GetOrCreateList атомарно создает запись списка, если ее еще нет, и возвращает ее id.
// Конкурентные вызовы для одного listType всегда получают один и тот же list_id.
func (r *Postgres) GetOrCreateList(ctx context.Context, listType model.ListType) (listID int64, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.GetOrCreateList"
	query := `
		INSERT INTO stock_lists(list_type) VALUES ($1)
		ON CONFLICT (list_type) DO UPDATE SET list_type = EXCLUDED.list_type
		RETURNING list_id
		`

	slog.Debug("GetOrCreateList start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query), slog.String("listType", listType.String()))
	defer func() {
		if err != nil {
			slog.Error("GetOrCreateList failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetOrCreateList completed", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("listID", listID))
		}
	}()

	err = r.txOrDb(ctx).QueryRowContext(ctx, query, listType).Scan(&listID)
	if err != nil {
		return 0, err
	}

	return listID, nil
}

func (r *Postgres) GetListID(ctx context.Context, listType model.ListType) (listID int64, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.GetListID"
	query := `SELECT list_id FROM stock_lists WHERE list_type = $1`

	slog.Debug("GetListID start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query), slog.String("listType", listType.String()))
	defer func() {
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			slog.Error("GetListID failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetListID completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	err = r.txOrDb(ctx).QueryRowContext(ctx, query, listType).Scan(&listID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, repository.ErrNotFound
		}
		return 0, err
	}

	return listID, nil
}

// LockList блокирует строку списка до конца транзакции, чтобы позиции при вставке не пересекались
func (r *Postgres) LockList(ctx context.Context, listID int64) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.LockList"
	query := `SELECT list_id FROM stock_lists WHERE list_id = $1 FOR UPDATE`

	slog.Debug("LockList start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("listID", listID))
	defer func() {
		if err != nil {
			slog.Error("LockList failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		}
	}()

	var id int64
	err = r.txOrDb(ctx).QueryRowContext(ctx, query, listID).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return repository.ErrNotFound
		}
		return err
	}

	return nil
}

// AppendStockToList добавляет акцию в конец списка.
// Повторное добавление той же записи ничего не меняет и возвращает added = false.
func (r *Postgres) AppendStockToList(ctx context.Context, listID, stockID int64) (added bool, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.AppendStockToList"
	params := map[string]any{
		"listID":  listID,
		"stockID": stockID,
	}
	query := `
		INSERT INTO stock_list_items(list_id, stock_id, position)
		SELECT $1, $2, COALESCE(MAX(position) + 1, 0)
		FROM stock_list_items
		WHERE list_id = $1
		ON CONFLICT (list_id, stock_id) DO NOTHING
		`

	slog.Debug("AppendStockToList start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query), slog.Any("params", params))
	defer func() {
		if err != nil {
			slog.Error("AppendStockToList failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("AppendStockToList completed", slog.String("rqID", rqID), slog.String("op", op), slog.Bool("added", added))
		}
	}()

	res, err := r.txOrDb(ctx).ExecContext(ctx, query, listID, stockID)
	if err != nil {
		return false, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	return affected > 0, nil
}

func (r *Postgres) RemoveStockFromList(ctx context.Context, listID, stockID int64) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.RemoveStockFromList"
	params := map[string]any{
		"listID":  listID,
		"stockID": stockID,
	}
	query := `DELETE FROM stock_list_items WHERE list_id = $1 AND stock_id = $2`

	slog.Debug("RemoveStockFromList start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query), slog.Any("params", params))
	defer func() {
		if err != nil {
			slog.Error("RemoveStockFromList failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("RemoveStockFromList completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	_, err = r.txOrDb(ctx).ExecContext(ctx, query, listID, stockID)
	return err
}

func (r *Postgres) GetListStocks(ctx context.Context, listType model.ListType) (stocks []model.Stock, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.GetListStocks"
	query := `
		SELECT ` + stockColumns + `, i.list_id, i.position
		FROM stock_lists l
		JOIN stock_list_items i USING(list_id)
		JOIN stocks s USING(stock_id)
		WHERE l.list_type = $1
		ORDER BY i.position, i.stock_id
		`

	slog.Debug("GetListStocks start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query), slog.String("listType", listType.String()))
	defer func() {
		if err != nil {
			slog.Error("GetListStocks failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetListStocks completed", slog.String("rqID", rqID), slog.String("op", op), slog.Int("count", len(stocks)))
		}
	}()

	rows, err := r.txOrDb(ctx).QueryxContext(ctx, query, listType)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	stocks = make([]model.Stock, 0)
	for rows.Next() {
		var stock dbModel.ListStock
		err = rows.StructScan(&stock)
		if err != nil {
			return nil, err
		}
		stocks = append(stocks, dbConverter.ConvertListStock(stock))
	}

	return stocks, rows.Err()
}

func (r *Postgres) CountListStocks(ctx context.Context, listType model.ListType) (count int, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.CountListStocks"
	query := `
		SELECT COUNT(i.stock_id)
		FROM stock_lists l
		JOIN stock_list_items i USING(list_id)
		WHERE l.list_type = $1
		`

	slog.Debug("CountListStocks start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query), slog.String("listType", listType.String()))
	defer func() {
		if err != nil {
			slog.Error("CountListStocks failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("CountListStocks completed", slog.String("rqID", rqID), slog.String("op", op), slog.Int("count", count))
		}
	}()

	err = r.txOrDb(ctx).GetContext(ctx, &count, query, listType)
	if err != nil {
		return 0, err
	}

	return count, nil
}

// ReplaceListStocks перезаписывает состав и порядок списка
func (r *Postgres) ReplaceListStocks(ctx context.Context, listID int64, stockIDs []int64) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.ReplaceListStocks"
	params := map[string]any{
		"listID":   listID,
		"stockIDs": stockIDs,
	}
	deleteQuery := `DELETE FROM stock_list_items WHERE list_id = $1`
	insertQuery := `
		INSERT INTO stock_list_items(list_id, stock_id, position)
		SELECT $1, u.stock_id, u.ord - 1
		FROM UNNEST($2::bigint[]) WITH ORDINALITY AS u(stock_id, ord)
		ON CONFLICT (list_id, stock_id) DO NOTHING
		`

	slog.Debug("ReplaceListStocks start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", insertQuery), slog.Any("params", params))
	defer func() {
		if err != nil {
			slog.Error("ReplaceListStocks failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("ReplaceListStocks completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	_, err = r.txOrDb(ctx).ExecContext(ctx, deleteQuery, listID)
	if err != nil {
		return err
	}

	if len(stockIDs) == 0 {
		return nil
	}

	_, err = r.txOrDb(ctx).ExecContext(ctx, insertQuery, listID, stockIDs)
	return err
}
