package stockListService

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/KotFed0t/stocks_tracker_bot/data/repository"
	"github.com/KotFed0t/stocks_tracker_bot/internal/model"
	"github.com/KotFed0t/stocks_tracker_bot/internal/service"
	"github.com/KotFed0t/stocks_tracker_bot/utils"
	"github.com/shopspring/decimal"
)

type QuoteApi interface {
	Search(ctx context.Context, symbolText string) ([]model.Stock, error)
	FetchPrice(ctx context.Context, performanceID string) (decimal.Decimal, error)
}

type Repository interface {
	WithinTransaction(ctx context.Context, tFunc func(ctx context.Context) error) error

	GetOrCreateList(ctx context.Context, listType model.ListType) (listID int64, err error)
	GetListID(ctx context.Context, listType model.ListType) (listID int64, err error)
	LockList(ctx context.Context, listID int64) error
	AppendStockToList(ctx context.Context, listID, stockID int64) (added bool, err error)
	RemoveStockFromList(ctx context.Context, listID, stockID int64) error
	GetListStocks(ctx context.Context, listType model.ListType) ([]model.Stock, error)
	CountListStocks(ctx context.Context, listType model.ListType) (int, error)
	ReplaceListStocks(ctx context.Context, listID int64, stockIDs []int64) error

	InsertStock(ctx context.Context, stock model.Stock) (stockID int64, err error)
	GetStockByID(ctx context.Context, stockID int64) (model.Stock, error)
	FindStocksByTicker(ctx context.Context, ticker string) ([]model.Stock, error)
	UpdateStockPrice(ctx context.Context, stockID int64, price decimal.Decimal) error
	UpdateStockRank(ctx context.Context, stockID int64, rank model.Rank) error
	DeleteStock(ctx context.Context, stockID int64) error
}

// StockListService управляет списками Active/Watch и записями акций
type StockListService struct {
	repo     Repository
	quoteApi QuoteApi
}

func New(repo Repository, quoteApi QuoteApi) *StockListService {
	return &StockListService{
		repo:     repo,
		quoteApi: quoteApi,
	}
}

func (s *StockListService) AddToList(ctx context.Context, stock model.Stock, listType model.ListType) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "StockListService.AddToList"

	slog.Debug("AddToList start", slog.String("rqID", rqID), slog.String("op", op), slog.String("ticker", stock.Ticker), slog.String("listType", listType.String()))
	defer func() {
		if err != nil {
			slog.Error("AddToList failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("AddToList completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	return s.repo.WithinTransaction(ctx, func(ctx context.Context) error {
		listID, err := s.repo.GetOrCreateList(ctx, listType)
		if err != nil {
			return err
		}

		// позицию считаем под блокировкой строки списка
		err = s.repo.LockList(ctx, listID)
		if err != nil {
			return err
		}

		added, err := s.repo.AppendStockToList(ctx, listID, stock.ID)
		if err != nil {
			return err
		}

		if !added {
			slog.Info("stock already in list", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("stockID", stock.ID))
		}

		return nil
	})
}

func (s *StockListService) RemoveFromList(ctx context.Context, stock model.Stock, listType model.ListType) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "StockListService.RemoveFromList"

	slog.Debug("RemoveFromList start", slog.String("rqID", rqID), slog.String("op", op), slog.String("ticker", stock.Ticker), slog.String("listType", listType.String()))
	defer func() {
		if err != nil {
			slog.Error("RemoveFromList failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("RemoveFromList completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	listID, err := s.repo.GetListID(ctx, listType)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return err
	}

	stocks, err := s.repo.GetListStocks(ctx, listType)
	if err != nil {
		return err
	}

	// удаляем первую запись с таким тикером
	for _, member := range stocks {
		if member.Ticker == stock.Ticker {
			return s.repo.RemoveStockFromList(ctx, listID, member.ID)
		}
	}

	slog.Info("stock not found in list, nothing to remove", slog.String("rqID", rqID), slog.String("op", op), slog.String("ticker", stock.Ticker))

	return nil
}

// MoveStock переносит акцию между списками в одной транзакции
func (s *StockListService) MoveStock(ctx context.Context, stock model.Stock, from, to model.ListType) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "StockListService.MoveStock"

	slog.Debug(
		"MoveStock start",
		slog.String("rqID", rqID),
		slog.String("op", op),
		slog.String("ticker", stock.Ticker),
		slog.String("from", from.String()),
		slog.String("to", to.String()),
	)
	defer func() {
		if err != nil {
			slog.Error("MoveStock failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("MoveStock completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	return s.repo.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.RemoveFromList(ctx, stock, from); err != nil {
			return fmt.Errorf("remove from %s: %w", from, err)
		}
		if err := s.AddToList(ctx, stock, to); err != nil {
			return fmt.Errorf("add to %s: %w", to, err)
		}
		return nil
	})
}

func (s *StockListService) Count(ctx context.Context, listType model.ListType) (int, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "StockListService.Count"

	count, err := s.repo.CountListStocks(ctx, listType)
	if err != nil {
		slog.Error("got error from repo.CountListStocks", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return 0, err
	}

	return count, nil
}

func (s *StockListService) GetList(ctx context.Context, listType model.ListType) ([]model.Stock, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "StockListService.GetList"

	stocks, err := s.repo.GetListStocks(ctx, listType)
	if err != nil {
		slog.Error("got error from repo.GetListStocks", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}

	if stocks == nil {
		stocks = []model.Stock{}
	}

	return stocks, nil
}

func (s *StockListService) IsStockInList(ctx context.Context, ticker string, listType model.ListType) (bool, error) {
	stocks, err := s.GetList(ctx, listType)
	if err != nil {
		return false, err
	}

	for _, stock := range stocks {
		if stock.Ticker == ticker {
			return true, nil
		}
	}

	return false, nil
}

// SearchStocks ищет локальные записи по точному тикеру
func (s *StockListService) SearchStocks(ctx context.Context, ticker string) ([]model.Stock, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "StockListService.SearchStocks"

	stocks, err := s.repo.FindStocksByTicker(ctx, ticker)
	if err != nil {
		slog.Error("got error from repo.FindStocksByTicker", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}

	return stocks, nil
}

// SearchAndAddStocks добавляет акцию в список: берет локальную запись по тикеру
// либо находит акцию удаленным поиском (точное совпадение тикера, иначе первый результат),
// переиспользуя локальную запись с тем же тикером. После добавления обновляет цену
func (s *StockListService) SearchAndAddStocks(ctx context.Context, symbol string, listType model.ListType) (stock model.Stock, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "StockListService.SearchAndAddStocks"

	slog.Debug("SearchAndAddStocks start", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", symbol), slog.String("listType", listType.String()))
	defer func() {
		if err != nil {
			slog.Error("SearchAndAddStocks failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("SearchAndAddStocks completed", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("stockID", stock.ID))
		}
	}()

	local, err := s.SearchStocks(ctx, symbol)
	if err != nil {
		return model.Stock{}, err
	}

	if len(local) > 0 {
		stock = local[0]
	} else {
		remote, err := s.quoteApi.Search(ctx, symbol)
		if err != nil {
			return model.Stock{}, err
		}
		if len(remote) == 0 {
			return model.Stock{}, service.ErrNotFound
		}

		// автодополнение может вернуть тикер, запись которого уже есть
		stock, err = s.FindOrCreateStock(ctx, pickRemoteStock(remote, symbol))
		if err != nil {
			return model.Stock{}, err
		}
	}

	err = s.AddToList(ctx, stock, listType)
	if err != nil {
		return model.Stock{}, err
	}

	updated, priceErr := s.UpdateStockPrice(ctx, stock)
	if priceErr != nil {
		slog.Warn("price refresh failed, stock added with old price", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", priceErr.Error()))
	}

	return updated, nil
}

func pickRemoteStock(remote []model.Stock, symbol string) model.Stock {
	symbol = strings.TrimSpace(symbol)
	for _, stock := range remote {
		if strings.EqualFold(stock.Ticker, symbol) {
			return stock
		}
	}
	return remote[0]
}

func (s *StockListService) CreateStock(ctx context.Context, stock model.Stock) (model.Stock, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "StockListService.CreateStock"

	stockID, err := s.repo.InsertStock(ctx, stock)
	if err != nil {
		slog.Error("got error from repo.InsertStock", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Stock{}, err
	}

	stock.ID = stockID
	return stock, nil
}

// UpdateStockPrice запрашивает актуальную цену и сохраняет ее.
// При ошибке возвращается акция со старой ценой и сама ошибка.
func (s *StockListService) UpdateStockPrice(ctx context.Context, stock model.Stock) (model.Stock, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "StockListService.UpdateStockPrice"

	if !stock.HasPerformanceID() {
		slog.Debug("stock has no performanceID, skip price refresh", slog.String("rqID", rqID), slog.String("op", op), slog.String("ticker", stock.Ticker))
		return stock, nil
	}

	price, err := s.quoteApi.FetchPrice(ctx, stock.PerformanceID)
	if err != nil {
		slog.Warn("can't fetch price", slog.String("rqID", rqID), slog.String("op", op), slog.String("ticker", stock.Ticker), slog.String("err", err.Error()))
		return stock, err
	}

	err = s.repo.UpdateStockPrice(ctx, stock.ID, price)
	if err != nil {
		slog.Error("got error from repo.UpdateStockPrice", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return stock, err
	}

	stock.Price = price
	return stock, nil
}

func (s *StockListService) SetRank(ctx context.Context, stock model.Stock, rank model.Rank) (model.Stock, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "StockListService.SetRank"

	err := s.repo.UpdateStockRank(ctx, stock.ID, rank)
	if err != nil {
		slog.Error("got error from repo.UpdateStockRank", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return stock, err
	}

	stock.Rank = rank
	return stock, nil
}

// UpdateStockOrder переписывает порядок существующего списка.
// stockIDs должны совпадать с текущим составом, иначе service.ErrListChanged
func (s *StockListService) UpdateStockOrder(ctx context.Context, listType model.ListType, stockIDs []int64) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "StockListService.UpdateStockOrder"

	slog.Debug("UpdateStockOrder start", slog.String("rqID", rqID), slog.String("op", op), slog.String("listType", listType.String()), slog.Any("stockIDs", stockIDs))
	defer func() {
		if err != nil {
			slog.Error("UpdateStockOrder failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("UpdateStockOrder completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	return s.repo.WithinTransaction(ctx, func(ctx context.Context) error {
		listID, err := s.repo.GetListID(ctx, listType)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil
			}
			return err
		}

		if err = s.repo.LockList(ctx, listID); err != nil {
			return err
		}

		current, err := s.repo.GetListStocks(ctx, listType)
		if err != nil {
			return err
		}

		if !sameMembers(current, stockIDs) {
			return service.ErrListChanged
		}

		return s.repo.ReplaceListStocks(ctx, listID, stockIDs)
	})
}

// MoveStockUp меняет акцию местами с предыдущей. Чтение и запись порядка идут
// под блокировкой списка, поэтому параллельное добавление не теряется.
// Возвращает состав списка после перестановки.
func (s *StockListService) MoveStockUp(ctx context.Context, stockID int64, listType model.ListType) (stocks []model.Stock, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "StockListService.MoveStockUp"

	slog.Debug("MoveStockUp start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("stockID", stockID), slog.String("listType", listType.String()))
	defer func() {
		if err != nil {
			slog.Error("MoveStockUp failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("MoveStockUp completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	err = s.repo.WithinTransaction(ctx, func(ctx context.Context) error {
		listID, err := s.repo.GetListID(ctx, listType)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return service.ErrNotFound
			}
			return err
		}

		if err = s.repo.LockList(ctx, listID); err != nil {
			return err
		}

		stocks, err = s.repo.GetListStocks(ctx, listType)
		if err != nil {
			return err
		}

		idx := slices.IndexFunc(stocks, func(stock model.Stock) bool { return stock.ID == stockID })
		switch idx {
		case -1:
			return service.ErrNotFound
		case 0:
			return nil
		}

		stocks[idx-1], stocks[idx] = stocks[idx], stocks[idx-1]

		stockIDs := make([]int64, 0, len(stocks))
		for _, stock := range stocks {
			stockIDs = append(stockIDs, stock.ID)
		}

		return s.repo.ReplaceListStocks(ctx, listID, stockIDs)
	})
	if err != nil {
		return nil, err
	}

	return stocks, nil
}

func sameMembers(current []model.Stock, stockIDs []int64) bool {
	if len(current) != len(stockIDs) {
		return false
	}
	members := make(map[int64]struct{}, len(current))
	for _, stock := range current {
		members[stock.ID] = struct{}{}
	}
	for _, id := range stockIDs {
		if _, ok := members[id]; !ok {
			return false
		}
		delete(members, id)
	}
	return true
}

func (s *StockListService) DeleteStock(ctx context.Context, stock model.Stock) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "StockListService.DeleteStock"

	err := s.repo.DeleteStock(ctx, stock.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return service.ErrNotFound
		}
		slog.Error("got error from repo.DeleteStock", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	return nil
}

func (s *StockListService) GetStock(ctx context.Context, stockID int64) (model.Stock, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "StockListService.GetStock"

	stock, err := s.repo.GetStockByID(ctx, stockID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Stock{}, service.ErrNotFound
		}
		slog.Error("got error from repo.GetStockByID", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Stock{}, err
	}

	return stock, nil
}

// FindOrCreateStock возвращает первую локальную запись с тикером remote либо сохраняет remote
func (s *StockListService) FindOrCreateStock(ctx context.Context, remote model.Stock) (model.Stock, error) {
	local, err := s.SearchStocks(ctx, remote.Ticker)
	if err != nil {
		return model.Stock{}, err
	}

	if len(local) > 0 {
		return local[0], nil
	}

	return s.CreateStock(ctx, remote)
}
