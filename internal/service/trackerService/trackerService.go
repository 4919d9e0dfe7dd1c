package trackerService

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/KotFed0t/stocks_tracker_bot/config"
	"github.com/KotFed0t/stocks_tracker_bot/data/cache"
	"github.com/KotFed0t/stocks_tracker_bot/internal/model"
	"github.com/KotFed0t/stocks_tracker_bot/internal/service"
	"github.com/KotFed0t/stocks_tracker_bot/utils"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

type StockListStore interface {
	AddToList(ctx context.Context, stock model.Stock, listType model.ListType) error
	RemoveFromList(ctx context.Context, stock model.Stock, listType model.ListType) error
	MoveStock(ctx context.Context, stock model.Stock, from, to model.ListType) error
	GetList(ctx context.Context, listType model.ListType) ([]model.Stock, error)
	IsStockInList(ctx context.Context, ticker string, listType model.ListType) (bool, error)
	SearchAndAddStocks(ctx context.Context, symbol string, listType model.ListType) (model.Stock, error)
	UpdateStockPrice(ctx context.Context, stock model.Stock) (model.Stock, error)
	SetRank(ctx context.Context, stock model.Stock, rank model.Rank) (model.Stock, error)
	MoveStockUp(ctx context.Context, stockID int64, listType model.ListType) ([]model.Stock, error)
	DeleteStock(ctx context.Context, stock model.Stock) error
	GetStock(ctx context.Context, stockID int64) (model.Stock, error)
	FindOrCreateStock(ctx context.Context, remote model.Stock) (model.Stock, error)
}

type QuoteApi interface {
	Search(ctx context.Context, symbolText string) ([]model.Stock, error)
	FetchPrice(ctx context.Context, performanceID string) (decimal.Decimal, error)
	GetMarketMovers(ctx context.Context) (model.MarketMovers, error)
}

type Cache interface {
	GetMarketMovers(ctx context.Context) (model.MarketMovers, error)
	SetMarketMovers(ctx context.Context, movers model.MarketMovers) error
}

type ReportGenerator interface {
	Generate(ctx context.Context, lists model.Lists) (fileBytes []byte, fileExtension string, err error)
}

type CloudStorage interface {
	UploadFile(ctx context.Context, reader io.Reader, filename string) (downloadLink string, err error)
}

const moversKey = "movers"

type TrackerService struct {
	cfg             *config.Config
	store           StockListStore
	quoteApi        QuoteApi
	cache           Cache
	reportGenerator ReportGenerator
	cloudStorage    CloudStorage

	moversGroup singleflight.Group

	// последний загруженный снимок списков
	mu           sync.RWMutex
	activeStocks []model.Stock
	watchStocks  []model.Stock
}

func New(
	cfg *config.Config,
	store StockListStore,
	quoteApi QuoteApi,
	cache Cache,
	reportGenerator ReportGenerator,
	cloudStorage CloudStorage,
) *TrackerService {
	return &TrackerService{
		cfg:             cfg,
		store:           store,
		quoteApi:        quoteApi,
		cache:           cache,
		reportGenerator: reportGenerator,
		cloudStorage:    cloudStorage,
		activeStocks:    []model.Stock{},
		watchStocks:     []model.Stock{},
	}
}

// Snapshot возвращает копию последних загруженных списков без обращения к хранилищу
func (s *TrackerService) Snapshot() model.Lists {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return model.Lists{
		Active: append([]model.Stock{}, s.activeStocks...),
		Watch:  append([]model.Stock{}, s.watchStocks...),
	}
}

func (s *TrackerService) setSnapshot(lists model.Lists) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.activeStocks = lists.Active
	s.watchStocks = lists.Watch
}

// LoadStocks загружает оба списка параллельно, затем обновляет цены всех акций.
// Если список загрузить не удалось, остается его предыдущее содержимое.
func (s *TrackerService) LoadStocks(ctx context.Context) model.Lists {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "TrackerService.LoadStocks"

	slog.Debug("LoadStocks start", slog.String("rqID", rqID), slog.String("op", op))

	lists := s.Snapshot()
	fetched := make([][]model.Stock, len(model.ListTypes))
	fetchErrs := make([]error, len(model.ListTypes))

	g := errgroup.Group{}
	for i, listType := range model.ListTypes {
		g.Go(func() error {
			fetched[i], fetchErrs[i] = s.store.GetList(ctx, listType)
			return nil
		})
	}
	_ = g.Wait()

	for i, listType := range model.ListTypes {
		if fetchErrs[i] != nil {
			slog.Error(
				"can't load list, keep previous contents",
				slog.String("rqID", rqID),
				slog.String("op", op),
				slog.String("listType", listType.String()),
				slog.String("err", fetchErrs[i].Error()),
			)
			continue
		}
		if listType == model.ListTypeActive {
			lists.Active = fetched[i]
		} else {
			lists.Watch = fetched[i]
		}
	}

	refreshed := s.UpdateStockPrices(ctx, lists.All())
	activeLen := len(lists.Active)
	lists = model.Lists{
		Active: refreshed[:activeLen:activeLen],
		Watch:  refreshed[activeLen:],
	}

	s.setSnapshot(lists)

	slog.Debug(
		"LoadStocks completed",
		slog.String("rqID", rqID),
		slog.String("op", op),
		slog.Int("active", len(lists.Active)),
		slog.Int("watch", len(lists.Watch)),
	)

	return s.Snapshot()
}

// UpdateStockPrices обновляет цены параллельно и дожидается всех запросов.
// Результат i соответствует stocks[i], при ошибке остается старая цена.
func (s *TrackerService) UpdateStockPrices(ctx context.Context, stocks []model.Stock) []model.Stock {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "TrackerService.UpdateStockPrices"

	results := make([]model.Stock, len(stocks))

	g := errgroup.Group{}
	if limit := s.cfg.Tracker.PriceRefreshConcurrency; limit > 0 {
		g.SetLimit(limit)
	}

	for i, stock := range stocks {
		g.Go(func() error {
			updated, err := s.store.UpdateStockPrice(ctx, stock)
			if err != nil {
				slog.Warn("price refresh failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("ticker", stock.Ticker), slog.String("err", err.Error()))
			}
			results[i] = updated
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (s *TrackerService) AddStock(ctx context.Context, form model.StockForm) (lists model.Lists, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "TrackerService.AddStock"

	slog.Debug("AddStock start", slog.String("rqID", rqID), slog.String("op", op), slog.String("ticker", form.Ticker), slog.String("listType", form.ListType.String()))
	defer func() {
		if err != nil {
			slog.Warn("AddStock failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("AddStock completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	form, err = form.Validate()
	if err != nil {
		return model.Lists{}, err
	}

	_, err = s.store.SearchAndAddStocks(ctx, form.Ticker, form.ListType)
	if err != nil {
		return model.Lists{}, err
	}

	return s.LoadStocks(ctx), nil
}

// MoveStock переносит акцию в противоположный список
func (s *TrackerService) MoveStock(ctx context.Context, stockID int64, from model.ListType) (model.Lists, error) {
	stock, err := s.store.GetStock(ctx, stockID)
	if err != nil {
		return model.Lists{}, err
	}

	err = s.store.MoveStock(ctx, stock, from, from.Other())
	if err != nil {
		return model.Lists{}, err
	}

	return s.LoadStocks(ctx), nil
}

func (s *TrackerService) DeleteStock(ctx context.Context, stockID int64) (model.Lists, error) {
	stock, err := s.store.GetStock(ctx, stockID)
	if err != nil {
		return model.Lists{}, err
	}

	err = s.store.DeleteStock(ctx, stock)
	if err != nil {
		return model.Lists{}, err
	}

	return s.LoadStocks(ctx), nil
}

// SetRank сохраняет ранг и обновляет акцию в снимке без перезагрузки цен
func (s *TrackerService) SetRank(ctx context.Context, stockID int64, rank model.Rank) (model.Lists, error) {
	stock, err := s.store.GetStock(ctx, stockID)
	if err != nil {
		return model.Lists{}, err
	}

	stock, err = s.store.SetRank(ctx, stock, rank)
	if err != nil {
		return model.Lists{}, err
	}

	s.mu.Lock()
	for _, list := range [][]model.Stock{s.activeStocks, s.watchStocks} {
		for i := range list {
			if list[i].ID == stock.ID {
				list[i].Rank = stock.Rank
			}
		}
	}
	s.mu.Unlock()

	return s.Snapshot(), nil
}

// MoveStockUp меняет акцию местами с предыдущей в списке
func (s *TrackerService) MoveStockUp(ctx context.Context, stockID int64, listType model.ListType) (model.Lists, error) {
	stocks, err := s.store.MoveStockUp(ctx, stockID, listType)
	if err != nil {
		return model.Lists{}, err
	}

	// цены в снимке свежее, чем в БД, поэтому переставляем сам снимок
	s.mu.Lock()
	current := s.watchStocks
	if listType == model.ListTypeActive {
		current = s.activeStocks
	}
	byID := make(map[int64]model.Stock, len(current))
	for _, stock := range current {
		byID[stock.ID] = stock
	}
	reordered := make([]model.Stock, 0, len(stocks))
	for _, stock := range stocks {
		if cached, ok := byID[stock.ID]; ok {
			stock = cached
		}
		reordered = append(reordered, stock)
	}
	if listType == model.ListTypeActive {
		s.activeStocks = reordered
	} else {
		s.watchStocks = reordered
	}
	s.mu.Unlock()

	return s.Snapshot(), nil
}

// Search ищет акции в удаленном сервисе и для каждой строки параллельно
// запрашивает цену и принадлежность к спискам
func (s *TrackerService) Search(ctx context.Context, text string) (results []model.SearchResult, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "TrackerService.Search"

	text = strings.TrimSpace(text)
	if text == "" {
		return []model.SearchResult{}, nil
	}

	slog.Debug("Search start", slog.String("rqID", rqID), slog.String("op", op), slog.String("text", text))
	defer func() {
		if err != nil {
			slog.Error("Search failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("Search completed", slog.String("rqID", rqID), slog.String("op", op), slog.Int("results", len(results)))
		}
	}()

	found, err := s.quoteApi.Search(ctx, text)
	if err != nil {
		return nil, err
	}

	if limit := s.cfg.Tracker.SearchResultsLimit; limit > 0 && len(found) > limit {
		found = found[:limit]
	}

	results = make([]model.SearchResult, len(found))

	g := errgroup.Group{}
	for i, stock := range found {
		results[i].Stock = stock

		g.Go(func() error {
			if !stock.HasPerformanceID() {
				return nil
			}
			price, err := s.quoteApi.FetchPrice(ctx, stock.PerformanceID)
			if err != nil {
				slog.Warn("can't fetch price for search row", slog.String("rqID", rqID), slog.String("op", op), slog.String("ticker", stock.Ticker), slog.String("err", err.Error()))
				return nil
			}
			results[i].Price = &price
			return nil
		})

		g.Go(func() error {
			results[i].Membership = s.membership(ctx, stock.Ticker)
			return nil
		})
	}
	_ = g.Wait()

	return results, nil
}

func (s *TrackerService) membership(ctx context.Context, ticker string) model.Membership {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "TrackerService.membership"

	inActive, err := s.store.IsStockInList(ctx, ticker, model.ListTypeActive)
	if err != nil {
		slog.Warn("can't check active list", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
	}
	if inActive {
		return model.MembershipActive
	}

	inWatch, err := s.store.IsStockInList(ctx, ticker, model.ListTypeWatch)
	if err != nil {
		slog.Warn("can't check watch list", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
	}
	if inWatch {
		return model.MembershipWatch
	}

	return model.MembershipNone
}

// SetMembership приводит принадлежность акции из результатов поиска к target
func (s *TrackerService) SetMembership(ctx context.Context, ticker, performanceID string, target model.Membership) (lists model.Lists, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "TrackerService.SetMembership"

	slog.Debug("SetMembership start", slog.String("rqID", rqID), slog.String("op", op), slog.String("ticker", ticker), slog.String("target", string(target)))
	defer func() {
		if err != nil {
			slog.Error("SetMembership failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("SetMembership completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	if target == model.MembershipNone {
		for _, listType := range model.ListTypes {
			err = s.store.RemoveFromList(ctx, model.Stock{Ticker: ticker}, listType)
			if err != nil {
				return model.Lists{}, err
			}
		}
		return s.LoadStocks(ctx), nil
	}

	found, err := s.quoteApi.Search(ctx, ticker)
	if err != nil {
		return model.Lists{}, err
	}

	remote, ok := pickSearchResult(found, ticker, performanceID)
	if !ok {
		return model.Lists{}, service.ErrNotFound
	}

	if remote.HasPerformanceID() {
		remote.Price, err = s.quoteApi.FetchPrice(ctx, remote.PerformanceID)
		if err != nil {
			return model.Lists{}, fmt.Errorf("fetch price: %w", err)
		}
	}

	stock, err := s.store.FindOrCreateStock(ctx, remote)
	if err != nil {
		return model.Lists{}, err
	}

	targetList := model.ListTypeActive
	if target == model.MembershipWatch {
		targetList = model.ListTypeWatch
	}

	inTarget, err := s.store.IsStockInList(ctx, stock.Ticker, targetList)
	if err != nil {
		return model.Lists{}, err
	}
	inOther, err := s.store.IsStockInList(ctx, stock.Ticker, targetList.Other())
	if err != nil {
		return model.Lists{}, err
	}

	switch {
	case inOther:
		err = s.store.MoveStock(ctx, stock, targetList.Other(), targetList)
	case !inTarget:
		err = s.store.AddToList(ctx, stock, targetList)
	}
	if err != nil {
		return model.Lists{}, err
	}

	return s.LoadStocks(ctx), nil
}

func pickSearchResult(found []model.Stock, ticker, performanceID string) (model.Stock, bool) {
	if len(found) == 0 {
		return model.Stock{}, false
	}
	for _, stock := range found {
		if performanceID != "" && stock.PerformanceID == performanceID {
			return stock, true
		}
	}
	for _, stock := range found {
		if strings.EqualFold(stock.Ticker, ticker) {
			return stock, true
		}
	}
	return found[0], true
}

// GetMarketMovers берет лидеров рынка из кэша, при промахе идет в api.
// Одновременные промахи объединяются в один запрос.
func (s *TrackerService) GetMarketMovers(ctx context.Context) (model.MarketMovers, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "TrackerService.GetMarketMovers"

	movers, err := s.cache.GetMarketMovers(ctx)
	if err == nil {
		return movers, nil
	}

	if !errors.Is(err, cache.ErrNotFound) {
		slog.Warn("can't get movers from cache", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
	}

	res, err, shared := s.moversGroup.Do(moversKey, func() (any, error) {
		return s.fetchAndCacheMovers(context.WithoutCancel(ctx))
	})
	if err != nil {
		return model.MarketMovers{}, err
	}

	slog.Debug("got movers from api", slog.String("rqID", rqID), slog.String("op", op), slog.Bool("shared", shared))

	return res.(model.MarketMovers), nil
}

func (s *TrackerService) fetchAndCacheMovers(ctx context.Context) (model.MarketMovers, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "TrackerService.fetchAndCacheMovers"

	movers, err := s.quoteApi.GetMarketMovers(ctx)
	if err != nil {
		return model.MarketMovers{}, err
	}

	err = s.cache.SetMarketMovers(ctx, movers)
	if err != nil {
		slog.Error("can't set movers to cache", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
	}

	return movers, nil
}

// RefreshPrices - задача планировщика для фонового обновления цен
func (s *TrackerService) RefreshPrices(ctx context.Context) error {
	lists := s.LoadStocks(ctx)
	slog.Info(
		"prices refreshed",
		slog.String("rqID", utils.GetRequestIDFromCtx(ctx)),
		slog.Int("active", len(lists.Active)),
		slog.Int("watch", len(lists.Watch)),
	)
	return nil
}

// FillMoversCache - задача планировщика для прогрева кэша лидеров рынка
func (s *TrackerService) FillMoversCache(ctx context.Context) error {
	_, err, _ := s.moversGroup.Do(moversKey, func() (any, error) {
		return s.fetchAndCacheMovers(ctx)
	})
	return err
}

// ExportLists формирует xlsx с обоими списками.
// Если файл больше лимита телеграма, он загружается в облако и возвращается ссылка.
func (s *TrackerService) ExportLists(ctx context.Context) (report model.Report, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "TrackerService.ExportLists"

	slog.Debug("ExportLists start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		if err != nil {
			slog.Error("ExportLists failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("ExportLists completed", slog.String("rqID", rqID), slog.String("op", op), slog.String("fileName", report.FileName))
		}
	}()

	lists := model.Lists{}
	lists.Active, err = s.store.GetList(ctx, model.ListTypeActive)
	if err != nil {
		return model.Report{}, err
	}
	lists.Watch, err = s.store.GetList(ctx, model.ListTypeWatch)
	if err != nil {
		return model.Report{}, err
	}

	content, ext, err := s.reportGenerator.Generate(ctx, lists)
	if err != nil {
		return model.Report{}, err
	}

	report = model.Report{
		FileName: fmt.Sprintf("stocks_%s%s", time.Now().Format("2006-01-02_15-04-05"), ext),
		Content:  content,
	}

	if len(content) <= s.cfg.Telegram.FileLimitInBytes || s.cloudStorage == nil {
		return report, nil
	}

	slog.Info("report exceeds telegram file limit, uploading to cloud", slog.String("rqID", rqID), slog.String("op", op), slog.Int("size", len(content)))

	report.DownloadLink, err = s.cloudStorage.UploadFile(ctx, bytes.NewReader(content), report.FileName)
	if err != nil {
		return model.Report{}, err
	}
	report.Content = nil

	return report, nil
}
