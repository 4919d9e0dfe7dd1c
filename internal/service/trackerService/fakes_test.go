package trackerService

import (
	"context"
	"errors"
	"io"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/KotFed0t/stocks_tracker_bot/data/cache"
	"github.com/KotFed0t/stocks_tracker_bot/internal/model"
	"github.com/KotFed0t/stocks_tracker_bot/internal/service"
	"github.com/shopspring/decimal"
)

var errUnavailable = errors.New("unavailable")

type fakeStore struct {
	mu         sync.Mutex
	nextID     int64
	stocks     map[int64]model.Stock
	lists      map[model.ListType][]int64
	getListErr map[model.ListType]error

	prices     map[string]decimal.Decimal
	priceDelay time.Duration
	priceCalls atomic.Int32
	inFlight   atomic.Int32
	maxFlight  atomic.Int32
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		stocks:     make(map[int64]model.Stock),
		lists:      make(map[model.ListType][]int64),
		getListErr: make(map[model.ListType]error),
		prices:     make(map[string]decimal.Decimal),
	}
}

func (f *fakeStore) seed(listType model.ListType, stock model.Stock) model.Stock {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.nextID++
	stock.ID = f.nextID
	f.stocks[stock.ID] = stock
	f.lists[listType] = append(f.lists[listType], stock.ID)
	return stock
}

func (f *fakeStore) AddToList(_ context.Context, stock model.Stock, listType model.ListType) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, id := range f.lists[listType] {
		if id == stock.ID {
			return nil
		}
	}
	f.lists[listType] = append(f.lists[listType], stock.ID)
	return nil
}

func (f *fakeStore) RemoveFromList(_ context.Context, stock model.Stock, listType model.ListType) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	ids := f.lists[listType]
	for i, id := range ids {
		if f.stocks[id].Ticker == stock.Ticker {
			f.lists[listType] = append(ids[:i:i], ids[i+1:]...)
			return nil
		}
	}
	return nil
}

func (f *fakeStore) MoveStock(ctx context.Context, stock model.Stock, from, to model.ListType) error {
	if err := f.RemoveFromList(ctx, stock, from); err != nil {
		return err
	}
	return f.AddToList(ctx, stock, to)
}

func (f *fakeStore) GetList(_ context.Context, listType model.ListType) ([]model.Stock, error) {
	time.Sleep(5 * time.Millisecond)

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.getListErr[listType]; err != nil {
		return nil, err
	}
	res := make([]model.Stock, 0, len(f.lists[listType]))
	for _, id := range f.lists[listType] {
		res = append(res, f.stocks[id])
	}
	return res, nil
}

func (f *fakeStore) IsStockInList(ctx context.Context, ticker string, listType model.ListType) (bool, error) {
	stocks, err := f.GetList(ctx, listType)
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

func (f *fakeStore) SearchAndAddStocks(ctx context.Context, symbol string, listType model.ListType) (model.Stock, error) {
	stock, err := f.FindOrCreateStock(ctx, model.Stock{Ticker: symbol})
	if err != nil {
		return model.Stock{}, err
	}
	return stock, f.AddToList(ctx, stock, listType)
}

func (f *fakeStore) UpdateStockPrice(_ context.Context, stock model.Stock) (model.Stock, error) {
	if !stock.HasPerformanceID() {
		return stock, nil
	}

	f.priceCalls.Add(1)
	cur := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		prev := f.maxFlight.Load()
		if cur <= prev || f.maxFlight.CompareAndSwap(prev, cur) {
			break
		}
	}

	time.Sleep(f.priceDelay)

	f.mu.Lock()
	defer f.mu.Unlock()

	price, ok := f.prices[stock.PerformanceID]
	if !ok {
		return stock, errUnavailable
	}
	stock.Price = price
	if stored, ok := f.stocks[stock.ID]; ok {
		stored.Price = price
		f.stocks[stock.ID] = stored
	}
	return stock, nil
}

func (f *fakeStore) SetRank(_ context.Context, stock model.Stock, rank model.Rank) (model.Stock, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	stock.Rank = rank
	f.stocks[stock.ID] = stock
	return stock, nil
}

func (f *fakeStore) MoveStockUp(_ context.Context, stockID int64, listType model.ListType) ([]model.Stock, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	ids := f.lists[listType]
	idx := slices.Index(ids, stockID)
	if idx == -1 {
		return nil, service.ErrNotFound
	}
	if idx > 0 {
		ids[idx-1], ids[idx] = ids[idx], ids[idx-1]
	}

	stocks := make([]model.Stock, 0, len(ids))
	for _, id := range ids {
		stocks = append(stocks, f.stocks[id])
	}
	return stocks, nil
}

func (f *fakeStore) DeleteStock(_ context.Context, stock model.Stock) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.stocks[stock.ID]; !ok {
		return service.ErrNotFound
	}
	delete(f.stocks, stock.ID)
	for listType, ids := range f.lists {
		for i, id := range ids {
			if id == stock.ID {
				f.lists[listType] = append(ids[:i:i], ids[i+1:]...)
				break
			}
		}
	}
	return nil
}

func (f *fakeStore) GetStock(_ context.Context, stockID int64) (model.Stock, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	stock, ok := f.stocks[stockID]
	if !ok {
		return model.Stock{}, service.ErrNotFound
	}
	return stock, nil
}

func (f *fakeStore) FindOrCreateStock(_ context.Context, remote model.Stock) (model.Stock, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for id := int64(1); id <= f.nextID; id++ {
		if stock, ok := f.stocks[id]; ok && stock.Ticker == remote.Ticker {
			return stock, nil
		}
	}
	f.nextID++
	remote.ID = f.nextID
	f.stocks[remote.ID] = remote
	return remote, nil
}

type fakeQuoteApi struct {
	searchResults map[string][]model.Stock
	prices        map[string]decimal.Decimal
	movers        model.MarketMovers
	moversRelease chan struct{}

	searchCalls atomic.Int32
	priceCalls  atomic.Int32
	moversCalls atomic.Int32
}

func (q *fakeQuoteApi) Search(_ context.Context, symbolText string) ([]model.Stock, error) {
	q.searchCalls.Add(1)
	return q.searchResults[symbolText], nil
}

func (q *fakeQuoteApi) FetchPrice(_ context.Context, performanceID string) (decimal.Decimal, error) {
	q.priceCalls.Add(1)
	price, ok := q.prices[performanceID]
	if !ok {
		return decimal.Decimal{}, errUnavailable
	}
	return price, nil
}

func (q *fakeQuoteApi) GetMarketMovers(_ context.Context) (model.MarketMovers, error) {
	q.moversCalls.Add(1)
	if q.moversRelease != nil {
		<-q.moversRelease
	}
	return q.movers, nil
}

type fakeCache struct {
	mu     sync.Mutex
	movers *model.MarketMovers
}

func (c *fakeCache) GetMarketMovers(_ context.Context) (model.MarketMovers, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.movers == nil {
		return model.MarketMovers{}, cache.ErrNotFound
	}
	return *c.movers, nil
}

func (c *fakeCache) SetMarketMovers(_ context.Context, movers model.MarketMovers) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.movers = &movers
	return nil
}

type fakeGenerator struct {
	size  int
	lists model.Lists
}

func (g *fakeGenerator) Generate(_ context.Context, lists model.Lists) ([]byte, string, error) {
	g.lists = lists
	return make([]byte, g.size), ".xlsx", nil
}

type fakeCloud struct {
	uploaded []string
	sizes    []int
}

func (c *fakeCloud) UploadFile(_ context.Context, reader io.Reader, filename string) (string, error) {
	content, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}
	c.uploaded = append(c.uploaded, filename)
	c.sizes = append(c.sizes, len(content))
	return "https://drive.example/" + filename, nil
}
