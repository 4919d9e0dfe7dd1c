package stockListService

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/KotFed0t/stocks_tracker_bot/data/repository"
	"github.com/KotFed0t/stocks_tracker_bot/internal/model"
	"github.com/shopspring/decimal"
)

type txCtxKey struct{}

// fakeRepo хранит данные в памяти, транзакция откатывается к снимку состояния
type fakeRepo struct {
	mu sync.Mutex

	nextStockID int64
	nextListID  int64
	stocks      map[int64]model.Stock
	lists       map[model.ListType]int64
	items       map[int64][]int64

	writes      int
	listCreates int

	appendErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		stocks: make(map[int64]model.Stock),
		lists:  make(map[model.ListType]int64),
		items:  make(map[int64][]int64),
	}
}

type repoSnapshot struct {
	nextStockID int64
	nextListID  int64
	stocks      map[int64]model.Stock
	lists       map[model.ListType]int64
	items       map[int64][]int64
}

func (r *fakeRepo) snapshot() repoSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := repoSnapshot{
		nextStockID: r.nextStockID,
		nextListID:  r.nextListID,
		stocks:      make(map[int64]model.Stock, len(r.stocks)),
		lists:       make(map[model.ListType]int64, len(r.lists)),
		items:       make(map[int64][]int64, len(r.items)),
	}
	for k, v := range r.stocks {
		snap.stocks[k] = v
	}
	for k, v := range r.lists {
		snap.lists[k] = v
	}
	for k, v := range r.items {
		snap.items[k] = append([]int64(nil), v...)
	}
	return snap
}

func (r *fakeRepo) restore(snap repoSnapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextStockID = snap.nextStockID
	r.nextListID = snap.nextListID
	r.stocks = snap.stocks
	r.lists = snap.lists
	r.items = snap.items
}

func (r *fakeRepo) WithinTransaction(ctx context.Context, tFunc func(ctx context.Context) error) error {
	if ctx.Value(txCtxKey{}) != nil {
		return tFunc(ctx)
	}

	snap := r.snapshot()
	err := tFunc(context.WithValue(ctx, txCtxKey{}, true))
	if err != nil {
		r.restore(snap)
	}
	return err
}

func (r *fakeRepo) GetOrCreateList(_ context.Context, listType model.ListType) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.lists[listType]; ok {
		return id, nil
	}
	r.nextListID++
	r.lists[listType] = r.nextListID
	r.listCreates++
	r.writes++
	return r.nextListID, nil
}

func (r *fakeRepo) GetListID(_ context.Context, listType model.ListType) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.lists[listType]
	if !ok {
		return 0, repository.ErrNotFound
	}
	return id, nil
}

func (r *fakeRepo) LockList(_ context.Context, listID int64) error {
	return nil
}

func (r *fakeRepo) AppendStockToList(_ context.Context, listID, stockID int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.appendErr != nil {
		return false, r.appendErr
	}
	for _, id := range r.items[listID] {
		if id == stockID {
			return false, nil
		}
	}
	r.items[listID] = append(r.items[listID], stockID)
	r.writes++
	return true, nil
}

func (r *fakeRepo) RemoveStockFromList(_ context.Context, listID, stockID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := r.items[listID]
	for i, id := range ids {
		if id == stockID {
			r.items[listID] = append(ids[:i:i], ids[i+1:]...)
			break
		}
	}
	r.writes++
	return nil
}

func (r *fakeRepo) GetListStocks(_ context.Context, listType model.ListType) ([]model.Stock, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	listID, ok := r.lists[listType]
	if !ok {
		return nil, nil
	}
	res := make([]model.Stock, 0, len(r.items[listID]))
	for _, id := range r.items[listID] {
		res = append(res, r.stocks[id])
	}
	return res, nil
}

func (r *fakeRepo) CountListStocks(_ context.Context, listType model.ListType) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	listID, ok := r.lists[listType]
	if !ok {
		return 0, nil
	}
	return len(r.items[listID]), nil
}

func (r *fakeRepo) ReplaceListStocks(_ context.Context, listID int64, stockIDs []int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items[listID] = append([]int64(nil), stockIDs...)
	r.writes++
	return nil
}

func (r *fakeRepo) InsertStock(_ context.Context, stock model.Stock) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextStockID++
	stock.ID = r.nextStockID
	r.stocks[stock.ID] = stock
	r.writes++
	return stock.ID, nil
}

func (r *fakeRepo) GetStockByID(_ context.Context, stockID int64) (model.Stock, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stock, ok := r.stocks[stockID]
	if !ok {
		return model.Stock{}, repository.ErrNotFound
	}
	return stock, nil
}

func (r *fakeRepo) FindStocksByTicker(_ context.Context, ticker string) ([]model.Stock, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var res []model.Stock
	for _, stock := range r.stocks {
		if stock.Ticker == ticker {
			res = append(res, stock)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

func (r *fakeRepo) UpdateStockPrice(_ context.Context, stockID int64, price decimal.Decimal) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stock, ok := r.stocks[stockID]
	if !ok {
		return repository.ErrNotFound
	}
	stock.Price = price
	r.stocks[stockID] = stock
	r.writes++
	return nil
}

func (r *fakeRepo) UpdateStockRank(_ context.Context, stockID int64, rank model.Rank) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stock, ok := r.stocks[stockID]
	if !ok {
		return repository.ErrNotFound
	}
	stock.Rank = rank
	r.stocks[stockID] = stock
	r.writes++
	return nil
}

func (r *fakeRepo) DeleteStock(_ context.Context, stockID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.stocks[stockID]; !ok {
		return repository.ErrNotFound
	}
	delete(r.stocks, stockID)
	for listID, ids := range r.items {
		for i, id := range ids {
			if id == stockID {
				r.items[listID] = append(ids[:i:i], ids[i+1:]...)
				break
			}
		}
	}
	r.writes++
	return nil
}

func (r *fakeRepo) writeCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.writes
}

func (r *fakeRepo) stockCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.stocks)
}

var errPriceUnavailable = errors.New("price unavailable")

type fakeQuoteApi struct {
	searchResults map[string][]model.Stock
	prices        map[string]decimal.Decimal

	searchCalls atomic.Int32
	priceCalls  atomic.Int32
}

func (q *fakeQuoteApi) Search(_ context.Context, symbolText string) ([]model.Stock, error) {
	q.searchCalls.Add(1)
	return q.searchResults[symbolText], nil
}

func (q *fakeQuoteApi) FetchPrice(_ context.Context, performanceID string) (decimal.Decimal, error) {
	q.priceCalls.Add(1)
	price, ok := q.prices[performanceID]
	if !ok {
		return decimal.Decimal{}, errPriceUnavailable
	}
	return price, nil
}
