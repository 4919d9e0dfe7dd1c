package model

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidListType = errors.New("invalid list type")
	ErrInvalidRank     = errors.New("invalid rank")
	ErrEmptyTicker     = errors.New("empty ticker")
)

type ListType string

const (
	ListTypeActive ListType = "Active"
	ListTypeWatch  ListType = "Watch"
)

var ListTypes = []ListType{ListTypeActive, ListTypeWatch}

func ParseListType(s string) (ListType, error) {
	for _, lt := range ListTypes {
		if strings.EqualFold(string(lt), strings.TrimSpace(s)) {
			return lt, nil
		}
	}
	return "", ErrInvalidListType
}

// Other возвращает противоположный список
func (lt ListType) Other() ListType {
	if lt == ListTypeActive {
		return ListTypeWatch
	}
	return ListTypeActive
}

func (lt ListType) String() string {
	return string(lt)
}

type Rank string

const (
	RankNone    Rank = ""
	RankCold    Rank = "Cold"
	RankHot     Rank = "Hot"
	RankVeryHot Rank = "Very Hot"
)

var Ranks = []Rank{RankNone, RankCold, RankHot, RankVeryHot}

func ParseRank(s string) (Rank, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "None") {
		return RankNone, nil
	}
	for _, r := range Ranks[1:] {
		if strings.EqualFold(string(r), s) {
			return r, nil
		}
	}
	return RankNone, ErrInvalidRank
}

// Label отдает название для кнопок, у пустого ранга это "None"
func (r Rank) Label() string {
	if r == RankNone {
		return "None"
	}
	return string(r)
}

type Stock struct {
	ID            int64
	Ticker        string
	Name          string
	Exchange      string
	PerformanceID string
	Price         decimal.Decimal
	Rank          Rank
}

func (s Stock) HasPerformanceID() bool {
	return s.PerformanceID != ""
}

type StockList struct {
	ListType ListType
	Stocks   []Stock
}

type Lists struct {
	Active []Stock
	Watch  []Stock
}

func (l Lists) Get(listType ListType) []Stock {
	if listType == ListTypeActive {
		return l.Active
	}
	return l.Watch
}

// All возвращает объединение обоих списков: сначала active, потом watch
func (l Lists) All() []Stock {
	all := make([]Stock, 0, len(l.Active)+len(l.Watch))
	all = append(all, l.Active...)
	all = append(all, l.Watch...)
	return all
}

// StockForm - данные формы добавления акции
type StockForm struct {
	Ticker   string
	ListType ListType
}

func (f StockForm) Validate() (StockForm, error) {
	f.Ticker = strings.ToUpper(strings.TrimSpace(f.Ticker))
	if f.Ticker == "" {
		return f, ErrEmptyTicker
	}
	if f.ListType != ListTypeActive && f.ListType != ListTypeWatch {
		return f, ErrInvalidListType
	}
	return f, nil
}
