package model

import "github.com/shopspring/decimal"

type Mover struct {
	Exchange         string          `json:"exchange"`
	LastPrice        decimal.Decimal `json:"lastPrice"`
	NetChange        decimal.Decimal `json:"netChange"`
	PerformanceID    string          `json:"performanceID"`
	Name             string          `json:"name"`
	Ticker           string          `json:"ticker"`
	Volume           int64           `json:"volume"`
	PercentNetChange decimal.Decimal `json:"percentNetChange"`
}

type MarketMovers struct {
	Actives []Mover `json:"actives"`
	Gainers []Mover `json:"gainers"`
	Losers  []Mover `json:"losers"`
}
