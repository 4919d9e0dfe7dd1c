package quoteModel

import "github.com/shopspring/decimal"

type SearchResponse struct {
	Count   int           `json:"count"`
	Pages   int           `json:"pages"`
	Results []SearchStock `json:"results"`
}

type SearchStock struct {
	Name          string `json:"name"`
	Exchange      string `json:"exchange"`
	Ticker        string `json:"ticker"`
	PerformanceID string `json:"performanceId"`
}

type RealTimeDataResponse struct {
	LastPrice *decimal.Decimal `json:"lastPrice"`
}

type MarketMoversResponse struct {
	Actives []Mover `json:"actives"`
	Gainers []Mover `json:"gainers"`
	Losers  []Mover `json:"losers"`
}

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
