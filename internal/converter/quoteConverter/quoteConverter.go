package quoteConverter

import (
	"strings"

	"github.com/KotFed0t/stocks_tracker_bot/internal/model"
	"github.com/KotFed0t/stocks_tracker_bot/internal/model/quoteModel"
)

func ConvertSearchStocks(raw []quoteModel.SearchStock) []model.Stock {
	res := make([]model.Stock, 0, len(raw))
	for _, s := range raw {
		res = append(res, model.Stock{
			Ticker:        strings.ToUpper(s.Ticker),
			Name:          s.Name,
			Exchange:      s.Exchange,
			PerformanceID: s.PerformanceID,
		})
	}
	return res
}

func ConvertMarketMovers(raw quoteModel.MarketMoversResponse) model.MarketMovers {
	return model.MarketMovers{
		Actives: convertMovers(raw.Actives),
		Gainers: convertMovers(raw.Gainers),
		Losers:  convertMovers(raw.Losers),
	}
}

func convertMovers(raw []quoteModel.Mover) []model.Mover {
	res := make([]model.Mover, 0, len(raw))
	for _, m := range raw {
		res = append(res, model.Mover{
			Exchange:         m.Exchange,
			LastPrice:        m.LastPrice,
			NetChange:        m.NetChange,
			PerformanceID:    m.PerformanceID,
			Name:             m.Name,
			Ticker:           m.Ticker,
			Volume:           m.Volume,
			PercentNetChange: m.PercentNetChange,
		})
	}
	return res
}
