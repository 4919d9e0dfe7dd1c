package quoteApi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/KotFed0t/stocks_tracker_bot/config"
	"github.com/KotFed0t/stocks_tracker_bot/internal/converter/quoteConverter"
	"github.com/KotFed0t/stocks_tracker_bot/internal/externalApi"
	"github.com/KotFed0t/stocks_tracker_bot/internal/model"
	"github.com/KotFed0t/stocks_tracker_bot/internal/model/quoteModel"
	"github.com/KotFed0t/stocks_tracker_bot/utils"
	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

const (
	searchUrl       = "/market/v2/auto-complete"
	realTimeDataUrl = "/stock/v2/get-realtime-data"
	moversUrl       = "/market/v2/get-movers"
)

type QuoteApi struct {
	client *resty.Client
}

func New(cfg *config.Config) *QuoteApi {
	client := resty.New().
		SetDebug(cfg.API.Debug).
		SetTimeout(cfg.API.Timeout).
		SetBaseURL(cfg.API.QuoteApi.Url).
		SetHeader("x-rapidapi-key", cfg.API.QuoteApi.Key).
		SetHeader("x-rapidapi-host", cfg.API.QuoteApi.Host)
	return &QuoteApi{client: client}
}

// Search ищет акции по тексту (тикер или часть названия)
func (a *QuoteApi) Search(ctx context.Context, symbolText string) ([]model.Stock, error) {
	rqId := utils.GetRequestIDFromCtx(ctx)
	op := "QuoteApi.Search"

	symbolText = strings.TrimSpace(symbolText)
	if symbolText == "" {
		return nil, externalApi.ErrInvalidURL
	}

	slog.Debug("start QuoteApi.Search request", slog.String("rqID", rqId), slog.String("symbol", symbolText))

	rawResponse := quoteModel.SearchResponse{}
	err := a.get(ctx, op, searchUrl, map[string]string{"q": symbolText}, &rawResponse)
	if err != nil {
		return nil, err
	}

	slog.Debug("QuoteApi.Search request complete", slog.String("rqID", rqId), slog.Int("count", len(rawResponse.Results)))

	return quoteConverter.ConvertSearchStocks(rawResponse.Results), nil
}

// FetchPrice возвращает последнюю цену сделки по performanceID
func (a *QuoteApi) FetchPrice(ctx context.Context, performanceID string) (decimal.Decimal, error) {
	rqId := utils.GetRequestIDFromCtx(ctx)
	op := "QuoteApi.FetchPrice"

	if strings.TrimSpace(performanceID) == "" {
		return decimal.Decimal{}, externalApi.ErrInvalidURL
	}

	slog.Debug("start QuoteApi.FetchPrice request", slog.String("rqID", rqId), slog.String("performanceID", performanceID))

	rawResponse := quoteModel.RealTimeDataResponse{}
	err := a.get(ctx, op, realTimeDataUrl, map[string]string{"performanceId": performanceID}, &rawResponse)
	if err != nil {
		return decimal.Decimal{}, err
	}

	if rawResponse.LastPrice == nil {
		slog.Error("lastPrice is absent in response", slog.String("rqID", rqId), slog.String("op", op))
		return decimal.Decimal{}, fmt.Errorf("%w: lastPrice is absent", externalApi.ErrNoData)
	}

	slog.Debug("QuoteApi.FetchPrice request complete", slog.String("rqID", rqId), slog.String("price", rawResponse.LastPrice.String()))

	return *rawResponse.LastPrice, nil
}

func (a *QuoteApi) GetMarketMovers(ctx context.Context) (model.MarketMovers, error) {
	rqId := utils.GetRequestIDFromCtx(ctx)
	op := "QuoteApi.GetMarketMovers"

	slog.Debug("start QuoteApi.GetMarketMovers request", slog.String("rqID", rqId))

	rawResponse := quoteModel.MarketMoversResponse{}
	err := a.get(ctx, op, moversUrl, nil, &rawResponse)
	if err != nil {
		return model.MarketMovers{}, err
	}

	slog.Debug("QuoteApi.GetMarketMovers request complete", slog.String("rqID", rqId))

	return quoteConverter.ConvertMarketMovers(rawResponse), nil
}

func (a *QuoteApi) get(ctx context.Context, op, url string, params map[string]string, dst any) error {
	rqId := utils.GetRequestIDFromCtx(ctx)

	resp, err := a.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		SetQueryParams(params).
		Get(url)

	if err != nil {
		slog.Error("error while dialing QuoteApi", slog.String("err", err.Error()), slog.String("rqID", rqId), slog.String("op", op))
		return err
	}

	if resp.IsError() {
		slog.Error(
			"QuoteApi responded with error status",
			slog.String("rqID", rqId),
			slog.String("op", op),
			slog.Int("status", resp.StatusCode()),
			slog.String("body", resp.String()),
		)
		return fmt.Errorf("%w: %d", externalApi.ErrBadStatus, resp.StatusCode())
	}

	if len(resp.Body()) == 0 {
		slog.Error("QuoteApi responded with empty body", slog.String("rqID", rqId), slog.String("op", op))
		return externalApi.ErrNoData
	}

	err = json.Unmarshal(resp.Body(), dst)
	if err != nil {
		slog.Error("can't unmarshall QuoteApi response", slog.String("err", err.Error()), slog.String("rqID", rqId), slog.String("op", op))
		return fmt.Errorf("decode %s response: %w", url, err)
	}

	return nil
}
