package xlsxGenerator

import (
	"bytes"
	"context"
	"testing"

	"github.com/KotFed0t/stocks_tracker_bot/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestGenerate(t *testing.T) {
	lists := model.Lists{
		Active: []model.Stock{
			{Ticker: "AAPL", Name: "Apple Inc", Exchange: "XNAS", Price: decimal.RequireFromString("189.84"), Rank: model.RankHot},
			{Ticker: "MSFT", Name: "Microsoft Corp", Exchange: "XNAS", Price: decimal.RequireFromString("410.5")},
		},
		Watch: []model.Stock{
			{Ticker: "NVDA", Name: "NVIDIA Corp", Exchange: "XNAS", Price: decimal.RequireFromString("120"), Rank: model.RankVeryHot},
		},
	}

	content, ext, err := New().Generate(context.Background(), lists)
	require.NoError(t, err)
	assert.Equal(t, ".xlsx", ext)

	f, err := excelize.OpenReader(bytes.NewReader(content))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Active", "Watch"}, f.GetSheetList())

	title, err := f.GetCellValue("Active", "A1")
	require.NoError(t, err)
	assert.Equal(t, "Active (2)", title)

	ticker, err := f.GetCellValue("Active", "B4")
	require.NoError(t, err)
	assert.Equal(t, "MSFT", ticker)

	price, err := f.GetCellValue("Active", "E3")
	require.NoError(t, err)
	assert.Equal(t, "189.84", price)

	rank, err := f.GetCellValue("Watch", "F3")
	require.NoError(t, err)
	assert.Equal(t, "Very Hot", rank)
}

func TestGenerate_EmptyLists(t *testing.T) {
	content, _, err := New().Generate(context.Background(), model.Lists{})
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(content))
	require.NoError(t, err)
	defer f.Close()

	title, err := f.GetCellValue("Watch", "A1")
	require.NoError(t, err)
	assert.Equal(t, "Watch (0)", title)

	header, err := f.GetCellValue("Watch", "B2")
	require.NoError(t, err)
	assert.Equal(t, "Тикер", header)
}
