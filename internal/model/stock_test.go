package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseListType(t *testing.T) {
	tests := []struct {
		in      string
		want    ListType
		wantErr bool
	}{
		{in: "Active", want: ListTypeActive},
		{in: "watch", want: ListTypeWatch},
		{in: " WATCH ", want: ListTypeWatch},
		{in: "portfolio", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseListType(tt.in)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrInvalidListType, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestListTypeOther(t *testing.T) {
	assert.Equal(t, ListTypeWatch, ListTypeActive.Other())
	assert.Equal(t, ListTypeActive, ListTypeWatch.Other())
}

func TestParseRank(t *testing.T) {
	r, err := ParseRank("None")
	require.NoError(t, err)
	assert.Equal(t, RankNone, r)

	r, err = ParseRank("very hot")
	require.NoError(t, err)
	assert.Equal(t, RankVeryHot, r)

	_, err = ParseRank("lukewarm")
	assert.ErrorIs(t, err, ErrInvalidRank)

	assert.Equal(t, "None", RankNone.Label())
	assert.Equal(t, "Cold", RankCold.Label())
}

func TestStockFormValidate(t *testing.T) {
	form, err := StockForm{Ticker: " aapl ", ListType: ListTypeWatch}.Validate()
	require.NoError(t, err)
	assert.Equal(t, "AAPL", form.Ticker)

	_, err = StockForm{Ticker: "   ", ListType: ListTypeActive}.Validate()
	assert.ErrorIs(t, err, ErrEmptyTicker)

	_, err = StockForm{Ticker: "AAPL"}.Validate()
	assert.ErrorIs(t, err, ErrInvalidListType)
}

func TestListsAll(t *testing.T) {
	lists := Lists{
		Active: []Stock{{Ticker: "AAPL"}},
		Watch:  []Stock{{Ticker: "MSFT"}, {Ticker: "TSLA"}},
	}

	all := lists.All()
	require.Len(t, all, 3)
	assert.Equal(t, "AAPL", all[0].Ticker)
	assert.Equal(t, "TSLA", all[2].Ticker)
	assert.Len(t, lists.Get(ListTypeWatch), 2)
}
