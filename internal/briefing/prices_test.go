package briefing

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/bryan-buckman/iantel/internal/rss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const marketsBody = `[
  {"symbol":"btc","current_price":67000.5,"price_change_percentage_24h":-1.25,"market_cap":1320000000000},
  {"symbol":"eth","current_price":2500,"price_change_percentage_24h":0,"price_change_percentage_24h_in_currency":2.5,"market_cap":300000000000},
  {"symbol":"usdt","current_price":null,"market_cap":null}
]`

// 2026-10-16 01:30 UTC is 12:30 pm in Sydney (AEDT, UTC+11).
var buildTime = time.Date(2026, 10, 16, 1, 30, 0, 0, time.UTC)

func TestParseMarkets(t *testing.T) {
	rows, err := ParseMarkets([]byte(marketsBody), 8)

	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "BTC", rows[0].Symbol)
	require.NotNil(t, rows[0].PriceUSD)
	assert.Equal(t, 67000.5, *rows[0].PriceUSD)
	assert.Equal(t, -1.25, rows[0].Change24h)
	assert.Equal(t, 2.5, rows[1].Change24h)
	assert.Nil(t, rows[2].PriceUSD)
	assert.Nil(t, rows[2].MarketCapUSD)
	assert.Equal(t, 0.0, rows[2].Change24h)
}

func TestParseMarkets_Count(t *testing.T) {
	rows, err := ParseMarkets([]byte(marketsBody), 2)

	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestParseMarkets_SkipsBlankAssets(t *testing.T) {
	body := `[null, {"symbol":""}, {"symbol":"  ","current_price":3}, {"symbol":"btc","current_price":1}, {"symbol":"eth"}]`

	rows, err := ParseMarkets([]byte(body), 1)

	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "BTC", rows[0].Symbol)
}

func TestPriceFetcher_Snapshot(t *testing.T) {
	url := serve(t, http.StatusOK, marketsBody)
	p := NewPriceFetcher(rss.NewFetcher(rss.Config{}), url, 8, DefaultTimezone)

	snap := p.Snapshot(context.Background(), buildTime)

	assert.Equal(t, "16/10/2026, 12:30:00 pm", snap.UpdatedLocal)
	assert.Len(t, snap.Items, 3)
}

func TestPriceFetcher_UpstreamFailure(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusBadGateway, ""},
		{"schema drift", http.StatusOK, `{"error":"rate limited"}`},
		{"garbage", http.StatusOK, `<html>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			url := serve(t, tt.status, tt.body)
			p := NewPriceFetcher(rss.NewFetcher(rss.Config{}), url, 8, DefaultTimezone)

			snap := p.Snapshot(context.Background(), buildTime)

			assert.NotNil(t, snap.Items)
			assert.Empty(t, snap.Items)
			assert.NotEmpty(t, snap.UpdatedLocal)
		})
	}
}

func TestNewPriceFetcher_UnknownZone(t *testing.T) {
	p := NewPriceFetcher(rss.NewFetcher(rss.Config{}), "", 0, "Nowhere/Special")

	assert.Equal(t, time.UTC, p.loc)
	assert.Equal(t, DefaultPriceEndpoint, p.endpoint)
	assert.Equal(t, DefaultPriceCount, p.count)
}
