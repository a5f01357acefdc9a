package briefing

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"
	_ "time/tzdata" // snapshot zone must resolve on hosts without zoneinfo

	"github.com/bryan-buckman/iantel/internal/model"
	"github.com/bryan-buckman/iantel/internal/rss"
	"go.opentelemetry.io/otel/attribute"
)

const (
	// DefaultPriceEndpoint lists the top assets by market cap, in USD.
	DefaultPriceEndpoint = "https://api.coingecko.com/api/v3/coins/markets?vs_currency=usd&order=market_cap_desc&per_page=8&page=1&sparkline=false&price_change_percentage=24h"
	// DefaultPriceCount is the number of assets kept in the snapshot.
	DefaultPriceCount = 8
	// DefaultTimezone is the zone the snapshot timestamp is rendered in.
	DefaultTimezone = "Australia/Sydney"
	// LocalTimeLayout mimics the en-AU locale's date and time rendering.
	LocalTimeLayout = "02/01/2006, 3:04:05 pm"
)

// PriceFetcher builds the price snapshot from a market-data endpoint.
type PriceFetcher struct {
	fetcher  *rss.Fetcher
	endpoint string
	count    int
	loc      *time.Location
}

// NewPriceFetcher creates a price fetcher. An unknown timezone falls back to UTC.
func NewPriceFetcher(fetcher *rss.Fetcher, endpoint string, count int, timezone string) *PriceFetcher {
	if endpoint == "" {
		endpoint = DefaultPriceEndpoint
	}
	if count <= 0 {
		count = DefaultPriceCount
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		slog.Warn("Unknown snapshot timezone, using UTC", "timezone", timezone, "error", err)
		loc = time.UTC
	}
	return &PriceFetcher{fetcher: fetcher, endpoint: endpoint, count: count, loc: loc}
}

type marketAsset struct {
	Symbol             string   `json:"symbol"`
	CurrentPrice       *float64 `json:"current_price"`
	Change24h          *float64 `json:"price_change_percentage_24h"`
	Change24hInCurrent *float64 `json:"price_change_percentage_24h_in_currency"`
	MarketCap          *float64 `json:"market_cap"`
}

// Snapshot fetches current prices. Any failure yields an empty item list;
// the timestamp is always set.
func (p *PriceFetcher) Snapshot(ctx context.Context, now time.Time) model.Snapshot {
	ctx, span := tracer.Start(ctx, "prices.snapshot")
	defer span.End()

	snap := model.Snapshot{
		UpdatedLocal: now.In(p.loc).Format(LocalTimeLayout),
		Items:        []model.PriceRow{},
	}

	body, err := p.fetcher.GetJSON(ctx, p.endpoint)
	if err != nil {
		slog.Warn("price snapshot unavailable", "url", p.endpoint, "error", err)
		return snap
	}
	rows, err := ParseMarkets(body, p.count)
	if err != nil {
		slog.Warn("price snapshot unreadable", "url", p.endpoint, "error", err)
		return snap
	}
	snap.Items = rows
	span.SetAttributes(attribute.Int("assets", len(rows)))
	return snap
}

// ParseMarkets decodes a markets array into at most count price rows.
// Null entries and assets without a symbol are skipped.
func ParseMarkets(body []byte, count int) ([]model.PriceRow, error) {
	var assets []marketAsset
	if err := json.Unmarshal(body, &assets); err != nil {
		return nil, err
	}

	rows := make([]model.PriceRow, 0, len(assets))
	for _, a := range assets {
		if len(rows) >= count {
			break
		}
		symbol := strings.ToUpper(strings.TrimSpace(a.Symbol))
		if symbol == "" {
			continue
		}
		var change float64
		switch {
		case a.Change24h != nil && *a.Change24h != 0:
			change = *a.Change24h
		case a.Change24hInCurrent != nil:
			change = *a.Change24hInCurrent
		}
		rows = append(rows, model.PriceRow{
			Symbol:       symbol,
			PriceUSD:     a.CurrentPrice,
			Change24h:    change,
			MarketCapUSD: a.MarketCap,
		})
	}
	return rows, nil
}
