// Package model defines shared data structures.
package model

import "time"

// SourceKind selects how a feed source is fetched and decoded.
type SourceKind string

const (
	KindRSS  SourceKind = "rss"
	KindJSON SourceKind = "json"
)

// MapFunc translates the raw body of a JSON source into items.
type MapFunc func(body []byte) ([]Item, error)

// FeedSource describes one upstream feed within a section.
type FeedSource struct {
	Kind   SourceKind
	URL    string
	Label  string
	Mapper string  // registry name of Map, JSON kind only
	Map    MapFunc // JSON kind only
}

// Item represents a single normalized entry from a feed.
type Item struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Published   string `json:"published,omitempty"` // YYYY-MM-DD
	Description string `json:"description"`
	Source      string `json:"source"`
}

// Key is the dedup key of an item: its URL, falling back to its title.
func (it Item) Key() string {
	if it.URL != "" {
		return it.URL
	}
	return it.Title
}

// PriceRow is one tracked asset in the price snapshot.
type PriceRow struct {
	Symbol       string   `json:"symbol"`
	PriceUSD     *float64 `json:"priceUsd"`
	Change24h    float64  `json:"change24h"`
	MarketCapUSD *float64 `json:"mcapUsd"`
}

// Snapshot is the point-in-time price table embedded in a briefing.
type Snapshot struct {
	UpdatedLocal string     `json:"updated_local"`
	Items        []PriceRow `json:"items"`
}

// Meta stamps a briefing with its build time.
type Meta struct {
	GeneratedAt time.Time `json:"generated_at"`
	Edition     int64     `json:"edition"`
}

// Messages holds the rotating personal message pools.
type Messages struct {
	Family []string `json:"family"`
	Son    []string `json:"son"`
}

// BriefingDocument is the build artifact shared by the builder and the viewer.
type BriefingDocument struct {
	Meta     Meta              `json:"meta"`
	Messages Messages          `json:"messages"`
	Snapshot Snapshot          `json:"snapshot"`
	Sections map[string][]Item `json:"sections"`
}

// Topic keys, in display order.
const (
	TopicCrypto  = "crypto"
	TopicMarkets = "markets"
	TopicBuilt   = "built"
	TopicReading = "reading"
	TopicGarden  = "garden"
	TopicEars    = "ears"
)

// Topics lists every topic in the order the viewer renders them.
var Topics = []string{TopicCrypto, TopicMarkets, TopicBuilt, TopicReading, TopicGarden, TopicEars}

// SourceStatus records the outcome of the latest fetch of one source.
type SourceStatus struct {
	Topic       string    `json:"topic"`
	Label       string    `json:"label"`
	URL         string    `json:"url"`
	LastFetched time.Time `json:"last_fetched"`
	LastError   string    `json:"last_error,omitempty"`
	ItemCount   int       `json:"item_count"`
	RunID       string    `json:"run_id"`
}

// Settings key constants.
const (
	SettingLastBuildAt = "last_build_at"
	SettingLastEdition = "last_edition"
)
