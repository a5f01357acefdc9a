package sources

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/bryan-buckman/iantel/internal/model"
	"github.com/bryan-buckman/iantel/internal/textutil"
)

// Registry maps mapper names used in the catalogue to decoder functions.
type Registry map[string]model.MapFunc

// DefaultRegistry returns the built-in JSON mappers.
func DefaultRegistry() Registry {
	return Registry{
		"reddit":   MapReddit,
		"jsonfeed": MapJSONFeed,
	}
}

// Lookup returns the mapper registered under name.
func (r Registry) Lookup(name string) (model.MapFunc, bool) {
	fn, ok := r[name]
	return fn, ok && fn != nil
}

// Names returns the registered mapper names, sorted.
func (r Registry) Names() []string {
	names := make([]string, 0, len(r))
	for n := range r {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// MapReddit decodes a Reddit listing (for example /r/name/top.json).
func MapReddit(body []byte) ([]model.Item, error) {
	var listing struct {
		Data struct {
			Children []struct {
				Data struct {
					Title      string  `json:"title"`
					URL        string  `json:"url"`
					Permalink  string  `json:"permalink"`
					SelfText   string  `json:"selftext"`
					CreatedUTC float64 `json:"created_utc"`
				} `json:"data"`
			} `json:"children"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &listing); err != nil {
		return nil, fmt.Errorf("decode reddit listing: %w", err)
	}

	items := make([]model.Item, 0, len(listing.Data.Children))
	for _, c := range listing.Data.Children {
		d := c.Data
		link := d.URL
		if link == "" && d.Permalink != "" {
			link = "https://www.reddit.com" + d.Permalink
		}
		var published string
		if d.CreatedUTC > 0 {
			ts := time.Unix(int64(d.CreatedUTC), 0)
			published = textutil.ISODate(&ts)
		}
		items = append(items, model.Item{
			Title:       d.Title,
			URL:         link,
			Published:   published,
			Description: d.SelfText,
		})
	}
	return items, nil
}

// MapJSONFeed decodes a JSON Feed (https://jsonfeed.org) document.
func MapJSONFeed(body []byte) ([]model.Item, error) {
	var feed struct {
		Items []struct {
			Title         string `json:"title"`
			URL           string `json:"url"`
			ExternalURL   string `json:"external_url"`
			Summary       string `json:"summary"`
			ContentText   string `json:"content_text"`
			ContentHTML   string `json:"content_html"`
			DatePublished string `json:"date_published"`
		} `json:"items"`
	}
	if err := json.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("decode json feed: %w", err)
	}

	items := make([]model.Item, 0, len(feed.Items))
	for _, it := range feed.Items {
		link := it.URL
		if link == "" {
			link = it.ExternalURL
		}
		desc := it.Summary
		if desc == "" {
			desc = it.ContentText
		}
		if desc == "" {
			desc = it.ContentHTML
		}
		var published string
		if ts, err := time.Parse(time.RFC3339, it.DatePublished); err == nil {
			published = textutil.ISODate(&ts)
		}
		items = append(items, model.Item{
			Title:       it.Title,
			URL:         link,
			Published:   published,
			Description: desc,
		})
	}
	return items, nil
}
