// Package rss provides feed fetching and normalization.
package rss

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/bryan-buckman/iantel/internal/model"
	"github.com/bryan-buckman/iantel/internal/textutil"
	"github.com/mmcdole/gofeed"
)

const (
	// DefaultTimeout bounds a single source fetch.
	DefaultTimeout = 15 * time.Second
	// DefaultUserAgent is sent with every outbound request.
	DefaultUserAgent = "iantel-bot"
	// maxBodyBytes caps how much of a JSON response is read.
	maxBodyBytes = 8 << 20
)

// FetchError describes why a source contributed nothing.
type FetchError struct {
	URL string
	Op  string // "request", "status", "read", "parse", "map"
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// FetchResult holds the result of fetching a single source.
type FetchResult struct {
	Source model.FeedSource
	Items  []model.Item
	Err    error
}

// Config controls the fetcher.
type Config struct {
	Timeout     time.Duration
	UserAgent   string
	Concurrency int
}

// Fetcher handles feed fetching.
type Fetcher struct {
	parser      *gofeed.Parser
	client      *http.Client
	timeout     time.Duration
	userAgent   string
	concurrency int
}

// NewFetcher creates a new fetcher. Zero config values fall back to defaults;
// a concurrency of 1 or less fetches strictly sequentially.
func NewFetcher(cfg Config) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	client := &http.Client{Timeout: cfg.Timeout}

	parser := gofeed.NewParser()
	parser.Client = client
	parser.UserAgent = cfg.UserAgent

	return &Fetcher{
		parser:      parser,
		client:      client,
		timeout:     cfg.Timeout,
		userAgent:   cfg.UserAgent,
		concurrency: cfg.Concurrency,
	}
}

// Fetch fetches a single source. Items are normalized and entries missing a
// title or url are dropped. A failure is reported in Err with no items.
func (f *Fetcher) Fetch(ctx context.Context, src model.FeedSource) FetchResult {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	var items []model.Item
	var err error
	switch src.Kind {
	case model.KindJSON:
		items, err = f.fetchJSON(ctx, src)
	default:
		items, err = f.fetchRSS(ctx, src)
	}
	if err != nil {
		return FetchResult{Source: src, Err: err}
	}
	return FetchResult{Source: src, Items: items}
}

func (f *Fetcher) fetchRSS(ctx context.Context, src model.FeedSource) ([]model.Item, error) {
	parsed, err := f.parser.ParseURLWithContext(src.URL, ctx)
	if err != nil {
		op := "parse"
		var httpErr gofeed.HTTPError
		if errors.As(err, &httpErr) {
			op = "status"
		}
		return nil, &FetchError{URL: src.URL, Op: op, Err: err}
	}

	raw := make([]model.Item, 0, len(parsed.Items))
	for _, it := range parsed.Items {
		published := it.PublishedParsed
		if published == nil {
			published = it.UpdatedParsed
		}
		desc := it.Description
		if strings.TrimSpace(desc) == "" {
			desc = it.Content
		}
		raw = append(raw, model.Item{
			Title:       it.Title,
			URL:         it.Link,
			Published:   textutil.ISODate(published),
			Description: desc,
		})
	}
	return Normalize(raw), nil
}

func (f *Fetcher) fetchJSON(ctx context.Context, src model.FeedSource) ([]model.Item, error) {
	if src.Map == nil {
		return nil, &FetchError{URL: src.URL, Op: "map", Err: fmt.Errorf("no mapper for %q", src.Mapper)}
	}
	body, err := f.GetJSON(ctx, src.URL)
	if err != nil {
		return nil, err
	}
	items, err := src.Map(body)
	if err != nil {
		return nil, &FetchError{URL: src.URL, Op: "map", Err: err}
	}
	return Normalize(items), nil
}

// GetJSON performs a GET with the fetcher's timeout and user agent and returns
// the body of a 2xx response.
func (f *Fetcher) GetJSON(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{URL: url, Op: "request", Err: err}
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: url, Op: "request", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{URL: url, Op: "status", Err: fmt.Errorf("http %d", resp.StatusCode)}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &FetchError{URL: url, Op: "read", Err: err}
	}
	return body, nil
}

// Normalize cleans titles and descriptions and drops items without a title or url.
func Normalize(items []model.Item) []model.Item {
	out := make([]model.Item, 0, len(items))
	for _, it := range items {
		it.Title = textutil.Clean(it.Title)
		it.URL = strings.TrimSpace(it.URL)
		it.Description = textutil.Description(it.Description)
		if it.Title == "" || it.URL == "" {
			continue
		}
		out = append(out, it)
	}
	return out
}

// FetchAll fetches every source and returns one result per source in the
// order given, regardless of completion order.
func (f *Fetcher) FetchAll(ctx context.Context, sources []model.FeedSource) []FetchResult {
	if f.concurrency <= 1 || len(sources) <= 1 {
		return f.fetchSequential(ctx, sources)
	}
	return f.fetchParallel(ctx, sources)
}

func (f *Fetcher) fetchSequential(ctx context.Context, sources []model.FeedSource) []FetchResult {
	results := make([]FetchResult, len(sources))
	for i, src := range sources {
		results[i] = f.Fetch(ctx, src)
	}
	return results
}

// fetchParallel slots each result by source index so ordering matches the
// sequential path.
func (f *Fetcher) fetchParallel(ctx context.Context, sources []model.FeedSource) []FetchResult {
	var wg sync.WaitGroup
	results := make([]FetchResult, len(sources))
	jobs := make(chan int, len(sources))

	workers := min(f.concurrency, len(sources))
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = f.Fetch(ctx, sources[i])
			}
		}()
	}

	for i := range sources {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return results
}
