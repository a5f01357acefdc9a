package briefing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bryan-buckman/iantel/internal/model"
	"github.com/bryan-buckman/iantel/internal/rss"
	"github.com/bryan-buckman/iantel/internal/sources"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func testCatalogue(t *testing.T) sources.Catalogue {
	t.Helper()
	crypto := serve(t, http.StatusOK, rssFeed("coin", "Bitcoin rallies", "Ether slips", "Solana stalls", "Fourth story"))
	reading := serve(t, http.StatusOK, rssFeed("books",
		"A history of the sea",
		"The memoir of a gardener",
		"Startup economics",
		"A new novel",
		"Stars and atoms",
		"Another war chronicle"))
	broken := serve(t, http.StatusInternalServerError, "")

	return sources.Catalogue{
		{Topic: model.TopicCrypto, Limit: sources.DefaultLimit, Sources: []model.FeedSource{
			{Kind: model.KindRSS, URL: broken, Label: "Down"},
			{Kind: model.KindRSS, URL: crypto, Label: "Coins"},
		}},
		{Topic: model.TopicReading, Limit: sources.ReadingCandidates, Sources: []model.FeedSource{
			{Kind: model.KindRSS, URL: reading, Label: "Books"},
		}},
		{Topic: model.TopicGarden, Limit: sources.DefaultLimit, Sources: []model.FeedSource{
			{Kind: model.KindRSS, URL: broken, Label: "Down"},
		}},
	}
}

func fixedClock() time.Time { return buildTime }

func TestBuilder_Build(t *testing.T) {
	prices := NewPriceFetcher(rss.NewFetcher(rss.Config{}), serve(t, http.StatusOK, marketsBody), 8, DefaultTimezone)
	status := &memStatus{}
	b := NewBuilder(rss.NewFetcher(rss.Config{Timeout: 2 * time.Second}), testCatalogue(t), prices,
		WithStatusRecorder(status), WithClock(fixedClock))

	doc := b.Build(context.Background())

	assert.Equal(t, buildTime, doc.Meta.GeneratedAt)
	assert.Equal(t, buildTime.Unix(), doc.Meta.Edition)
	assert.Equal(t, DefaultMessages(), doc.Messages)
	assert.Len(t, doc.Snapshot.Items, 3)

	crypto := doc.Sections[model.TopicCrypto]
	require.Len(t, crypto, 3)
	assert.Equal(t, "Bitcoin rallies", crypto[0].Title)
	assert.Equal(t, "Coins", crypto[0].Source)

	reading := doc.Sections[model.TopicReading]
	require.Len(t, reading, ReadingLimit)
	var labels []string
	for _, it := range reading {
		labels = append(labels, it.Source)
	}
	assert.Equal(t, []string{
		"Books · history",
		"Books · biography",
		"Books · business",
		"Books · fiction",
		"Books · science",
	}, labels)
	assert.Equal(t, "A history of the sea", reading[0].Title)

	garden, ok := doc.Sections[model.TopicGarden]
	assert.True(t, ok)
	assert.NotNil(t, garden)
	assert.Empty(t, garden)

	require.Len(t, status.statuses, 4)
	assert.NotEmpty(t, status.statuses[0].LastError)
	assert.Equal(t, 4, status.statuses[1].ItemCount)
	assert.Equal(t, status.statuses[0].RunID, status.statuses[3].RunID)
	assert.Equal(t, buildTime, status.statuses[0].LastFetched)
}

func TestBuilder_EverythingFailing(t *testing.T) {
	broken := serve(t, http.StatusServiceUnavailable, "")
	cat := sources.Catalogue{}
	for _, topic := range model.Topics {
		cat = append(cat, sources.Section{Topic: topic, Limit: sources.DefaultLimit, Sources: []model.FeedSource{
			{Kind: model.KindRSS, URL: broken, Label: "Down"},
		}})
	}
	f := rss.NewFetcher(rss.Config{Timeout: 2 * time.Second})
	b := NewBuilder(f, cat, NewPriceFetcher(f, broken, 8, DefaultTimezone), WithClock(fixedClock))
	path := filepath.Join(t.TempDir(), "briefing.json")

	doc, err := b.Publish(context.Background(), path)

	require.NoError(t, err)
	assert.Len(t, doc.Sections, len(model.Topics))
	for _, topic := range model.Topics {
		assert.Empty(t, doc.Sections[topic], topic)
	}
	assert.Empty(t, doc.Snapshot.Items)
	assert.NotEmpty(t, doc.Snapshot.UpdatedLocal)

	loaded, err := LoadArtifact(path)
	require.NoError(t, err)
	assert.Equal(t, doc.Meta.Edition, loaded.Meta.Edition)
}

func TestBuilder_LogsTraceID(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })
	tp := sdktrace.NewTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	catalogue := sources.Catalogue{{Topic: model.TopicGarden, Limit: sources.DefaultLimit, Sources: []model.FeedSource{
		{Kind: model.KindRSS, URL: serve(t, http.StatusInternalServerError, ""), Label: "Down"},
	}}}
	NewBuilder(rss.NewFetcher(rss.Config{}), catalogue, nil, WithClock(fixedClock)).Build(context.Background())

	traces := map[string]string{}
	dec := json.NewDecoder(&buf)
	for dec.More() {
		var line struct {
			Msg     string `json:"msg"`
			TraceID string `json:"trace_id"`
		}
		require.NoError(t, dec.Decode(&line))
		traces[line.Msg] = line.TraceID
	}
	assert.Len(t, traces["briefing built"], 32)
	assert.Equal(t, traces["briefing built"], traces["source contributed nothing"])
}

func TestBuilder_PublishRunsHooks(t *testing.T) {
	var seen []int64
	ok := func(ctx context.Context, doc *model.BriefingDocument) error {
		seen = append(seen, doc.Meta.Edition)
		return nil
	}
	failing := func(ctx context.Context, doc *model.BriefingDocument) error {
		return errors.New("telegram down")
	}
	b := NewBuilder(rss.NewFetcher(rss.Config{}), sources.Catalogue{}, nil,
		WithClock(fixedClock), WithHooks(failing, ok))

	doc, err := b.Publish(context.Background(), filepath.Join(t.TempDir(), "briefing.json"))

	require.NoError(t, err)
	assert.Equal(t, []int64{buildTime.Unix()}, seen)
	assert.NotNil(t, doc.Snapshot.Items)
}

func TestBuilder_PublishWriteFailure(t *testing.T) {
	called := false
	hook := func(ctx context.Context, doc *model.BriefingDocument) error {
		called = true
		return nil
	}
	dir := t.TempDir()
	b := NewBuilder(rss.NewFetcher(rss.Config{}), sources.Catalogue{}, nil, WithHooks(hook))

	// The target is the temp dir itself, which cannot be replaced by a file.
	_, err := b.Publish(context.Background(), dir)

	assert.Error(t, err)
	assert.False(t, called)
}

func TestBuilder_CancelledPublishKeepsArtifact(t *testing.T) {
	called := false
	hook := func(ctx context.Context, doc *model.BriefingDocument) error {
		called = true
		return nil
	}
	path := filepath.Join(t.TempDir(), "briefing.json")
	b := NewBuilder(rss.NewFetcher(rss.Config{}), testCatalogue(t), nil, WithClock(fixedClock))
	_, err := b.Publish(context.Background(), path)
	require.NoError(t, err)
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	b.hooks = append(b.hooks, hook)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = b.TryPublish(ctx, path)
	assert.ErrorIs(t, err, context.Canceled)
	_, err = b.Publish(ctx, path)
	assert.ErrorIs(t, err, context.Canceled)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.False(t, called)
}

func TestBuilder_TryPublishWhileBusy(t *testing.T) {
	b := NewBuilder(rss.NewFetcher(rss.Config{}), sources.Catalogue{}, nil)
	b.mu.Lock()

	_, err := b.TryPublish(context.Background(), filepath.Join(t.TempDir(), "briefing.json"))
	b.mu.Unlock()

	assert.ErrorIs(t, err, ErrBuildInProgress)
}

func TestScheduler_Interval(t *testing.T) {
	b := NewBuilder(rss.NewFetcher(rss.Config{}), sources.Catalogue{}, nil)

	assert.Equal(t, MinInterval, NewScheduler(b, "x", time.Minute).Interval())
	assert.Equal(t, time.Hour, NewScheduler(b, "x", time.Hour).Interval())
}

func TestScheduler_BuildsImmediately(t *testing.T) {
	path := filepath.Join(t.TempDir(), "briefing.json")
	done := make(chan struct{}, 1)
	hook := func(ctx context.Context, doc *model.BriefingDocument) error {
		done <- struct{}{}
		return nil
	}
	b := NewBuilder(rss.NewFetcher(rss.Config{}), sources.Catalogue{}, nil, WithHooks(hook))
	s := NewScheduler(b, path, time.Hour)

	s.Start()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not build")
	}
	s.Stop()

	_, err := LoadArtifact(path)
	assert.NoError(t, err)
}
