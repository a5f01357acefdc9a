package briefing

import (
	"context"
	"log/slog"
	"time"

	"github.com/bryan-buckman/iantel/internal/model"
	"github.com/bryan-buckman/iantel/internal/observability"
	"github.com/bryan-buckman/iantel/internal/rss"
	"github.com/bryan-buckman/iantel/internal/sources"
	"go.opentelemetry.io/otel/attribute"
)

// StatusRecorder persists the outcome of each source fetch for operators.
type StatusRecorder interface {
	RecordSourceStatus(st model.SourceStatus) error
}

// SectionBuilder fetches the sources of a section and merges their items.
type SectionBuilder struct {
	fetcher *rss.Fetcher
	status  StatusRecorder
	runID   string
	now     func() time.Time
}

// NewSectionBuilder creates a section builder. status may be nil.
func NewSectionBuilder(fetcher *rss.Fetcher, status StatusRecorder, runID string) *SectionBuilder {
	return &SectionBuilder{fetcher: fetcher, status: status, runID: runID, now: time.Now}
}

// Build returns at most sec.Limit items from sec's sources, in source order
// then feed order, each labelled with its source and unique by url (or title).
// A failing source contributes nothing.
func (b *SectionBuilder) Build(ctx context.Context, sec sources.Section) []model.Item {
	ctx, span := tracer.Start(ctx, "section.build")
	defer span.End()
	span.SetAttributes(attribute.String("topic", sec.Topic), attribute.Int("sources", len(sec.Sources)))

	var all []model.Item
	for _, res := range b.fetcher.FetchAll(ctx, sec.Sources) {
		b.record(sec.Topic, res)
		if res.Err != nil {
			slog.Warn("source contributed nothing",
				"topic", sec.Topic, "source", res.Source.Label, "url", res.Source.URL, "error", res.Err,
				"trace_id", observability.TraceID(ctx))
			continue
		}
		for _, it := range res.Items {
			it.Source = sourceLabel(res.Source)
			all = append(all, it)
		}
	}

	items := PickN(all, sec.Limit)
	span.SetAttributes(attribute.Int("items", len(items)))
	return items
}

func (b *SectionBuilder) record(topic string, res rss.FetchResult) {
	if b.status == nil {
		return
	}
	st := model.SourceStatus{
		Topic:       topic,
		Label:       res.Source.Label,
		URL:         res.Source.URL,
		LastFetched: b.now().UTC(),
		ItemCount:   len(res.Items),
		RunID:       b.runID,
	}
	if res.Err != nil {
		st.LastError = truncateError(res.Err.Error())
	}
	if err := b.status.RecordSourceStatus(st); err != nil {
		slog.Error("Error recording source status", "url", st.URL, "error", err)
	}
}

func sourceLabel(src model.FeedSource) string {
	if src.Label != "" {
		return src.Label
	}
	return src.URL
}

func truncateError(msg string) string {
	if len(msg) > 200 {
		return msg[:200]
	}
	return msg
}

// PickN keeps the first occurrence of each dedup key and stops at n items.
// Items with neither url nor title are skipped.
func PickN(items []model.Item, n int) []model.Item {
	out := make([]model.Item, 0, min(n, len(items)))
	if n <= 0 {
		return out
	}
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		k := it.Key()
		if k == "" {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, it)
		if len(out) >= n {
			break
		}
	}
	return out
}
