// Package briefing assembles the daily briefing document from the feed catalogue.
package briefing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bryan-buckman/iantel/internal/model"
	"github.com/bryan-buckman/iantel/internal/observability"
	"github.com/bryan-buckman/iantel/internal/rss"
	"github.com/bryan-buckman/iantel/internal/sources"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("github.com/bryan-buckman/iantel/internal/briefing")

// ErrBuildInProgress is returned by TryPublish while another build runs.
var ErrBuildInProgress = errors.New("briefing build already in progress")

// Hook runs after an artifact has been written. Hook errors are logged only.
type Hook func(ctx context.Context, doc *model.BriefingDocument) error

// Builder assembles and publishes briefing documents.
type Builder struct {
	fetcher   *rss.Fetcher
	catalogue sources.Catalogue
	prices    *PriceFetcher
	messages  model.Messages
	status    StatusRecorder
	hooks     []Hook
	now       func() time.Time

	mu sync.Mutex
}

// Option configures a Builder.
type Option func(*Builder)

// WithStatusRecorder records per-source fetch outcomes.
func WithStatusRecorder(r StatusRecorder) Option {
	return func(b *Builder) { b.status = r }
}

// WithHooks registers hooks run after each successful publish.
func WithHooks(hooks ...Hook) Option {
	return func(b *Builder) { b.hooks = append(b.hooks, hooks...) }
}

// WithClock overrides the build clock.
func WithClock(now func() time.Time) Option {
	return func(b *Builder) { b.now = now }
}

// WithMessages overrides the message pools.
func WithMessages(m model.Messages) Option {
	return func(b *Builder) { b.messages = m }
}

// NewBuilder creates a builder over the given catalogue.
func NewBuilder(fetcher *rss.Fetcher, catalogue sources.Catalogue, prices *PriceFetcher, opts ...Option) *Builder {
	b := &Builder{
		fetcher:   fetcher,
		catalogue: catalogue,
		prices:    prices,
		messages:  DefaultMessages(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Catalogue returns the catalogue the builder covers.
func (b *Builder) Catalogue() sources.Catalogue {
	return b.catalogue
}

// Build assembles a fresh document. Section and snapshot failures degrade to
// empty data; Build itself does not fail.
func (b *Builder) Build(ctx context.Context) *model.BriefingDocument {
	runID := uuid.NewString()
	ctx, span := tracer.Start(ctx, "briefing.build")
	defer span.End()
	span.SetAttributes(attribute.String("run_id", runID))

	started := b.now()
	sections := NewSectionBuilder(b.fetcher, b.status, runID)
	sections.now = b.now

	doc := &model.BriefingDocument{
		Meta: model.Meta{
			GeneratedAt: started.UTC(),
			Edition:     started.Unix(),
		},
		Messages: b.messages,
		Sections: make(map[string][]model.Item, len(b.catalogue)),
	}

	for _, sec := range b.catalogue {
		items := sections.Build(ctx, sec)
		if sec.Topic == model.TopicReading {
			items = BucketReading(items, ReadingLimit)
		}
		doc.Sections[sec.Topic] = items
		slog.Info("section built", "topic", sec.Topic, "items", len(items), "run_id", runID)
	}

	if b.prices != nil {
		doc.Snapshot = b.prices.Snapshot(ctx, started)
	} else {
		doc.Snapshot = model.Snapshot{UpdatedLocal: started.Format(LocalTimeLayout), Items: []model.PriceRow{}}
	}

	slog.Info("briefing built",
		"run_id", runID,
		"trace_id", observability.TraceID(ctx),
		"edition", doc.Meta.Edition,
		"sections", len(doc.Sections),
		"assets", len(doc.Snapshot.Items),
		"took", time.Since(started).Round(time.Millisecond))
	return doc
}

// Publish builds a document and writes it to path, replacing any previous
// artifact. Only a write failure is returned.
func (b *Builder) Publish(ctx context.Context, path string) (*model.BriefingDocument, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.publish(ctx, path)
}

// TryPublish is Publish that fails fast with ErrBuildInProgress instead of
// waiting for a running build.
func (b *Builder) TryPublish(ctx context.Context, path string) (*model.BriefingDocument, error) {
	if !b.mu.TryLock() {
		return nil, ErrBuildInProgress
	}
	defer b.mu.Unlock()
	return b.publish(ctx, path)
}

func (b *Builder) publish(ctx context.Context, path string) (*model.BriefingDocument, error) {
	doc := b.Build(ctx)
	// A cancelled build saw every remaining source fail; keep the previous artifact.
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("build interrupted: %w", err)
	}
	if err := WriteArtifact(path, doc); err != nil {
		return nil, err
	}
	slog.Info("Wrote briefing", "path", path, "edition", doc.Meta.Edition)

	for _, hook := range b.hooks {
		if err := hook(ctx, doc); err != nil {
			slog.Error("post-publish hook failed", "error", err)
		}
	}
	return doc, nil
}
