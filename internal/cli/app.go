package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/bryan-buckman/iantel/internal/briefing"
	"github.com/bryan-buckman/iantel/internal/config"
	"github.com/bryan-buckman/iantel/internal/database"
	"github.com/bryan-buckman/iantel/internal/model"
	"github.com/bryan-buckman/iantel/internal/notify"
	"github.com/bryan-buckman/iantel/internal/rss"
	"github.com/bryan-buckman/iantel/internal/sources"
)

// loadCatalogue returns the OPML catalogue named in cfg, or the built-in one.
func loadCatalogue(cfg *config.Config) (sources.Catalogue, error) {
	if cfg.SourcesFile == "" {
		return sources.Default(), nil
	}
	f, err := os.Open(cfg.SourcesFile)
	if err != nil {
		return nil, fmt.Errorf("open sources file: %w", err)
	}
	defer f.Close()

	cat, err := sources.FromOPML(f, sources.DefaultRegistry())
	if err != nil {
		return nil, fmt.Errorf("load sources file %s: %w", cfg.SourcesFile, err)
	}
	return cat, nil
}

// openStore opens the health store. Failure is not fatal: builds proceed
// without source health.
func openStore(cfg *config.Config) database.Store {
	store, err := database.Open(cfg.Store.Driver, cfg.Store.DSN)
	if err != nil {
		slog.Warn("Health store unavailable", "driver", cfg.Store.Driver, "error", err)
		return nil
	}
	return store
}

// newBuilder wires the fetcher, catalogue, price fetcher and post-publish
// hooks from cfg. store may be nil.
func newBuilder(cfg *config.Config, store database.Store) (*briefing.Builder, error) {
	cat, err := loadCatalogue(cfg)
	if err != nil {
		return nil, err
	}

	fetcher := rss.NewFetcher(rss.Config{
		Timeout:     cfg.Fetch.Timeout,
		UserAgent:   cfg.Fetch.UserAgent,
		Concurrency: cfg.Fetch.Concurrency,
	})
	prices := briefing.NewPriceFetcher(fetcher, cfg.Prices.Endpoint, cfg.Prices.Count, cfg.Prices.Timezone)

	var opts []briefing.Option
	if store != nil {
		opts = append(opts, briefing.WithStatusRecorder(store), briefing.WithHooks(recordBuild(store)))
	}
	if cfg.Notify.Enabled() {
		tg, err := notify.NewTelegram(cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID, cfg.Server.BaseURL)
		if err != nil {
			slog.Warn("Telegram announcements disabled", "error", err)
		} else {
			opts = append(opts, briefing.WithHooks(tg.Announce))
		}
	}
	return briefing.NewBuilder(fetcher, cat, prices, opts...), nil
}

// recordBuild stores the time and edition of each published build.
func recordBuild(store database.Store) briefing.Hook {
	return func(ctx context.Context, doc *model.BriefingDocument) error {
		if err := store.SetSetting(model.SettingLastBuildAt, doc.Meta.GeneratedAt.UTC().Format(time.RFC3339)); err != nil {
			return fmt.Errorf("record build time: %w", err)
		}
		if err := store.SetSetting(model.SettingLastEdition, strconv.FormatInt(doc.Meta.Edition, 10)); err != nil {
			return fmt.Errorf("record edition: %w", err)
		}
		return nil
	}
}
