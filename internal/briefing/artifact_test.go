package briefing

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bryan-buckman/iantel/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDoc() *model.BriefingDocument {
	price := 67000.5
	mcap := 1.32e12
	return &model.BriefingDocument{
		Meta:     model.Meta{GeneratedAt: time.Date(2026, 10, 16, 1, 30, 0, 0, time.UTC), Edition: 1792114200},
		Messages: DefaultMessages(),
		Snapshot: model.Snapshot{
			UpdatedLocal: "16/10/2026, 12:30:00 pm",
			Items: []model.PriceRow{
				{Symbol: "BTC", PriceUSD: &price, Change24h: -1.25, MarketCapUSD: &mcap},
				{Symbol: "XYZ"},
			},
		},
		Sections: map[string][]model.Item{
			model.TopicCrypto: {{Title: "A <b>bold</b> move", URL: "https://x/1", Published: "2026-10-15", Description: "d", Source: "CoinDesk"}},
			model.TopicGarden: {},
		},
	}
}

func TestArtifact_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "briefing.json")
	doc := sampleDoc()

	require.NoError(t, WriteArtifact(path, doc))
	got, err := LoadArtifact(path)

	require.NoError(t, err)
	assert.Equal(t, doc, got)
}

func TestArtifact_WireFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "briefing.json")
	require.NoError(t, WriteArtifact(path, sampleDoc()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)

	// Pretty-printed with two-space indent and unescaped markup.
	assert.True(t, strings.HasPrefix(text, "{\n  \"meta\": {"))
	assert.Contains(t, text, `"A <b>bold</b> move"`)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	meta := raw["meta"].(map[string]any)
	assert.Equal(t, "2026-10-16T01:30:00Z", meta["generated_at"])
	assert.Equal(t, float64(1792114200), meta["edition"])
	snap := raw["snapshot"].(map[string]any)
	assert.Equal(t, "16/10/2026, 12:30:00 pm", snap["updated_local"])
	row := snap["items"].([]any)[1].(map[string]any)
	assert.Nil(t, row["priceUsd"])
	assert.Nil(t, row["mcapUsd"])
	sections := raw["sections"].(map[string]any)
	assert.Equal(t, []any{}, sections[model.TopicGarden])
	item := sections[model.TopicCrypto].([]any)[0].(map[string]any)
	for _, key := range []string{"title", "url", "published", "description", "source"} {
		assert.Contains(t, item, key)
	}
}

func TestWriteArtifact_Replaces(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "briefing.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"old":true}`), 0644))

	require.NoError(t, WriteArtifact(path, sampleDoc()))

	got, err := LoadArtifact(path)
	require.NoError(t, err)
	assert.Equal(t, int64(1792114200), got.Meta.Edition)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must not be left behind")
}

func TestWriteArtifact_FailureLeavesTargetUntouched(t *testing.T) {
	dir := t.TempDir()
	// A directory at the target path makes the final rename fail.
	path := filepath.Join(dir, "briefing.json")
	require.NoError(t, os.Mkdir(path, 0755))
	keep := filepath.Join(path, "keep")
	require.NoError(t, os.WriteFile(keep, []byte("x"), 0644))

	err := WriteArtifact(path, sampleDoc())

	require.Error(t, err)
	data, err := os.ReadFile(keep)
	require.NoError(t, err)
	assert.Equal(t, "x", string(data))
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestLoadArtifact_Missing(t *testing.T) {
	_, err := LoadArtifact(filepath.Join(t.TempDir(), "nope.json"))

	assert.ErrorIs(t, err, ErrArtifactMissing)
}

func TestLoadArtifact_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "briefing.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0644))

	_, err := LoadArtifact(path)

	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrArtifactMissing)
}
