package database

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/bryan-buckman/iantel/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(filepath.Join(t.TempDir(), "data", "iantel.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRecordSourceStatus_Upserts(t *testing.T) {
	db := openTestDB(t)
	first := time.Date(2026, 10, 15, 20, 0, 0, 0, time.UTC)
	second := first.Add(time.Hour)

	require.NoError(t, db.RecordSourceStatus(model.SourceStatus{
		Topic: "crypto", Label: "CoinDesk", URL: "https://c/rss", LastFetched: first, ItemCount: 10, RunID: "r1",
	}))
	require.NoError(t, db.RecordSourceStatus(model.SourceStatus{
		Topic: "crypto", Label: "CoinDesk", URL: "https://c/rss", LastFetched: second, LastError: "status https://c/rss: http 503", RunID: "r2",
	}))
	require.NoError(t, db.RecordSourceStatus(model.SourceStatus{
		Topic: "built", Label: "Dezeen", URL: "https://d/feed", LastFetched: first, ItemCount: 3, RunID: "r1",
	}))

	got, err := db.ListSourceStatus()

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "built", got[0].Topic)
	assert.Equal(t, "crypto", got[1].Topic)
	assert.Equal(t, "r2", got[1].RunID)
	assert.Equal(t, 0, got[1].ItemCount)
	assert.Equal(t, "status https://c/rss: http 503", got[1].LastError)
	assert.True(t, second.Equal(got[1].LastFetched), "got %v", got[1].LastFetched)
}

func TestSettings(t *testing.T) {
	db := openTestDB(t)

	_, err := db.GetSetting(model.SettingLastEdition)
	assert.ErrorIs(t, err, sql.ErrNoRows)

	require.NoError(t, db.SetSetting(model.SettingLastEdition, "1"))
	require.NoError(t, db.SetSetting(model.SettingLastEdition, "2"))

	val, err := db.GetSetting(model.SettingLastEdition)
	require.NoError(t, err)
	assert.Equal(t, "2", val)
}

func TestOpen(t *testing.T) {
	store, err := Open("sqlite", filepath.Join(t.TempDir(), "x.db"))
	require.NoError(t, err)
	defer store.Close()
	assert.Equal(t, "SQLite", store.DatabaseType())

	_, err = Open("mysql", "whatever")
	assert.Error(t, err)
}
