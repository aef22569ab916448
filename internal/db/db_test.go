package db

import (
	"compress/gzip"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/arplayback/internal/capture"
	"github.com/banshee-data/arplayback/internal/orientation"
	"github.com/banshee-data/arplayback/internal/playback"
	"github.com/banshee-data/arplayback/internal/timeutil"
)

func openTestDB(t *testing.T) (*DB, *timeutil.MockClock) {
	t.Helper()
	db, err := OpenMigrated(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	clock := timeutil.NewMockClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	db.SetClock(clock)
	return db, clock
}

func TestMigrations(t *testing.T) {
	db, err := NewDB(filepath.Join(t.TempDir(), "m.db"))
	require.NoError(t, err)
	defer db.Close()

	v, dirty, err := db.MigrateVersion(Migrations())
	require.NoError(t, err)
	assert.Zero(t, v)
	assert.False(t, dirty)

	require.NoError(t, db.MigrateUp(Migrations()))
	require.NoError(t, db.MigrateUp(Migrations()), "second MigrateUp is a no-op")
	v, dirty, err = db.MigrateVersion(Migrations())
	require.NoError(t, err)
	assert.Equal(t, uint(2), v)
	assert.False(t, dirty)

	require.NoError(t, db.MigrateDown(Migrations()))
	v, _, err = db.MigrateVersion(Migrations())
	require.NoError(t, err)
	assert.Equal(t, uint(1), v)

	_, err = db.Exec(`SELECT orientation_counts FROM playback_sessions`)
	assert.Error(t, err, "column should be gone after rolling back 000002")
}

func TestUpsertAndGetDataset(t *testing.T) {
	db, clock := openTestDB(t)
	ds := capture.NewSyntheticGenerator("/captures/walk", 31).Dataset()

	id, err := db.UpsertDataset(ds)
	require.NoError(t, err)

	rec, err := db.GetDataset("/captures/walk")
	require.NoError(t, err)
	assert.Equal(t, id, rec.ID)
	assert.Equal(t, 31, rec.FrameCount)
	assert.Equal(t, 30, rec.FrameRate)
	assert.Equal(t, 1920, rec.Width)
	assert.Equal(t, 6, rec.DepthHeight)
	assert.True(t, rec.Lidar)
	assert.True(t, rec.Compass)
	assert.InDelta(t, 1.0, rec.DurationS, 1e-9)
	assert.Equal(t, clock.Now(), rec.LoadedAt)

	// Re-loading the same directory refreshes the row in place.
	clock.Advance(time.Hour)
	ds.FrameRate = 60
	again, err := db.UpsertDataset(ds)
	require.NoError(t, err)
	assert.Equal(t, id, again)
	rec, err = db.GetDataset("/captures/walk")
	require.NoError(t, err)
	assert.Equal(t, 60, rec.FrameRate)
	assert.Equal(t, clock.Now(), rec.LoadedAt)

	_, err = db.GetDataset("/nowhere")
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = db.UpsertDataset(nil)
	assert.Error(t, err)
}

func TestSessionLifecycle(t *testing.T) {
	db, clock := openTestDB(t)
	dsID, err := db.UpsertDataset(capture.NewSyntheticGenerator("/c", 4).Dataset())
	require.NoError(t, err)

	id, err := db.StartSession(dsID, 0, 3, true)
	require.NoError(t, err)
	started := clock.Now()

	obs := db.NewSessionObserver(id)
	assert.Equal(t, id, obs.ID())
	steps := []playback.Step{
		{Seq: 1, FrameIndex: 0, Timestamp: 10, Orientation: orientation.LandscapeLeft},
		{Seq: 2, FrameIndex: 1, Timestamp: 10.5, Orientation: orientation.Portrait},
		{Seq: 3, FrameIndex: 2, Timestamp: 11, Orientation: orientation.Portrait},
	}
	for _, s := range steps {
		obs.ObserveStep(s)
	}

	clock.Advance(time.Minute)
	require.NoError(t, db.EndSession(id, true))

	s, err := db.GetSession(id)
	require.NoError(t, err)
	assert.Equal(t, dsID, s.DatasetID)
	assert.Equal(t, 3, s.EndFrame)
	assert.True(t, s.Loop)
	assert.Equal(t, 3, s.FramesPlayed)
	assert.Equal(t, 2, s.LastFrame)
	assert.Equal(t, 11.0, s.LastTimestamp)
	assert.True(t, s.Finished)
	assert.Equal(t, started, s.StartedAt)
	require.NotNil(t, s.EndedAt)
	assert.Equal(t, started.Add(time.Minute), *s.EndedAt)
	assert.Equal(t, map[string]int{"landscape_left": 1, "portrait": 2}, s.OrientationCounts)
}

func TestSessionErrors(t *testing.T) {
	db, _ := openTestDB(t)

	err := db.RecordStep("missing", playback.Step{})
	assert.True(t, errors.Is(err, ErrNotFound), "got %v", err)
	err = db.EndSession("missing", false)
	assert.True(t, errors.Is(err, ErrNotFound), "got %v", err)
	_, err = db.GetSession("missing")
	assert.True(t, errors.Is(err, ErrNotFound), "got %v", err)

	_, err = db.StartSession(999, 0, 1, false)
	assert.Error(t, err, "foreign key to an unknown dataset")
}

func TestListSessions(t *testing.T) {
	db, clock := openTestDB(t)
	dsID, err := db.UpsertDataset(capture.NewSyntheticGenerator("/c", 4).Dataset())
	require.NoError(t, err)

	var ids []string
	for i := 0; i < 3; i++ {
		id, err := db.StartSession(dsID, 0, 3, false)
		require.NoError(t, err)
		ids = append(ids, id)
		clock.Advance(time.Second)
	}

	all, err := db.ListSessions(0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, ids[2], all[0].ID, "newest first")
	assert.Nil(t, all[0].EndedAt)
	assert.Equal(t, -1, all[0].LastFrame)
	assert.Empty(t, all[0].OrientationCounts)

	two, err := db.ListSessions(2)
	require.NoError(t, err)
	assert.Len(t, two, 2)
}

func TestAttachAdminRoutes(t *testing.T) {
	db, _ := openTestDB(t)
	mux := http.NewServeMux()
	require.NoError(t, db.AttachAdminRoutes(mux))

	for _, path := range []string{"/debug/tailsql/", "/debug/sessions", "/debug/backup"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)
		// Either served or refused by the debug access check.
		assert.NotEqual(t, http.StatusNotFound, w.Code, path)
	}
}

func TestServeBackup(t *testing.T) {
	db, _ := openTestDB(t)
	_, err := db.UpsertDataset(capture.NewSyntheticGenerator("/c", 2).Dataset())
	require.NoError(t, err)

	w := httptest.NewRecorder()
	db.serveBackup(w, httptest.NewRequest(http.MethodGet, "/debug/backup", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Disposition"), "attachment; filename=arplayback-backup-"))

	gz, err := gzip.NewReader(w.Body)
	require.NoError(t, err)
	data, err := io.ReadAll(gz)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "SQLite format 3"))
}

func TestServeSessions(t *testing.T) {
	db, _ := openTestDB(t)
	id, err := db.UpsertDataset(capture.NewSyntheticGenerator("/c", 3).Dataset())
	require.NoError(t, err)
	sid, err := db.StartSession(id, 0, 2, false)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	db.serveSessions(w, httptest.NewRequest(http.MethodGet, "/debug/sessions", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var got []PlaybackSession
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
	require.Len(t, got, 1)
	assert.Equal(t, sid, got[0].ID)
}
