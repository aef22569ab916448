package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/banshee-data/arplayback/internal/capture"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("db: not found")

// DatasetRecord is a catalogued capture dataset.
type DatasetRecord struct {
	ID          int64     `json:"id"`
	Dir         string    `json:"dir"`
	FrameCount  int       `json:"frame_count"`
	FrameRate   int       `json:"frame_rate"`
	Width       int       `json:"width"`
	Height      int       `json:"height"`
	DepthWidth  int       `json:"depth_width"`
	DepthHeight int       `json:"depth_height"`
	Lidar       bool      `json:"lidar"`
	Autofocus   bool      `json:"autofocus"`
	Location    bool      `json:"location"`
	Compass     bool      `json:"compass"`
	DurationS   float64   `json:"duration_s"`
	LoadedAt    time.Time `json:"loaded_at"`
}

// UpsertDataset records ds, refreshing the row if its directory is already
// catalogued, and returns its id.
func (db *DB) UpsertDataset(ds *capture.Dataset) (int64, error) {
	if ds == nil {
		return 0, fmt.Errorf("nil dataset")
	}
	_, err := db.Exec(`
		INSERT INTO datasets (
			dir, frame_count, frame_rate, width, height, depth_width, depth_height,
			lidar, autofocus, location, compass, duration_s, loaded_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(dir) DO UPDATE SET
			frame_count = excluded.frame_count,
			frame_rate = excluded.frame_rate,
			width = excluded.width,
			height = excluded.height,
			depth_width = excluded.depth_width,
			depth_height = excluded.depth_height,
			lidar = excluded.lidar,
			autofocus = excluded.autofocus,
			location = excluded.location,
			compass = excluded.compass,
			duration_s = excluded.duration_s,
			loaded_at = excluded.loaded_at`,
		ds.Dir, ds.Len(), ds.FrameRate, ds.Resolution.Width, ds.Resolution.Height,
		ds.DepthResolution.Width, ds.DepthResolution.Height,
		boolToInt(ds.LidarEnabled), boolToInt(ds.AutofocusEnabled),
		boolToInt(ds.LocationServicesEnabled), boolToInt(ds.CompassEnabled),
		ds.Duration(), db.clock.Now().UnixNano(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert dataset %s: %w", ds.Dir, err)
	}

	var id int64
	if err := db.QueryRow(`SELECT dataset_id FROM datasets WHERE dir = ?`, ds.Dir).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to read dataset id: %w", err)
	}
	return id, nil
}

// GetDataset returns the catalogued dataset stored in dir.
func (db *DB) GetDataset(dir string) (*DatasetRecord, error) {
	var (
		rec                                 DatasetRecord
		lidar, autofocus, location, compass int
		loadedAt                            int64
	)
	err := db.QueryRow(`
		SELECT dataset_id, dir, frame_count, frame_rate, width, height, depth_width, depth_height,
			lidar, autofocus, location, compass, duration_s, loaded_at
		FROM datasets WHERE dir = ?`, dir).Scan(
		&rec.ID, &rec.Dir, &rec.FrameCount, &rec.FrameRate, &rec.Width, &rec.Height,
		&rec.DepthWidth, &rec.DepthHeight, &lidar, &autofocus, &location, &compass,
		&rec.DurationS, &loadedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("dataset %s: %w", dir, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query dataset %s: %w", dir, err)
	}
	rec.Lidar = lidar != 0
	rec.Autofocus = autofocus != 0
	rec.Location = location != 0
	rec.Compass = compass != 0
	rec.LoadedAt = time.Unix(0, loadedAt).UTC()
	return &rec, nil
}
