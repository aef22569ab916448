package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/arplayback/internal/playback"
)

// PlaybackSession is one run of a reader over a catalogued dataset.
type PlaybackSession struct {
	ID                string         `json:"id"`
	DatasetID         int64          `json:"dataset_id"`
	StartFrame        int            `json:"start_frame"`
	EndFrame          int            `json:"end_frame"`
	Loop              bool           `json:"loop"`
	StartedAt         time.Time      `json:"started_at"`
	EndedAt           *time.Time     `json:"ended_at,omitempty"`
	FramesPlayed      int            `json:"frames_played"`
	LastFrame         int            `json:"last_frame"`
	LastTimestamp     float64        `json:"last_timestamp"`
	Finished          bool           `json:"finished"`
	OrientationCounts map[string]int `json:"orientation_counts"`
}

// StartSession opens a session row and returns its id.
func (db *DB) StartSession(datasetID int64, startFrame, endFrame int, loop bool) (string, error) {
	id := uuid.NewString()
	_, err := db.Exec(`
		INSERT INTO playback_sessions (session_id, dataset_id, start_frame, end_frame, loop, started_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		id, datasetID, startFrame, endFrame, boolToInt(loop), db.clock.Now().UnixNano(),
	)
	if err != nil {
		return "", fmt.Errorf("failed to start session: %w", err)
	}
	return id, nil
}

// RecordStep folds one applied step into the session totals.
func (db *DB) RecordStep(sessionID string, s playback.Step) error {
	key := "$." + s.Orientation.String()
	res, err := db.Exec(`
		UPDATE playback_sessions SET
			frames_played = frames_played + 1,
			last_frame = ?,
			last_timestamp = ?,
			orientation_counts = json_set(orientation_counts, ?,
				COALESCE(json_extract(orientation_counts, ?), 0) + 1)
		WHERE session_id = ?`,
		s.FrameIndex, s.Timestamp, key, key, sessionID,
	)
	if err != nil {
		return fmt.Errorf("failed to record step for session %s: %w", sessionID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("session %s: %w", sessionID, ErrNotFound)
	}
	return nil
}

// EndSession stamps the session end time.
func (db *DB) EndSession(sessionID string, finished bool) error {
	res, err := db.Exec(`UPDATE playback_sessions SET ended_at = ?, finished = ? WHERE session_id = ?`,
		db.clock.Now().UnixNano(), boolToInt(finished), sessionID)
	if err != nil {
		return fmt.Errorf("failed to end session %s: %w", sessionID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("session %s: %w", sessionID, ErrNotFound)
	}
	return nil
}

const sessionColumns = `session_id, dataset_id, start_frame, end_frame, loop, started_at, ended_at,
	frames_played, last_frame, last_timestamp, finished, orientation_counts`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*PlaybackSession, error) {
	var (
		s              PlaybackSession
		loop, finished int
		startedAt      int64
		endedAt        sql.NullInt64
		countsJSON     string
	)
	if err := row.Scan(&s.ID, &s.DatasetID, &s.StartFrame, &s.EndFrame, &loop, &startedAt, &endedAt,
		&s.FramesPlayed, &s.LastFrame, &s.LastTimestamp, &finished, &countsJSON); err != nil {
		return nil, err
	}
	s.Loop = loop != 0
	s.Finished = finished != 0
	s.StartedAt = time.Unix(0, startedAt).UTC()
	if endedAt.Valid {
		t := time.Unix(0, endedAt.Int64).UTC()
		s.EndedAt = &t
	}
	s.OrientationCounts = map[string]int{}
	if err := json.Unmarshal([]byte(countsJSON), &s.OrientationCounts); err != nil {
		return nil, fmt.Errorf("session %s orientation counts: %w", s.ID, err)
	}
	return &s, nil
}

// GetSession returns one session by id.
func (db *DB) GetSession(id string) (*PlaybackSession, error) {
	s, err := scanSession(db.QueryRow(`SELECT `+sessionColumns+` FROM playback_sessions WHERE session_id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query session %s: %w", id, err)
	}
	return s, nil
}

// ListSessions returns up to limit sessions, newest first. A limit of zero
// or less returns all of them.
func (db *DB) ListSessions(limit int) ([]PlaybackSession, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := db.Query(`SELECT `+sessionColumns+` FROM playback_sessions
		ORDER BY started_at DESC, session_id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	sessions := []PlaybackSession{}
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sessions, nil
}

// SessionObserver records driver steps into one session.
type SessionObserver struct {
	db *DB
	id string
}

// NewSessionObserver returns a playback.StepObserver writing to session id.
func (db *DB) NewSessionObserver(id string) *SessionObserver {
	return &SessionObserver{db: db, id: id}
}

// ID returns the session id.
func (o *SessionObserver) ID() string { return o.id }

// ObserveStep implements playback.StepObserver. Write failures are logged.
func (o *SessionObserver) ObserveStep(s playback.Step) {
	if err := o.db.RecordStep(o.id, s); err != nil {
		log.Printf("[session] %v", err)
	}
}
