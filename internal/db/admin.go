package db

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/tailscale/tailsql/server/tailsql"
	"tailscale.com/tsweb"

	"github.com/banshee-data/arplayback/internal/monitoring"
)

const adminSessionLimit = 50

// AttachAdminRoutes registers the catalog debug pages on mux:
// /debug/tailsql/ for ad hoc queries, /debug/sessions for the latest
// sessions and /debug/backup for a gzipped snapshot of the database file.
func (db *DB) AttachAdminRoutes(mux *http.ServeMux) error {
	tsql, err := tailsql.NewServer(tailsql.Options{RoutePrefix: "/debug/tailsql/"})
	if err != nil {
		return fmt.Errorf("tailsql: %w", err)
	}
	tsql.SetDB("sqlite://"+filepath.Base(db.path), db.DB, &tailsql.DBOptions{
		Label: "Playback catalog",
	})

	debug := tsweb.Debugger(mux)
	debug.Handle("tailsql/", "Query the playback catalog", tsql.NewMux())
	debug.Handle("sessions", "Most recent playback sessions", http.HandlerFunc(db.serveSessions))
	debug.Handle("backup", "Download a gzipped copy of the playback catalog", http.HandlerFunc(db.serveBackup))
	return nil
}

func (db *DB) serveSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := db.ListSessions(adminSessionLimit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(sessions); err != nil {
		monitoring.Logf("[db] encode sessions: %v", err)
	}
}

// serveBackup snapshots the catalog with VACUUM INTO and streams the copy
// gzipped. The snapshot lives in a private temp dir removed afterwards.
func (db *DB) serveBackup(w http.ResponseWriter, r *http.Request) {
	tmp, err := os.MkdirTemp("", "arplayback-backup")
	if err != nil {
		http.Error(w, fmt.Sprintf("backup: %v", err), http.StatusInternalServerError)
		return
	}
	defer os.RemoveAll(tmp)

	name := fmt.Sprintf("arplayback-backup-%d.db", db.clock.Now().Unix())
	snapshot := filepath.Join(tmp, name)
	if _, err := db.Exec("VACUUM INTO ?", snapshot); err != nil {
		http.Error(w, fmt.Sprintf("backup: %v", err), http.StatusInternalServerError)
		return
	}
	f, err := os.Open(snapshot)
	if err != nil {
		http.Error(w, fmt.Sprintf("backup: %v", err), http.StatusInternalServerError)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "application/gzip")
	w.Header().Set("Content-Disposition", "attachment; filename="+name+".gz")

	zw := gzip.NewWriter(w)
	zw.Name = name
	if _, err := io.Copy(zw, f); err != nil {
		monitoring.Logf("[db] stream backup: %v", err)
	}
	if err := zw.Close(); err != nil {
		monitoring.Logf("[db] finish backup: %v", err)
	}
}
