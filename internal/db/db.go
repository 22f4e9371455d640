// Package db stores the protocol transcript: every command put on the serial
// link and every framed reply, keyed by a per-cycle ID so a command can be
// correlated with its reply and the trace log.
package db

import (
	"compress/gzip"
	"database/sql"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/tailscale/tailsql/server/tailsql"
	_ "modernc.org/sqlite"
	"tailscale.com/tsweb"
)

type DB struct {
	*sql.DB

	// path is where the database file lives; backups are written next to it.
	path string
}

// New opens (or creates) the transcript database at path. Schema is managed
// by migrations; call MigrateUp before first use.
func New(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	return &DB{DB: db, path: path}, nil
}

// RecordCommand stores a command at the moment it is transmitted.
func (db *DB) RecordCommand(cycleID, command string) error {
	_, err := db.Exec(
		"INSERT INTO commands (cycle_id, command) VALUES (?, ?)",
		cycleID, command,
	)
	return err
}

// RecordReply stores the framed reply for a cycle along with its category
// and the payload relayed to the client (empty when nothing was relayed).
func (db *DB) RecordReply(cycleID, category, framed, relayed string) error {
	_, err := db.Exec(
		"INSERT INTO replies (cycle_id, category, framed, relayed) VALUES (?, ?, ?, ?)",
		cycleID, category, framed, relayed,
	)
	return err
}

// TranscriptEntry is one command/reply pair from the transcript.
type TranscriptEntry struct {
	CycleID   string    `json:"cycle_id"`
	Command   string    `json:"command"`
	Category  string    `json:"category"`
	Framed    string    `json:"framed"`
	Relayed   string    `json:"relayed"`
	Timestamp time.Time `json:"timestamp"`
}

// Transcript returns the most recent cycles, newest first. Cycles whose
// reply never arrived (timeout, overflow) appear with empty reply fields.
func (db *DB) Transcript(limit int) ([]TranscriptEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.Query(`
		SELECT c.cycle_id, c.command,
		       COALESCE(r.category, ''), COALESCE(r.framed, ''), COALESCE(r.relayed, ''),
		       c.timestamp
		FROM commands c
		LEFT JOIN replies r ON r.cycle_id = c.cycle_id
		ORDER BY c.timestamp DESC, c.rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []TranscriptEntry
	for rows.Next() {
		var e TranscriptEntry
		if err := rows.Scan(&e.CycleID, &e.Command, &e.Category, &e.Framed, &e.Relayed, &e.Timestamp); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// AttachAdminRoutes mounts database debugging endpoints on the given mux
// under /debug/: live SQL access via tailsql and a one-shot backup download.
func (db *DB) AttachAdminRoutes(mux *http.ServeMux) {
	debug := tsweb.Debugger(mux)

	tsql, err := tailsql.NewServer(tailsql.Options{
		RoutePrefix: "/debug/tailsql/",
	})
	if err != nil {
		log.Fatalf("failed to create tailsql server: %v", err)
	}
	tsql.SetDB(fmt.Sprintf("sqlite://%s", db.path), db.DB, &tailsql.DBOptions{
		Label: "OBD Bridge DB",
	})
	debug.Handle("tailsql/", "SQL live debugging", tsql.NewMux())

	debug.Handle("backup", "Create and download a backup of the transcript database", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		backupPath := filepath.Join(filepath.Dir(db.path), fmt.Sprintf("backup-%d.db", time.Now().Unix()))
		if _, err := db.Exec("VACUUM INTO ?", backupPath); err != nil {
			http.Error(w, fmt.Sprintf("Failed to create backup: %v", err), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filepath.Base(backupPath)))
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Header().Set("Content-Encoding", "gzip")

		backupFile, err := os.Open(backupPath)
		if err != nil {
			http.Error(w, fmt.Sprintf("Failed to open backup file: %v", err), http.StatusInternalServerError)
			return
		}
		defer func() {
			backupFile.Close()
			if err := os.Remove(backupPath); err != nil {
				log.Printf("Failed to remove backup file: %v", err)
			}
		}()

		gzipWriter := gzip.NewWriter(w)
		defer gzipWriter.Close()
		if _, err := io.Copy(gzipWriter, backupFile); err != nil {
			http.Error(w, fmt.Sprintf("Failed to write backup file: %v", err), http.StatusInternalServerError)
			return
		}
	}))
}
