// Package api exposes a read-only HTTP surface over the bridge: the recent
// transcript, the known-command table, and a live tail of cycles on the
// admin debug mux. The API never touches the serial link; the UDP socket is
// the only way to put a command on the wire.
package api

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"tailscale.com/tsweb"

	"github.com/banshee-data/obd.bridge/internal/bridge"
	"github.com/banshee-data/obd.bridge/internal/db"
	"github.com/banshee-data/obd.bridge/internal/elm"
	"github.com/banshee-data/obd.bridge/internal/version"
)

// Transcripter is the slice of the transcript store the API reads.
type Transcripter interface {
	Transcript(limit int) ([]db.TranscriptEntry, error)
}

// CycleSubscriber is the slice of the bridge the live tail consumes.
type CycleSubscriber interface {
	Subscribe() (string, chan bridge.CycleEvent)
	Unsubscribe(string)
}

type Server struct {
	bridge CycleSubscriber
	store  Transcripter
}

func NewServer(b CycleSubscriber, store Transcripter) *Server {
	return &Server{
		bridge: b,
		store:  store,
	}
}

func (s *Server) homeHandler(w http.ResponseWriter, r *http.Request) {
	fmt.Fprintf(w, "OBD Bridge %s", version.String())
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/transcript", s.listTranscript)
	mux.HandleFunc("/commands", s.listKnownCommands)
	mux.HandleFunc("/", s.homeHandler)
	return mux
}

func (s *Server) listTranscript(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	entries, err := s.store.Transcript(limit)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to retrieve transcript: %v", err), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(entries); err != nil {
		log.Printf("encode transcript: %v", err)
	}
}

func (s *Server) listKnownCommands(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(elm.KnownCommands); err != nil {
		log.Printf("encode known commands: %v", err)
	}
}

// AttachAdminRoutes mounts the live cycle tail on the debug mux: Server-Sent
// Events, one event per completed query/reply cycle.
func (s *Server) AttachAdminRoutes(mux *http.ServeMux) {
	debug := tsweb.Debugger(mux)

	debug.HandleSilentFunc("tail", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no") // Disable buffering for nginx

		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "streaming unsupported", http.StatusInternalServerError)
			return
		}

		id, c := s.bridge.Subscribe()
		defer s.bridge.Unsubscribe(id)

		// Send initial ping to establish connection
		w.Write([]byte(": ping\n\n"))
		flusher.Flush()

		for {
			select {
			case ev, ok := <-c:
				if !ok {
					return
				}
				payload, err := json.Marshal(ev)
				if err != nil {
					return
				}
				if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
					return
				}
				flusher.Flush()
			case <-r.Context().Done():
				return
			}
		}
	})
}
