// Package server exposes tablebase probing over HTTP using the same JSON
// schema as the Lichess tablebase API, so existing clients can point at a
// local instance.
package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/hailam/endgame/internal/board"
	"github.com/hailam/endgame/internal/syzygy"
	"github.com/hailam/endgame/internal/tablebase"
)

// Server probes local tablebase files and serves results over HTTP.
type Server struct {
	tables     *syzygy.Tablebase
	downloader *tablebase.SyzygyDownloader
	upgrader   websocket.Upgrader
}

// New creates a server over the given tablebase and download directory.
func New(tables *syzygy.Tablebase, downloader *tablebase.SyzygyDownloader) *Server {
	return &Server{
		tables:     tables,
		downloader: downloader,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// Handler returns the HTTP handler with logging and panic recovery.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/standard", s.handleStandard).Methods("GET")
	r.HandleFunc("/tables", s.handleTables).Methods("GET")
	r.HandleFunc("/download", s.handleDownload)

	return handlers.RecoveryHandler()(handlers.CombinedLoggingHandler(os.Stdout, r))
}

// probeResponse mirrors the Lichess tablebase schema.
type probeResponse struct {
	Category string      `json:"category"`
	DTZ      int         `json:"dtz"`
	Moves    []moveEntry `json:"moves"`
}

// moveEntry reports a move with the verdict from the point of view of the
// side to move after it, best move first.
type moveEntry struct {
	UCI      string `json:"uci"`
	SAN      string `json:"san"`
	Category string `json:"category"`
	DTZ      int    `json:"dtz"`
}

func (s *Server) handleStandard(w http.ResponseWriter, r *http.Request) {
	fen := strings.ReplaceAll(r.URL.Query().Get("fen"), "_", " ")
	if fen == "" {
		httpError(w, http.StatusBadRequest, "missing fen parameter")
		return
	}

	pos, err := board.ParseFEN(fen)
	if err != nil {
		httpError(w, http.StatusBadRequest, "invalid fen: "+err.Error())
		return
	}

	wdl, err := s.tables.ProbeWDL(pos)
	if err != nil {
		probeError(w, err)
		return
	}
	dtz, err := s.tables.ProbeDTZ(pos)
	if err != nil {
		probeError(w, err)
		return
	}

	resp := probeResponse{
		Category: wdlCategory(wdl),
		DTZ:      dtz,
		Moves:    []moveEntry{},
	}

	_, evals, err := s.tables.ProbeRoot(pos)
	if err == nil {
		for _, ev := range evals {
			scratch := *pos
			resp.Moves = append(resp.Moves, moveEntry{
				UCI:      ev.Move.String(),
				SAN:      ev.Move.ToSAN(&scratch),
				Category: wdlCategory(-ev.WDL),
				DTZ:      -ev.DTZ,
			})
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

type tablesResponse struct {
	Files     []string `json:"files"`
	MaxPieces int      `json:"maxPieces"`
}

func (s *Server) handleTables(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, tablesResponse{
		Files:     s.downloader.GetAvailableFiles(),
		MaxPieces: s.tables.LargestWdl(),
	})
}

// handleDownload streams download progress over a websocket while
// fetching the 5-piece set.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	progress := make(chan tablebase.DownloadProgress, 100)
	go func() {
		defer close(progress)
		if err := s.downloader.Download5Piece(progress); err != nil {
			progress <- tablebase.DownloadProgress{Error: err}
		}
	}()

	for p := range progress {
		msg := map[string]interface{}{
			"file":          p.File,
			"bytesReceived": p.BytesReceived,
			"totalBytes":    p.TotalBytes,
			"done":          p.Done,
		}
		if p.Error != nil {
			msg["error"] = p.Error.Error()
		}
		if err := conn.WriteJSON(msg); err != nil {
			return
		}
	}
	conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "download complete"))
}

func wdlCategory(wdl int) string {
	switch wdl {
	case 2:
		return "win"
	case 1:
		return "cursed-win"
	case -1:
		return "blessed-loss"
	case -2:
		return "loss"
	default:
		return "draw"
	}
}

func probeError(w http.ResponseWriter, err error) {
	var invalid *syzygy.InvalidPositionError
	var missing *syzygy.MissingTableError
	switch {
	case errors.As(err, &invalid):
		httpError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &missing):
		httpError(w, http.StatusNotFound, err.Error())
	default:
		log.Printf("[Syzygy] Probe failed: %v", err)
		httpError(w, http.StatusInternalServerError, "probe failed")
	}
}

func httpError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[Syzygy] Response encoding failed: %v", err)
	}
}
