package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image/png"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bryanchriswhite/ScreenCaptureTool/internal/capture"
	"github.com/bryanchriswhite/ScreenCaptureTool/internal/config"
	"github.com/bryanchriswhite/ScreenCaptureTool/internal/fileops"
	"github.com/bryanchriswhite/ScreenCaptureTool/internal/history"
	"github.com/bryanchriswhite/ScreenCaptureTool/internal/library"
	"github.com/bryanchriswhite/ScreenCaptureTool/internal/logger"
	"github.com/bryanchriswhite/ScreenCaptureTool/internal/session"
	"github.com/bryanchriswhite/ScreenCaptureTool/internal/window"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

// Version is reported by the health endpoint
const Version = "0.1.0"

// HistorySource lists journal events
type HistorySource interface {
	Recent(limit int) ([]*history.Event, error)
}

// Server represents the HTTP API server
type Server struct {
	router   *mux.Router
	session  *session.Session
	windows  window.Enumerator
	history  HistorySource
	upgrader websocket.Upgrader
	httpSrv  *http.Server
}

// NewServer creates a new API server. windows and hist may be nil.
func NewServer(sess *session.Session, windows window.Enumerator, hist HistorySource) *Server {
	s := &Server{
		router:  mux.NewRouter(),
		session: sess,
		windows: windows,
		history: hist,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins for development
			},
		},
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	// Image library
	api.HandleFunc("/images", s.handleListImages).Methods("GET")
	api.HandleFunc("/images/stream", s.handleImageStream)
	api.HandleFunc("/images/{name}/thumbnail", s.handleThumbnail).Methods("GET")
	api.HandleFunc("/images/{name}", s.handleGetImage).Methods("GET")
	api.HandleFunc("/images/{name}", s.handleDeleteImage).Methods("DELETE")
	api.HandleFunc("/refresh", s.handleRefresh).Methods("POST")

	// Capture
	api.HandleFunc("/capture", s.handleCapture).Methods("POST")
	api.HandleFunc("/windows", s.handleListWindows).Methods("GET")

	// Folder and configuration
	api.HandleFunc("/folder", s.handleGetFolder).Methods("GET")
	api.HandleFunc("/folder", s.handleSetFolder).Methods("PUT")
	api.HandleFunc("/config", s.handleGetConfig).Methods("GET")
	api.HandleFunc("/history", s.handleHistory).Methods("GET")

	// Health check
	api.HandleFunc("/health", s.handleHealth).Methods("GET")

	s.router.PathPrefix("/").HandlerFunc(s.handleIndex)
}

// Handler returns the routed handler with CORS applied
func (s *Server) Handler() http.Handler {
	return s.enableCORS(s.router)
}

// Start starts the HTTP server and blocks until it stops
func (s *Server) Start(port int) error {
	addr := fmt.Sprintf(":%d", port)
	s.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	logger.WithComponent("api").Info().
		Str("url", "http://localhost"+addr).
		Msg("Starting server")
	if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops a running server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

// enableCORS adds CORS headers
func (s *Server) enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// ImageInfo is the JSON form of a library record
type ImageInfo struct {
	FileName     string `json:"file_name"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	HasThumbnail bool   `json:"has_thumbnail"`
}

// LibraryState is sent by GET /images and the stream
type LibraryState struct {
	Folder string      `json:"folder"`
	Images []ImageInfo `json:"images"`
}

func toState(folder string, records []library.Record) LibraryState {
	images := make([]ImageInfo, 0, len(records))
	for _, rec := range records {
		images = append(images, ImageInfo{
			FileName:     rec.FileName,
			Width:        rec.Width,
			Height:       rec.Height,
			HasThumbnail: rec.Thumbnail != nil,
		})
	}
	return LibraryState{Folder: folder, Images: images}
}

// CaptureRequest is the body of POST /capture. Empty Type uses the configured default.
type CaptureRequest struct {
	Type      string              `json:"type,omitempty"`
	Rect      *config.CaptureRect `json:"rect,omitempty"`
	Title     string              `json:"title,omitempty"`
	FileName  string              `json:"file_name,omitempty"`
	SubFolder string              `json:"sub_folder,omitempty"`
	Overwrite bool                `json:"overwrite"`
}

func (req CaptureRequest) spec(defaults *config.ProjectSettings) (capture.Spec, error) {
	if req.Type == "" {
		switch {
		case req.Rect != nil:
			req.Type = string(config.CaptureTypeScreenRect)
		case req.Title != "":
			req.Type = string(config.CaptureTypeWindow)
		default:
			return nil, nil
		}
	}
	t, err := config.ParseCaptureType(req.Type)
	if err != nil {
		return nil, err
	}
	if t == config.CaptureTypeWindow {
		title := req.Title
		if title == "" {
			title = defaults.CaptureWindowTitle
		}
		return capture.WindowSpec{TitleQuery: title}, nil
	}
	r := defaults.Capture
	if req.Rect != nil {
		r = *req.Rect
	}
	return capture.RectSpec{Rect: capture.Rect{Left: r.Left, Top: r.Top, Width: r.Width, Height: r.Height}}, nil
}

// HTTP Handlers

func (s *Server) handleListImages(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toState(s.session.Folder(), s.session.Records()))
}

func (s *Server) handleThumbnail(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	rec, ok := s.session.Lookup(name)
	if !ok {
		http.Error(w, "image not found", http.StatusNotFound)
		return
	}
	thumb := rec.Thumbnail
	if thumb == nil {
		thumb = library.Placeholder(s.session.Settings().ThumbnailSize, "unreadable")
		w.Header().Set("X-Thumbnail-Placeholder", "true")
	}

	w.Header().Set("Content-Type", "image/png")
	if err := png.Encode(w, thumb); err != nil {
		logger.WithComponent("api").Warn().Err(err).Str("file", name).Msg("Failed to write thumbnail")
	}
}

func (s *Server) handleGetImage(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	f, err := s.session.Open(name)
	if err != nil {
		writeError(w, err)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	http.ServeContent(w, r, name, info.ModTime(), f)
}

func (s *Server) handleDeleteImage(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	permanent, _ := strconv.ParseBool(r.URL.Query().Get("permanent"))

	outcome, err := s.session.Delete(name, permanent)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": outcome.String()})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	err := s.session.Refresh()
	if err != nil && !errors.Is(err, library.ErrDecodeFailure) {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toState(s.session.Folder(), s.session.Records()))
}

func (s *Server) handleCapture(w http.ResponseWriter, r *http.Request) {
	var req CaptureRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	spec, err := req.spec(s.session.Settings())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	res, err := s.session.Capture(session.CaptureRequest{
		Spec:      spec,
		FileStem:  req.FileName,
		SubFolder: req.SubFolder,
		Confirm:   fileops.Always(req.Overwrite),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	if res.Outcome == fileops.Cancelled {
		writeJSON(w, http.StatusConflict, map[string]string{
			"status": res.Outcome.String(),
			"error":  fmt.Sprintf("%s already exists", res.FileName),
		})
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"status":      res.Outcome.String(),
		"file_name":   res.FileName,
		"path":        res.Path,
		"width":       res.Width,
		"height":      res.Height,
		"overwritten": res.Overwritten,
		"type":        res.Strategy,
	})
}

func (s *Server) handleListWindows(w http.ResponseWriter, r *http.Request) {
	if s.windows == nil {
		http.Error(w, "window listing not available", http.StatusServiceUnavailable)
		return
	}
	infos, err := window.List(s.windows)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	type windowJSON struct {
		Handle uint64 `json:"handle"`
		Title  string `json:"title"`
		Class  string `json:"class,omitempty"`
		PID    int    `json:"pid,omitempty"`
		X      int    `json:"x"`
		Y      int    `json:"y"`
		Width  int    `json:"width"`
		Height int    `json:"height"`
	}
	out := make([]windowJSON, 0, len(infos))
	for _, info := range infos {
		out = append(out, windowJSON{
			Handle: uint64(info.Handle),
			Title:  info.Title,
			Class:  info.Class,
			PID:    info.PID,
			X:      info.Bounds.Min.X,
			Y:      info.Bounds.Min.Y,
			Width:  info.Bounds.Dx(),
			Height: info.Bounds.Dy(),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetFolder(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"folder": s.session.Folder()})
}

func (s *Server) handleSetFolder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Folder string `json:"folder"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Folder) == "" {
		http.Error(w, "folder must not be empty", http.StatusBadRequest)
		return
	}

	err := s.session.SetFolder(req.Folder)
	if err != nil && !errors.Is(err, library.ErrDecodeFailure) {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toState(s.session.Folder(), s.session.Records()))
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.session.Settings())
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeJSON(w, http.StatusOK, []*history.Event{})
		return
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	events, err := s.history.Recent(limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (s *Server) handleImageStream(w http.ResponseWriter, r *http.Request) {
	log := logger.WithComponent("api")

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("WebSocket upgrade error")
		return
	}
	defer conn.Close()

	updates := s.session.Subscribe()
	defer s.session.Unsubscribe(updates)

	// Send initial state
	if err := conn.WriteJSON(toState(s.session.Folder(), s.session.Records())); err != nil {
		log.Debug().Err(err).Msg("WebSocket write error")
		return
	}

	// Stream updates
	for change := range updates {
		if err := conn.WriteJSON(toState(change.Folder, change.Records)); err != nil {
			log.Debug().Err(err).Msg("WebSocket write error")
			return
		}
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": Version,
	})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html")
	w.Write([]byte(indexHTML))
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// statusFor maps domain errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, capture.ErrInvalidRect),
		errors.Is(err, capture.ErrEmptyTitle),
		errors.Is(err, window.ErrInvalidQuery),
		errors.Is(err, session.ErrInvalidName):
		return http.StatusBadRequest
	case errors.Is(err, capture.ErrWindowNotFound),
		errors.Is(err, session.ErrImageNotFound):
		return http.StatusNotFound
	case errors.Is(err, fileops.ErrFileLocked):
		return http.StatusLocked
	case errors.Is(err, session.ErrClosed),
		errors.Is(err, session.ErrNoCapturer):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.WithComponent("api").Error().Err(err).Msg("Request failed")
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <title>Screen Capture Tool</title>
    <style>
        body { font-family: sans-serif; max-width: 960px; margin: 40px auto; background: #f5f5f5; }
        .grid { display: flex; flex-wrap: wrap; gap: 12px; }
        .card { background: white; padding: 8px; border-radius: 6px; text-align: center; }
        .card img { display: block; margin-bottom: 4px; }
    </style>
</head>
<body>
    <h1>Screen Capture Tool</h1>
    <p>Folder: <code id="folder"></code></p>
    <button onclick="fetch('/api/capture', {method: 'POST'})">Capture</button>
    <div class="grid" id="images"></div>
    <script>
        const ws = new WebSocket((location.protocol === 'https:' ? 'wss://' : 'ws://') + location.host + '/api/images/stream');
        ws.onmessage = (ev) => {
            const state = JSON.parse(ev.data);
            document.getElementById('folder').textContent = state.folder;
            const grid = document.getElementById('images');
            grid.innerHTML = '';
            for (const img of state.images) {
                const card = document.createElement('div');
                card.className = 'card';
                const el = document.createElement('img');
                const url = '/api/images/' + encodeURIComponent(img.file_name);
                el.src = url + '/thumbnail?t=' + Date.now();
                el.ondblclick = () => window.open(url, '_blank');
                card.appendChild(el);
                const size = img.has_thumbnail ? ' (' + img.width + 'x' + img.height + ')' : '';
                card.appendChild(document.createTextNode(img.file_name + size));
                grid.appendChild(card);
            }
        };
    </script>
</body>
</html>`
