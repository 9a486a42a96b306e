// Package server provides the HTTP and WebSocket control surface.
package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/CoShineApp/Buckwheat/internal/audio"
	"github.com/CoShineApp/Buckwheat/internal/config"
	apperrors "github.com/CoShineApp/Buckwheat/internal/errors"
	"github.com/CoShineApp/Buckwheat/internal/preview"
	"github.com/CoShineApp/Buckwheat/internal/quality"
	"github.com/CoShineApp/Buckwheat/internal/recorder"
	"github.com/CoShineApp/Buckwheat/internal/trace"
	"github.com/CoShineApp/Buckwheat/internal/window"
)

// RecorderService is the recorder facade as the API sees it.
type RecorderService interface {
	Start(ctx context.Context, opts recorder.StartOptions) error
	Stop(ctx context.Context) (string, error)
	IsRecording() bool
	Status() recorder.Status
	History() []recorder.Summary
	Events() <-chan recorder.Event
}

// Previewer serves target thumbnails.
type Previewer interface {
	Refresh(ctx context.Context) (preview.Snapshot, bool, error)
}

// Deps are the auxiliary services behind the API.
type Deps struct {
	Preview Previewer
	Enum    window.Enumerator
	Devices func() ([]audio.Device, error)
}

// Message types.
type Message struct {
	Type string `json:"type"`
}

type EventMessage struct {
	Type     string  `json:"type"`
	Path     string  `json:"path,omitempty"`
	Target   string  `json:"target,omitempty"`
	Frames   uint64  `json:"frames,omitempty"`
	Bytes    uint64  `json:"bytes,omitempty"`
	Duration float64 `json:"duration_seconds,omitempty"`
}

type StatusMessage struct {
	Type   string          `json:"type"`
	Status recorder.Status `json:"status"`
}

type RateLimitedMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// rateLimiter tracks message timestamps using a sliding window.
type rateLimiter struct {
	timestamps []time.Time
	mu         sync.Mutex
}

// allow checks if a message is allowed and records the timestamp if so.
func (r *rateLimiter) allow() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-RateLimitWindow)

	valid := r.timestamps[:0]
	for _, t := range r.timestamps {
		if t.After(cutoff) {
			valid = append(valid, t)
		}
	}
	r.timestamps = valid

	if len(r.timestamps) >= RateLimitMessages {
		return false
	}

	r.timestamps = append(r.timestamps, now)
	return true
}

// Server handles HTTP and WebSocket connections.
type Server struct {
	rec  RecorderService
	cfg  *config.Config
	deps Deps

	mu         sync.RWMutex
	conns      map[*websocket.Conn]struct{}
	rateLimits map[*websocket.Conn]*rateLimiter
}

// New creates a server and starts the event broadcaster.
func New(rec RecorderService, cfg *config.Config, deps Deps) *Server {
	s := &Server{
		rec:        rec,
		cfg:        cfg,
		deps:       deps,
		conns:      make(map[*websocket.Conn]struct{}),
		rateLimits: make(map[*websocket.Conn]*rateLimiter),
	}

	go s.broadcastEvents()

	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// WebSocket endpoint
	mux.HandleFunc("/ws", s.handleWebSocket)

	// REST API
	mux.HandleFunc("POST /api/recording/start", s.handleStart)
	mux.HandleFunc("POST /api/recording/stop", s.handleStop)
	mux.HandleFunc("GET /api/recording/status", s.handleStatus)
	mux.HandleFunc("GET /api/windows", s.handleWindows)
	mux.HandleFunc("GET /api/windows/check", s.handleWindowCheck)
	mux.HandleFunc("GET /api/devices", s.handleDevices)
	mux.HandleFunc("GET /api/preview", s.handlePreview)
	mux.HandleFunc("GET /api/history", s.handleHistory)

	// Apply middleware: trace -> CORS
	return corsMiddleware(trace.Middleware(mux))
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

type startRequest struct {
	OutputPath string `json:"output_path"`
	Quality    string `json:"quality"`
	Target     string `json:"target"`
	Audio      *bool  `json:"audio"`
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	log := trace.Logger(r.Context())

	// An empty body starts with configured defaults.
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		writeError(w, apperrors.Wrap(err, apperrors.CodeInvalidArgument, "decoding start request"))
		return
	}

	opts, err := s.startOptions(req)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := s.rec.Start(r.Context(), opts); err != nil {
		log.Error("recording start failed", "error", err)
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]string{"status": "recording_started"})
}

// startOptions layers the request over config defaults.
func (s *Server) startOptions(req startRequest) (recorder.StartOptions, error) {
	qs := req.Quality
	if qs == "" {
		qs = s.cfg.Quality
	}
	tier, err := quality.ParseTier(qs)
	if err != nil {
		return recorder.StartOptions{}, err
	}

	hint := window.Hint{Title: s.cfg.TargetTitle, PID: uint32(s.cfg.TargetPID)}
	if req.Target != "" {
		hint = window.ParseHint(req.Target)
	}

	audioOn := s.cfg.AudioEnabled
	if req.Audio != nil {
		audioOn = *req.Audio
	}

	return recorder.StartOptions{
		OutputPath:   req.OutputPath,
		Quality:      tier,
		Hint:         hint,
		AudioEnabled: audioOn,
	}, nil
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	path, err := s.rec.Stop(r.Context())
	if err != nil {
		trace.Logger(r.Context()).Error("recording stop failed", "error", err)
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]string{"status": "recording_stopped", "path": path})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.rec.Status())
}

type windowInfo struct {
	Title    string `json:"title"`
	Process  string `json:"process,omitempty"`
	PID      uint32 `json:"pid"`
	Width    int32  `json:"width"`
	Height   int32  `json:"height"`
	Score    int    `json:"score"`
	StoredID string `json:"stored_id"`
}

func (s *Server) handleWindows(w http.ResponseWriter, r *http.Request) {
	wins, err := window.ListGameWindows(s.deps.Enum)
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]windowInfo, 0, len(wins))
	for _, win := range wins {
		out = append(out, windowInfo{
			Title:    win.Title,
			Process:  win.Process,
			PID:      win.PID,
			Width:    win.Width,
			Height:   win.Height,
			Score:    window.DetectionScore(win),
			StoredID: window.FormatStoredID(win),
		})
	}
	writeJSON(w, map[string]any{"windows": out})
}

// handleWindowCheck validates a stored window identifier so a UI can
// tell whether its remembered pick is still on screen.
func (s *Server) handleWindowCheck(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		writeError(w, apperrors.New(apperrors.CodeInvalidArgument, "missing id parameter"))
		return
	}
	writeJSON(w, map[string]any{"open": window.CheckWindowOpen(s.deps.Enum, id)})
}

func (s *Server) handleDevices(w http.ResponseWriter, r *http.Request) {
	if s.deps.Devices == nil {
		writeError(w, apperrors.New(apperrors.CodeUnsupported, "device listing not available"))
		return
	}
	devs, err := s.deps.Devices()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]any{"devices": devs})
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	if s.deps.Preview == nil {
		writeError(w, apperrors.New(apperrors.CodeUnsupported, "preview not available"))
		return
	}

	snap, _, err := s.deps.Preview.Refresh(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(snap.JPEG)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{"recordings": s.rec.History()})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		trace.Logger(r.Context()).Error("websocket accept error", "error", err)
		return
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "") }()

	s.mu.Lock()
	s.conns[conn] = struct{}{}
	s.rateLimits[conn] = &rateLimiter{}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		delete(s.rateLimits, conn)
		s.mu.Unlock()
	}()

	baseCtx := r.Context()
	log := trace.Logger(baseCtx)
	log.Info("websocket connected", "remote", r.RemoteAddr)

	for {
		var msg json.RawMessage
		if err := wsjson.Read(baseCtx, conn, &msg); err != nil {
			log.Debug("websocket read error", "error", err)
			return
		}

		s.mu.RLock()
		rl := s.rateLimits[conn]
		s.mu.RUnlock()

		if !rl.allow() {
			log.Warn("rate limit exceeded", "remote", r.RemoteAddr)
			_ = wsjson.Write(baseCtx, conn, RateLimitedMessage{
				Type:    "error",
				Message: "rate limit exceeded",
			})
			continue
		}

		var base Message
		if err := json.Unmarshal(msg, &base); err != nil {
			continue
		}

		switch base.Type {
		case "status":
			_ = wsjson.Write(baseCtx, conn, StatusMessage{Type: "status", Status: s.rec.Status()})
		}
	}
}

// broadcastEvents pushes recorder lifecycle events to every client.
func (s *Server) broadcastEvents() {
	for evt := range s.rec.Events() {
		msg := EventMessage{
			Type:     string(evt.Kind),
			Path:     evt.Path,
			Target:   evt.Target,
			Frames:   evt.Frames,
			Bytes:    evt.Bytes,
			Duration: evt.Duration.Seconds(),
		}

		s.mu.RLock()
		for conn := range s.conns {
			go func(c *websocket.Conn) {
				_ = wsjson.Write(context.Background(), c, msg)
			}(conn)
		}
		s.mu.RUnlock()
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	var appErr *apperrors.AppError
	if stderrors.As(err, &appErr) {
		status = appErr.HTTPStatus()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error": err.Error(),
		"code":  string(apperrors.CodeOf(err)),
	})
}
