package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/CoShineApp/Buckwheat/internal/audio"
	"github.com/CoShineApp/Buckwheat/internal/config"
	apperrors "github.com/CoShineApp/Buckwheat/internal/errors"
	"github.com/CoShineApp/Buckwheat/internal/preview"
	"github.com/CoShineApp/Buckwheat/internal/quality"
	"github.com/CoShineApp/Buckwheat/internal/recorder"
	"github.com/CoShineApp/Buckwheat/internal/window"
)

// fakeRecorder for testing.
type fakeRecorder struct {
	recording bool
	startErr  error
	stopErr   error
	stopPath  string
	lastOpts  recorder.StartOptions
	events    chan recorder.Event
	history   []recorder.Summary
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{
		stopPath: "/videos/Manual_20250309T143005.mp4",
		events:   make(chan recorder.Event, 4),
	}
}

func (f *fakeRecorder) Start(ctx context.Context, opts recorder.StartOptions) error {
	if f.startErr != nil {
		return f.startErr
	}
	f.lastOpts = opts
	f.recording = true
	return nil
}

func (f *fakeRecorder) Stop(ctx context.Context) (string, error) {
	if f.stopErr != nil {
		return "", f.stopErr
	}
	f.recording = false
	return f.stopPath, nil
}

func (f *fakeRecorder) IsRecording() bool { return f.recording }

func (f *fakeRecorder) Status() recorder.Status {
	return recorder.Status{Recording: f.recording, Frames: 42}
}

func (f *fakeRecorder) History() []recorder.Summary { return f.history }

func (f *fakeRecorder) Events() <-chan recorder.Event { return f.events }

type fakeEnumerator struct {
	wins []window.Window
	err  error
}

func (f *fakeEnumerator) Windows() ([]window.Window, error) { return f.wins, f.err }

func (f *fakeEnumerator) PrimaryDisplay() (window.Display, error) {
	return window.Display{Width: 1920, Height: 1080, Primary: true}, nil
}

type fakePreviewer struct {
	snap preview.Snapshot
	err  error
}

func (f *fakePreviewer) Refresh(ctx context.Context) (preview.Snapshot, bool, error) {
	return f.snap, true, f.err
}

func newTestServer(rec RecorderService) *Server {
	cfg := &config.Config{Quality: "high", AudioEnabled: true}
	return New(rec, cfg, Deps{
		Preview: &fakePreviewer{snap: preview.Snapshot{JPEG: []byte{0xFF, 0xD8, 0xFF, 0xD9}}},
		Enum: &fakeEnumerator{wins: []window.Window{
			{Handle: 1, Title: "Slippi Dolphin", PID: 44, Process: "Slippi Dolphin.exe", Width: 1280, Height: 720},
		}},
		Devices: func() ([]audio.Device, error) {
			return []audio.Device{{Index: 3, Name: "BlackHole 2ch", MaxInputChannels: 2, Loopback: true}}, nil
		},
	})
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &m); err != nil {
		t.Fatalf("decoding response %q: %v", rec.Body.String(), err)
	}
	return m
}

func TestCORSMiddleware(t *testing.T) {
	handler := corsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("OPTIONS", "/test", http.NoBody)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("OPTIONS status = %d, want %d", rec.Code, http.StatusOK)
	}
	if v := rec.Header().Get("Access-Control-Allow-Origin"); v != "*" {
		t.Errorf("CORS origin = %q, want %q", v, "*")
	}

	req = httptest.NewRequest("GET", "/test", http.NoBody)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("GET status = %d, want %d", rec.Code, http.StatusOK)
	}
	if v := rec.Header().Get("Access-Control-Allow-Origin"); v != "*" {
		t.Errorf("CORS origin on GET = %q, want %q", v, "*")
	}
}

func TestStartAppliesRequestOverrides(t *testing.T) {
	fake := newFakeRecorder()
	s := newTestServer(fake)

	rec := do(t, s, "POST", "/api/recording/start",
		`{"quality": "low", "target": "Dolphin", "audio": false}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if fake.lastOpts.Quality != quality.Low {
		t.Errorf("quality = %v, want low", fake.lastOpts.Quality)
	}
	if fake.lastOpts.Hint.Title != "Dolphin" {
		t.Errorf("hint title = %q, want Dolphin", fake.lastOpts.Hint.Title)
	}
	if fake.lastOpts.AudioEnabled {
		t.Error("audio enabled despite audio:false")
	}
}

func TestStartUsesConfigDefaults(t *testing.T) {
	fake := newFakeRecorder()
	s := newTestServer(fake)

	rec := do(t, s, "POST", "/api/recording/start", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if fake.lastOpts.Quality != quality.High {
		t.Errorf("quality = %v, want high from config", fake.lastOpts.Quality)
	}
	if !fake.lastOpts.AudioEnabled {
		t.Error("audio disabled despite config default")
	}
}

func TestStartConflict(t *testing.T) {
	fake := newFakeRecorder()
	fake.startErr = apperrors.New(apperrors.CodeAlreadyRecording, "a recording is already in progress")
	s := newTestServer(fake)

	rec := do(t, s, "POST", "/api/recording/start", "")

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusConflict)
	}
	if body := decodeBody(t, rec); body["code"] != "already_recording" {
		t.Errorf("code = %v, want already_recording", body["code"])
	}
}

func TestStartRejectsUnknownQuality(t *testing.T) {
	s := newTestServer(newFakeRecorder())

	rec := do(t, s, "POST", "/api/recording/start", `{"quality": "cinematic"}`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestStopReturnsPath(t *testing.T) {
	fake := newFakeRecorder()
	fake.recording = true
	s := newTestServer(fake)

	rec := do(t, s, "POST", "/api/recording/stop", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["path"] != fake.stopPath {
		t.Errorf("path = %v, want %q", body["path"], fake.stopPath)
	}
}

func TestStopConflict(t *testing.T) {
	fake := newFakeRecorder()
	fake.stopErr = apperrors.New(apperrors.CodeNotRecording, "no recording in progress")
	s := newTestServer(fake)

	rec := do(t, s, "POST", "/api/recording/stop", "")

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusConflict)
	}
}

func TestStatusEndpoint(t *testing.T) {
	s := newTestServer(newFakeRecorder())

	rec := do(t, s, "GET", "/api/recording/status", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["frames"] != float64(42) {
		t.Errorf("frames = %v, want 42", body["frames"])
	}
}

func TestWindowsEndpoint(t *testing.T) {
	s := newTestServer(newFakeRecorder())

	rec := do(t, s, "GET", "/api/windows", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var body struct {
		Windows []windowInfo `json:"windows"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if len(body.Windows) != 1 {
		t.Fatalf("windows = %d, want 1", len(body.Windows))
	}
	win := body.Windows[0]
	if win.Title != "Slippi Dolphin" {
		t.Errorf("title = %q", win.Title)
	}
	if win.StoredID != "Slippi Dolphin (PID:44)" {
		t.Errorf("stored id = %q", win.StoredID)
	}
	if win.Score < 2 {
		t.Errorf("score = %d, want >= 2", win.Score)
	}
}

func TestWindowCheckEndpoint(t *testing.T) {
	s := newTestServer(newFakeRecorder())

	tests := []struct {
		name string
		path string
		open bool
	}{
		{"live window", "/api/windows/check?id=Slippi+Dolphin+%28PID%3A44%29", true},
		{"dead pid", "/api/windows/check?id=Gone+%28PID%3A999%29", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, "GET", tt.path, "")
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d", rec.Code)
			}
			if body := decodeBody(t, rec); body["open"] != tt.open {
				t.Errorf("open = %v, want %v", body["open"], tt.open)
			}
		})
	}

	rec := do(t, s, "GET", "/api/windows/check", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing id status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestDevicesEndpoint(t *testing.T) {
	s := newTestServer(newFakeRecorder())

	rec := do(t, s, "GET", "/api/devices", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		Devices []audio.Device `json:"devices"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if len(body.Devices) != 1 || !body.Devices[0].Loopback {
		t.Errorf("devices = %+v, want one loopback device", body.Devices)
	}
}

func TestPreviewEndpoint(t *testing.T) {
	s := newTestServer(newFakeRecorder())

	rec := do(t, s, "GET", "/api/preview", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/jpeg" {
		t.Errorf("content type = %q, want image/jpeg", ct)
	}
	if !bytes.Equal(rec.Body.Bytes(), []byte{0xFF, 0xD8, 0xFF, 0xD9}) {
		t.Error("body is not the thumbnail bytes")
	}
}

func TestHistoryEndpoint(t *testing.T) {
	fake := newFakeRecorder()
	fake.history = []recorder.Summary{{OutputPath: "/videos/a.mp4", Frames: 100}}
	s := newTestServer(fake)

	rec := do(t, s, "GET", "/api/history", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		Recordings []recorder.Summary `json:"recordings"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if len(body.Recordings) != 1 || body.Recordings[0].Frames != 100 {
		t.Errorf("recordings = %+v, want one with 100 frames", body.Recordings)
	}
}

func TestStartRequiresPost(t *testing.T) {
	s := newTestServer(newFakeRecorder())

	rec := do(t, s, "GET", "/api/recording/start", "")

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusMethodNotAllowed)
	}
}

func TestRateLimiter(t *testing.T) {
	rl := &rateLimiter{}

	for i := 0; i < RateLimitMessages; i++ {
		if !rl.allow() {
			t.Fatalf("message %d blocked inside budget", i)
		}
	}
	if rl.allow() {
		t.Error("message over budget allowed")
	}
}
