// Package recorder coordinates target selection, screen capture, audio
// capture and encoding behind a start/stop facade.
package recorder

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/CoShineApp/Buckwheat/internal/audio"
	"github.com/CoShineApp/Buckwheat/internal/capture"
	"github.com/CoShineApp/Buckwheat/internal/config"
	"github.com/CoShineApp/Buckwheat/internal/encoder"
	apperrors "github.com/CoShineApp/Buckwheat/internal/errors"
	"github.com/CoShineApp/Buckwheat/internal/quality"
	"github.com/CoShineApp/Buckwheat/internal/trace"
	"github.com/CoShineApp/Buckwheat/internal/window"
)

const (
	historySize      = 20
	eventBuffer      = 16
	progressInterval = 5 * time.Second
)

// AudioSource is the loopback capture as the facade sees it. Stop
// joins the capture goroutine and is safe to call more than once.
type AudioSource interface {
	Start() error
	Buffers() <-chan []byte
	Format() (sampleRate, channels int)
	Dropped() uint64
	Stop()
}

// Deps are the injectable collaborators.
type Deps struct {
	Enumerator window.Enumerator
	Backend    capture.Backend
	Factory    encoder.Factory
	NewAudio   func() AudioSource
}

// DefaultDeps wires the production implementations.
func DefaultDeps(cfg *config.Config) Deps {
	return Deps{
		Enumerator: window.NewEnumerator(),
		Backend:    capture.NewFFmpegBackend(cfg.FFmpegPath),
		Factory: func(c encoder.Config) (encoder.Encoder, error) {
			return encoder.NewFFmpeg(c)
		},
		NewAudio: func() AudioSource {
			return audio.New(audio.Config{
				SampleRate: cfg.SampleRate,
				Channels:   cfg.Channels,
			})
		},
	}
}

// StartOptions parameterize one recording.
type StartOptions struct {
	OutputPath   string
	Quality      quality.Tier
	Hint         window.Hint
	AudioEnabled bool
}

// EventKind labels a lifecycle event.
type EventKind string

const (
	EventStarted  EventKind = "recording_started"
	EventProgress EventKind = "recording_progress"
	EventStopped  EventKind = "recording_stopped"
)

// Event is one entry on the lifecycle stream.
type Event struct {
	Kind     EventKind     `json:"kind"`
	Path     string        `json:"path,omitempty"`
	Target   string        `json:"target,omitempty"`
	Frames   uint64        `json:"frames,omitempty"`
	Bytes    uint64        `json:"bytes,omitempty"`
	Duration time.Duration `json:"duration_ns,omitempty"`
}

// Status reports the facade state at a point in time.
type Status struct {
	Recording    bool          `json:"recording"`
	Path         string        `json:"path,omitempty"`
	Target       string        `json:"target,omitempty"`
	Quality      string        `json:"quality,omitempty"`
	State        string        `json:"state,omitempty"`
	Frames       uint64        `json:"frames"`
	Bytes        uint64        `json:"bytes"`
	Duration     time.Duration `json:"duration_ns"`
	Audio        bool          `json:"audio"`
	AudioDropped uint64        `json:"audio_dropped,omitempty"`
}

// active is the state of one in-flight recording.
type active struct {
	session   *capture.Session
	control   capture.Control
	audio     AudioSource
	path      string
	target    string
	quality   quality.Tier
	startedAt time.Time
	audioOn   bool
}

// Recorder is the facade. One recording at a time.
type Recorder struct {
	cfg  *config.Config
	deps Deps

	mu       sync.Mutex
	current  *active
	stopping bool

	history *History
	events  chan Event
}

// New creates a recorder.
func New(cfg *config.Config, deps Deps) *Recorder {
	return &Recorder{
		cfg:     cfg,
		deps:    deps,
		history: NewHistory(historySize),
		events:  make(chan Event, eventBuffer),
	}
}

// Start begins a recording. The mutex stays held through target
// selection and backend start so two racing starts cannot both pass
// the in-progress check.
func (r *Recorder) Start(ctx context.Context, opts StartOptions) error {
	log := trace.Logger(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.current != nil || r.stopping {
		return apperrors.New(apperrors.CodeAlreadyRecording, "a recording is already in progress")
	}

	path := opts.OutputPath
	if path == "" {
		path = GeneratePath(r.cfg.OutputDir, time.Now())
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return apperrors.Wrapf(err, apperrors.CodeOutputDir, "creating output directory %s", filepath.Dir(path))
	}

	target, err := window.FindTarget(r.deps.Enumerator, opts.Hint)
	if err != nil {
		return err
	}

	srcW, srcH := target.Size()
	planW, planH := opts.Quality.ScaleDimensions(srcW, srcH)
	log.Info("recording plan",
		"target", target.Describe(),
		"quality", opts.Quality.String(),
		"bitrate", opts.Quality.Bitrate(),
		"source", fmt.Sprintf("%dx%d", srcW, srcH),
		"planned", fmt.Sprintf("%dx%d", planW, planH))

	pending := encoder.Config{
		OutputPath: path,
		FrameRate:  r.cfg.FrameRate,
		Bitrate:    opts.Quality.Bitrate(),
		FFmpegPath: r.cfg.FFmpegPath,
	}

	var (
		src     AudioSource
		buffers <-chan []byte
	)
	if opts.AudioEnabled && r.deps.NewAudio != nil {
		src = r.deps.NewAudio()
		if err := src.Start(); err != nil {
			log.Warn("audio unavailable, recording video only", "error", err)
			src = nil
		} else {
			sr, ch := src.Format()
			pending.AudioEnabled = true
			pending.SampleRate = sr
			pending.Channels = ch
			buffers = src.Buffers()
		}
	}

	session := capture.NewSession(pending, r.deps.Factory, buffers)
	ctl, err := r.deps.Backend.Start(ctx, target, session, capture.Options{FrameRate: r.cfg.FrameRate})
	if err != nil {
		if src != nil {
			src.Stop()
		}
		return err
	}
	session.BindControl(ctl)

	cur := &active{
		session:   session,
		control:   ctl,
		audio:     src,
		path:      path,
		target:    target.Describe(),
		quality:   opts.Quality,
		startedAt: time.Now(),
		audioOn:   src != nil,
	}
	r.current = cur
	go r.watch(cur)

	r.emit(Event{Kind: EventStarted, Path: path, Target: cur.target})
	log.Info("recording started", "path", path, "audio", cur.audioOn)
	return nil
}

// Stop ends the current recording and returns the output path. The
// audio thread joins first so no buffer can arrive once the session
// begins draining, then the session is flagged, the capture process
// stopped, and the caller blocks until finalization completes.
func (r *Recorder) Stop(ctx context.Context) (string, error) {
	log := trace.Logger(ctx)

	r.mu.Lock()
	cur := r.current
	if cur == nil || r.stopping {
		r.mu.Unlock()
		return "", apperrors.New(apperrors.CodeNotRecording, "no recording in progress")
	}
	r.stopping = true
	r.mu.Unlock()

	if cur.audio != nil {
		cur.audio.Stop()
		if n := cur.audio.Dropped(); n > 0 {
			log.Warn("audio buffers dropped during capture", "count", n)
		}
	}
	cur.session.RequestStop()
	_ = cur.control.Stop()

	select {
	case <-cur.session.Done():
	case <-ctx.Done():
		r.mu.Lock()
		r.current = nil
		r.stopping = false
		r.mu.Unlock()
		return "", apperrors.Wrap(ctx.Err(), apperrors.CodeUnknown, "waiting for session finalize")
	}

	sum := r.summarize(cur)
	r.history.Add(sum)

	r.mu.Lock()
	r.current = nil
	r.stopping = false
	r.mu.Unlock()

	r.emit(Event{Kind: EventStopped, Path: cur.path, Frames: sum.Frames, Bytes: sum.Bytes, Duration: sum.Duration})
	log.Info("recording stopped", "path", cur.path, "frames", sum.Frames, "duration", sum.Duration)
	return cur.path, nil
}

// IsRecording reports whether a recording is in flight.
func (r *Recorder) IsRecording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current != nil
}

// Status snapshots the facade.
func (r *Recorder) Status() Status {
	r.mu.Lock()
	cur := r.current
	r.mu.Unlock()

	if cur == nil {
		return Status{}
	}

	st := cur.session.Snapshot()
	out := Status{
		Recording: true,
		Path:      cur.path,
		Target:    cur.target,
		Quality:   cur.quality.String(),
		State:     st.State.String(),
		Frames:    st.Frames,
		Bytes:     st.Bytes,
		Audio:     cur.audioOn,
	}
	if cur.audio != nil {
		out.AudioDropped = cur.audio.Dropped()
	}
	if !st.StartedAt.IsZero() {
		out.Duration = time.Since(st.StartedAt)
	}
	return out
}

// Events returns the lifecycle stream. Slow consumers lose events
// rather than blocking the recorder.
func (r *Recorder) Events() <-chan Event {
	return r.events
}

// History returns recent recording summaries, newest first.
func (r *Recorder) History() []Summary {
	return r.history.Recent()
}

// watch emits progress while the session runs and reclaims facade
// state when the session ends on its own, which happens when the
// captured window closes or the encoder dies mid-recording.
func (r *Recorder) watch(a *active) {
	ticker := time.NewTicker(progressInterval)
	defer ticker.Stop()

	for {
		select {
		case <-a.session.Done():
			r.reclaim(a)
			return
		case <-ticker.C:
			st := a.session.Snapshot()
			if st.State != capture.StateStreaming {
				continue
			}
			r.emit(Event{
				Kind:     EventProgress,
				Path:     a.path,
				Frames:   st.Frames,
				Bytes:    st.Bytes,
				Duration: time.Since(st.StartedAt),
			})
		}
	}
}

func (r *Recorder) reclaim(a *active) {
	r.mu.Lock()
	if r.current != a || r.stopping {
		// A Stop call owns the teardown.
		r.mu.Unlock()
		return
	}
	r.current = nil
	r.mu.Unlock()

	if a.audio != nil {
		a.audio.Stop()
	}
	sum := r.summarize(a)
	r.history.Add(sum)
	r.emit(Event{Kind: EventStopped, Path: a.path, Frames: sum.Frames, Bytes: sum.Bytes, Duration: sum.Duration})
	trace.Logger(context.Background()).Info("recording ended by source",
		"path", a.path, "frames", sum.Frames, "duration", sum.Duration)
}

func (r *Recorder) summarize(a *active) Summary {
	st := a.session.Snapshot()
	started := st.StartedAt
	if started.IsZero() {
		started = a.startedAt
	}
	now := time.Now()
	return Summary{
		OutputPath: a.path,
		Target:     a.target,
		Quality:    a.quality.String(),
		StartedAt:  started,
		EndedAt:    now,
		Duration:   now.Sub(started),
		Frames:     st.Frames,
		Bytes:      st.Bytes,
		Audio:      a.audioOn,
	}
}

// emit never blocks; the stream is best effort.
func (r *Recorder) emit(e Event) {
	select {
	case r.events <- e:
	default:
	}
}
