package capture

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/CoShineApp/Buckwheat/internal/encoder"
	"github.com/CoShineApp/Buckwheat/internal/resilience"
)

// State tracks a session through its life.
type State int

const (
	StateAwaitingFirstFrame State = iota
	StateStreaming
	StateDraining
	StateFinished
)

func (s State) String() string {
	switch s {
	case StateAwaitingFirstFrame:
		return "awaiting_first_frame"
	case StateStreaming:
		return "streaming"
	case StateDraining:
		return "draining"
	case StateFinished:
		return "finished"
	}
	return "unknown"
}

const progressLogInterval = 300 // frames, 5s at 60fps

// Session implements Handler. It defers encoder construction to the
// first frame so the encoder always gets the frame's physical pixel
// dimensions, which display scaling can shave away from the logical
// window size; building earlier produces cropping artifacts.
//
// All mutable state sits behind one mutex. The backend invokes
// callbacks from a single goroutine, so encoder calls need no lock
// once taken out of the guarded block.
type Session struct {
	mu            sync.Mutex
	state         State
	stopRequested bool
	frames        uint64
	bytes         uint64
	startedAt     time.Time

	audio   <-chan []byte
	pending encoder.Config
	factory encoder.Factory
	enc     encoder.Encoder
	control Control

	breaker  *resilience.Breaker
	done     chan struct{}
	doneOnce sync.Once
}

// NewSession builds a session around a pending encoder config. The
// audio channel may be nil when audio is disabled.
func NewSession(pending encoder.Config, factory encoder.Factory, audio <-chan []byte) *Session {
	return &Session{
		pending: pending,
		factory: factory,
		audio:   audio,
		breaker: resilience.New(resilience.AudioConfig()),
		done:    make(chan struct{}),
	}
}

// BindControl hands the session the backend control so callback-side
// failures can stop platform capture themselves.
func (s *Session) BindControl(c Control) {
	s.mu.Lock()
	s.control = c
	s.mu.Unlock()
}

// RequestStop flags the session to finalize on the next callback. The
// flag is never reset.
func (s *Session) RequestStop() {
	s.mu.Lock()
	s.stopRequested = true
	s.mu.Unlock()
}

// Done closes once the session has fully finalized.
func (s *Session) Done() <-chan struct{} { return s.done }

// Status is a point-in-time session snapshot.
type Status struct {
	State     State
	Frames    uint64
	Bytes     uint64
	StartedAt time.Time
}

// Snapshot returns current counters.
func (s *Session) Snapshot() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{State: s.state, Frames: s.frames, Bytes: s.bytes, StartedAt: s.startedAt}
}

// OnFrame handles one delivered frame. The stop flag is checked before
// anything else on every invocation.
func (s *Session) OnFrame(f Frame) {
	s.mu.Lock()

	if s.stopRequested {
		s.finalizeAndUnlock("stop requested")
		return
	}
	if s.state == StateDraining || s.state == StateFinished {
		s.mu.Unlock()
		return
	}

	firstFrame := false
	if s.state == StateAwaitingFirstFrame {
		if !s.beginAndKeepLock(f) {
			return
		}
		firstFrame = true
	}

	// Audio queued before the first frame was already discarded in
	// beginAndKeepLock, so only later frames forward it.
	var pcm []byte
	if !firstFrame {
		pcm = s.drainAudioLocked()
	}

	enc := s.enc
	s.frames++
	s.bytes += uint64(len(f.Data()))
	frames, bytes := s.frames, s.bytes
	elapsed := time.Since(s.startedAt)
	s.mu.Unlock()

	if err := enc.SendFrame(f.Data()); err != nil {
		slog.Error("frame encode failed, stopping session", "error", err, "frame", frames)
		s.mu.Lock()
		s.finalizeAndUnlock("encode failure")
		return
	}

	if len(pcm) > 0 {
		err := s.breaker.Execute(func() error { return enc.SendAudio(pcm, elapsed) })
		if err != nil && err != resilience.ErrOpen {
			slog.Warn("audio forward failed", "error", err, "bytes", len(pcm))
		}
	}

	if frames%progressLogInterval == 0 {
		slog.Debug("capture progress", "frames", frames, "bytes", bytes, "elapsed", elapsed)
	}
}

// OnClosed finalizes when the source vanishes under us: window closed,
// capture process exited, display removed.
func (s *Session) OnClosed() {
	s.mu.Lock()
	s.finalizeAndUnlock("capture closed")
}

// beginAndKeepLock consumes the pending config on the first frame.
// Called with the lock held; keeps it on success, releases it on
// failure after stopping the backend.
func (s *Session) beginAndKeepLock(f Frame) bool {
	discarded := len(s.drainAudioLocked())

	cfg := s.pending
	cfg.Width = f.Width()
	cfg.Height = f.Height()

	enc, err := s.factory(cfg)
	if err != nil {
		ctrl := s.control
		s.state = StateFinished
		s.mu.Unlock()

		slog.Error("encoder construction failed",
			"error", err,
			"size", fmt.Sprintf("%dx%d", cfg.Width, cfg.Height))
		if ctrl != nil {
			_ = ctrl.Stop()
		}
		s.doneOnce.Do(func() { close(s.done) })
		return false
	}

	s.enc = enc
	s.state = StateStreaming
	s.startedAt = time.Now()
	slog.Info("first frame received",
		"size", fmt.Sprintf("%dx%d", cfg.Width, cfg.Height),
		"preroll_audio_discarded", discarded)
	return true
}

// drainAudioLocked empties the audio channel without blocking and
// concatenates the buffers in arrival order.
func (s *Session) drainAudioLocked() []byte {
	if s.audio == nil {
		return nil
	}
	var out []byte
	for {
		select {
		case b, ok := <-s.audio:
			if !ok {
				s.audio = nil
				return out
			}
			out = append(out, b...)
		default:
			return out
		}
	}
}

// finalizeAndUnlock runs the single finalize path: exactly one encoder
// Finish, a backend stop, then the done signal. Called with the lock
// held; releases it. Draining means another finalize already owns the
// teardown, so reentrant calls return immediately.
func (s *Session) finalizeAndUnlock(reason string) {
	if s.state == StateDraining || s.state == StateFinished {
		s.mu.Unlock()
		return
	}
	enc := s.enc
	s.enc = nil
	ctrl := s.control
	s.state = StateDraining
	frames, bytes := s.frames, s.bytes
	s.mu.Unlock()

	if enc != nil {
		if err := enc.Finish(); err != nil {
			slog.Error("encoder finalize failed", "error", err)
		}
	}
	if ctrl != nil {
		if err := ctrl.Stop(); err != nil {
			slog.Debug("capture stop", "error", err)
		}
	}

	s.mu.Lock()
	s.state = StateFinished
	s.mu.Unlock()

	s.doneOnce.Do(func() { close(s.done) })
	slog.Info("capture session finished", "reason", reason, "frames", frames, "bytes", bytes)
}
