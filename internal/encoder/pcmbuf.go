package encoder

import (
	"os"
	"sync"
	"time"
)

// PCM sink defaults: a flush every quarter second of stereo 48kHz
// audio, or after half a second of silence on the write path.
const (
	defaultPCMFlushSize  = 48 * 1024
	defaultPCMFlushDelay = 500 * time.Millisecond
)

// pcmSink accumulates PCM writes and flushes them to the sidecar file
// in batches, keeping syscall churn off the per-frame audio path.
// Writes stay in arrival order; the mux pass replays the file as one
// continuous stream.
type pcmSink struct {
	mu         sync.Mutex
	f          *os.File
	buf        []byte
	maxSize    int
	flushDelay time.Duration
	timer      *time.Timer
	written    int64
	err        error // first write error, sticky
	closed     bool
}

func newPCMSink(path string, maxSize int, flushDelay time.Duration) (*pcmSink, error) {
	if maxSize <= 0 {
		maxSize = defaultPCMFlushSize
	}
	if flushDelay <= 0 {
		flushDelay = defaultPCMFlushDelay
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &pcmSink{
		f:          f,
		buf:        make([]byte, 0, maxSize),
		maxSize:    maxSize,
		flushDelay: flushDelay,
	}, nil
}

// Write queues pcm for the next flush.
func (s *pcmSink) Write(pcm []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrFinished
	}
	if s.err != nil {
		return s.err
	}

	s.buf = append(s.buf, pcm...)
	if len(s.buf) >= s.maxSize {
		s.flushLocked()
		return s.err
	}

	if s.timer == nil {
		s.timer = time.AfterFunc(s.flushDelay, s.timerFlush)
	} else {
		s.timer.Reset(s.flushDelay)
	}
	return nil
}

func (s *pcmSink) timerFlush() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.flushLocked()
	}
}

func (s *pcmSink) flushLocked() {
	if len(s.buf) == 0 {
		return
	}
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}

	n, err := s.f.Write(s.buf)
	s.written += int64(n)
	if err != nil && s.err == nil {
		s.err = err
	}
	s.buf = s.buf[:0]
}

// Bytes returns how much PCM reached the file so far.
func (s *pcmSink) Bytes() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.written + int64(len(s.buf))
}

// Close flushes the tail and closes the file. Returns the first error
// seen on the write path.
func (s *pcmSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return s.err
	}
	s.closed = true

	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.flushLocked()

	if err := s.f.Close(); err != nil && s.err == nil {
		s.err = err
	}
	return s.err
}
