// Package audio captures system loopback audio for the encoder.
package audio

import (
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/gordonklaus/portaudio"

	apperrors "github.com/CoShineApp/Buckwheat/internal/errors"
)

// Config controls the capture stream format.
type Config struct {
	SampleRate   int
	Channels     int
	FramesPerBuf int
	BufferDepth  int
}

func (c Config) withDefaults() Config {
	if c.SampleRate <= 0 {
		c.SampleRate = 48000
	}
	if c.Channels <= 0 {
		c.Channels = 2
	}
	if c.FramesPerBuf <= 0 {
		c.FramesPerBuf = 1024 // ~21ms at 48000Hz
	}
	if c.BufferDepth <= 0 {
		c.BufferDepth = 256
	}
	return c
}

// Capture owns one loopback input stream. The stream handle lives on a
// dedicated locked goroutine and never crosses it; the rest of the
// process sees only the output channel and the stop flag.
type Capture struct {
	cfg Config
	out chan []byte

	mu       sync.Mutex
	started  bool
	stop     atomic.Bool
	done     chan struct{}
	dropped  atomic.Uint64
	stopOnce sync.Once

	// Negotiated at stream open; published to the caller by the ready
	// handshake in Start.
	actualChannels int
}

// New creates an unstarted capture.
func New(cfg Config) *Capture {
	cfg = cfg.withDefaults()
	return &Capture{
		cfg:  cfg,
		out:  make(chan []byte, cfg.BufferDepth),
		done: make(chan struct{}),
	}
}

// Buffers returns the channel of s16le PCM buffers.
func (c *Capture) Buffers() <-chan []byte { return c.out }

// Dropped returns how many buffers were discarded because the consumer
// fell behind.
func (c *Capture) Dropped() uint64 { return c.dropped.Load() }

// Format returns the sample rate and channel count the stream actually
// opened with. Valid after Start succeeds; a mono-only loopback device
// reduces the channel count below the configured one.
func (c *Capture) Format() (sampleRate, channels int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started && c.actualChannels > 0 {
		return c.cfg.SampleRate, c.actualChannels
	}
	return c.cfg.SampleRate, c.cfg.Channels
}

// Start locates a loopback-capable input device and begins capturing.
// No usable device is reported as audio_device_unavailable; the caller
// records video-only in that case.
func (c *Capture) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return nil
	}

	if err := portaudio.Initialize(); err != nil {
		return apperrors.Wrap(err, apperrors.CodeAudioDevice, "portaudio init failed")
	}

	devices, err := portaudio.Devices()
	if err != nil {
		_ = portaudio.Terminate()
		return apperrors.Wrap(err, apperrors.CodeAudioDevice, "audio device enumeration failed")
	}

	dev := pickLoopbackDevice(devices, c.cfg.Channels)
	if dev == nil {
		_ = portaudio.Terminate()
		return apperrors.New(apperrors.CodeAudioDevice, "no loopback-capable input device found")
	}

	ready := make(chan error, 1)
	go c.run(dev, ready)
	if err := <-ready; err != nil {
		_ = portaudio.Terminate()
		return apperrors.Wrapf(err, apperrors.CodeAudioDevice, "failed to open %s", dev.Name)
	}

	c.started = true
	slog.Info("audio capture started",
		"device", dev.Name,
		"sample_rate", c.cfg.SampleRate,
		"channels", c.actualChannels,
		"byte_rate", PCM16BytesPerSecond(c.cfg.SampleRate, c.actualChannels))
	return nil
}

// run owns the stream for its whole life. The OS thread is locked so
// the host API always sees the handle from the thread that created it.
func (c *Capture) run(dev *portaudio.DeviceInfo, ready chan<- error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(c.done)

	channels := c.cfg.Channels
	if dev.MaxInputChannels < channels {
		channels = dev.MaxInputChannels
	}
	c.actualChannels = channels

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   dev,
			Channels: channels,
			Latency:  dev.DefaultLowInputLatency,
		},
		SampleRate:      float64(c.cfg.SampleRate),
		FramesPerBuffer: c.cfg.FramesPerBuf,
	}

	buf := make([]float32, c.cfg.FramesPerBuf*channels)
	stream, err := portaudio.OpenStream(params, buf)
	if err != nil {
		ready <- err
		return
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		ready <- err
		return
	}
	ready <- nil

	// Each blocking read returns one buffer (~21ms), so the stop flag
	// is observed at that cadence.
	for !c.stop.Load() {
		if err := stream.Read(); err != nil {
			slog.Debug("audio read error", "device", dev.Name, "error", err)
			break
		}

		select {
		case c.out <- Float32ToPCM16(buf):
		default:
			c.dropped.Add(1)
			slog.Debug("audio buffer full, dropping chunk", "device", dev.Name)
		}
	}

	_ = stream.Stop()
	_ = stream.Close()
	_ = portaudio.Terminate()
	slog.Info("audio capture stopped", "dropped", c.dropped.Load())
}

// Stop signals the owning goroutine and joins it. Idempotent; after it
// returns no further buffer is sent.
func (c *Capture) Stop() {
	c.stopOnce.Do(func() {
		c.stop.Store(true)

		c.mu.Lock()
		started := c.started
		c.mu.Unlock()
		if started {
			<-c.done
		}
	})
}

// loopbackKeywords identify virtual devices that mirror system output.
var loopbackKeywords = []string{
	"blackhole", "vb-cable", "loopback", "monitor",
	"soundflower", "stereo mix", "wave out", "what u hear",
}

// IsLoopbackName reports whether a device name marks a loopback device.
func IsLoopbackName(name string) bool {
	for _, kw := range loopbackKeywords {
		if containsIgnoreCase(name, kw) {
			return true
		}
	}
	return false
}

// pickLoopbackDevice prefers a loopback device that can deliver the
// requested channel count, then any loopback input at all.
func pickLoopbackDevice(devices []*portaudio.DeviceInfo, channels int) *portaudio.DeviceInfo {
	var fallback *portaudio.DeviceInfo
	for _, dev := range devices {
		if dev.MaxInputChannels < 1 || !IsLoopbackName(dev.Name) {
			continue
		}
		if dev.MaxInputChannels >= channels {
			return dev
		}
		if fallback == nil {
			fallback = dev
		}
	}
	return fallback
}

const asciiCaseOffset = 'a' - 'A'

func containsIgnoreCase(s, substr string) bool {
	if len(s) < len(substr) {
		return false
	}
	for i := 0; i <= len(s)-len(substr); i++ {
		match := true
		for j := 0; j < len(substr); j++ {
			c1, c2 := s[i+j], substr[j]
			if c1 >= 'A' && c1 <= 'Z' {
				c1 += asciiCaseOffset
			}
			if c2 >= 'A' && c2 <= 'Z' {
				c2 += asciiCaseOffset
			}
			if c1 != c2 {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}
