// Package encoder turns raw frames and PCM audio into a playable video
// file.
package encoder

import (
	"errors"
	"time"
)

// ErrFinished is returned when an encoder is used after Finish.
var ErrFinished = errors.New("encoder already finished")

// Config carries everything the encoder needs. Width and Height stay
// zero until the first captured frame reports the physical dimensions;
// constructing the encoder any earlier bakes in the logical window
// size, which DPI scaling can make wrong by a few rows.
type Config struct {
	OutputPath   string
	Width        uint32
	Height       uint32
	FrameRate    int
	Bitrate      uint32
	Codec        string // empty selects automatically
	AudioEnabled bool
	SampleRate   int
	Channels     int
	FFmpegPath   string
}

// Encoder consumes fixed-size BGRA frames and s16le PCM buffers and
// produces the output file on Finish.
type Encoder interface {
	// SendFrame writes one frame of Width*Height*4 BGRA bytes.
	SendFrame(data []byte) error
	// SendAudio appends PCM captured around the session-relative
	// offset at. Buffers arrive in capture order.
	SendAudio(pcm []byte, at time.Duration) error
	// Finish finalizes the output. At most one call; the encoder is
	// unusable afterwards.
	Finish() error
}

// Factory builds the live encoder once the first frame's physical
// dimensions are known.
type Factory func(Config) (Encoder, error)
