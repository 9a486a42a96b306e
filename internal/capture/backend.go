// Package capture drives a recording session from platform frame
// delivery to the encoder.
package capture

import (
	"context"

	"github.com/CoShineApp/Buckwheat/internal/window"
)

// Frame is one delivered video frame. Data is only valid for the
// duration of the callback; implementations may reuse the buffer.
type Frame interface {
	Width() uint32
	Height() uint32
	Data() []byte
}

// Handler receives capture callbacks. A backend drives OnFrame from a
// single goroutine in delivery order and calls OnClosed exactly once
// when the source stops producing, whatever the reason.
type Handler interface {
	OnFrame(Frame)
	OnClosed()
}

// Control stops a running capture from outside the callback goroutine.
// Stop is idempotent.
type Control interface {
	Stop() error
}

// Options tune a capture start.
type Options struct {
	FrameRate int
}

// Backend starts platform capture against a target. A target that
// disappeared between selection and start surfaces as a Start error.
type Backend interface {
	Start(ctx context.Context, target window.Target, h Handler, opts Options) (Control, error)
}
