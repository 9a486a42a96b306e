package hotkey

import (
	"context"
	"log/slog"

	hook "github.com/robotn/gohook"
)

// defaultChord toggles recording from anywhere, including while the
// game holds focus.
var defaultChord = []string{"ctrl", "shift", "r"}

// Toggle owns the global hook loop.
type Toggle struct {
	gate     *Gate
	onToggle func()
}

// NewToggle binds the chord to onToggle behind the gate.
func NewToggle(gate *Gate, onToggle func()) *Toggle {
	return &Toggle{gate: gate, onToggle: onToggle}
}

// Run blocks until ctx is canceled or the hook loop ends. The callback
// runs on its own goroutine so a slow toggle cannot back up the event
// loop.
func (t *Toggle) Run(ctx context.Context) {
	hook.Register(hook.KeyDown, defaultChord, func(e hook.Event) {
		if t.gate.Allow() {
			slog.Info("toggle hotkey pressed")
			go t.onToggle()
		}
	})

	events := hook.Start()
	defer hook.End()

	slog.Info("global hotkey registered", "chord", "ctrl+shift+r")
	done := hook.Process(events)

	select {
	case <-ctx.Done():
	case <-done:
	}
}
