// Package hotkey binds a global key chord to the recorder toggle.
package hotkey

import (
	"log/slog"
	"sync"
	"time"
)

// Gate debounces toggle triggers so a held or bouncing chord cannot
// flip the recorder several times in a row.
type Gate struct {
	mu       sync.Mutex
	enabled  bool
	cooldown time.Duration
	lastTime time.Time
}

// NewGate creates a gate. A cooldown of zero disables debouncing.
func NewGate(cooldownSec float64, enabled bool) *Gate {
	return &Gate{
		enabled:  enabled,
		cooldown: time.Duration(cooldownSec * float64(time.Second)),
	}
}

// Allow reports whether a trigger should pass, consuming the cooldown
// when it does.
func (g *Gate) Allow() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.enabled {
		return false
	}
	if time.Since(g.lastTime) < g.cooldown {
		return false
	}
	g.lastTime = time.Now()
	return true
}

// SetEnabled enables/disables the hotkey.
func (g *Gate) SetEnabled(enabled bool) {
	g.mu.Lock()
	g.enabled = enabled
	g.mu.Unlock()
	slog.Info("hotkey state changed", "enabled", enabled)
}

// IsEnabled returns the current state.
func (g *Gate) IsEnabled() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.enabled
}
