// Package window locates the capture target among desktop windows.
package window

import (
	"fmt"
	"strconv"
	"strings"
)

// Window is one enumerated top-level window.
type Window struct {
	Handle  uintptr
	Title   string
	PID     uint32
	Process string
	Class   string
	X       int32
	Y       int32
	Width   int32
	Height  int32
	Cloaked bool
}

func (w Window) area() int64 {
	return int64(w.Width) * int64(w.Height)
}

// Display is a physical screen usable as a capture fallback.
type Display struct {
	Index   int
	Width   int32
	Height  int32
	Primary bool
}

// Kind discriminates the two capture source types.
type Kind int

const (
	KindWindow Kind = iota
	KindDisplay
)

// Target is the capture source chosen for one recording session.
type Target struct {
	Kind    Kind
	Window  Window
	Display Display
}

// Describe returns a short form for logs.
func (t Target) Describe() string {
	if t.Kind == KindWindow {
		return fmt.Sprintf("window %q (pid %d)", t.Window.Title, t.Window.PID)
	}
	return fmt.Sprintf("display %d", t.Display.Index)
}

// Source sizes below this are padded up before quality scaling so a
// shrunken window still produces a usable encode target.
const (
	minSourceWidth  = 640
	minSourceHeight = 480
)

// Size returns the capture source dimensions used for quality scaling.
func (t Target) Size() (uint32, uint32) {
	if t.Kind == KindDisplay {
		return uint32(t.Display.Width), uint32(t.Display.Height)
	}
	w, h := t.Window.Width, t.Window.Height
	if w < minSourceWidth {
		w = minSourceWidth
	}
	if h < minSourceHeight {
		h = minSourceHeight
	}
	return uint32(w), uint32(h)
}

// Hint narrows target selection to an explicitly requested window.
// Zero value means no hint.
type Hint struct {
	Title string
	PID   uint32
}

// Empty reports whether the hint constrains anything.
func (h Hint) Empty() bool {
	return h.Title == "" && h.PID == 0
}

// ParseHint splits a stored window identifier of the form
// "Faster Melee (PID:1234)" back into its parts. Plain strings are
// treated as a title hint.
func ParseHint(s string) Hint {
	s = strings.TrimSpace(s)
	if s == "" {
		return Hint{}
	}

	idx := strings.LastIndex(s, "(PID:")
	if idx < 0 {
		return Hint{Title: s}
	}

	rest := s[idx+len("(PID:"):]
	end := strings.IndexByte(rest, ')')
	if end < 0 {
		return Hint{Title: s}
	}

	pid, err := strconv.ParseUint(rest[:end], 10, 32)
	if err != nil {
		return Hint{Title: s}
	}
	return Hint{Title: strings.TrimSpace(s[:idx]), PID: uint32(pid)}
}

// FormatStoredID renders the identifier form produced for UIs, the
// inverse of ParseHint.
func FormatStoredID(w Window) string {
	return fmt.Sprintf("%s (PID:%d)", w.Title, w.PID)
}

func containsIgnoreCase(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
