package cli

import (
	"fmt"
	"io"
	"time"
)

// Formatter writes user-facing command output.
type Formatter struct {
	w io.Writer
}

func NewFormatter(w io.Writer) *Formatter {
	return &Formatter{w: w}
}

func (f *Formatter) RecordingStarted(target, tier string) {
	fmt.Fprintf(f.w, "⏺️  Recording %s (%s quality)\n", target, tier)
}

func (f *Formatter) RecordingProgress(frames uint64, d time.Duration) {
	fmt.Fprintf(f.w, "   %s, %d frames\n", formatDuration(d), frames)
}

func (f *Formatter) RecordingStopped(path string, d time.Duration) {
	fmt.Fprintf(f.w, "⏹️  Recording stopped (%s)\n", formatDuration(d))
	fmt.Fprintf(f.w, "📁 Saved: %s\n", path)
}

func (f *Formatter) Error(msg string) {
	fmt.Fprintf(f.w, "❌ %s\n", msg)
}

func (f *Formatter) Info(msg string) {
	fmt.Fprintf(f.w, "ℹ️  %s\n", msg)
}

func (f *Formatter) WindowListHeader() {
	fmt.Fprintf(f.w, "🎮 Game windows:\n\n")
}

func (f *Formatter) WindowListItem(title string, pid uint32, width, height int32, score int) {
	fmt.Fprintf(f.w, "  [score %d] %s  %dx%d  pid %d\n", score, title, width, height, pid)
}

func (f *Formatter) DeviceListHeader() {
	fmt.Fprintf(f.w, "🔊 Input devices:\n\n")
}

func (f *Formatter) DeviceListItem(index int, name string, channels int, rate float64, loopback bool) {
	tag := ""
	if loopback {
		tag = "  (loopback)"
	}
	fmt.Fprintf(f.w, "  [%d] %s  %dch @ %.0fHz%s\n", index, name, channels, rate, tag)
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	m := d / time.Minute
	s := (d - m*time.Minute) / time.Second
	if m == 0 {
		return fmt.Sprintf("%ds", s)
	}
	return fmt.Sprintf("%dm%02ds", m, s)
}
