//go:build darwin

package window

import "testing"

func TestParseWindowLines(t *testing.T) {
	out := "" +
		"1234\tSlippi Dolphin\t0\t25\t1280\t720\tFaster Melee - Slippi\n" +
		"42\tTerminal\t50\t60\t800\t600\tbash\n" +
		"bad line without tabs\n" +
		"99\tBroken\tx\ty\t1\t2\ttitle\n"

	wins := parseWindowLines(out)
	if len(wins) != 2 {
		t.Fatalf("got %d windows, want 2: %+v", len(wins), wins)
	}

	w := wins[0]
	if w.PID != 1234 || w.Process != "Slippi Dolphin" || w.Title != "Faster Melee - Slippi" {
		t.Errorf("first window = %+v", w)
	}
	if w.Width != 1280 || w.Height != 720 {
		t.Errorf("size = %dx%d, want 1280x720", w.Width, w.Height)
	}
}
