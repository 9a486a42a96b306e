//go:build linux

package window

import (
	"os"
	"os/exec"
	"strconv"
	"strings"

	apperrors "github.com/CoShineApp/Buckwheat/internal/errors"
)

type linuxEnumerator struct{}

// NewEnumerator returns an enumerator backed by wmctrl and xrandr.
func NewEnumerator() Enumerator { return linuxEnumerator{} }

func (linuxEnumerator) Windows() ([]Window, error) {
	if _, err := exec.LookPath("wmctrl"); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeTargetEnumeration, "wmctrl not found (install wmctrl)")
	}

	out, err := exec.Command("wmctrl", "-l", "-p", "-G").Output()
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeTargetEnumeration, "wmctrl failed")
	}
	return parseWmctrl(string(out)), nil
}

// parseWmctrl reads `wmctrl -lpG` lines:
//
//	0x03e00003  0 1234  100 200 1280 720 host Faster Melee - Slippi
//
// Sticky desktop entries (-1) are panels and docks, skipped.
func parseWmctrl(out string) []Window {
	var wins []Window
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 9 {
			continue
		}
		if fields[1] == "-1" {
			continue
		}

		id, err := strconv.ParseUint(strings.TrimPrefix(fields[0], "0x"), 16, 64)
		if err != nil {
			continue
		}
		pid, err := strconv.ParseUint(fields[2], 10, 32)
		if err != nil {
			continue
		}
		geom := make([]int32, 4)
		ok := true
		for i := 0; i < 4; i++ {
			v, err := strconv.ParseInt(fields[3+i], 10, 32)
			if err != nil {
				ok = false
				break
			}
			geom[i] = int32(v)
		}
		if !ok {
			continue
		}

		title := strings.Join(fields[8:], " ")
		if title == "" {
			continue
		}

		wins = append(wins, Window{
			Handle:  uintptr(id),
			Title:   title,
			PID:     uint32(pid),
			Process: procComm(uint32(pid)),
			X:       geom[0],
			Y:       geom[1],
			Width:   geom[2],
			Height:  geom[3],
		})
	}
	return wins
}

func procComm(pid uint32) string {
	data, err := os.ReadFile("/proc/" + strconv.FormatUint(uint64(pid), 10) + "/comm")
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

func (linuxEnumerator) PrimaryDisplay() (Display, error) {
	out, err := exec.Command("xrandr", "--query").Output()
	if err != nil {
		return Display{}, apperrors.Wrap(err, apperrors.CodeTargetEnumeration, "xrandr failed")
	}

	if d, ok := parseXrandr(string(out)); ok {
		return d, nil
	}
	return Display{}, apperrors.New(apperrors.CodeTargetEnumeration, "no connected display in xrandr output")
}

// parseXrandr finds the primary output's mode, falling back to the
// first connected output.
func parseXrandr(out string) (Display, bool) {
	var fallback Display
	haveFallback := false

	for _, line := range strings.Split(out, "\n") {
		if !strings.Contains(line, " connected") {
			continue
		}
		d, ok := parseXrandrMode(line)
		if !ok {
			continue
		}
		if strings.Contains(line, " primary ") {
			d.Primary = true
			return d, true
		}
		if !haveFallback {
			fallback = d
			haveFallback = true
		}
	}
	return fallback, haveFallback
}

func parseXrandrMode(line string) (Display, bool) {
	for _, tok := range strings.Fields(line) {
		// Mode tokens look like 2560x1440+0+0.
		plus := strings.IndexByte(tok, '+')
		if plus <= 0 {
			continue
		}
		wh := strings.SplitN(tok[:plus], "x", 2)
		if len(wh) != 2 {
			continue
		}
		w, errW := strconv.ParseInt(wh[0], 10, 32)
		h, errH := strconv.ParseInt(wh[1], 10, 32)
		if errW != nil || errH != nil || w <= 0 || h <= 0 {
			continue
		}
		return Display{Width: int32(w), Height: int32(h)}, true
	}
	return Display{}, false
}
