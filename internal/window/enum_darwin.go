//go:build darwin

package window

import (
	"os/exec"
	"strconv"
	"strings"

	apperrors "github.com/CoShineApp/Buckwheat/internal/errors"
)

type darwinEnumerator struct{}

// NewEnumerator returns an enumerator backed by System Events via
// osascript. Requires the automation permission the recorder already
// holds for screen capture.
func NewEnumerator() Enumerator { return darwinEnumerator{} }

// listWindowsScript emits one tab-separated line per window with the
// title last, so titles containing tabs only mangle themselves.
const listWindowsScript = `
set out to ""
tell application "System Events"
	repeat with proc in (every process whose visible is true and background only is false)
		set pidNum to unix id of proc
		set procName to name of proc
		repeat with w in (every window of proc)
			try
				set {xPos, yPos} to position of w
				set {wid, hgt} to size of w
				set out to out & pidNum & tab & procName & tab & xPos & tab & yPos & tab & wid & tab & hgt & tab & (name of w) & linefeed
			end try
		end repeat
	end repeat
end tell
return out
`

func (darwinEnumerator) Windows() ([]Window, error) {
	out, err := exec.Command("osascript", "-e", listWindowsScript).Output()
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeTargetEnumeration, "osascript window listing failed")
	}
	return parseWindowLines(string(out)), nil
}

func parseWindowLines(out string) []Window {
	var wins []Window
	for _, line := range strings.Split(out, "\n") {
		parts := strings.SplitN(line, "\t", 7)
		if len(parts) != 7 {
			continue
		}

		pid, err := strconv.ParseUint(parts[0], 10, 32)
		if err != nil {
			continue
		}
		nums := make([]int32, 4)
		ok := true
		for i := 0; i < 4; i++ {
			v, err := strconv.ParseInt(strings.TrimSpace(parts[2+i]), 10, 32)
			if err != nil {
				ok = false
				break
			}
			nums[i] = int32(v)
		}
		if !ok {
			continue
		}

		title := strings.TrimSpace(parts[6])
		if title == "" {
			continue
		}

		wins = append(wins, Window{
			Title:   title,
			PID:     uint32(pid),
			Process: parts[1],
			X:       nums[0],
			Y:       nums[1],
			Width:   nums[2],
			Height:  nums[3],
		})
	}
	return wins
}

func (darwinEnumerator) PrimaryDisplay() (Display, error) {
	out, err := exec.Command("osascript", "-e",
		`tell application "Finder" to get bounds of window of desktop`).Output()
	if err != nil {
		return Display{}, apperrors.Wrap(err, apperrors.CodeTargetEnumeration, "desktop bounds lookup failed")
	}

	// Output form: "0, 0, 2560, 1440".
	parts := strings.Split(strings.TrimSpace(string(out)), ",")
	if len(parts) != 4 {
		return Display{}, apperrors.Newf(apperrors.CodeTargetEnumeration, "unexpected desktop bounds %q", strings.TrimSpace(string(out)))
	}
	w, errW := strconv.ParseInt(strings.TrimSpace(parts[2]), 10, 32)
	h, errH := strconv.ParseInt(strings.TrimSpace(parts[3]), 10, 32)
	if errW != nil || errH != nil || w <= 0 || h <= 0 {
		return Display{}, apperrors.Newf(apperrors.CodeTargetEnumeration, "unexpected desktop bounds %q", strings.TrimSpace(string(out)))
	}
	return Display{Width: int32(w), Height: int32(h), Primary: true}, nil
}
