package window

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	apperrors "github.com/CoShineApp/Buckwheat/internal/errors"
)

// Detection uses a finer-grained score than capture selection: it ranks
// every plausible game window for UIs instead of picking a single
// target, so the weights reward window geometry and class as much as
// the title.

// launcherKeywords mark config/launcher windows that share the game's
// title but should rank below the game itself.
var launcherKeywords = []string{"launcher", "settings", "configuration"}

// emulatorClasses are window classes the emulator is known to register.
var emulatorClasses = []string{"dolphin", "wxwindownr"}

// dialogClasses are generic dialog/tooltip classes that are never games.
var dialogClasses = []string{"#32770", "tooltips_class32"}

const (
	// minListScore keeps a candidate in ListGameWindows output.
	minListScore = 2
	// minOpenScore confirms a stored window is still the game.
	minOpenScore = 4
)

// MatchesGameKeywords reports whether the window's title or process
// name names a known emulator.
func MatchesGameKeywords(w Window) bool {
	for _, kw := range gameKeywords {
		if containsIgnoreCase(w.Title, kw) || containsIgnoreCase(w.Process, kw) {
			return true
		}
	}
	return false
}

// DetectionScore ranks how likely a window is the running game.
func DetectionScore(w Window) int {
	score := 0

	if MatchesGameKeywords(w) {
		score += 3
	}
	for _, kw := range launcherKeywords {
		if containsIgnoreCase(w.Title, kw) {
			score -= 3
			break
		}
	}

	if w.Width >= 640 && w.Height >= 480 && !w.Cloaked {
		score += 3
	}
	if hasGameAspect(w.Width, w.Height) {
		score += 2
	}

	for _, c := range emulatorClasses {
		if containsIgnoreCase(w.Class, c) {
			score += 3
			break
		}
	}
	for _, c := range dialogClasses {
		if strings.EqualFold(w.Class, c) {
			score -= 4
			break
		}
	}
	return score
}

// hasGameAspect accepts 4:3 (native melee) and 16:9 (widescreen hacks)
// within a small tolerance.
func hasGameAspect(w, h int32) bool {
	if w <= 0 || h <= 0 {
		return false
	}
	aspect := float64(w) / float64(h)
	for _, want := range []float64{4.0 / 3.0, 16.0 / 9.0} {
		if diff := aspect - want; diff > -0.08 && diff < 0.08 {
			return true
		}
	}
	return false
}

// ListGameWindows returns every window that plausibly hosts the game,
// best candidates first. Used by the CLI and the windows endpoint.
func ListGameWindows(enum Enumerator) ([]Window, error) {
	wins, err := enum.Windows()
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeTargetEnumeration, "window enumeration failed")
	}

	type scored struct {
		win   Window
		score int
	}
	var kept []scored
	seen := make(map[string]bool)
	for _, w := range wins {
		score := DetectionScore(w)
		if score < minListScore {
			continue
		}
		key := dedupeKey(w)
		if seen[key] {
			continue
		}
		seen[key] = true
		kept = append(kept, scored{win: w, score: score})
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].score > kept[j].score
	})

	out := make([]Window, len(kept))
	for i, s := range kept {
		out[i] = s.win
	}
	slog.Debug("game window scan", "enumerated", len(wins), "candidates", len(out))
	return out, nil
}

// CheckWindowOpen reports whether a previously stored window identifier
// still resolves to a live game window. A pid in the identifier wins
// over the title since titles change with the loaded game.
func CheckWindowOpen(enum Enumerator, storedID string) bool {
	hint := ParseHint(storedID)
	if hint.Empty() {
		return false
	}

	wins, err := enum.Windows()
	if err != nil {
		return false
	}

	best := 0
	for _, w := range wins {
		if hint.PID != 0 {
			if w.PID != hint.PID {
				continue
			}
		} else if !containsIgnoreCase(w.Title, hint.Title) {
			continue
		}
		if s := DetectionScore(w); s > best {
			best = s
		}
	}
	return best >= minOpenScore
}

func dedupeKey(w Window) string {
	return fmt.Sprintf("%d:%dx%d:%s:%s", w.PID, w.Width, w.Height, w.Class, w.Title)
}
