package window

import (
	"fmt"
	"log/slog"

	apperrors "github.com/CoShineApp/Buckwheat/internal/errors"
)

// Enumerator lists top-level windows and displays. Production
// implementations are per-platform; tests inject fakes.
type Enumerator interface {
	Windows() ([]Window, error)
	PrimaryDisplay() (Display, error)
}

// gameKeywords identify the emulator windows this tool records.
var gameKeywords = []string{"slippi", "dolphin", "melee"}

// noiseKeywords are windows that match often but are never the game.
var noiseKeywords = []string{"discord", "chrome", "firefox"}

// FindTarget picks the capture source for a recording session. A hint
// restricts the candidate set to the requested window; without one the
// built-in keyword set is used. When no window survives filtering the
// primary display is captured instead. Enumeration failure and an empty
// desktop are fatal.
func FindTarget(enum Enumerator, hint Hint) (Target, error) {
	wins, err := enum.Windows()
	if err != nil {
		return Target{}, apperrors.Wrap(err, apperrors.CodeTargetEnumeration, "window enumeration failed")
	}
	if len(wins) == 0 {
		return Target{}, apperrors.New(apperrors.CodeTargetEnumeration, "no windows enumerated")
	}

	var candidates []Window
	if !hint.Empty() {
		candidates = filterByHint(wins, hint)
	} else {
		candidates = filterByKeywords(wins)
	}

	if len(candidates) == 0 {
		slog.Warn("no matching window, falling back to primary display", "hint", hint.Title)
		disp, err := enum.PrimaryDisplay()
		if err != nil {
			return Target{}, apperrors.Wrap(err, apperrors.CodeTargetEnumeration, "primary display lookup failed")
		}
		return Target{Kind: KindDisplay, Display: disp}, nil
	}

	best := candidates[0]
	bestScore := scoreWindow(best, hint)
	for _, w := range candidates[1:] {
		// Strictly greater keeps the first enumerated window on ties.
		if s := scoreWindow(w, hint); s > bestScore {
			best, bestScore = w, s
		}
	}

	slog.Info("capture target selected",
		"title", best.Title,
		"pid", best.PID,
		"score", bestScore,
		"size", fmtSize(best.Width, best.Height))
	return Target{Kind: KindWindow, Window: best}, nil
}

// filterByHint applies the explicit hint. A title+pid hint requires
// both; if nothing matches both, the title alone is retried so a game
// relaunched under a new pid is still found.
func filterByHint(wins []Window, hint Hint) []Window {
	matches := func(w Window, usePID bool) bool {
		if hint.Title != "" && !containsIgnoreCase(w.Title, hint.Title) {
			return false
		}
		if usePID && hint.PID != 0 && w.PID != hint.PID {
			return false
		}
		return true
	}

	var out []Window
	for _, w := range wins {
		if matches(w, true) {
			out = append(out, w)
		}
	}
	if len(out) == 0 && hint.Title != "" && hint.PID != 0 {
		slog.Debug("hint pid stale, retrying title only", "title", hint.Title, "pid", hint.PID)
		for _, w := range wins {
			if matches(w, false) {
				out = append(out, w)
			}
		}
	}
	return out
}

func filterByKeywords(wins []Window) []Window {
	var out []Window
	for _, w := range wins {
		for _, kw := range gameKeywords {
			if containsIgnoreCase(w.Title, kw) {
				out = append(out, w)
				break
			}
		}
	}
	return out
}

// scoreWindow ranks a candidate. Weights favor the explicit hint, then
// the most specific game keywords, and push down noisy apps that quote
// game titles in their own windows.
func scoreWindow(w Window, hint Hint) int {
	score := 0

	if !hint.Empty() {
		titleHit := hint.Title != "" && containsIgnoreCase(w.Title, hint.Title)
		pidHit := hint.PID != 0 && w.PID == hint.PID
		if titleHit || pidHit {
			score += 100
		}
	}

	if containsIgnoreCase(w.Title, "slippi") {
		score += 50
	}
	if containsIgnoreCase(w.Title, "melee") {
		score += 40
	}
	if containsIgnoreCase(w.Title, "dolphin") {
		score += 30
	}
	if containsIgnoreCase(w.Title, "faster") {
		score += 20
	}

	for _, kw := range noiseKeywords {
		if containsIgnoreCase(w.Title, kw) {
			score -= 50
		}
	}

	if w.area() > 800*600 {
		score += 10
	}
	return score
}

func fmtSize(w, h int32) string {
	return fmt.Sprintf("%dx%d", w, h)
}
