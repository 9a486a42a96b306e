package cli

import (
	"github.com/CoShineApp/Buckwheat/internal/config"
	"github.com/CoShineApp/Buckwheat/internal/quality"
	"github.com/CoShineApp/Buckwheat/internal/recorder"
	"github.com/CoShineApp/Buckwheat/internal/window"
)

// startOptions layers command flags over config defaults. Empty flags
// fall through to the configured values.
func startOptions(cfg *config.Config, output, tierFlag, target string, noAudio bool) (recorder.StartOptions, error) {
	name := cfg.Quality
	if tierFlag != "" {
		name = tierFlag
	}
	tier, err := quality.ParseTier(name)
	if err != nil {
		return recorder.StartOptions{}, err
	}

	hint := window.Hint{Title: cfg.TargetTitle, PID: uint32(cfg.TargetPID)}
	if target != "" {
		hint = window.ParseHint(target)
	}

	return recorder.StartOptions{
		OutputPath:   output,
		Quality:      tier,
		Hint:         hint,
		AudioEnabled: cfg.AudioEnabled && !noAudio,
	}, nil
}
