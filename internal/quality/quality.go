// Package quality maps recording quality tiers to encoder parameters.
package quality

import (
	"strings"

	apperrors "github.com/CoShineApp/Buckwheat/internal/errors"
)

// Tier is a user-facing recording quality level.
type Tier int

const (
	Low Tier = iota
	Medium
	High
	Ultra
)

// Default is the tier used when nothing is configured.
const Default = High

// Encoders require even dimensions for yuv420p output; scaled sizes are
// floored to even and never drop below this minimum.
const (
	MinWidth  = 320
	MinHeight = 240
)

// String returns the lowercase tier name.
func (t Tier) String() string {
	switch t {
	case Low:
		return "low"
	case Medium:
		return "medium"
	case High:
		return "high"
	case Ultra:
		return "ultra"
	}
	return "unknown"
}

// ParseTier converts a config/CLI string into a Tier.
func ParseTier(s string) (Tier, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return Low, nil
	case "medium":
		return Medium, nil
	case "high", "":
		return High, nil
	case "ultra":
		return Ultra, nil
	}
	return High, apperrors.Newf(apperrors.CodeInvalidArgument, "unknown quality tier %q", s)
}

// Bitrate returns the target video bitrate in bits per second.
func (t Tier) Bitrate() uint32 {
	switch t {
	case Low:
		return 2_000_000
	case Medium:
		return 8_000_000
	case Ultra:
		return 35_000_000
	default:
		return 18_000_000
	}
}

// TargetResolution returns the output resolution ceiling for the tier.
// ok is false for Ultra, which records at the source's native resolution.
func (t Tier) TargetResolution() (w, h uint32, ok bool) {
	switch t {
	case Low:
		return 640, 360, true
	case Medium:
		return 1280, 720, true
	case Ultra:
		return 0, 0, false
	default:
		return 1920, 1080, true
	}
}

// ScaleDimensions fits a source size within the tier's target resolution.
// Both dimensions shrink by the same factor so the aspect ratio is
// preserved; sources already inside the target are never upscaled.
func (t Tier) ScaleDimensions(srcW, srcH uint32) (uint32, uint32) {
	if srcW == 0 || srcH == 0 {
		return MinWidth, MinHeight
	}

	tw, th, ok := t.TargetResolution()
	if !ok {
		return clampEven(srcW, MinWidth), clampEven(srcH, MinHeight)
	}

	scale := float64(tw) / float64(srcW)
	if s := float64(th) / float64(srcH); s < scale {
		scale = s
	}
	if scale > 1.0 {
		scale = 1.0
	}

	w := clampEven(uint32(float64(srcW)*scale), MinWidth)
	h := clampEven(uint32(float64(srcH)*scale), MinHeight)
	return w, h
}

// clampEven floors v to the nearest even value, no lower than min.
func clampEven(v, min uint32) uint32 {
	v = v / 2 * 2
	if v < min {
		return min
	}
	return v
}
