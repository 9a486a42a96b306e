//go:build !windows && !linux && !darwin

package preview

import (
	"runtime"

	apperrors "github.com/CoShineApp/Buckwheat/internal/errors"
)

type stubSnapshotter struct{}

func newSnapshotter(_, _ string) Snapshotter {
	return stubSnapshotter{}
}

func (stubSnapshotter) Capture() ([]byte, error) {
	return nil, apperrors.Newf(apperrors.CodeUnsupported, "screen snapshots not supported on %s", runtime.GOOS)
}
