//go:build !windows && !linux && !darwin

package window

import (
	"runtime"

	apperrors "github.com/CoShineApp/Buckwheat/internal/errors"
)

type stubEnumerator struct{}

// NewEnumerator returns a stub on platforms without window enumeration
// support; capture still works against the primary display via the
// platform backend.
func NewEnumerator() Enumerator { return stubEnumerator{} }

func (stubEnumerator) Windows() ([]Window, error) {
	return nil, apperrors.Newf(apperrors.CodeUnsupported, "window enumeration not supported on %s", runtime.GOOS)
}

func (stubEnumerator) PrimaryDisplay() (Display, error) {
	return Display{}, apperrors.Newf(apperrors.CodeUnsupported, "display enumeration not supported on %s", runtime.GOOS)
}
