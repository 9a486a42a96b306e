//go:build darwin

package preview

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	apperrors "github.com/CoShineApp/Buckwheat/internal/errors"
	"github.com/CoShineApp/Buckwheat/internal/execx"
)

type darwinSnapshotter struct {
	tempDir string
}

func newSnapshotter(_ string, tempDir string) Snapshotter {
	return &darwinSnapshotter{tempDir: tempDir}
}

func (d *darwinSnapshotter) Capture() ([]byte, error) {
	tmpFile := filepath.Join(d.tempDir, "preview.jpg")
	cmd := execx.Command("screencapture", "-x", "-t", "jpg", "-m", tmpFile)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, apperrors.Wrapf(err, apperrors.CodeUnknown, "screencapture: %s", strings.TrimSpace(stderr.String()))
	}

	data, err := os.ReadFile(tmpFile)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeUnknown, "reading screenshot")
	}
	os.Remove(tmpFile)
	return data, nil
}
