//go:build windows

package preview

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	apperrors "github.com/CoShineApp/Buckwheat/internal/errors"
	"github.com/CoShineApp/Buckwheat/internal/execx"
)

// windowsSnapshotter grabs one desktop frame with the same ffmpeg the
// recorder already requires.
type windowsSnapshotter struct {
	ffmpegPath string
	tempDir    string
}

func newSnapshotter(ffmpegPath, tempDir string) Snapshotter {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &windowsSnapshotter{ffmpegPath: ffmpegPath, tempDir: tempDir}
}

func (w *windowsSnapshotter) Capture() ([]byte, error) {
	tmpFile := filepath.Join(w.tempDir, "preview.jpg")
	cmd := execx.Command(w.ffmpegPath,
		"-hide_banner", "-loglevel", "error",
		"-f", "gdigrab", "-framerate", "1", "-i", "desktop",
		"-frames:v", "1", "-q:v", "4",
		"-y", tmpFile)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, apperrors.Wrapf(err, apperrors.CodeUnknown, "gdigrab snapshot: %s", strings.TrimSpace(stderr.String()))
	}

	data, err := os.ReadFile(tmpFile)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeUnknown, "reading snapshot")
	}
	os.Remove(tmpFile)
	return data, nil
}
