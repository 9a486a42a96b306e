//go:build linux

package preview

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	apperrors "github.com/CoShineApp/Buckwheat/internal/errors"
	"github.com/CoShineApp/Buckwheat/internal/execx"
)

type linuxSnapshotter struct {
	tempDir string
}

func newSnapshotter(_ string, tempDir string) Snapshotter {
	return &linuxSnapshotter{tempDir: tempDir}
}

func (l *linuxSnapshotter) Capture() ([]byte, error) {
	tmpFile := filepath.Join(l.tempDir, "preview.jpg")

	var cmd *exec.Cmd
	if _, err := exec.LookPath("gnome-screenshot"); err == nil {
		cmd = execx.Command("gnome-screenshot", "-f", tmpFile)
	} else if _, err := exec.LookPath("scrot"); err == nil {
		cmd = execx.Command("scrot", "-o", tmpFile)
	} else {
		return nil, apperrors.New(apperrors.CodeUnknown, "no screenshot tool found (install gnome-screenshot or scrot)")
	}

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, apperrors.Wrapf(err, apperrors.CodeUnknown, "screenshot: %s", strings.TrimSpace(stderr.String()))
	}

	data, err := os.ReadFile(tmpFile)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeUnknown, "reading screenshot")
	}
	os.Remove(tmpFile)
	return data, nil
}
