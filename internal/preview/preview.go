// Package preview produces on-demand thumbnails of the capture target
// with perceptual change detection.
package preview

import (
	"bytes"
	"context"
	"image"
	"image/jpeg"
	_ "image/png" // PNG decoder for tools that ignore the jpg flag
	"log/slog"
	"os"
	"time"

	"github.com/corona10/goimagehash"
	"github.com/nfnt/resize"

	apperrors "github.com/CoShineApp/Buckwheat/internal/errors"
	"github.com/CoShineApp/Buckwheat/internal/resilience"
	"github.com/CoShineApp/Buckwheat/internal/syncx"
)

const (
	thumbWidth  = 480
	thumbHeight = 270

	thumbJPEGQuality = 80

	// Hamming distance at or under which two perceptual hashes count
	// as the same picture.
	maxHashDistance = 10
)

// Snapshotter takes one full-size screenshot.
type Snapshotter interface {
	Capture() ([]byte, error)
}

// Snapshot is an encoded thumbnail.
type Snapshot struct {
	JPEG    []byte
	Width   int
	Height  int
	TakenAt time.Time
}

type snapState struct {
	snap Snapshot
	hash *goimagehash.ImageHash
}

// Service owns the platform snapshotter and the latest thumbnail.
type Service struct {
	shooter Snapshotter
	latest  *syncx.RWGuard[snapState]

	tempDir     string
	ownsTempDir bool
}

// New builds the service with the platform snapshotter.
func New(ffmpegPath string) *Service {
	owns := true
	tmpDir, err := os.MkdirTemp("", "buckwheat-preview-*")
	if err != nil {
		slog.Error("failed to create preview temp dir", "error", err)
		tmpDir = os.TempDir()
		owns = false
	}
	return &Service{
		shooter:     newSnapshotter(ffmpegPath, tmpDir),
		latest:      syncx.NewGuard(snapState{}),
		tempDir:     tmpDir,
		ownsTempDir: owns,
	}
}

// Refresh takes a screenshot and returns the thumbnail to serve.
// changed is false when the screen still looks like the cached
// thumbnail, in which case the cached one is returned.
func (s *Service) Refresh(ctx context.Context) (Snapshot, bool, error) {
	var raw []byte
	err := resilience.Retry(ctx, resilience.SnapshotRetryConfig(), func() error {
		var cerr error
		raw, cerr = s.shooter.Capture()
		return cerr
	})
	if err != nil {
		return Snapshot{}, false, err
	}

	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return Snapshot{}, false, apperrors.Wrap(err, apperrors.CodeUnknown, "decoding snapshot")
	}

	hash, err := goimagehash.PerceptionHash(img)
	if err != nil {
		slog.Debug("perceptual hash failed", "error", err)
		hash = nil
	}

	thumb := resize.Thumbnail(thumbWidth, thumbHeight, img, resize.Lanczos3)
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, thumb, &jpeg.Options{Quality: thumbJPEGQuality}); err != nil {
		return Snapshot{}, false, apperrors.Wrap(err, apperrors.CodeUnknown, "encoding thumbnail")
	}

	b := thumb.Bounds()
	snap := Snapshot{JPEG: buf.Bytes(), Width: b.Dx(), Height: b.Dy(), TakenAt: time.Now()}

	var changed bool
	served := s.latest.Update(func(st *snapState) any {
		if st.hash != nil && hash != nil {
			if d, derr := st.hash.Distance(hash); derr == nil && d <= maxHashDistance {
				return st.snap
			}
		}
		st.snap = snap
		st.hash = hash
		changed = true
		return snap
	}).(Snapshot)

	return served, changed, nil
}

// Latest returns the cached thumbnail without touching the screen.
func (s *Service) Latest() (Snapshot, bool) {
	st := s.latest.Get()
	return st.snap, st.snap.JPEG != nil
}

// Close removes the working directory.
func (s *Service) Close() {
	if s.ownsTempDir {
		os.RemoveAll(s.tempDir)
	}
}
