package capture

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"regexp"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	apperrors "github.com/CoShineApp/Buckwheat/internal/errors"
	"github.com/CoShineApp/Buckwheat/internal/execx"
	"github.com/CoShineApp/Buckwheat/internal/window"
)

// startTimeout bounds how long we wait for ffmpeg to negotiate the
// capture stream before declaring the target gone.
const startTimeout = 5 * time.Second

// FFmpegBackend captures the screen with an ffmpeg grab process
// emitting rawvideo BGRA on stdout. The negotiated physical frame
// dimensions are parsed from the stream info ffmpeg prints on stderr.
type FFmpegBackend struct {
	Path string
}

// NewFFmpegBackend builds the production backend.
func NewFFmpegBackend(path string) *FFmpegBackend {
	if path == "" {
		path = "ffmpeg"
	}
	return &FFmpegBackend{Path: path}
}

func (b *FFmpegBackend) Start(ctx context.Context, target window.Target, h Handler, opts Options) (Control, error) {
	args := grabArgs(runtime.GOOS, target, opts, x11Display())
	if args == nil {
		return nil, apperrors.Newf(apperrors.CodeUnsupported, "screen capture not supported on %s", runtime.GOOS)
	}

	cmd := execx.Command(b.Path, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeUnknown, "capture stdout pipe failed")
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeUnknown, "capture stderr pipe failed")
	}

	slog.Info("starting capture", "target", target.Describe(), "command", b.Path+" "+strings.Join(args, " "))
	if err := cmd.Start(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeUnknown, "capture process start failed")
	}

	// The scanner runs for the process lifetime: stderr must keep
	// draining or ffmpeg blocks once the pipe buffer fills.
	dimCh := make(chan [2]uint32, 1)
	go scanStderr(stderr, dimCh)

	var dims [2]uint32
	select {
	case d, ok := <-dimCh:
		if !ok {
			_ = cmd.Process.Kill()
			_ = cmd.Wait()
			return nil, apperrors.Newf(apperrors.CodeUnknown, "capture failed to start for %s", target.Describe())
		}
		dims = d
	case <-time.After(startTimeout):
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return nil, apperrors.New(apperrors.CodeUnknown, "capture stream negotiation timed out")
	case <-ctx.Done():
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return nil, apperrors.Wrap(ctx.Err(), apperrors.CodeUnknown, "capture start canceled")
	}

	slog.Info("capture stream ready", "size", fmt.Sprintf("%dx%d", dims[0], dims[1]))
	go readFrames(cmd, stdout, h, dims[0], dims[1])
	return &ffmpegControl{cmd: cmd}, nil
}

type ffmpegControl struct {
	cmd  *exec.Cmd
	once sync.Once
}

// Stop kills the grab process; the reader goroutine observes EOF,
// fires OnClosed and reaps the child.
func (c *ffmpegControl) Stop() error {
	c.once.Do(func() {
		if c.cmd.Process != nil {
			_ = c.cmd.Process.Kill()
		}
	})
	return nil
}

type rawFrame struct {
	width  uint32
	height uint32
	data   []byte
}

func (f *rawFrame) Width() uint32  { return f.width }
func (f *rawFrame) Height() uint32 { return f.height }
func (f *rawFrame) Data() []byte   { return f.data }

// readFrames delivers fixed-size frames until the pipe drains. The
// frame buffer is reused between callbacks per the Handler contract.
func readFrames(cmd *exec.Cmd, stdout io.Reader, h Handler, w, hgt uint32) {
	frameSize := int(w) * int(hgt) * 4
	reader := bufio.NewReaderSize(stdout, 1<<20)
	frame := &rawFrame{width: w, height: hgt, data: make([]byte, frameSize)}

	for {
		if _, err := io.ReadFull(reader, frame.data); err != nil {
			if err != io.EOF && err != io.ErrUnexpectedEOF {
				slog.Debug("capture read ended", "error", err)
			}
			break
		}
		h.OnFrame(frame)
	}

	h.OnClosed()
	_ = cmd.Wait()
}

var videoDimsRe = regexp.MustCompile(`(\d{2,5})x(\d{2,5})`)

// scanStderr finds the input stream dimensions, then keeps the pipe
// draining, surfacing late ffmpeg chatter at debug level. Closes dimCh
// without a send when the process dies before reporting a stream.
func scanStderr(stderr io.Reader, dimCh chan<- [2]uint32) {
	defer close(dimCh)
	sent := false

	scanner := bufio.NewScanner(stderr)
	scanner.Buffer(make([]byte, 0, 64*1024), 64*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !sent {
			if w, h, ok := parseStreamDims(line); ok {
				dimCh <- [2]uint32{w, h}
				sent = true
				continue
			}
		}
		if sent && strings.TrimSpace(line) != "" {
			slog.Debug("ffmpeg", "line", line)
		}
	}
}

// parseStreamDims extracts WxH from an ffmpeg stream info line such as
//
//	Stream #0:0: Video: bmp, bgra, 1280x718, 60 fps
func parseStreamDims(line string) (uint32, uint32, bool) {
	idx := strings.Index(line, "Video:")
	if idx < 0 {
		return 0, 0, false
	}
	m := videoDimsRe.FindStringSubmatch(line[idx:])
	if m == nil {
		return 0, 0, false
	}
	w, errW := strconv.ParseUint(m[1], 10, 32)
	h, errH := strconv.ParseUint(m[2], 10, 32)
	if errW != nil || errH != nil || w == 0 || h == 0 {
		return 0, 0, false
	}
	return uint32(w), uint32(h), true
}

// grabArgs builds the platform grab command line, nil when the
// platform has no grabber. Window capture uses the window region where
// the grabber supports it and falls back to the display otherwise.
func grabArgs(goos string, target window.Target, opts Options, x11Disp string) []string {
	fps := opts.FrameRate
	if fps <= 0 {
		fps = 60
	}
	rate := strconv.Itoa(fps)

	var in []string
	switch goos {
	case "windows":
		input := "desktop"
		if target.Kind == window.KindWindow {
			input = "title=" + target.Window.Title
		}
		in = []string{
			"-f", "gdigrab",
			"-framerate", rate,
			"-draw_mouse", "1",
			"-i", input,
		}
	case "linux":
		in = []string{
			"-f", "x11grab",
			"-framerate", rate,
		}
		if target.Kind == window.KindWindow {
			x, y := target.Window.X, target.Window.Y
			if x < 0 {
				x = 0
			}
			if y < 0 {
				y = 0
			}
			in = append(in,
				"-video_size", fmt.Sprintf("%dx%d", target.Window.Width, target.Window.Height),
				"-i", fmt.Sprintf("%s+%d,%d", x11Disp, x, y),
			)
		} else {
			in = append(in, "-i", x11Disp)
		}
	case "darwin":
		// avfoundation has no window capture; grab the screen.
		screen := 0
		if target.Kind == window.KindDisplay {
			screen = target.Display.Index
		}
		in = []string{
			"-f", "avfoundation",
			"-capture_cursor", "1",
			"-framerate", rate,
			"-i", fmt.Sprintf("Capture screen %d:none", screen),
		}
	default:
		return nil
	}

	args := append([]string{"-hide_banner"}, in...)
	return append(args,
		"-an",
		"-f", "rawvideo",
		"-pix_fmt", "bgra",
		"pipe:1",
	)
}

func x11Display() string {
	if d := os.Getenv("DISPLAY"); d != "" {
		if !strings.Contains(d, ".") {
			d += ".0"
		}
		return d
	}
	return ":0.0"
}
