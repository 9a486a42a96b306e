package encoder

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"time"

	apperrors "github.com/CoShineApp/Buckwheat/internal/errors"
	"github.com/CoShineApp/Buckwheat/internal/execx"
)

// FFmpeg encodes by piping rawvideo into a child ffmpeg process. Audio
// PCM goes to a sidecar file and a second ffmpeg pass muxes the two
// streams into the final container on Finish.
type FFmpeg struct {
	cfg   Config
	codec string

	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stderr bytes.Buffer

	pcm       *pcmSink
	videoPath string
	pcmPath   string

	mu        sync.Mutex
	finished  bool
	frameSize int
	frames    uint64
}

// NewFFmpeg starts the video encode process. Satisfies Factory when
// wrapped by the production constructor in the recorder.
func NewFFmpeg(cfg Config) (*FFmpeg, error) {
	if cfg.Width == 0 || cfg.Height == 0 {
		return nil, apperrors.New(apperrors.CodeEncoderInit, "encoder dimensions not set")
	}
	if cfg.FrameRate <= 0 {
		cfg.FrameRate = 60
	}
	if cfg.FFmpegPath == "" {
		cfg.FFmpegPath = "ffmpeg"
	}

	codec := cfg.Codec
	if codec == "" {
		codec = SelectCodec(cfg.FFmpegPath)
	}

	f := &FFmpeg{
		cfg:       cfg,
		codec:     codec,
		frameSize: int(cfg.Width) * int(cfg.Height) * 4,
		videoPath: cfg.OutputPath,
	}
	if cfg.AudioEnabled {
		f.videoPath = cfg.OutputPath + ".video.mp4"
		f.pcmPath = cfg.OutputPath + ".pcm"
	}

	cmd := execx.Command(cfg.FFmpegPath, videoArgs(cfg, codec, f.videoPath)...)
	cmd.Stderr = &f.stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeEncoderInit, "ffmpeg stdin pipe failed")
	}
	if err := cmd.Start(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeEncoderInit, "ffmpeg start failed")
	}

	f.cmd = cmd
	f.stdin = stdin

	if cfg.AudioEnabled {
		sink, err := newPCMSink(f.pcmPath, 0, 0)
		if err != nil {
			_ = stdin.Close()
			_ = cmd.Process.Kill()
			_ = cmd.Wait()
			return nil, apperrors.Wrap(err, apperrors.CodeEncoderInit, "audio sidecar create failed")
		}
		f.pcm = sink
	}

	slog.Info("encoder started",
		"codec", codec,
		"size", fmt.Sprintf("%dx%d", cfg.Width, cfg.Height),
		"bitrate", cfg.Bitrate,
		"audio", cfg.AudioEnabled)
	return f, nil
}

// videoArgs builds the encode pass command line: rawvideo BGRA frames
// on stdin, H.264 in a faststart mp4 out.
func videoArgs(cfg Config, codec, outPath string) []string {
	bitrate := strconv.FormatUint(uint64(cfg.Bitrate), 10)
	maxrate := strconv.FormatUint(uint64(cfg.Bitrate)*3/2, 10)
	bufsize := strconv.FormatUint(uint64(cfg.Bitrate)*2, 10)

	return []string{
		"-y", "-loglevel", "error",
		"-f", "rawvideo",
		"-pix_fmt", "bgra",
		"-video_size", fmt.Sprintf("%dx%d", cfg.Width, cfg.Height),
		"-framerate", strconv.Itoa(cfg.FrameRate),
		"-i", "pipe:0",
		"-c:v", codec,
		"-b:v", bitrate,
		"-maxrate", maxrate,
		"-bufsize", bufsize,
		"-pix_fmt", "yuv420p",
		"-movflags", "+faststart",
		outPath,
	}
}

// muxArgs builds the second pass: copy the encoded video, encode the
// PCM sidecar to AAC, cut to the shorter stream.
func muxArgs(cfg Config, videoPath, pcmPath string) []string {
	return []string{
		"-y", "-loglevel", "error",
		"-i", videoPath,
		"-f", "s16le",
		"-ar", strconv.Itoa(cfg.SampleRate),
		"-ac", strconv.Itoa(cfg.Channels),
		"-i", pcmPath,
		"-c:v", "copy",
		"-c:a", "aac",
		"-b:a", "192k",
		"-shortest",
		cfg.OutputPath,
	}
}

// SendFrame writes one BGRA frame to the encode process.
func (f *FFmpeg) SendFrame(data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.finished {
		return ErrFinished
	}
	if len(data) != f.frameSize {
		return apperrors.Newf(apperrors.CodeUnknown, "frame size %d, expected %d", len(data), f.frameSize)
	}

	if _, err := f.stdin.Write(data); err != nil {
		return apperrors.Wrap(err, apperrors.CodeUnknown, "frame write failed").
			WithMetadata("stderr", stderrTail(f.stderr.String()))
	}
	f.frames++
	return nil
}

// SendAudio appends PCM to the sidecar. The offset is carried for
// interface symmetry; the sidecar replays in send order, so only
// arrival order matters here.
func (f *FFmpeg) SendAudio(pcm []byte, _ time.Duration) error {
	f.mu.Lock()
	sink := f.pcm
	finished := f.finished
	f.mu.Unlock()

	if finished {
		return ErrFinished
	}
	if sink == nil || len(pcm) == 0 {
		return nil
	}
	if err := sink.Write(pcm); err != nil {
		return apperrors.Wrap(err, apperrors.CodeAudioStream, "audio sidecar write failed")
	}
	return nil
}

// Finish closes the frame pipe, waits for the encode pass, then muxes
// in the audio sidecar when one has data.
func (f *FFmpeg) Finish() error {
	f.mu.Lock()
	if f.finished {
		f.mu.Unlock()
		return ErrFinished
	}
	f.finished = true
	frames := f.frames
	f.mu.Unlock()

	_ = f.stdin.Close()
	waitErr := f.cmd.Wait()

	var pcmBytes int64
	if f.pcm != nil {
		pcmBytes = f.pcm.Bytes()
		if err := f.pcm.Close(); err != nil {
			slog.Warn("audio sidecar close failed", "error", err)
			pcmBytes = 0
		}
	}

	if waitErr != nil {
		f.cleanupTemp()
		return apperrors.Wrap(waitErr, apperrors.CodeUnknown, "video encode failed").
			WithMetadata("stderr", stderrTail(f.stderr.String()))
	}

	if !f.cfg.AudioEnabled {
		slog.Info("encode finished", "path", f.cfg.OutputPath, "frames", frames)
		return nil
	}

	var err error
	if pcmBytes > 0 {
		err = f.mux()
	} else {
		// No audio ever arrived; promote the video pass output.
		slog.Info("no audio captured, keeping video-only output")
		err = os.Rename(f.videoPath, f.cfg.OutputPath)
	}
	f.cleanupTemp()
	if err != nil {
		return err
	}

	slog.Info("encode finished", "path", f.cfg.OutputPath, "frames", frames, "audio_bytes", pcmBytes)
	return nil
}

func (f *FFmpeg) mux() error {
	cmd := execx.Command(f.cfg.FFmpegPath, muxArgs(f.cfg, f.videoPath, f.pcmPath)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		// Keep the recording rather than losing it to a mux failure.
		slog.Warn("mux failed, keeping video-only output", "error", err, "stderr", stderrTail(stderr.String()))
		if renameErr := os.Rename(f.videoPath, f.cfg.OutputPath); renameErr != nil {
			return apperrors.Wrap(renameErr, apperrors.CodeUnknown, "mux fallback rename failed")
		}
	}
	return nil
}

func (f *FFmpeg) cleanupTemp() {
	if f.cfg.AudioEnabled {
		_ = os.Remove(f.videoPath)
		_ = os.Remove(f.pcmPath)
	}
}
