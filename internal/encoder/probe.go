package encoder

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/CoShineApp/Buckwheat/internal/execx"
)

const probeTimeout = 5 * time.Second

// fallbackCodec always exists in any ffmpeg build we can use.
const fallbackCodec = "libx264"

var (
	probeOnce  sync.Once
	probedName string
)

// SelectCodec returns the first working H.264 encoder for this
// machine. Hardware candidates are probed once per process and the
// winner is cached; everything failing falls back to libx264.
func SelectCodec(ffmpegPath string) string {
	probeOnce.Do(func() {
		probedName = probeCodecs(ffmpegPath, codecCandidates(runtime.GOOS))
		slog.Info("video codec selected", "codec", probedName)
	})
	return probedName
}

func probeCodecs(ffmpegPath string, candidates []codecCandidate) string {
	available, err := ffmpegEncoderSet(ffmpegPath)
	if err != nil {
		slog.Debug("ffmpeg encoder listing failed", "error", err)
	}

	for _, c := range candidates {
		if len(available) > 0 {
			if _, ok := available[c.name]; !ok {
				continue
			}
		}
		if err := probeEncode(ffmpegPath, c); err != nil {
			slog.Debug("codec probe failed", "codec", c.name, "error", err)
			continue
		}
		return c.name
	}
	return fallbackCodec
}

type codecCandidate struct {
	name       string
	globalArgs []string
}

// codecCandidates lists hardware encoders worth probing per platform,
// best first.
func codecCandidates(goos string) []codecCandidate {
	switch goos {
	case "windows":
		return []codecCandidate{
			{name: "h264_nvenc"},
			{name: "h264_amf"},
			{name: "h264_qsv"},
		}
	case "darwin":
		return []codecCandidate{
			{name: "h264_videotoolbox"},
		}
	default:
		candidates := []codecCandidate{{name: "h264_nvenc"}}
		if devices, err := filepath.Glob("/dev/dri/renderD*"); err == nil {
			for _, dev := range devices {
				candidates = append(candidates, codecCandidate{
					name:       "h264_vaapi",
					globalArgs: []string{"-vaapi_device", dev},
				})
			}
		}
		return append(candidates, codecCandidate{name: "h264_qsv"})
	}
}

// ffmpegEncoderSet parses `ffmpeg -encoders` into the set of video
// encoder names this build ships.
func ffmpegEncoderSet(ffmpegPath string) (map[string]struct{}, error) {
	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()

	cmd := execx.Command(ffmpegPath, "-hide_banner", "-encoders")
	out, err := runWithContext(ctx, cmd)
	if err != nil {
		return nil, err
	}
	return parseEncoderList(string(out)), nil
}

func parseEncoderList(out string) map[string]struct{} {
	encoders := make(map[string]struct{})
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(strings.TrimSpace(line))
		if len(fields) < 2 {
			continue
		}
		// Lines look like " V....D h264_nvenc  NVIDIA NVENC ...";
		// fields[0] is the capability flags.
		if strings.Contains(fields[0], "V") {
			encoders[fields[1]] = struct{}{}
		}
	}
	return encoders
}

// probeEncode runs a tiny synthetic encode so devices that list an
// encoder but cannot initialize it (missing driver, busy GPU) are
// rejected up front.
func probeEncode(ffmpegPath string, c codecCandidate) error {
	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()

	args := []string{"-v", "error", "-nostdin"}
	args = append(args, c.globalArgs...)
	args = append(args,
		"-f", "lavfi",
		"-i", "color=c=black:s=320x240:r=30:d=0.5",
		"-an",
		"-frames:v", "8",
		"-c:v", c.name,
		"-f", "null", "-",
	)

	cmd := execx.Command(ffmpegPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := runCmdWithContext(ctx, cmd); err != nil {
		return fmt.Errorf("probe %s: %w: %s", c.name, err, stderrTail(stderr.String()))
	}
	return nil
}

// runWithContext mirrors exec.CommandContext for commands built by
// execx, which has no context constructor.
func runWithContext(ctx context.Context, cmd *exec.Cmd) ([]byte, error) {
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := runCmdWithContext(ctx, cmd); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func runCmdWithContext(ctx context.Context, cmd *exec.Cmd) error {
	if err := cmd.Start(); err != nil {
		return err
	}
	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case <-ctx.Done():
		_ = cmd.Process.Kill()
		<-done
		return fmt.Errorf("timeout after %s", probeTimeout)
	case err := <-done:
		return err
	}
}

func stderrTail(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "no ffmpeg stderr output"
	}
	if len(s) > 240 {
		s = s[len(s)-240:]
	}
	return s
}
