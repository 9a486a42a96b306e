package encoder

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestVideoArgs(t *testing.T) {
	cfg := Config{
		OutputPath: "/tmp/out.mp4",
		Width:      1280,
		Height:     718,
		FrameRate:  60,
		Bitrate:    18_000_000,
	}

	args := strings.Join(videoArgs(cfg, "libx264", "/tmp/out.mp4"), " ")

	for _, want := range []string{
		"-f rawvideo",
		"-pix_fmt bgra",
		"-video_size 1280x718",
		"-framerate 60",
		"-i pipe:0",
		"-c:v libx264",
		"-b:v 18000000",
		"-pix_fmt yuv420p",
		"-movflags +faststart",
	} {
		if !strings.Contains(args, want) {
			t.Errorf("videoArgs missing %q in %q", want, args)
		}
	}
	if !strings.HasSuffix(args, "/tmp/out.mp4") {
		t.Errorf("output path should be last arg: %q", args)
	}
}

func TestMuxArgs(t *testing.T) {
	cfg := Config{
		OutputPath: "/tmp/final.mp4",
		SampleRate: 48000,
		Channels:   2,
	}

	args := strings.Join(muxArgs(cfg, "/tmp/final.mp4.video.mp4", "/tmp/final.mp4.pcm"), " ")

	for _, want := range []string{
		"-i /tmp/final.mp4.video.mp4",
		"-f s16le",
		"-ar 48000",
		"-ac 2",
		"-i /tmp/final.mp4.pcm",
		"-c:v copy",
		"-c:a aac",
		"-shortest",
	} {
		if !strings.Contains(args, want) {
			t.Errorf("muxArgs missing %q in %q", want, args)
		}
	}
}

func TestParseEncoderList(t *testing.T) {
	out := `Encoders:
 V..... = Video
 A..... = Audio
 ------
 V....D libx264              libx264 H.264 / AVC / MPEG-4 AVC
 V....D h264_nvenc           NVIDIA NVENC H.264 encoder
 A....D aac                  AAC (Advanced Audio Coding)
 S..... srt                  SubRip subtitle
`

	encoders := parseEncoderList(out)

	for _, want := range []string{"libx264", "h264_nvenc"} {
		if _, ok := encoders[want]; !ok {
			t.Errorf("missing video encoder %q", want)
		}
	}
	if _, ok := encoders["aac"]; ok {
		t.Error("audio encoder leaked into video set")
	}
	if _, ok := encoders["srt"]; ok {
		t.Error("subtitle encoder leaked into video set")
	}
}

func TestCodecCandidates(t *testing.T) {
	tests := []struct {
		goos string
		want []string
	}{
		{"windows", []string{"h264_nvenc", "h264_amf", "h264_qsv"}},
		{"darwin", []string{"h264_videotoolbox"}},
	}

	for _, tt := range tests {
		t.Run(tt.goos, func(t *testing.T) {
			got := codecCandidates(tt.goos)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d candidates, want %d", len(got), len(tt.want))
			}
			for i, name := range tt.want {
				if got[i].name != name {
					t.Errorf("candidate %d = %q, want %q", i, got[i].name, name)
				}
			}
		})
	}
}

func TestCodecCandidatesLinuxIncludesNvencAndQsv(t *testing.T) {
	got := codecCandidates("linux")
	if len(got) < 2 {
		t.Fatalf("got %d candidates, want at least nvenc and qsv", len(got))
	}
	if got[0].name != "h264_nvenc" {
		t.Errorf("first candidate = %q, want h264_nvenc", got[0].name)
	}
	if got[len(got)-1].name != "h264_qsv" {
		t.Errorf("last candidate = %q, want h264_qsv", got[len(got)-1].name)
	}
}

func TestPCMSinkFlushOnSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audio.pcm")
	sink, err := newPCMSink(path, 8, time.Hour)
	if err != nil {
		t.Fatalf("newPCMSink: %v", err)
	}

	if err := sink.Write([]byte{1, 2, 3, 4}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	// Below the threshold: nothing on disk yet.
	if data, _ := os.ReadFile(path); len(data) != 0 {
		t.Errorf("flushed early: %d bytes on disk", len(data))
	}

	if err := sink.Write([]byte{5, 6, 7, 8}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(data) != 8 {
		t.Errorf("got %d bytes on disk, want 8", len(data))
	}
	if data[0] != 1 || data[7] != 8 {
		t.Errorf("bytes out of order: %v", data)
	}

	if err := sink.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestPCMSinkCloseFlushesTail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audio.pcm")
	sink, err := newPCMSink(path, 1024, time.Hour)
	if err != nil {
		t.Fatalf("newPCMSink: %v", err)
	}

	if err := sink.Write([]byte{9, 9, 9}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if got := sink.Bytes(); got != 3 {
		t.Errorf("Bytes() = %d, want 3 including pending", got)
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(data) != 3 {
		t.Errorf("got %d bytes after close, want 3", len(data))
	}

	if err := sink.Write([]byte{1}); err != ErrFinished {
		t.Errorf("Write after close = %v, want ErrFinished", err)
	}
}

func TestPCMSinkTimerFlush(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audio.pcm")
	sink, err := newPCMSink(path, 1024, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("newPCMSink: %v", err)
	}
	defer sink.Close()

	if err := sink.Write([]byte{1, 2}); err != nil {
		t.Fatalf("Write: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if data, _ := os.ReadFile(path); len(data) == 2 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Error("timer flush never wrote the pending bytes")
}

func TestStderrTail(t *testing.T) {
	if got := stderrTail(""); got != "no ffmpeg stderr output" {
		t.Errorf("empty tail = %q", got)
	}
	long := strings.Repeat("x", 300) + "END"
	if got := stderrTail(long); len(got) != 240 || !strings.HasSuffix(got, "END") {
		t.Errorf("tail length = %d, suffix kept = %v", len(got), strings.HasSuffix(got, "END"))
	}
}
