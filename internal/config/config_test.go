package config

import (
	"os"
	"path/filepath"
	"testing"
)

func isolate(t *testing.T) {
	t.Helper()
	// Point the file lookup at a path that does not exist so host
	// configuration cannot leak into assertions.
	os.Setenv("BUCKWHEAT_CONFIG", filepath.Join(t.TempDir(), "absent.toml"))
	envVars := []string{
		"BUCKWHEAT_HTTP_ADDR", "BUCKWHEAT_OUTPUT_DIR", "BUCKWHEAT_QUALITY",
		"BUCKWHEAT_FRAME_RATE", "BUCKWHEAT_AUDIO", "BUCKWHEAT_SAMPLE_RATE",
		"BUCKWHEAT_CHANNELS", "BUCKWHEAT_TARGET_WINDOW", "BUCKWHEAT_TARGET_PID",
		"BUCKWHEAT_FFMPEG", "BUCKWHEAT_HOTKEY", "BUCKWHEAT_HOTKEY_COOLDOWN",
		"BUCKWHEAT_LOG_LEVEL",
	}
	for _, v := range envVars {
		os.Unsetenv(v)
	}
	t.Cleanup(func() {
		os.Unsetenv("BUCKWHEAT_CONFIG")
		for _, v := range envVars {
			os.Unsetenv(v)
		}
	})
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg := Load()

	if cfg.HTTPAddr != ":8790" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":8790")
	}
	if cfg.Quality != "high" {
		t.Errorf("Quality = %q, want %q", cfg.Quality, "high")
	}
	if cfg.FrameRate != 60 {
		t.Errorf("FrameRate = %d, want %d", cfg.FrameRate, 60)
	}
	if !cfg.AudioEnabled {
		t.Error("AudioEnabled should default to true")
	}
	if cfg.SampleRate != 48000 {
		t.Errorf("SampleRate = %d, want %d", cfg.SampleRate, 48000)
	}
	if cfg.Channels != 2 {
		t.Errorf("Channels = %d, want %d", cfg.Channels, 2)
	}
	if cfg.FFmpegPath != "ffmpeg" {
		t.Errorf("FFmpegPath = %q, want %q", cfg.FFmpegPath, "ffmpeg")
	}
	if cfg.HotkeyEnabled {
		t.Error("HotkeyEnabled should default to false")
	}
	if cfg.OutputDir == "" {
		t.Error("OutputDir should not be empty")
	}
}

func TestLoadWithEnv(t *testing.T) {
	isolate(t)

	os.Setenv("BUCKWHEAT_HTTP_ADDR", ":9900")
	os.Setenv("BUCKWHEAT_QUALITY", "ultra")
	os.Setenv("BUCKWHEAT_FRAME_RATE", "30")
	os.Setenv("BUCKWHEAT_AUDIO", "false")
	os.Setenv("BUCKWHEAT_TARGET_WINDOW", "Slippi Dolphin")
	os.Setenv("BUCKWHEAT_TARGET_PID", "4242")

	cfg := Load()

	if cfg.HTTPAddr != ":9900" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":9900")
	}
	if cfg.Quality != "ultra" {
		t.Errorf("Quality = %q, want %q", cfg.Quality, "ultra")
	}
	if cfg.FrameRate != 30 {
		t.Errorf("FrameRate = %d, want %d", cfg.FrameRate, 30)
	}
	if cfg.AudioEnabled {
		t.Error("AudioEnabled should be false")
	}
	if cfg.TargetTitle != "Slippi Dolphin" {
		t.Errorf("TargetTitle = %q, want %q", cfg.TargetTitle, "Slippi Dolphin")
	}
	if cfg.TargetPID != 4242 {
		t.Errorf("TargetPID = %d, want %d", cfg.TargetPID, 4242)
	}
}

func TestLoadWithFile(t *testing.T) {
	isolate(t)

	path := filepath.Join(t.TempDir(), "config.toml")
	body := []byte("quality = \"low\"\nframe_rate = 24\naudio_enabled = false\ntarget_window = \"Faster Melee\"\n")
	if err := os.WriteFile(path, body, 0o644); err != nil {
		t.Fatalf("writing config file: %v", err)
	}
	os.Setenv("BUCKWHEAT_CONFIG", path)

	cfg := Load()

	if cfg.Quality != "low" {
		t.Errorf("Quality = %q, want %q", cfg.Quality, "low")
	}
	if cfg.FrameRate != 24 {
		t.Errorf("FrameRate = %d, want %d", cfg.FrameRate, 24)
	}
	if cfg.AudioEnabled {
		t.Error("AudioEnabled should be false from file")
	}
	if cfg.TargetTitle != "Faster Melee" {
		t.Errorf("TargetTitle = %q, want %q", cfg.TargetTitle, "Faster Melee")
	}
	// Untouched keys keep defaults
	if cfg.SampleRate != 48000 {
		t.Errorf("SampleRate = %d, want default %d", cfg.SampleRate, 48000)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	isolate(t)

	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("quality = \"low\"\n"), 0o644); err != nil {
		t.Fatalf("writing config file: %v", err)
	}
	os.Setenv("BUCKWHEAT_CONFIG", path)
	os.Setenv("BUCKWHEAT_QUALITY", "medium")

	cfg := Load()
	if cfg.Quality != "medium" {
		t.Errorf("Quality = %q, want env to win over file", cfg.Quality)
	}
}

func TestGetEnvHelpers(t *testing.T) {
	os.Setenv("TEST_STRING", "hello")
	defer os.Unsetenv("TEST_STRING")
	if v := getEnv("TEST_STRING", "default"); v != "hello" {
		t.Errorf("getEnv = %q, want %q", v, "hello")
	}
	if v := getEnv("NONEXISTENT", "default"); v != "default" {
		t.Errorf("getEnv = %q, want %q", v, "default")
	}

	os.Setenv("TEST_INT", "42")
	defer os.Unsetenv("TEST_INT")
	if v := getEnvInt("TEST_INT", 0); v != 42 {
		t.Errorf("getEnvInt = %d, want %d", v, 42)
	}
	os.Setenv("TEST_INT_INVALID", "not-a-number")
	defer os.Unsetenv("TEST_INT_INVALID")
	if v := getEnvInt("TEST_INT_INVALID", 100); v != 100 {
		t.Errorf("getEnvInt with invalid = %d, want %d", v, 100)
	}

	os.Setenv("TEST_FLOAT", "3.14")
	defer os.Unsetenv("TEST_FLOAT")
	if v := getEnvFloat("TEST_FLOAT", 0.0); v != 3.14 {
		t.Errorf("getEnvFloat = %f, want %f", v, 3.14)
	}

	os.Setenv("TEST_BOOL_ONE", "1")
	defer os.Unsetenv("TEST_BOOL_ONE")
	if !getEnvBool("TEST_BOOL_ONE", false) {
		t.Error("getEnvBool should return true for '1'")
	}
	if !getEnvBool("NONEXISTENT", true) {
		t.Error("getEnvBool should return default true")
	}
}

func TestExpandTilde(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home dir")
	}
	got := expandTilde("~/clips")
	want := filepath.Join(home, "clips")
	if got != want {
		t.Errorf("expandTilde = %q, want %q", got, want)
	}
	if expandTilde("/abs/path") != "/abs/path" {
		t.Error("absolute paths should pass through")
	}
}
