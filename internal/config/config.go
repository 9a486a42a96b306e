// Package config handles recorder configuration
package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

type Config struct {
	HTTPAddr       string
	OutputDir      string
	Quality        string
	FrameRate      int
	AudioEnabled   bool
	SampleRate     int
	Channels       int
	TargetTitle    string
	TargetPID      int
	FFmpegPath     string
	HotkeyEnabled  bool
	HotkeyCooldown float64 // seconds
	LogLevel       string
}

// fileConfig mirrors Config for the optional TOML file.
type fileConfig struct {
	HTTPAddr       string  `toml:"http_addr"`
	OutputDir      string  `toml:"output_dir"`
	Quality        string  `toml:"quality"`
	FrameRate      int     `toml:"frame_rate"`
	AudioEnabled   *bool   `toml:"audio_enabled"`
	SampleRate     int     `toml:"sample_rate"`
	Channels       int     `toml:"channels"`
	TargetTitle    string  `toml:"target_window"`
	TargetPID      int     `toml:"target_pid"`
	FFmpegPath     string  `toml:"ffmpeg_path"`
	HotkeyEnabled  *bool   `toml:"hotkey_enabled"`
	HotkeyCooldown float64 `toml:"hotkey_cooldown"`
	LogLevel       string  `toml:"log_level"`
}

// Load builds configuration from defaults, then the optional TOML file,
// then environment overrides.
func Load() *Config {
	cfg := &Config{
		HTTPAddr:       ":8790",
		OutputDir:      defaultOutputDir(),
		Quality:        "high",
		FrameRate:      60,
		AudioEnabled:   true,
		SampleRate:     48000,
		Channels:       2,
		FFmpegPath:     "ffmpeg",
		HotkeyEnabled:  false,
		HotkeyCooldown: 1.0,
		LogLevel:       "info",
	}

	applyFile(cfg)
	applyEnv(cfg)
	return cfg
}

// SlogLevel maps the configured level name to a slog level,
// defaulting to info for anything unrecognized.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

func applyFile(cfg *Config) {
	path := configFilePath()
	if path == "" {
		return
	}

	var fc fileConfig
	if _, err := toml.DecodeFile(path, &fc); err != nil {
		return
	}

	if fc.HTTPAddr != "" {
		cfg.HTTPAddr = fc.HTTPAddr
	}
	if fc.OutputDir != "" {
		cfg.OutputDir = expandTilde(fc.OutputDir)
	}
	if fc.Quality != "" {
		cfg.Quality = fc.Quality
	}
	if fc.FrameRate > 0 {
		cfg.FrameRate = fc.FrameRate
	}
	if fc.AudioEnabled != nil {
		cfg.AudioEnabled = *fc.AudioEnabled
	}
	if fc.SampleRate > 0 {
		cfg.SampleRate = fc.SampleRate
	}
	if fc.Channels > 0 {
		cfg.Channels = fc.Channels
	}
	if fc.TargetTitle != "" {
		cfg.TargetTitle = fc.TargetTitle
	}
	if fc.TargetPID > 0 {
		cfg.TargetPID = fc.TargetPID
	}
	if fc.FFmpegPath != "" {
		cfg.FFmpegPath = fc.FFmpegPath
	}
	if fc.HotkeyEnabled != nil {
		cfg.HotkeyEnabled = *fc.HotkeyEnabled
	}
	if fc.HotkeyCooldown > 0 {
		cfg.HotkeyCooldown = fc.HotkeyCooldown
	}
	if fc.LogLevel != "" {
		cfg.LogLevel = fc.LogLevel
	}
}

func applyEnv(cfg *Config) {
	cfg.HTTPAddr = getEnv("BUCKWHEAT_HTTP_ADDR", cfg.HTTPAddr)
	cfg.OutputDir = getEnv("BUCKWHEAT_OUTPUT_DIR", cfg.OutputDir)
	cfg.Quality = getEnv("BUCKWHEAT_QUALITY", cfg.Quality)
	cfg.FrameRate = getEnvInt("BUCKWHEAT_FRAME_RATE", cfg.FrameRate)
	cfg.AudioEnabled = getEnvBool("BUCKWHEAT_AUDIO", cfg.AudioEnabled)
	cfg.SampleRate = getEnvInt("BUCKWHEAT_SAMPLE_RATE", cfg.SampleRate)
	cfg.Channels = getEnvInt("BUCKWHEAT_CHANNELS", cfg.Channels)
	cfg.TargetTitle = getEnv("BUCKWHEAT_TARGET_WINDOW", cfg.TargetTitle)
	cfg.TargetPID = getEnvInt("BUCKWHEAT_TARGET_PID", cfg.TargetPID)
	cfg.FFmpegPath = getEnv("BUCKWHEAT_FFMPEG", cfg.FFmpegPath)
	cfg.HotkeyEnabled = getEnvBool("BUCKWHEAT_HOTKEY", cfg.HotkeyEnabled)
	cfg.HotkeyCooldown = getEnvFloat("BUCKWHEAT_HOTKEY_COOLDOWN", cfg.HotkeyCooldown)
	cfg.LogLevel = getEnv("BUCKWHEAT_LOG_LEVEL", cfg.LogLevel)
}

// configFilePath returns the TOML config location, or "" if none exists.
func configFilePath() string {
	if p := os.Getenv("BUCKWHEAT_CONFIG"); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	p := filepath.Join(home, ".config", "buckwheat", "config.toml")
	if _, err := os.Stat(p); err != nil {
		return ""
	}
	return p
}

func defaultOutputDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "recordings"
	}
	return filepath.Join(home, "Videos", "Buckwheat")
}

func expandTilde(p string) string {
	if !strings.HasPrefix(p, "~") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		return v == "true" || v == "1"
	}
	return def
}
