// Buckwheat records gameplay windows to MP4 with loopback system audio.
package main

import (
	"log/slog"
	"os"

	"github.com/CoShineApp/Buckwheat/internal/cli"
	"github.com/CoShineApp/Buckwheat/internal/config"
	"github.com/CoShineApp/Buckwheat/internal/recorder"
)

func main() {
	cfg := config.Load()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	rec := recorder.New(cfg, recorder.DefaultDeps(cfg))

	deps := &cli.Dependencies{Recorder: rec, Config: cfg}
	if err := cli.NewRootCmd(deps).Execute(); err != nil {
		cli.NewFormatter(os.Stderr).Error(err.Error())
		os.Exit(1)
	}
}
