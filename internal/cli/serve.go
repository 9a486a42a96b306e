package cli

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/CoShineApp/Buckwheat/internal/audio"
	"github.com/CoShineApp/Buckwheat/internal/hotkey"
	"github.com/CoShineApp/Buckwheat/internal/preview"
	"github.com/CoShineApp/Buckwheat/internal/server"
	"github.com/CoShineApp/Buckwheat/internal/window"
)

func NewServeCmd(deps *Dependencies) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP/WebSocket control server",
		Long: "Serve the REST and WebSocket API that a desktop shell drives: start/stop " +
			"recordings, stream progress events, list windows and devices, and serve " +
			"target preview thumbnails.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := deps.Config
			if addr != "" {
				cfg.HTTPAddr = addr
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			prev := preview.New(cfg.FFmpegPath)
			defer prev.Close()

			srv := server.New(deps.Recorder, cfg, server.Deps{
				Preview: prev,
				Enum:    window.NewEnumerator(),
				Devices: audio.ListDevices,
			})

			httpServer := &http.Server{
				Addr:         cfg.HTTPAddr,
				Handler:      srv.Handler(),
				ReadTimeout:  10 * time.Second,
				WriteTimeout: 10 * time.Second,
			}

			go func() {
				slog.Info("control server starting", "addr", cfg.HTTPAddr)
				if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
					slog.Error("http server error", "error", err)
				}
			}()

			if cfg.HotkeyEnabled {
				gate := hotkey.NewGate(cfg.HotkeyCooldown, true)
				toggle := hotkey.NewToggle(gate, func() { toggleRecording(deps) })
				go toggle.Run(ctx)
			}

			<-ctx.Done()
			slog.Info("shutting down...")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				slog.Error("http shutdown error", "error", err)
			}

			if deps.Recorder.IsRecording() {
				finalizeCtx, cancelFinalize := context.WithTimeout(context.Background(), stopTimeout)
				defer cancelFinalize()
				if path, err := deps.Recorder.Stop(finalizeCtx); err != nil {
					slog.Error("finalizing recording during shutdown", "error", err)
				} else {
					slog.Info("recording finalized during shutdown", "path", path)
				}
			}

			slog.Info("shutdown complete")
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides config)")

	return cmd
}

// toggleRecording flips recording state for the global hotkey. Failures
// are logged rather than surfaced; there is no terminal to print to
// when the key fires.
func toggleRecording(deps *Dependencies) {
	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()

	if deps.Recorder.IsRecording() {
		path, err := deps.Recorder.Stop(ctx)
		if err != nil {
			slog.Error("hotkey stop failed", "error", err)
			return
		}
		slog.Info("hotkey stopped recording", "path", path)
		return
	}

	opts, err := startOptions(deps.Config, "", "", "", false)
	if err != nil {
		slog.Error("hotkey start failed", "error", err)
		return
	}
	if err := deps.Recorder.Start(ctx, opts); err != nil {
		slog.Error("hotkey start failed", "error", err)
	}
}
