package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	apperrors "github.com/CoShineApp/Buckwheat/internal/errors"
	"github.com/CoShineApp/Buckwheat/internal/recorder"
)

// stopTimeout bounds how long a finalizing recording may take to
// flush and close its output file.
const stopTimeout = 30 * time.Second

func NewRecordCmd(deps *Dependencies) *cobra.Command {
	var (
		output   string
		tier     string
		target   string
		duration time.Duration
		noAudio  bool
	)

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record the game window until interrupted",
		Long: "Start a recording and block until Ctrl+C, --duration elapses, or the " +
			"window closes, then finalize the MP4.",
		RunE: func(cmd *cobra.Command, args []string) error {
			f := NewFormatter(os.Stdout)

			opts, err := startOptions(deps.Config, output, tier, target, noAudio)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := deps.Recorder.Start(ctx, opts); err != nil {
				return err
			}
			started := time.Now()

			st := deps.Recorder.Status()
			f.RecordingStarted(st.Target, st.Quality)
			if duration > 0 {
				f.Info(fmt.Sprintf("recording for %s", duration))
			} else {
				f.Info("press Ctrl+C to stop")
			}

			events := deps.Recorder.Events()
			var timer <-chan time.Time
			if duration > 0 {
				timer = time.After(duration)
			}

		wait:
			for {
				select {
				case <-ctx.Done():
					break wait
				case <-timer:
					break wait
				case ev := <-events:
					switch ev.Kind {
					case recorder.EventProgress:
						f.RecordingProgress(ev.Frames, time.Since(started))
					case recorder.EventStopped:
						// The window closed out from under the capture.
						f.RecordingStopped(ev.Path, time.Since(started))
						return nil
					}
				}
			}

			stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
			defer cancel()

			path, err := deps.Recorder.Stop(stopCtx)
			if err != nil {
				if apperrors.IsCode(err, apperrors.CodeNotRecording) {
					// The source ended in the gap between the wait and the stop.
					if p, ok := drainStopped(events); ok {
						f.RecordingStopped(p, time.Since(started))
						return nil
					}
				}
				return err
			}

			f.RecordingStopped(path, time.Since(started))
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file path (default: generated in the output directory)")
	cmd.Flags().StringVarP(&tier, "quality", "q", "", "Quality tier: low, medium, high, ultra")
	cmd.Flags().StringVarP(&target, "target", "t", "", "Window title substring or stored ID to record")
	cmd.Flags().DurationVarP(&duration, "duration", "d", 0, "Stop automatically after this long")
	cmd.Flags().BoolVar(&noAudio, "no-audio", false, "Record video only")

	return cmd
}

func drainStopped(events <-chan recorder.Event) (string, bool) {
	for {
		select {
		case ev := <-events:
			if ev.Kind == recorder.EventStopped {
				return ev.Path, true
			}
		default:
			return "", false
		}
	}
}
