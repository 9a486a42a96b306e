// Package cli is the cobra command tree over the recorder.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/CoShineApp/Buckwheat/internal/config"
	"github.com/CoShineApp/Buckwheat/internal/recorder"
	"github.com/CoShineApp/Buckwheat/internal/version"
)

// Dependencies carry the shared services every subcommand uses.
type Dependencies struct {
	Recorder *recorder.Recorder
	Config   *config.Config
}

func NewRootCmd(deps *Dependencies) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "buckwheat",
		Short: "Record gameplay windows to MP4",
		Long: "Buckwheat finds the game window, captures it with ffmpeg alongside " +
			"loopback audio, and encodes MP4 recordings.\nRun 'buckwheat record' for a " +
			"one-shot recording or 'buckwheat serve' for the HTTP control server.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.Version = version.Version
	rootCmd.SetVersionTemplate(version.Full() + "\n")

	rootCmd.AddCommand(NewRecordCmd(deps))
	rootCmd.AddCommand(NewWindowsCmd(deps))
	rootCmd.AddCommand(NewDevicesCmd(deps))
	rootCmd.AddCommand(NewServeCmd(deps))

	return rootCmd
}
