package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/CoShineApp/Buckwheat/internal/audio"
)

func NewDevicesCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List audio input devices",
		Long:  "Enumerate input-capable audio devices. Loopback devices carry the system audio the recorder captures.",
		RunE: func(cmd *cobra.Command, args []string) error {
			f := NewFormatter(os.Stdout)

			devs, err := audio.ListDevices()
			if err != nil {
				return err
			}
			if len(devs) == 0 {
				f.Info("No input devices found")
				return nil
			}

			f.DeviceListHeader()
			for _, d := range devs {
				f.DeviceListItem(d.Index, d.Name, d.MaxInputChannels, d.DefaultSampleRate, d.Loopback)
			}
			return nil
		},
	}
}
