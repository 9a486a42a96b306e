package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/CoShineApp/Buckwheat/internal/window"
)

func NewWindowsCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "windows",
		Short: "List candidate game windows",
		Long:  "Enumerate visible windows and score how likely each is the running game.\nPass a listed title to 'record --target' to pick one explicitly.",
		RunE: func(cmd *cobra.Command, args []string) error {
			f := NewFormatter(os.Stdout)

			wins, err := window.ListGameWindows(window.NewEnumerator())
			if err != nil {
				return err
			}
			if len(wins) == 0 {
				f.Info("No game windows found")
				return nil
			}

			f.WindowListHeader()
			for _, w := range wins {
				f.WindowListItem(w.Title, w.PID, w.Width, w.Height, window.DetectionScore(w))
			}
			return nil
		},
	}
}
