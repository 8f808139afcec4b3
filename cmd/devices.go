package cmd

import (
	"github.com/spf13/cobra"

	"github.com/RyanBlaney/sonido-tonal/source"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List capture devices",
	RunE: func(cmd *cobra.Command, args []string) error {
		names, err := source.ListDevices()
		if err != nil {
			return err
		}
		out := snapshotWriter{w: cmd.OutOrStdout(), format: cfg.OutputFormat}
		return out.write(map[string]any{"devices": names})
	},
}

func init() {
	rootCmd.AddCommand(devicesCmd)
}
