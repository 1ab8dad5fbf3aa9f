package cli

import (
	"github.com/spf13/cobra"

	"fusionguard/internal/app"
)

var trainOpts app.TrainOptions

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Compute features, fit and calibrate per horizon, and evaluate on held-out shots",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Train(cmd.Context(), trainOpts)
	},
}

func init() {
	inputFlags(trainCmd, &trainOpts.Input)
	trainCmd.Flags().StringVar(&trainOpts.OutDir, "out", "", "Artifact directory (defaults to export.dir)")
	trainCmd.Flags().StringVar(&trainOpts.Calibration, "calibration", "", "Calibration method: platt, isotonic, none (defaults to config)")
	trainCmd.Flags().BoolVar(&trainOpts.SkipPNG, "no-png", false, "Skip chart rendering")
}
