package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"fusionguard/internal/app"
)

var evaluateOpts app.EvaluateOptions

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Calibrate and evaluate a CSV of raw model scores",
	RunE: func(cmd *cobra.Command, args []string) error {
		if evaluateOpts.CalibrationPath != "" && evaluateOpts.FromStore {
			return fmt.Errorf("--calibration-file and --from-db are mutually exclusive")
		}
		if evaluateOpts.FromStore && evaluateOpts.HorizonMs <= 0 {
			return fmt.Errorf("--horizon must be greater than zero with --from-db")
		}
		return getApp().Evaluate(cmd.Context(), evaluateOpts)
	},
}

func init() {
	evaluateCmd.Flags().StringVar(&evaluateOpts.ScoresPath, "scores", "", "CSV with score and label columns")
	evaluateCmd.Flags().StringVar(&evaluateOpts.CalibrationPath, "calibration-file", "", "Apply a saved calibration.json instead of fitting")
	evaluateCmd.Flags().BoolVar(&evaluateOpts.FromStore, "from-db", false, "Apply the latest persisted calibration of --horizon")
	evaluateCmd.Flags().IntVar(&evaluateOpts.HorizonMs, "horizon", 0, "Horizon in ms used with --from-db")
	evaluateCmd.Flags().StringVar(&evaluateOpts.Calibration, "calibration", "", "Calibration method when fitting: platt, isotonic, none")
	evaluateCmd.Flags().StringVar(&evaluateOpts.Output, "output", "", "Write metrics JSON to this path instead of stdout")
}
