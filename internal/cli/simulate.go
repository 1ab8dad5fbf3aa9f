package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"fusionguard/internal/app"
)

var simulateOpts app.SimulateOptions

var simulateCmd = &cobra.Command{
	Use:   "simulate-alert",
	Short: "Send a quality-gate alert for fabricated metrics",
	RunE: func(cmd *cobra.Command, args []string) error {
		if simulateOpts.ROCAUC < 0 || simulateOpts.ROCAUC > 1 {
			return errors.New("--roc-auc must be in [0, 1]")
		}
		if simulateOpts.CalibrationError < 0 || simulateOpts.CalibrationError > 1 {
			return errors.New("--calibration-error must be in [0, 1]")
		}
		return getApp().SimulateAlert(cmd.Context(), simulateOpts)
	},
}

func init() {
	simulateCmd.Flags().IntVar(&simulateOpts.HorizonMs, "horizon", 50, "Horizon in ms reported in the alert")
	simulateCmd.Flags().Float64Var(&simulateOpts.ROCAUC, "roc-auc", 0.5, "ROC AUC to report")
	simulateCmd.Flags().Float64Var(&simulateOpts.CalibrationError, "calibration-error", 0.2, "Calibration error to report")
}
