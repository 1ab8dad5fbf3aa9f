package cli

import (
	"github.com/spf13/cobra"

	"fusionguard/internal/app"
)

var featuresOpts app.FeaturesOptions

var featuresCmd = &cobra.Command{
	Use:   "features",
	Short: "Compute feature and label columns and export them as CSV",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Features(cmd.Context(), featuresOpts)
	},
}

func init() {
	inputFlags(featuresCmd, &featuresOpts.Input)
	featuresCmd.Flags().StringVar(&featuresOpts.Output, "output", "", "Path to write the feature CSV")
	featuresCmd.Flags().IntVar(&featuresOpts.MaxRows, "max-rows", 0, "Maximum rows to export (defaults to config)")
}
