package cli

import (
	"github.com/spf13/cobra"

	"fusionguard/internal/app"
)

var generateOpts app.GenerateOptions

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Write synthetic shots as CSV",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Generate(cmd.Context(), generateOpts)
	},
}

func init() {
	generateCmd.Flags().StringVar(&generateOpts.Output, "output", "", "Path to write the CSV")
	generateCmd.Flags().IntVar(&generateOpts.Shots, "shots", 0, "Number of shots (defaults to config)")
	generateCmd.Flags().Int64Var(&generateOpts.Seed, "seed", 0, "Random seed (defaults to pipeline.seed)")
}
