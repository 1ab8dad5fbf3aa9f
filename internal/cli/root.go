package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"fusionguard/internal/app"
	"fusionguard/internal/config"
	"fusionguard/internal/logging"
)

var (
	cfgFile   string
	logLevel  string
	appHandle *app.App
)

var rootCmd = &cobra.Command{
	Use:   "fusionguard",
	Short: "Disruption prediction features, calibration and evaluation for tokamak shots",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if appHandle != nil {
			return nil
		}

		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}

		if logLevel != "" {
			cfg.Logging.Level = logLevel
		}

		logger := logging.NewLogger(cfg.Logging)
		appHandle = app.NewApp(cfg, logger)
		return nil
	},
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override log level defined in config")

	rootCmd.AddCommand(trainCmd)
	rootCmd.AddCommand(featuresCmd)
	rootCmd.AddCommand(evaluateCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(simulateCmd)
}

func getApp() *app.App {
	if appHandle == nil {
		panic("application not initialized; PersistentPreRunE not executed")
	}
	return appHandle
}

// inputFlags binds the dataset selection flags shared by commands that load shots.
func inputFlags(cmd *cobra.Command, opts *app.InputOptions) {
	cmd.Flags().StringSliceVar(&opts.Paths, "input", nil, "Input files (repeatable or comma separated)")
	cmd.Flags().StringVar(&opts.Format, "format", "", "Input format: csv, hdf5, netcdf, synthetic (default: by file suffix)")
	cmd.Flags().BoolVar(&opts.Synthetic, "synthetic", false, "Add synthetic shots from the synthetic config section")
}
