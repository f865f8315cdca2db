package main

import (
	"os"

	"github.com/spf13/cobra"

	"packsmith/internal/logging"
)

func newRootCommand() *cobra.Command {
	var configFlag string
	var verbose bool

	ctx := newCommandContext(&configFlag)

	rootCmd := &cobra.Command{
		Use:           "packsmith",
		Short:         "Toolkit for storyteller content packs",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logCfg := cfg.Logging
			if verbose {
				logCfg.Level = "debug"
			}
			cmd.SetContext(withLogger(cmd.Context(), logging.New(os.Stderr, logCfg)))
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(newDevicesCommand(ctx))
	rootCmd.AddCommand(newInspectCommand(ctx))
	rootCmd.AddCommand(newPackCommand(ctx))
	rootCmd.AddCommand(newSimulateCommand(ctx))
	rootCmd.AddCommand(newSearchCommand(ctx))
	rootCmd.AddCommand(newLibraryCommand(ctx))

	return rootCmd
}
