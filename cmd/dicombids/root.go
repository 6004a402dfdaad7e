package main

import (
	"fmt"

	"github.com/spf13/cobra"

	xlog "github.com/mrsinham/dicombids/internal/log"
)

func newRootCmd() *cobra.Command {
	var logLevel, logFormat string

	cmd := &cobra.Command{
		Use:   "dicombids",
		Short: "Map DICOM series directories to BIDS names for dcm2niibatch",
		Long: `dicombids reads one file of every series directory in a scanning session,
decides which BIDS datatype and suffix the series belongs to, and writes the
dcm2niibatch YAML document that converts the session into a BIDS dataset.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if logFormat != "console" && logFormat != "json" {
				return fmt.Errorf("--log-format must be console or json, got %q", logFormat)
			}
			xlog.Configure(xlog.Config{
				Level:  logLevel,
				Format: logFormat,
				Output: cmd.ErrOrStderr(),
			})
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (default: $LOG_LEVEL or info)")
	cmd.PersistentFlags().StringVar(&logFormat, "log-format", "console", "log format: console or json")

	cmd.AddCommand(generateCmd(), inspectCmd(), validateCmd(), versionCmd())
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "dicombids %s\n", version)
			return err
		},
	}
}
