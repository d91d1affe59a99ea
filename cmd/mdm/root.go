package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mdm/internal/config"
	"mdm/internal/format"
)

func newRootCmd(cfg *config.Config) *cobra.Command {
	var logLevel string
	var output string

	cmd := &cobra.Command{
		Use:           "mdm",
		Short:         "Mission data manager: artifact ingestion with content digests and audit history",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			warning, err := configureLoggerForCLI(logLevel, cfg.LogLevel, cfg.LogFormat)
			if err != nil {
				return err
			}
			if warning != "" {
				fmt.Fprintln(os.Stderr, warning)
			}
			formatter, err := format.ByName(output)
			if err != nil {
				return err
			}
			outputFormatter = formatter
			return nil
		},
	}

	cmd.Version = version
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug|info|warn|error)")
	cmd.PersistentFlags().StringVarP(&output, "output", "o", "json", "output format (json|yaml)")

	cmd.AddCommand(
		newSrvCmd(cfg),
		newInitCmd(cfg),
		newMigrateCmd(cfg),
		newIngestCmd(cfg),
		newVerifyCmd(cfg),
		newConfigCmd(cfg),
		newHashKeyCmd(),
	)

	return cmd
}
