package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"mdm/internal/config"
)

func newConfigCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Get or set configuration",
	}

	cmd.AddCommand(newConfigGetCmd(cfg))
	cmd.AddCommand(newConfigSetCmd())
	return cmd
}

func newConfigGetCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a config value (api_key is redacted)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			if !config.IsAllowedKey(key) {
				return fmt.Errorf("unknown key: %s (allowed: %v)", key, config.AllowedKeys())
			}
			value, err := cfg.Get(key)
			if err != nil {
				return err
			}
			return writePlain("%s\n", value)
		},
	}
}

func newConfigSetCmd() *cobra.Command {
	var global bool

	cmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a config value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var path string
			var err error
			if global {
				path, err = config.GlobalPath()
			} else {
				path, err = config.ProjectPath()
			}
			if err != nil {
				return err
			}
			return setConfigValue(cmd.ErrOrStderr(), path, args[0], args[1])
		},
	}

	cmd.Flags().BoolVar(&global, "global", false, "write to global config (~/.mdm.toml)")
	return cmd
}

// setConfigValue writes key=value to the file at path and checks that the
// file still loads.
func setConfigValue(stderr io.Writer, path, key, value string) error {
	if err := config.SetKey(path, key, value); err != nil {
		return err
	}
	if _, err := config.LoadFile(path); err != nil {
		return fmt.Errorf("%s updated but no longer valid: %w", path, err)
	}
	if key == "api_key" {
		fmt.Fprintln(stderr, "warning: api_key is stored in plaintext; consider `mdm hash-key` and api_key_hash instead")
	}
	return nil
}
