package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"qumin/pkg/config"
)

var forceConfig bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a configuration file with default values",
	Long: `Writes the default configuration to the path given by --config so it
can be edited. An existing file is kept unless --force is set.`,
	RunE: runConfigInit,
}

func init() {
	configInitCmd.Flags().BoolVar(&forceConfig, "force", false, "Overwrite an existing configuration file")

	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(cfgFile); err == nil && !forceConfig {
		return fmt.Errorf("%s already exists (use --force to overwrite)", cfgFile)
	}

	if err := config.CreateDefaultConfigFile(cfgFile); err != nil {
		return err
	}
	logger.WithField("path", cfgFile).Info("Wrote default configuration")
	return nil
}
