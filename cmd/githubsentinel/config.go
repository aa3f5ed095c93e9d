package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/localrivet/githubsentinel/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configInitForce bool

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file with default values",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !configInitForce {
			if _, err := os.Stat(configPath); err == nil {
				return fmt.Errorf("%s already exists; use --force to overwrite", configPath)
			}
		}
		cfg := config.NewConfig()
		if err := cfg.SaveToFile(configPath); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", configPath)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "Overwrite an existing file")
}
