package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/turtle/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Write a default configuration file",
	Long: `Config writes a starter configuration with sensible defaults. The
extension selects the format: .yaml/.yml for YAML, anything else for JSON.

Example:
  turtle config -o turtle.yaml`,
	RunE: runConfig,
}

var configOutPath string

func init() {
	rootCmd.AddCommand(configCmd)

	configCmd.Flags().StringVarP(&configOutPath, "out", "o", "turtle.yaml", "output path")
}

func runConfig(cmd *cobra.Command, args []string) error {
	if err := config.Default().SaveToFile(configOutPath); err != nil {
		return err
	}
	fmt.Printf("Wrote default config to %s\n", configOutPath)
	return nil
}
