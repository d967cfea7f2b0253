package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "turtle",
	Short: "Trend-following breakout trading under funded-account risk rules",
	Long: `Turtle automates a Donchian-channel breakout strategy against a
brokerage execution gateway, with funded-account compliance built in.

It provides tools for:
  - Live trading sessions with pyramiding and staged profit taking
  - Backtesting the identical decision logic over historical bars
  - Risk-based position sizing with daily loss budgets
  - Auditing a session's journal against the compliance rule set`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}
