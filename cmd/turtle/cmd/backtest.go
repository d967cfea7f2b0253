package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/turtle/backtest"
	"github.com/rustyeddy/turtle/config"
	"github.com/rustyeddy/turtle/journal"
	"github.com/rustyeddy/turtle/market"
	"github.com/rustyeddy/turtle/pkg/id"
)

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Replay historical bars through the live decision logic",
	Long: `Backtest replays a bar CSV (time,open,high,low,close,volume) through
the exact strategy, sizing, and compliance stack the live session runs.

Example:
  turtle backtest -f turtle.yaml -t data/eurusd_h1.csv -i EURUSD`,
	RunE: runBacktest,
}

var (
	btConfigPath string
	btBarsPath   string
	btSymbol     string
	btDBPath     string
)

func init() {
	rootCmd.AddCommand(backtestCmd)

	backtestCmd.Flags().StringVarP(&btConfigPath, "config", "f", "", "path to config file (YAML or JSON) (required)")
	backtestCmd.Flags().StringVarP(&btBarsPath, "bars", "t", "", "path to bar CSV (required)")
	backtestCmd.Flags().StringVarP(&btSymbol, "symbol", "i", "EURUSD", "symbol the bars belong to")
	backtestCmd.Flags().StringVarP(&btDBPath, "db", "d", "", "optional SQLite journal to record the run into")

	backtestCmd.MarkFlagRequired("config")
	backtestCmd.MarkFlagRequired("bars")
}

func runBacktest(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromFile(btConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	bars, err := market.LoadBarsCSV(btBarsPath)
	if err != nil {
		return fmt.Errorf("load bars: %w", err)
	}

	session := id.New()

	var j journal.Journal
	var db *journal.SQLite
	if btDBPath != "" {
		db, err = journal.NewSQLite(btDBPath)
		if err != nil {
			return fmt.Errorf("open db: %w", err)
		}
		defer db.Close()
		j = db
	}

	fmt.Printf("Running backtest %s\n", session)
	fmt.Printf("  Bars:     %s (%d bars, %s)\n", btBarsPath, len(bars), btSymbol)
	fmt.Printf("  Strategy: %s\n\n", cfg.Strategy.Name)

	res, err := backtest.Run(context.Background(), backtest.Config{
		Session:        session,
		Strategy:       cfg.Strategy.Name,
		Params:         cfg.StrategyParams(),
		Limits:         cfg.RiskLimits(),
		Rules:          cfg.ComplianceRules(),
		InitialBalance: cfg.Account.Balance,
		Spread:         0.0002,
		Symbols:        []string{btSymbol},
		Bars:           map[string][]market.Bar{btSymbol: bars},
		Journal:        j,
	})
	if err != nil {
		return fmt.Errorf("backtest: %w", err)
	}

	res.Print(os.Stdout)

	if db != nil {
		err = db.RecordRun(journal.Run{
			RunID:          session,
			Created:        time.Now().UTC(),
			Strategy:       cfg.Strategy.Name,
			Symbols:        btSymbol,
			Timeframe:      cfg.Timeframe,
			StartBalance:   res.InitialBalance,
			EndBalance:     res.FinalBalance,
			Trades:         res.TotalTrades,
			WinRate:        res.WinRate,
			NetProfit:      res.NetProfit,
			MaxDrawdownPct: res.MaxDrawdownPct,
		})
		if err != nil {
			return fmt.Errorf("record run: %w", err)
		}
		fmt.Printf("\nRun recorded as %s in %s\n", session, btDBPath)
	}
	return nil
}
