package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/turtle/broker/rest"
	"github.com/rustyeddy/turtle/compliance"
	"github.com/rustyeddy/turtle/config"
	"github.com/rustyeddy/turtle/journal"
	"github.com/rustyeddy/turtle/live"
	"github.com/rustyeddy/turtle/market"
	"github.com/rustyeddy/turtle/pkg/id"
	"github.com/rustyeddy/turtle/risk"
	"github.com/rustyeddy/turtle/strategy"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a live trading session from a config file",
	Long: `Run starts a polling session against the execution gateway using
settings from a configuration file. The gateway token is read from the
TURTLE_GATEWAY_TOKEN environment variable (a .env file is honored).

Example:
  turtle run -f turtle.yaml`,
	RunE: runRun,
}

var runConfigPath string

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runConfigPath, "config", "f", "", "path to config file (YAML or JSON) (required)")
	runCmd.MarkFlagRequired("config")
}

func runRun(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load()

	cfg, err := config.LoadFromFile(runConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	j, err := openJournal(cfg.Journal)
	if err != nil {
		return fmt.Errorf("create journal: %w", err)
	}
	defer j.Close()

	token := os.Getenv("TURTLE_GATEWAY_TOKEN")
	if token == "" {
		token = cfg.Gateway.Token
	}
	gw := rest.New(cfg.Gateway.BaseURL, token)
	gw.Aliases = cfg.Aliases

	session := id.New()
	now := time.Now().UTC()
	state := risk.NewState(cfg.Account.Balance, now)
	sizer := risk.NewSizer(cfg.RiskLimits(), state, j)
	gate := compliance.NewGate(cfg.ComplianceRules(), cfg.Account.Balance)

	strat, err := strategy.New(cfg.Strategy.Name, cfg.StrategyParams(), sizer)
	if err != nil {
		return err
	}
	if jr, ok := strat.(interface{ SetJournal(journal.Journal) }); ok {
		jr.SetJournal(j)
	}
	if sr, ok := strat.(interface{ SetSession(string) }); ok {
		sr.SetSession(session)
	}

	poll, err := cfg.Poll()
	if err != nil {
		return err
	}

	fmt.Printf("Session %s\n", session)
	fmt.Printf("  Gateway:  %s\n", cfg.Gateway.BaseURL)
	fmt.Printf("  Symbols:  %v (%s, poll %s)\n", cfg.Symbols, cfg.Timeframe, poll)
	fmt.Printf("  Strategy: %s\n\n", cfg.Strategy.Name)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s := live.NewSession(live.Config{
		Session:      session,
		Symbols:      cfg.Symbols,
		Timeframe:    market.Timeframe(cfg.Timeframe),
		PollInterval: poll,
	}, gw, strat, state, gate, j)

	if err := s.Run(ctx); err != nil {
		return fmt.Errorf("session: %w", err)
	}
	fmt.Println("Session ended.")
	return nil
}

func openJournal(jc config.JournalConfig) (journal.Journal, error) {
	switch jc.Type {
	case "csv":
		return journal.NewCSV(jc.RecordsFile, jc.TradesFile)
	case "memory":
		return journal.NewMemory(), nil
	default:
		return journal.NewSQLite(jc.DBPath)
	}
}
