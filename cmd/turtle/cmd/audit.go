package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/turtle/compliance"
	"github.com/rustyeddy/turtle/config"
	"github.com/rustyeddy/turtle/journal"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Audit a recorded session against the compliance rule set",
	Long: `Audit replays a session's journal through the same rule function the
live gate uses and reports the verdict, trading days, and peak drawdown.

Example:
  turtle audit -f turtle.yaml -d turtle.db -s 01J0...`,
	RunE: runAudit,
}

var (
	auditConfigPath string
	auditDBPath     string
	auditSession    string
)

func init() {
	rootCmd.AddCommand(auditCmd)

	auditCmd.Flags().StringVarP(&auditConfigPath, "config", "f", "", "path to config file (YAML or JSON) (required)")
	auditCmd.Flags().StringVarP(&auditDBPath, "db", "d", "", "path to SQLite journal (required)")
	auditCmd.Flags().StringVarP(&auditSession, "session", "s", "", "session id to audit (defaults to the most recent)")

	auditCmd.MarkFlagRequired("config")
	auditCmd.MarkFlagRequired("db")
}

func runAudit(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromFile(auditConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := journal.NewSQLite(auditDBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	session := auditSession
	if session == "" {
		sessions, err := db.Sessions()
		if err != nil {
			return fmt.Errorf("list sessions: %w", err)
		}
		if len(sessions) == 0 {
			return fmt.Errorf("no sessions in %s", auditDBPath)
		}
		session = sessions[len(sessions)-1]
	}

	records, err := db.ListRecords(session)
	if err != nil {
		return fmt.Errorf("list records: %w", err)
	}
	if len(records) == 0 {
		return fmt.Errorf("no records for session %s", session)
	}

	rep := compliance.NewAuditor(cfg.ComplianceRules()).Audit(records, cfg.Account.Balance)

	fmt.Printf("Audit of session %s (%d records)\n", session, len(records))
	fmt.Printf("  Verdict:       %s\n", rep.Verdict)
	if rep.Verdict.Stop {
		fmt.Printf("  Stopped at:    %s\n", rep.StoppedAt.Format("2006-01-02 15:04:05"))
	}
	fmt.Printf("  Snapshots:     %d\n", rep.Snapshots)
	fmt.Printf("  Trading days:  %d (minimum %d met: %v)\n",
		rep.TradingDays, cfg.Risk.MinTradingDays, rep.MinDaysMet)
	fmt.Printf("  Peak drawdown: %.2f%%\n", rep.PeakDrawdownPct*100)
	fmt.Printf("  Passed:        %v\n", rep.Passed)
	return nil
}
