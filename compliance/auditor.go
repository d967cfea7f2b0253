package compliance

import (
	"time"

	"github.com/rustyeddy/turtle/journal"
)

// Report is the auditor's reconstruction of a session from its persisted
// log.
type Report struct {
	Verdict   Verdict
	StoppedAt time.Time // zero unless Verdict.Stop

	Snapshots   int
	TradingDays int
	MinDaysMet  bool

	// PeakDrawdownPct measures equity decline from the running balance
	// peak. Informational only: the authoritative loss rules anchor to the
	// initial balance (see Rules.Evaluate).
	PeakDrawdownPct float64

	// Passed means the profit target was reached without a prior loss stop
	// and the minimum-trading-days requirement was met.
	Passed bool
}

// Auditor replays the live gate's rule function over the persisted log.
// It is a pure replay: each STATUS row is fed to the same Evaluate the
// live gate uses, so the two can never diverge.
type Auditor struct {
	rules Rules
}

func NewAuditor(rules Rules) *Auditor {
	return &Auditor{rules: rules}
}

// Audit reconstructs a session from its journal rows. STATUS rows drive the
// rule replay; TRADE rows supply the distinct trading days.
func (a *Auditor) Audit(records []journal.Record, initialBalance float64) Report {
	var rep Report

	days := map[string]struct{}{}
	peak := initialBalance

	for _, r := range records {
		switch r.Type {
		case journal.TypeTrade:
			days[r.Time.UTC().Format("2006-01-02")] = struct{}{}

		case journal.TypeStatus:
			rep.Snapshots++

			if r.Balance > peak {
				peak = r.Balance
			}
			if peak > 0 {
				if dd := (peak - r.Equity) / peak; dd > rep.PeakDrawdownPct {
					rep.PeakDrawdownPct = dd
				}
			}

			if rep.Verdict.Stop {
				continue
			}
			if v := a.rules.Evaluate(initialBalance, r.Balance, r.Equity); v.Stop {
				rep.Verdict = v
				rep.StoppedAt = r.Time
			}
		}
	}

	rep.TradingDays = len(days)
	rep.MinDaysMet = rep.TradingDays >= a.rules.MinTradingDays
	rep.Passed = rep.Verdict.Stop &&
		rep.Verdict.Reason == ReasonProfitTarget &&
		rep.MinDaysMet

	return rep
}
