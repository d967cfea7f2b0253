// Package backtest replays historical bars through the exact live decision
// stack: indicator engine, signal generator, risk sizer, compliance gate.
// The only substitution is the execution venue, a deterministic simulator
// that fills at the bar close. Identical bars and parameters always
// reproduce an identical equity curve and trade ledger.
package backtest

import (
	"context"
	"fmt"
	"time"

	"github.com/rustyeddy/turtle/broker/sim"
	"github.com/rustyeddy/turtle/compliance"
	"github.com/rustyeddy/turtle/journal"
	"github.com/rustyeddy/turtle/market"
	"github.com/rustyeddy/turtle/risk"
	"github.com/rustyeddy/turtle/strategy"
)

// Config is one backtest run. Bars must be ordered oldest-first per symbol;
// multi-symbol runs are aligned by bar index.
type Config struct {
	Session        string
	Strategy       string
	Params         strategy.Params
	Limits         risk.Limits
	Rules          compliance.Rules
	InitialBalance float64
	Spread         float64

	Symbols []string
	Bars    map[string][]market.Bar

	// Journal receives every record the run emits. Defaults to an
	// in-memory journal when nil.
	Journal journal.Journal
}

// Run replays the configured bars. Per bar, per symbol, strictly
// sequential: advance the venue, roll the daily risk state, snapshot the
// account, check compliance, then let the strategy act. Once the gate
// latches a STOP no further order intents are issued; the remaining bars
// still sweep stops and extend the equity curve.
func Run(ctx context.Context, cfg Config) (*Result, error) {
	if len(cfg.Symbols) == 0 {
		return nil, fmt.Errorf("backtest: no symbols")
	}
	total := 0
	for _, sym := range cfg.Symbols {
		total += len(cfg.Bars[sym])
	}
	if total == 0 {
		return nil, fmt.Errorf("backtest: no bars")
	}

	j := cfg.Journal
	if j == nil {
		j = journal.NewMemory()
	}

	engine := sim.NewEngine(cfg.Session, cfg.InitialBalance, cfg.Spread)

	// The sizer's clock follows the bar being processed so journaled
	// warnings carry simulated time, not wall time.
	clock := firstBarTime(cfg)
	state := risk.NewState(cfg.InitialBalance, clock)
	sizer := risk.NewSizer(cfg.Limits, state, j)
	sizer.SetClock(func() time.Time { return clock })

	strat, err := strategy.New(cfg.Strategy, cfg.Params, sizer)
	if err != nil {
		return nil, err
	}
	if jr, ok := strat.(interface{ SetJournal(journal.Journal) }); ok {
		jr.SetJournal(j)
	}
	if sr, ok := strat.(interface{ SetSession(string) }); ok {
		sr.SetSession(cfg.Session)
	}

	gate := compliance.NewGate(cfg.Rules, cfg.InitialBalance)

	maxBars := 0
	for _, sym := range cfg.Symbols {
		if n := len(cfg.Bars[sym]); n > maxBars {
			maxBars = n
		}
	}

	res := &Result{
		Session:        cfg.Session,
		Strategy:       cfg.Strategy,
		InitialBalance: cfg.InitialBalance,
	}

	for i := 0; i < maxBars; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		for _, sym := range cfg.Symbols {
			bars := cfg.Bars[sym]
			if i >= len(bars) {
				continue
			}
			bar := bars[i]
			clock = bar.Time

			if err := engine.SetBar(sym, bar); err != nil {
				return nil, fmt.Errorf("backtest: set bar: %w", err)
			}
			state.Rollover(bar.Time)

			acct, err := engine.GetAccountSnapshot(ctx)
			if err != nil {
				return nil, err
			}
			_ = j.Append(journal.Record{
				Session: cfg.Session,
				Time:    bar.Time,
				Type:    journal.TypeStatus,
				Symbol:  sym,
				Balance: acct.Balance,
				Equity:  acct.Equity,
			})

			wasStopped := gate.Stopped()
			if v := gate.Check(acct.Balance, acct.Equity); v.Stop {
				if !wasStopped {
					res.StopReason = v.Reason
					journal.Info(j, bar.Time, journal.TypeInfo, sym,
						fmt.Sprintf("compliance stop: %s", v.Reason))
				}
				continue
			}

			if err := strat.OnBar(ctx, engine, sym, bars[:i+1], i, bar.Time); err != nil {
				// Venue errors cannot happen in simulation; surface them.
				return nil, err
			}
		}

		acct, err := engine.GetAccountSnapshot(ctx)
		if err != nil {
			return nil, err
		}
		res.EquityCurve = append(res.EquityCurve, EquityPoint{Time: clock, Equity: acct.Equity})
	}

	final, err := engine.GetAccountSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	res.FinalBalance = final.Balance
	res.FinalEquity = final.Equity
	res.Ledger = engine.Ledger()
	res.Stopped = gate.Stopped()
	res.summarize()
	return res, nil
}

func firstBarTime(cfg Config) time.Time {
	for _, sym := range cfg.Symbols {
		if bars := cfg.Bars[sym]; len(bars) > 0 {
			return bars[0].Time
		}
	}
	return time.Time{}
}
