package backtest

import (
	"fmt"
	"io"
	"time"

	"github.com/rustyeddy/turtle/journal"
)

// EquityPoint is one sample of the post-bar equity curve.
type EquityPoint struct {
	Time   time.Time
	Equity float64
}

// Result aggregates one backtest run.
type Result struct {
	Session        string
	Strategy       string
	InitialBalance float64
	FinalBalance   float64
	FinalEquity    float64

	TotalTrades int
	Wins        int
	Losses      int
	WinRate     float64
	AvgWin      float64
	AvgLoss     float64
	NetProfit   float64

	MaxDrawdown    float64 // currency, trough vs running equity peak
	MaxDrawdownPct float64

	Stopped    bool
	StopReason string

	EquityCurve []EquityPoint
	Ledger      []journal.TradeRecord
}

// summarize derives the aggregate statistics from the ledger and curve.
func (r *Result) summarize() {
	var winSum, lossSum float64
	for _, t := range r.Ledger {
		r.TotalTrades++
		if t.PnL > 0 {
			r.Wins++
			winSum += t.PnL
		} else {
			r.Losses++
			lossSum += t.PnL
		}
		r.NetProfit += t.PnL
	}
	if r.TotalTrades > 0 {
		r.WinRate = float64(r.Wins) / float64(r.TotalTrades)
	}
	if r.Wins > 0 {
		r.AvgWin = winSum / float64(r.Wins)
	}
	if r.Losses > 0 {
		r.AvgLoss = lossSum / float64(r.Losses)
	}

	peak := r.InitialBalance
	for _, pt := range r.EquityCurve {
		if pt.Equity > peak {
			peak = pt.Equity
		}
		if dd := peak - pt.Equity; dd > r.MaxDrawdown {
			r.MaxDrawdown = dd
			if peak > 0 {
				r.MaxDrawdownPct = dd / peak
			}
		}
	}
}

// Print writes a human-readable summary.
func (r *Result) Print(w io.Writer) {
	fmt.Fprintf(w, "Backtest %s (%s)\n", r.Session, r.Strategy)
	fmt.Fprintf(w, "  Balance:      %.2f -> %.2f\n", r.InitialBalance, r.FinalBalance)
	fmt.Fprintf(w, "  Net profit:   %.2f\n", r.NetProfit)
	fmt.Fprintf(w, "  Trades:       %d (%d wins / %d losses, %.1f%% win rate)\n",
		r.TotalTrades, r.Wins, r.Losses, r.WinRate*100)
	fmt.Fprintf(w, "  Avg win:      %.2f\n", r.AvgWin)
	fmt.Fprintf(w, "  Avg loss:     %.2f\n", r.AvgLoss)
	fmt.Fprintf(w, "  Max drawdown: %.2f (%.2f%%)\n", r.MaxDrawdown, r.MaxDrawdownPct*100)
	if r.Stopped {
		fmt.Fprintf(w, "  Stopped:      %s\n", r.StopReason)
	}
}
