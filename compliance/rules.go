// Package compliance evaluates a funded-account program's drawdown and
// profit-target rules. The live gate and the post-hoc auditor share one
// rule function so they can never drift apart.
package compliance

import "fmt"

// Stop reasons.
const (
	ReasonProfitTarget = "profit target"
	ReasonDailyLoss    = "daily loss"
	ReasonMaxDrawdown  = "max drawdown"
	ReasonMinDays      = "minimum trading days"
)

// Verdict is either CONTINUE or a terminal STOP with a reason.
type Verdict struct {
	Stop   bool
	Reason string
}

func Continue() Verdict { return Verdict{} }

func StopFor(reason string) Verdict { return Verdict{Stop: true, Reason: reason} }

func (v Verdict) String() string {
	if !v.Stop {
		return "CONTINUE"
	}
	return fmt.Sprintf("STOP (%s)", v.Reason)
}

// Rules are the program's limits, all expressed as fractions of the
// initial balance. A limit left at zero is not enforced.
type Rules struct {
	ProfitTarget     float64 // e.g. 0.10
	MaxDailyDrawdown float64 // e.g. 0.05
	MaxTotalDrawdown float64 // e.g. 0.10
	MinTradingDays   int     // auditor only
}

// Evaluate is the authoritative rule definition. Both anchors are the
// session's initial balance: the profit target measures realized balance
// gain, the loss rules measure equity decline.
func (r Rules) Evaluate(initialBalance, balance, equity float64) Verdict {
	if initialBalance <= 0 {
		return Continue()
	}

	balanceGain := (balance - initialBalance) / initialBalance
	equityLoss := (equity - initialBalance) / initialBalance

	switch {
	case r.ProfitTarget > 0 && balanceGain >= r.ProfitTarget:
		return StopFor(ReasonProfitTarget)
	case r.MaxDailyDrawdown > 0 && equityLoss <= -r.MaxDailyDrawdown:
		return StopFor(ReasonDailyLoss)
	case r.MaxTotalDrawdown > 0 && equityLoss <= -r.MaxTotalDrawdown:
		return StopFor(ReasonMaxDrawdown)
	default:
		return Continue()
	}
}
