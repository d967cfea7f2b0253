// Package risk converts stop distances into trade volumes and gates
// individual trade requests against the session's daily risk budget.
package risk

import (
	"fmt"
	"math"
	"time"

	"github.com/rustyeddy/turtle/journal"
	"github.com/rustyeddy/turtle/market"
)

// Limits are the static risk parameters for a session.
type Limits struct {
	MaxRiskPerTrade  float64 // fraction of balance risked per trade, e.g. 0.01
	MaxDailyDrawdown float64 // fraction of initial balance, e.g. 0.05
	MaxDailyTrades   int

	MinLot  float64
	MaxLot  float64
	LotStep float64

	MaxVolume float64 // absolute safety ceiling in lots
}

// Sizer sizes and gates trades. It owns the session State; Gate mutates the
// daily trade counter, which is why symbol processing within a cycle is
// strictly sequential.
type Sizer struct {
	Limits Limits
	State  *State

	journal journal.Journal
	now     func() time.Time
}

func NewSizer(limits Limits, state *State, j journal.Journal) *Sizer {
	return &Sizer{Limits: limits, State: state, journal: j, now: time.Now}
}

// SetClock overrides the timestamp source for journaled warnings. Backtests
// use this to keep output deterministic.
func (z *Sizer) SetClock(now func() time.Time) {
	z.now = now
}

// Size converts a proposed stop distance and account state into a volume.
//
// The nominal risk amount is scaled by trend strength to 50-100%: a weak
// trend halves the risk taken, a maximal trend uses all of it. The result
// is clamped to [MinLot, MaxLot] and rounded down to the lot step.
func (z *Sizer) Size(symbol string, entry, stop, balance, trendStrength float64) float64 {
	if entry == stop {
		z.warn(symbol, "size: entry equals stop, falling back to minimum lot")
		return z.Limits.MinLot
	}

	meta := market.Meta(symbol)
	riskAmount := balance * z.Limits.MaxRiskPerTrade
	adjusted := riskAmount * (0.5 + clamp01(trendStrength)/2)

	pipDistance := math.Abs(entry-stop) / meta.PipUnit
	lot := adjusted / (pipDistance * meta.PipValue)

	if lot < z.Limits.MinLot {
		lot = z.Limits.MinLot
	}
	if lot > z.Limits.MaxLot {
		lot = z.Limits.MaxLot
	}
	return roundStep(lot, z.Limits.LotStep)
}

// Gate accepts or rejects one trade request. Counting is coupled to gating:
// a request that clears the daily-trade cap consumes one slot even if a
// later check rejects it.
func (z *Sizer) Gate(symbol string, volume, entry, stop float64) bool {
	if stop == 0 {
		z.warn(symbol, "gate: rejected, no stop loss")
		return false
	}

	if z.State.DailyTrades >= z.Limits.MaxDailyTrades {
		z.warn(symbol, "gate: rejected, daily trade limit reached")
		return false
	}
	z.State.DailyTrades++

	meta := market.Meta(symbol)
	pipDistance := math.Abs(entry-stop) / meta.PipUnit
	projected := pipDistance * meta.PipValue * volume
	budget := z.State.InitialBalance * z.Limits.MaxDailyDrawdown
	if z.State.DailyLoss+projected > budget {
		z.warn(symbol, fmt.Sprintf(
			"gate: rejected, projected loss %.2f would breach daily budget %.2f",
			projected, budget))
		return false
	}

	if volume > z.Limits.MaxVolume {
		z.warn(symbol, fmt.Sprintf(
			"gate: rejected, volume %.2f above ceiling %.2f", volume, z.Limits.MaxVolume))
		return false
	}

	return true
}

// CanTrade reports whether today's trade quota still has room.
func (z *Sizer) CanTrade() bool {
	return z.State.DailyTrades < z.Limits.MaxDailyTrades
}

func (z *Sizer) warn(symbol, msg string) {
	if z.journal == nil {
		return
	}
	_ = z.journal.Append(journal.Record{
		Time:    z.now(),
		Type:    journal.TypeWarning,
		Symbol:  symbol,
		Comment: msg,
	})
}

func roundStep(lot, step float64) float64 {
	if step <= 0 {
		return lot
	}
	return math.Floor(lot/step+1e-9) * step
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
