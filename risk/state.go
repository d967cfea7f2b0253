package risk

import "time"

// State holds the per-session daily risk accumulators. One instance exists
// per trading session and is mutated only from the single decision loop.
type State struct {
	CurrentDate    string // YYYY-MM-DD, UTC
	DailyLoss      float64
	DailyTrades    int
	InitialBalance float64
}

func NewState(initialBalance float64, now time.Time) *State {
	return &State{
		CurrentDate:    dateKey(now),
		InitialBalance: initialBalance,
	}
}

// Rollover resets the daily accumulators exactly once per calendar-day
// transition. It must be called at the top of every cycle, before any
// decision reads the accumulators. Returns true when a reset happened.
func (s *State) Rollover(now time.Time) bool {
	d := dateKey(now)
	if d == s.CurrentDate {
		return false
	}
	s.CurrentDate = d
	s.DailyLoss = 0
	s.DailyTrades = 0
	return true
}

// AddLoss accumulates realized loss against today's budget. Profits are
// ignored; the budget only tracks downside.
func (s *State) AddLoss(pnl float64) {
	if pnl < 0 {
		s.DailyLoss += -pnl
	}
}

func dateKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
