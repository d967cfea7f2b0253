package compliance

// Gate applies the rule set to live account snapshots. Once it returns
// STOP it stays stopped for the remainder of the session; callers must
// halt further order intents. A STOP is a normal terminal state, not an
// error.
type Gate struct {
	rules          Rules
	initialBalance float64
	stopped        *Verdict
}

func NewGate(rules Rules, initialBalance float64) *Gate {
	return &Gate{rules: rules, initialBalance: initialBalance}
}

// Check evaluates the current balance/equity pair. The first STOP verdict
// is latched and returned on every subsequent call.
func (g *Gate) Check(balance, equity float64) Verdict {
	if g.stopped != nil {
		return *g.stopped
	}

	v := g.rules.Evaluate(g.initialBalance, balance, equity)
	if v.Stop {
		g.stopped = &v
	}
	return v
}

// Stopped reports whether the gate has latched a STOP.
func (g *Gate) Stopped() bool {
	return g.stopped != nil
}
