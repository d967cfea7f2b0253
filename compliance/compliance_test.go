package compliance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/turtle/journal"
)

func testRules() Rules {
	return Rules{
		ProfitTarget:     0.10,
		MaxDailyDrawdown: 0.05,
		MaxTotalDrawdown: 0.10,
		MinTradingDays:   4,
	}
}

func TestEvaluateContinue(t *testing.T) {
	r := testRules()
	assert.Equal(t, Continue(), r.Evaluate(100000, 100000, 100000))
	assert.Equal(t, Continue(), r.Evaluate(100000, 104000, 98000))
}

func TestEvaluateProfitTarget(t *testing.T) {
	r := testRules()
	// 10.5% balance gain.
	v := r.Evaluate(100000, 110500, 110500)
	require.True(t, v.Stop)
	assert.Equal(t, ReasonProfitTarget, v.Reason)

	// Exactly at target counts.
	v = r.Evaluate(100000, 110000, 110000)
	assert.True(t, v.Stop)
}

func TestEvaluateDailyLoss(t *testing.T) {
	r := testRules()
	// Equity drops 6% intracycle while balance is unchanged.
	v := r.Evaluate(100000, 100000, 94000)
	require.True(t, v.Stop)
	assert.Equal(t, ReasonDailyLoss, v.Reason)
}

func TestEvaluateMaxDrawdown(t *testing.T) {
	// Daily limit looser than the total limit so the total rule can fire.
	r := Rules{ProfitTarget: 0.10, MaxDailyDrawdown: 0.20, MaxTotalDrawdown: 0.10}
	v := r.Evaluate(100000, 89000, 89000)
	require.True(t, v.Stop)
	assert.Equal(t, ReasonMaxDrawdown, v.Reason)
}

func TestGateLatchesStop(t *testing.T) {
	g := NewGate(testRules(), 100000)

	assert.False(t, g.Check(100000, 100000).Stop)
	assert.False(t, g.Stopped())

	v := g.Check(100000, 94000)
	require.True(t, v.Stop)
	assert.Equal(t, ReasonDailyLoss, v.Reason)

	// Recovery does not unlatch a terminal stop.
	v = g.Check(100000, 100000)
	assert.True(t, v.Stop)
	assert.Equal(t, ReasonDailyLoss, v.Reason)
	assert.True(t, g.Stopped())
}

func statusRow(t time.Time, balance, equity float64) journal.Record {
	return journal.Record{Time: t, Type: journal.TypeStatus, Balance: balance, Equity: equity}
}

func tradeRow(t time.Time) journal.Record {
	return journal.Record{Time: t, Type: journal.TypeTrade, Symbol: "EURUSD", Action: journal.ActionBuy}
}

func TestAuditorReplaysGateVerdict(t *testing.T) {
	a := NewAuditor(testRules())
	t0 := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	records := []journal.Record{
		statusRow(t0, 100000, 100000),
		tradeRow(t0.Add(time.Hour)),
		statusRow(t0.Add(2*time.Hour), 100000, 94000), // 6% equity loss
		statusRow(t0.Add(3*time.Hour), 100000, 99000), // recovery, ignored
	}

	rep := a.Audit(records, 100000)
	require.True(t, rep.Verdict.Stop)
	assert.Equal(t, ReasonDailyLoss, rep.Verdict.Reason)
	assert.Equal(t, t0.Add(2*time.Hour), rep.StoppedAt)
	assert.False(t, rep.Passed)
}

func TestAuditorMatchesGateOnSameSnapshots(t *testing.T) {
	rules := testRules()
	g := NewGate(rules, 100000)
	a := NewAuditor(rules)

	t0 := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	snaps := []struct{ balance, equity float64 }{
		{100000, 100000},
		{101500, 101200},
		{103000, 102800},
		{110500, 110500},
	}

	var records []journal.Record
	var live Verdict
	for i, s := range snaps {
		if v := g.Check(s.balance, s.equity); v.Stop && !live.Stop {
			live = v
		}
		records = append(records, statusRow(t0.Add(time.Duration(i)*time.Hour), s.balance, s.equity))
	}

	rep := a.Audit(records, 100000)
	assert.Equal(t, live, rep.Verdict)
	assert.Equal(t, ReasonProfitTarget, rep.Verdict.Reason)
}

func TestAuditorTradingDays(t *testing.T) {
	a := NewAuditor(testRules())
	t0 := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	var records []journal.Record
	for day := 0; day < 5; day++ {
		ts := t0.AddDate(0, 0, day)
		records = append(records, tradeRow(ts), tradeRow(ts.Add(time.Hour)))
		records = append(records, statusRow(ts.Add(2*time.Hour), 100000+float64(day)*2500, 100000+float64(day)*2500))
	}
	// Final snapshot over the target.
	records = append(records, statusRow(t0.AddDate(0, 0, 5), 110500, 110500))

	rep := a.Audit(records, 100000)
	assert.Equal(t, 5, rep.TradingDays)
	assert.True(t, rep.MinDaysMet)
	require.True(t, rep.Verdict.Stop)
	assert.Equal(t, ReasonProfitTarget, rep.Verdict.Reason)
	assert.True(t, rep.Passed)
}

func TestAuditorPeakDrawdown(t *testing.T) {
	a := NewAuditor(Rules{ProfitTarget: 1, MaxDailyDrawdown: 1, MaxTotalDrawdown: 1})
	t0 := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	records := []journal.Record{
		statusRow(t0, 100000, 100000),
		statusRow(t0.Add(time.Hour), 105000, 105000),
		statusRow(t0.Add(2*time.Hour), 105000, 99750), // 5% off the 105k peak
	}

	rep := a.Audit(records, 100000)
	assert.False(t, rep.Verdict.Stop)
	assert.InDelta(t, 0.05, rep.PeakDrawdownPct, 1e-9)
}
