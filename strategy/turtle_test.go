package strategy

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rustyeddy/turtle/broker/sim"
	"github.com/rustyeddy/turtle/indicators"
	"github.com/rustyeddy/turtle/journal"
	"github.com/rustyeddy/turtle/market"
	"github.com/rustyeddy/turtle/risk"
)

// breakoutSeries is 80 flat bars at 1.2000 (range +/-0.0010) followed by
// climb bars gaining 0.003 per bar, with elevated volume on the climb.
func breakoutSeries(flat, climb int) []market.Bar {
	start := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	bars := make([]market.Bar, 0, flat+climb)

	for i := 0; i < flat; i++ {
		bars = append(bars, market.Bar{
			Time:   start.Add(time.Duration(i) * time.Hour),
			Open:   1.2000,
			High:   1.2010,
			Low:    1.1990,
			Close:  1.2000,
			Volume: 1000,
		})
	}
	prev := 1.2000
	for i := 0; i < climb; i++ {
		close := 1.2000 + 0.003*float64(i+1)
		bars = append(bars, market.Bar{
			Time:   start.Add(time.Duration(flat+i) * time.Hour),
			Open:   prev,
			High:   close + 0.0010,
			Low:    prev - 0.0010,
			Close:  close,
			Volume: 2000,
		})
		prev = close
	}
	return bars
}

func testLimits() risk.Limits {
	return risk.Limits{
		MaxRiskPerTrade:  0.01,
		MaxDailyDrawdown: 0.05,
		MaxDailyTrades:   100,
		MinLot:           0.01,
		MaxLot:           10,
		LotStep:          0.01,
		MaxVolume:        50,
	}
}

func newTestTurtle(t *testing.T, p Params) (*Turtle, *sim.Engine, *journal.Memory) {
	t.Helper()
	j := journal.NewMemory()
	state := risk.NewState(100000, time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC))
	sizer := risk.NewSizer(testLimits(), state, j)
	tu := NewTurtle(p, sizer)
	tu.SetJournal(j)
	tu.SetSession("test")
	return tu, sim.NewEngine("test", 100000, 0), j
}

// drive replays the series bar by bar, the way the backtest harness does.
func drive(t *testing.T, tu *Turtle, e *sim.Engine, bars []market.Bar, each func(i int)) {
	t.Helper()
	ctx := context.Background()
	for i := range bars {
		if err := e.SetBar("EURUSD", bars[i]); err != nil {
			t.Fatalf("set bar %d: %v", i, err)
		}
		if err := tu.OnBar(ctx, e, "EURUSD", bars[:i+1], i, bars[i].Time); err != nil {
			t.Fatalf("on bar %d: %v", i, err)
		}
		if each != nil {
			each(i)
		}
	}
}

func countEntries(j *journal.Memory) int {
	n := 0
	for _, r := range j.Records {
		if r.Type == journal.TypeTrade && r.Comment == "Entry" {
			n++
		}
	}
	return n
}

func TestBreakoutEntersExactlyOnce(t *testing.T) {
	p := Params{
		EntryPeriod:    20,
		ExitPeriod:     10,
		ATRPeriod:      14,
		ATRMultiplier:  2.0,
		BreakoutMargin: 0.001,
		MaxUnits:       1,
		PyramidDelay:   1000,
	}
	tu, e, j := newTestTurtle(t, p)
	bars := breakoutSeries(80, 20)

	entryBar := -1
	entryStop := 0.0
	drive(t, tu, e, bars, func(i int) {
		if entryBar >= 0 {
			return
		}
		open, _ := e.GetOpenPositions(context.Background(), "EURUSD")
		if len(open) == 1 {
			entryBar = i
			entryStop = open[0].StopLoss
		}
	})

	if got := countEntries(j); got != 1 {
		t.Fatalf("entries: got %d want exactly 1", got)
	}

	// First climb bar closes at 1.2030, above the lagged 20-bar high
	// 1.2010 * 1.001.
	if entryBar != 80 {
		t.Fatalf("entry bar: got %d want 80", entryBar)
	}

	snap, ok := indicators.Compute(bars[:entryBar+1], indicators.Params{
		EntryPeriod: 20, ExitPeriod: 10, ATRPeriod: 14,
	})
	if !ok {
		t.Fatalf("snapshot unavailable at entry bar")
	}
	want := bars[entryBar].Close - 2.0*snap.ATR
	if !approx(entryStop, want, 1e-9) {
		t.Fatalf("stop: got %.5f want %.5f (price - 2.0*ATR)", entryStop, want)
	}
}

func TestPyramidingAddsUnits(t *testing.T) {
	p := Params{
		EntryPeriod:    20,
		ExitPeriod:     10,
		ATRPeriod:      14,
		ATRMultiplier:  2.0,
		BreakoutMargin: 0.001,
		MaxUnits:       3,
		PyramidDelay:   2,
	}
	tu, e, j := newTestTurtle(t, p)
	drive(t, tu, e, breakoutSeries(80, 20), nil)

	open, _ := e.GetOpenPositions(context.Background(), "EURUSD")
	if len(open) != 3 {
		t.Fatalf("open units: got %d want 3", len(open))
	}

	var comments []string
	for _, r := range j.Records {
		if r.Type == journal.TypeTrade && (r.Comment == "Entry" || strings.HasPrefix(r.Comment, "Pyramid")) {
			comments = append(comments, r.Comment)
		}
	}
	want := []string{"Entry", "Pyramid-2", "Pyramid-3"}
	if len(comments) != len(want) {
		t.Fatalf("unit entries: got %v want %v", comments, want)
	}
	for i := range want {
		if comments[i] != want[i] {
			t.Fatalf("unit entries: got %v want %v", comments, want)
		}
	}
}

func TestExitChannelClosesAll(t *testing.T) {
	p := Params{
		EntryPeriod:    20,
		ExitPeriod:     10,
		ATRPeriod:      14,
		ATRMultiplier:  2.0,
		BreakoutMargin: 0.001,
		MaxUnits:       1,
		PyramidDelay:   1000,
	}
	tu, e, _ := newTestTurtle(t, p)

	bars := breakoutSeries(80, 20)
	last := bars[len(bars)-1]
	// A reversal bar closing below the lagged 10-bar low, without touching
	// the trailed stop.
	bars = append(bars, market.Bar{
		Time:   last.Time.Add(time.Hour),
		Open:   last.Close,
		High:   last.Close,
		Low:    1.2245,
		Close:  1.2250,
		Volume: 1500,
	})

	drive(t, tu, e, bars, nil)

	open, _ := e.GetOpenPositions(context.Background(), "EURUSD")
	if len(open) != 0 {
		t.Fatalf("expected flat after exit channel breach, got %d open", len(open))
	}

	ledger := e.Ledger()
	if len(ledger) == 0 {
		t.Fatalf("expected realized trades")
	}
	if got := ledger[len(ledger)-1].Reason; got != "ExitChannel" {
		t.Fatalf("final close reason: got %q want ExitChannel", got)
	}
}

func TestReconcileDropsStoppedUnit(t *testing.T) {
	p := Params{
		EntryPeriod:    20,
		ExitPeriod:     10,
		ATRPeriod:      14,
		ATRMultiplier:  2.0,
		BreakoutMargin: 0.001,
		MaxUnits:       1,
		PyramidDelay:   1000,
	}
	tu, e, j := newTestTurtle(t, p)

	bars := breakoutSeries(80, 1)
	last := bars[len(bars)-1]
	// Crash bar: low pierces the initial stop, venue sweeps the position
	// before the strategy sees the bar.
	bars = append(bars, market.Bar{
		Time:   last.Time.Add(time.Hour),
		Open:   last.Close,
		High:   last.Close,
		Low:    1.1900,
		Close:  1.1950,
		Volume: 1500,
	})

	drive(t, tu, e, bars, nil)

	open, _ := e.GetOpenPositions(context.Background(), "EURUSD")
	if len(open) != 0 {
		t.Fatalf("expected position swept, got %d open", len(open))
	}

	found := false
	for _, r := range j.Records {
		if r.Type == journal.TypeWarning && strings.Contains(r.Comment, "closed at venue") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected reconcile warning in journal")
	}

	ledger := e.Ledger()
	if len(ledger) != 1 || ledger[0].Reason != "StopLoss" {
		t.Fatalf("expected one StopLoss close, got %+v", ledger)
	}
}

// A fill placed through OnBar must show up as a TRADE journal row, and a
// realized stop-out must land in both the trade log and the daily loss
// accumulator, whatever venue executed it.
func TestStopOutBooksTradeAndDailyLoss(t *testing.T) {
	p := Params{
		EntryPeriod:    20,
		ExitPeriod:     10,
		ATRPeriod:      14,
		ATRMultiplier:  2.0,
		BreakoutMargin: 0.001,
		MaxUnits:       1,
		PyramidDelay:   1000,
	}
	tu, e, j := newTestTurtle(t, p)

	bars := breakoutSeries(80, 1)
	last := bars[len(bars)-1]
	bars = append(bars, market.Bar{
		Time:   last.Time.Add(time.Hour),
		Open:   last.Close,
		High:   last.Close,
		Low:    1.1900,
		Close:  1.1950,
		Volume: 1500,
	})

	drive(t, tu, e, bars, nil)

	// The entry fill is journaled by the strategy, not the venue.
	var entry *journal.Record
	for i, r := range j.Records {
		if r.Type == journal.TypeTrade && r.Comment == "Entry" {
			entry = &j.Records[i]
			break
		}
	}
	if entry == nil {
		t.Fatalf("expected a TRADE row for the entry fill")
	}
	if entry.Session != "test" || entry.Action != "BUY" || entry.Volume <= 0 || entry.StopLoss <= 0 {
		t.Fatalf("entry row incomplete: %+v", entry)
	}

	// The venue-side stop sweep is booked as a completed trade.
	if len(j.Trades) != 1 {
		t.Fatalf("trade records: got %d want 1", len(j.Trades))
	}
	tr := j.Trades[0]
	if tr.Reason != "StopLoss" || tr.Session != "test" {
		t.Fatalf("stop-out record incomplete: %+v", tr)
	}
	if !approx(tr.ExitPrice, entry.StopLoss, 1e-9) {
		t.Fatalf("exit price: got %.5f want stop %.5f", tr.ExitPrice, entry.StopLoss)
	}

	// The same loss the venue realized is charged to today's budget.
	engineRec := e.Ledger()[0]
	if !approx(tr.PnL, engineRec.PnL, 1e-6) {
		t.Fatalf("pnl: got %.2f want %.2f", tr.PnL, engineRec.PnL)
	}
	if !approx(tu.sizer.State.DailyLoss, -engineRec.PnL, 1e-6) {
		t.Fatalf("daily loss: got %.2f want %.2f", tu.sizer.State.DailyLoss, -engineRec.PnL)
	}
}

// The two profit stages must close fixed fractions of the initial volume
// and walk the stop: 40% at 1x ATR with the stop moved to entry, then half
// of the remaining 60% at 2x ATR with the stop trailed to the midpoint of
// entry and the trigger price.
func TestStagedPartialExits(t *testing.T) {
	p := Params{
		EntryPeriod:    20,
		ExitPeriod:     10,
		ATRPeriod:      14,
		ATRMultiplier:  2.0,
		BreakoutMargin: 0.001,
		MaxUnits:       1,
		PyramidDelay:   1000,
	}
	tu, e, _ := newTestTurtle(t, p)
	bars := breakoutSeries(80, 20)

	type obs struct {
		volume float64
		stop   float64
	}
	history := make([]obs, len(bars))
	var entryPrice, initialVolume float64

	drive(t, tu, e, bars, func(i int) {
		open, _ := e.GetOpenPositions(context.Background(), "EURUSD")
		if len(open) != 1 {
			return
		}
		if entryPrice == 0 {
			entryPrice = open[0].EntryPrice
			initialVolume = open[0].Volume
		}
		history[i] = obs{volume: open[0].Volume, stop: open[0].StopLoss}
	})
	if initialVolume == 0 {
		t.Fatalf("expected an entry")
	}

	// Collect the bars where the open volume shrank.
	type cut struct {
		bar    int
		amount float64
		stop   float64
	}
	var cuts []cut
	for i := 1; i < len(history); i++ {
		if history[i].volume > 0 && history[i-1].volume > history[i].volume+1e-9 {
			cuts = append(cuts, cut{
				bar:    i,
				amount: history[i-1].volume - history[i].volume,
				stop:   history[i].stop,
			})
		}
	}
	if len(cuts) != 2 {
		t.Fatalf("partial exits: got %d want 2 (%+v)", len(cuts), cuts)
	}

	wantFirst := roundStep(initialVolume*0.4, 0.01)
	if !approx(cuts[0].amount, wantFirst, 1e-9) {
		t.Fatalf("first cut: got %.2f want %.2f (40%% of initial)", cuts[0].amount, wantFirst)
	}
	if !approx(cuts[0].stop, entryPrice, 1e-9) {
		t.Fatalf("stop after first cut: got %.5f want breakeven %.5f", cuts[0].stop, entryPrice)
	}

	wantSecond := roundStep(initialVolume*0.6*0.5, 0.01)
	if !approx(cuts[1].amount, wantSecond, 1e-9) {
		t.Fatalf("second cut: got %.2f want %.2f (half of the remaining 60%%)", cuts[1].amount, wantSecond)
	}
	wantStop := (entryPrice + bars[cuts[1].bar].Close) / 2
	if !approx(cuts[1].stop, wantStop, 1e-9) {
		t.Fatalf("stop after second cut: got %.5f want midpoint %.5f", cuts[1].stop, wantStop)
	}

	var reasons []string
	for _, rec := range e.Ledger() {
		reasons = append(reasons, rec.Reason)
	}
	if len(reasons) < 2 || reasons[0] != "PartialExit1" || reasons[1] != "PartialExit2" {
		t.Fatalf("close reasons: got %v want PartialExit1 then PartialExit2", reasons)
	}
}

func TestShortWindowIsNoDecision(t *testing.T) {
	tu, e, j := newTestTurtle(t, DefaultParams())
	drive(t, tu, e, breakoutSeries(10, 0), nil)

	open, _ := e.GetOpenPositions(context.Background(), "EURUSD")
	if len(open) != 0 || len(j.Trades) != 0 {
		t.Fatalf("expected no activity on a short window")
	}
}

func TestRegistryBuildsTurtle(t *testing.T) {
	state := risk.NewState(100000, time.Now().UTC())
	sizer := risk.NewSizer(testLimits(), state, nil)

	s, err := New("turtle", DefaultParams(), sizer)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if s.Name() != "turtle" {
		t.Fatalf("name: got %q", s.Name())
	}

	if _, err := New("nope", DefaultParams(), sizer); err == nil {
		t.Fatalf("expected error for unknown strategy")
	}
}

func approx(a, b, tol float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d <= tol
}
