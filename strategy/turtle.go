package strategy

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rustyeddy/turtle/broker"
	"github.com/rustyeddy/turtle/indicators"
	"github.com/rustyeddy/turtle/journal"
	"github.com/rustyeddy/turtle/market"
	"github.com/rustyeddy/turtle/risk"
)

func init() {
	Register("turtle", func(p Params, sizer *risk.Sizer) Strategy {
		return NewTurtle(p, sizer)
	})
}

// Turtle is the Donchian breakout state machine. Per symbol it is either
// flat or long 1..MaxUnits units; each unit carries its own stop and its
// own partial-exit progress.
//
// Decisions are made on closed bars only, against channels read at a
// two-bar lag, so the same bar sequence always produces the same orders
// whether it arrives live or from historical replay.
//
// The strategy owns position lifecycle truth, so it also owns the trade
// log: every fill it causes (and every venue-side stop fill it discovers
// during reconciliation) is journaled here, and realized losses feed the
// daily risk accumulator. Live sessions and backtests share this one
// bookkeeping path.
type Turtle struct {
	params Params
	sizer  *risk.Sizer
	books  map[string]*book

	session string
	journal journal.Journal
}

func NewTurtle(p Params, sizer *risk.Sizer) *Turtle {
	return &Turtle{
		params: p,
		sizer:  sizer,
		books:  map[string]*book{},
	}
}

func (t *Turtle) Name() string { return "turtle" }

// SetJournal attaches the trade/status log.
func (t *Turtle) SetJournal(j journal.Journal) { t.journal = j }

// SetSession tags journaled records with the session id.
func (t *Turtle) SetSession(session string) { t.session = session }

// OnBar runs one decision cycle for one symbol. The last element of bars is
// the bar that just closed. A short window is "no decision", not an error;
// a venue error aborts the cycle for this symbol with no state change.
func (t *Turtle) OnBar(ctx context.Context, ex broker.Executor, symbol string, bars []market.Bar, barIndex int, now time.Time) error {
	snap, ok := indicators.Compute(bars, indicators.Params{
		EntryPeriod: t.params.EntryPeriod,
		ExitPeriod:  t.params.ExitPeriod,
		ATRPeriod:   t.params.ATRPeriod,
	})
	if !ok {
		return nil
	}

	b, exists := t.books[symbol]
	if !exists {
		b = newBook()
		t.books[symbol] = b
	}

	if err := t.reconcile(ctx, ex, symbol, b, now); err != nil {
		return err
	}

	price := bars[len(bars)-1].Close
	open := b.open()

	if len(open) == 0 {
		return t.tryEnter(ctx, ex, symbol, b, snap, price, barIndex, now, 0)
	}

	// Exit channel breach closes everything.
	if price < snap.ExitChannelLow {
		t.closeAll(ctx, ex, symbol, b, price, now)
		return nil
	}

	for _, p := range open {
		t.managePartialExits(ctx, ex, symbol, p, snap, price, barIndex, now)
	}

	// Fresh breakout while long pyramids another unit.
	if len(b.open()) < t.params.MaxUnits &&
		b.lastEntryBar >= 0 &&
		barIndex-b.lastEntryBar >= t.params.PyramidDelay &&
		price > snap.EntryChannelHigh*(1+t.params.BreakoutMargin) &&
		snap.ATR > 0 {
		return t.tryEnter(ctx, ex, symbol, b, snap, price, barIndex, now, len(b.open()))
	}
	return nil
}

// reconcile syncs the book against the venue. Stops fill venue-side, so any
// unit whose ticket is gone was closed out at its stop; book that fill.
func (t *Turtle) reconcile(ctx context.Context, ex broker.Executor, symbol string, b *book, now time.Time) error {
	if len(b.open()) == 0 {
		return nil
	}
	infos, err := ex.GetOpenPositions(ctx, symbol)
	if err != nil {
		return fmt.Errorf("reconcile %s: %w", symbol, err)
	}
	openTickets := make(map[string]bool, len(infos))
	for _, info := range infos {
		openTickets[info.Ticket] = true
	}
	for _, p := range b.reconcile(openTickets) {
		t.recordClose(p, p.CurrentVolume, p.StopLoss, now, "StopLoss")
		p.CurrentVolume = 0
		t.note(now, symbol, fmt.Sprintf("unit %s closed at venue (stop fill)", p.Ticket))
	}
	return nil
}

// tryEnter sizes, gates, and places one unit. unitIndex 0 is the initial
// entry; higher indexes are pyramids.
func (t *Turtle) tryEnter(ctx context.Context, ex broker.Executor, symbol string, b *book, snap indicators.Snapshot, price float64, barIndex int, now time.Time, unitIndex int) error {
	if unitIndex == 0 && !t.entrySignal(snap, price) {
		return nil
	}
	if !t.sizer.CanTrade() {
		return nil
	}

	acct, err := ex.GetAccountSnapshot(ctx)
	if err != nil {
		return fmt.Errorf("account snapshot: %w", err)
	}

	stopMult := t.params.ATRMultiplier
	if snap.HighVolatility {
		stopMult += 0.5
	}
	stop := price - stopMult*snap.ATR

	volume := t.sizer.Size(symbol, price, stop, acct.Balance, snap.TrendStrength)
	if volume <= 0 {
		return nil
	}
	if !t.sizer.Gate(symbol, volume, price, stop) {
		return nil
	}

	comment := "Entry"
	if unitIndex > 0 {
		comment = fmt.Sprintf("Pyramid-%d", unitIndex+1)
	}
	fill, err := ex.PlaceOrder(ctx, broker.OrderRequest{
		Symbol:    symbol,
		Direction: broker.Buy,
		Volume:    volume,
		StopLoss:  stop,
		Comment:   comment,
	})
	if err != nil {
		t.note(now, symbol, fmt.Sprintf("order rejected: %v", err))
		return nil
	}

	b.add(&Position{
		Ticket:        fill.Ticket,
		Symbol:        symbol,
		Direction:     broker.Buy,
		EntryPrice:    fill.Price,
		InitialVolume: fill.Volume,
		CurrentVolume: fill.Volume,
		StopLoss:      stop,
		OpenTime:      fill.Time,
		OpenBar:       barIndex,
		UnitIndex:     unitIndex,
		State:         Open,
	}, barIndex)

	if t.journal != nil {
		_ = t.journal.Append(journal.Record{
			Session:       t.session,
			Time:          now,
			Type:          journal.TypeTrade,
			Symbol:        symbol,
			Action:        broker.Buy,
			Price:         fill.Price,
			Volume:        fill.Volume,
			StopLoss:      stop,
			Comment:       comment,
			TrendStrength: snap.TrendStrength,
			Balance:       acct.Balance,
		})
	}
	return nil
}

// entrySignal is the initial breakout test. Pyramids reuse only the
// breakout portion; the filters apply to opening a fresh sequence.
func (t *Turtle) entrySignal(snap indicators.Snapshot, price float64) bool {
	if snap.ATR <= 0 {
		return false
	}
	if price <= snap.EntryChannelHigh*(1+t.params.BreakoutMargin) {
		return false
	}
	if snap.VolumeRatio <= 1.1 {
		return false
	}
	if t.params.UseTrendFilter && !snap.TrendBullish {
		return false
	}
	if t.params.SwingMode && !snap.StrongTrend {
		return false
	}
	if snap.HighVolatility {
		return false
	}
	return true
}

// managePartialExits advances one unit through its two profit-taking
// stages. A failed order leaves the stage unchanged so it retries on the
// next bar.
func (t *Turtle) managePartialExits(ctx context.Context, ex broker.Executor, symbol string, p *Position, snap indicators.Snapshot, price float64, barIndex int, now time.Time) {
	minHold, profitMult := 1, 1.0
	if t.params.SwingMode {
		minHold, profitMult = 2, 1.5
	}

	if p.exitStage == 0 {
		if barIndex-p.OpenBar < minHold || price <= p.EntryPrice+profitMult*snap.ATR {
			return
		}
		closeVol := roundStep(p.InitialVolume*0.4, t.sizer.Limits.LotStep)
		if closeVol <= 0 || closeVol >= p.CurrentVolume {
			p.exitStage = 1
			return
		}
		exit := t.exitPrice(ctx, ex, symbol, price)
		if err := ex.ClosePosition(ctx, p.Ticket, closeVol, "PartialExit1"); err != nil {
			t.note(now, symbol, fmt.Sprintf("partial exit 1 rejected: %v", err))
			return
		}
		t.recordClose(p, closeVol, exit, now, "PartialExit1")
		p.CurrentVolume -= closeVol
		p.State = PartiallyClosed
		p.exitStage = 1

		// Breakeven on the remainder.
		if err := ex.ModifyPosition(ctx, p.Ticket, p.EntryPrice, 0); err != nil {
			t.note(now, symbol, fmt.Sprintf("breakeven move rejected: %v", err))
			return
		}
		p.StopLoss = p.EntryPrice
		return
	}

	if p.exitStage == 1 {
		if price <= p.EntryPrice+2*profitMult*snap.ATR {
			return
		}
		closeVol := roundStep(p.InitialVolume*0.6*0.5, t.sizer.Limits.LotStep)
		if closeVol <= 0 || closeVol >= p.CurrentVolume {
			p.exitStage = 2
			return
		}
		exit := t.exitPrice(ctx, ex, symbol, price)
		if err := ex.ClosePosition(ctx, p.Ticket, closeVol, "PartialExit2"); err != nil {
			t.note(now, symbol, fmt.Sprintf("partial exit 2 rejected: %v", err))
			return
		}
		t.recordClose(p, closeVol, exit, now, "PartialExit2")
		p.CurrentVolume -= closeVol
		p.State = PartiallyClosed
		p.exitStage = 2

		// Trail to the midpoint of entry and current price.
		newStop := (p.EntryPrice + price) / 2
		if err := ex.ModifyPosition(ctx, p.Ticket, newStop, 0); err != nil {
			t.note(now, symbol, fmt.Sprintf("trail move rejected: %v", err))
			return
		}
		p.StopLoss = newStop
	}
}

func (t *Turtle) closeAll(ctx context.Context, ex broker.Executor, symbol string, b *book, price float64, now time.Time) {
	remaining := false
	for _, p := range b.open() {
		exit := t.exitPrice(ctx, ex, symbol, price)
		if err := ex.ClosePosition(ctx, p.Ticket, 0, "ExitChannel"); err != nil {
			t.note(now, symbol, fmt.Sprintf("exit close rejected: %v", err))
			remaining = true
			continue
		}
		t.recordClose(p, p.CurrentVolume, exit, now, "ExitChannel")
		p.State = Closed
		p.CurrentVolume = 0
	}
	if !remaining {
		b.clear()
	}
}

// exitPrice marks a long close at the current bid, falling back to the
// decision price when no quote is available.
func (t *Turtle) exitPrice(ctx context.Context, ex broker.Executor, symbol string, fallback float64) float64 {
	q, err := ex.GetQuote(ctx, symbol)
	if err != nil || q.Bid <= 0 {
		return fallback
	}
	return q.Bid
}

// recordClose books one realized (partial) close: a TradeRecord and a
// TRADE row in the journal, and the realized loss, if any, into the daily
// risk accumulator.
func (t *Turtle) recordClose(p *Position, volume, exit float64, now time.Time, reason string) {
	meta := market.Meta(p.Symbol)
	pnl := (exit - p.EntryPrice) / meta.PipUnit * meta.PipValue * volume

	t.sizer.State.AddLoss(pnl)

	if t.journal == nil {
		return
	}
	_ = t.journal.RecordTrade(journal.TradeRecord{
		Session:    t.session,
		Ticket:     p.Ticket,
		Symbol:     p.Symbol,
		Direction:  p.Direction,
		EntryPrice: p.EntryPrice,
		ExitPrice:  exit,
		Volume:     volume,
		PnL:        pnl,
		OpenTime:   p.OpenTime,
		CloseTime:  now,
		Reason:     reason,
	})
	_ = t.journal.Append(journal.Record{
		Session: t.session,
		Time:    now,
		Type:    journal.TypeTrade,
		Symbol:  p.Symbol,
		Action:  broker.Sell,
		Price:   exit,
		Volume:  volume,
		Comment: reason,
	})
}

func (t *Turtle) note(now time.Time, symbol, msg string) {
	if t.journal == nil {
		return
	}
	_ = t.journal.Append(journal.Record{
		Time:    now,
		Type:    journal.TypeWarning,
		Symbol:  symbol,
		Comment: msg,
	})
}

func roundStep(volume, step float64) float64 {
	if step <= 0 {
		return volume
	}
	return math.Floor(volume/step+1e-9) * step
}
