// Package sim is the substitute execution venue for backtests. Orders fill
// at the bar close with a fixed synthetic spread, stops are swept against
// each bar's extremes, and everything is deterministic: sequential integer
// tickets, no wall clock, no randomness.
package sim

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rustyeddy/turtle/broker"
	"github.com/rustyeddy/turtle/journal"
	"github.com/rustyeddy/turtle/market"
)

var (
	ErrTicketNotFound = errors.New("sim: ticket not found")
	ErrPositionClosed = errors.New("sim: position already closed")
	ErrNoQuote        = errors.New("sim: no quote for symbol")
)

const defaultLeverage = 100

type position struct {
	ticket     string
	symbol     string
	direction  string
	volume     float64
	entryPrice float64
	stopLoss   float64
	takeProfit float64
	openTime   time.Time
	open       bool
}

// Engine simulates the execution gateway for one backtest. It is not safe
// for concurrent use; backtest bar processing is strictly sequential.
type Engine struct {
	session  string
	balance  float64
	leverage float64
	spread   float64

	quotes    map[string]market.Quote
	positions map[string]*position
	tickets   []string // open order, for deterministic iteration
	nextID    int

	ledger  []journal.TradeRecord
	onClose func(journal.TradeRecord)
}

func NewEngine(session string, balance, spread float64) *Engine {
	return &Engine{
		session:   session,
		balance:   balance,
		leverage:  defaultLeverage,
		spread:    spread,
		quotes:    make(map[string]market.Quote),
		positions: make(map[string]*position),
		nextID:    1,
	}
}

// SetCloseListener registers a callback invoked for every realized close,
// including stop-loss sweeps.
func (e *Engine) SetCloseListener(fn func(journal.TradeRecord)) {
	e.onClose = fn
}

// Ledger returns all realized trade records in close order.
func (e *Engine) Ledger() []journal.TradeRecord {
	return e.ledger
}

// SetBar advances the simulation to a new closed bar for symbol: the quote
// becomes close +/- half the spread, then any position whose stop level the
// bar's range touched is closed at its stop price.
func (e *Engine) SetBar(symbol string, bar market.Bar) error {
	e.quotes[symbol] = market.Quote{
		Symbol: symbol,
		Time:   bar.Time,
		Bid:    bar.Close - e.spread/2,
		Ask:    bar.Close + e.spread/2,
	}

	for _, ticket := range e.tickets {
		p := e.positions[ticket]
		if !p.open || p.symbol != symbol || p.stopLoss == 0 {
			continue
		}

		hit := false
		if p.direction == broker.Buy {
			hit = bar.Low <= p.stopLoss
		} else {
			hit = bar.High >= p.stopLoss
		}
		if hit {
			e.realize(p, p.volume, p.stopLoss, bar.Time, "StopLoss")
		}
	}
	return nil
}

func (e *Engine) GetQuote(ctx context.Context, symbol string) (market.Quote, error) {
	q, ok := e.quotes[symbol]
	if !ok {
		return market.Quote{}, fmt.Errorf("%w: %s", ErrNoQuote, symbol)
	}
	return q, nil
}

func (e *Engine) GetAccountSnapshot(ctx context.Context) (broker.Account, error) {
	equity := e.balance
	margin := 0.0

	for _, ticket := range e.tickets {
		p := e.positions[ticket]
		if !p.open {
			continue
		}
		q, ok := e.quotes[p.symbol]
		if !ok {
			continue
		}

		mark := q.Bid
		if p.direction == broker.Sell {
			mark = q.Ask
		}
		equity += unrealized(p, mark)

		meta := market.Meta(p.symbol)
		notional := p.volume * (meta.PipValue / meta.PipUnit) * mark
		margin += notional / e.leverage
	}

	return broker.Account{
		Balance:    e.balance,
		Equity:     equity,
		Margin:     margin,
		FreeMargin: equity - margin,
		Profit:     equity - e.balance,
	}, nil
}

func (e *Engine) GetOpenPositions(ctx context.Context, symbol string) ([]broker.PositionInfo, error) {
	var out []broker.PositionInfo
	for _, ticket := range e.tickets {
		p := e.positions[ticket]
		if !p.open {
			continue
		}
		if symbol != "" && p.symbol != symbol {
			continue
		}
		out = append(out, broker.PositionInfo{
			Ticket:     p.ticket,
			Symbol:     p.symbol,
			Direction:  p.direction,
			Volume:     p.volume,
			EntryPrice: p.entryPrice,
			StopLoss:   p.stopLoss,
			OpenTime:   p.openTime,
		})
	}
	return out, nil
}

func (e *Engine) PlaceOrder(ctx context.Context, req broker.OrderRequest) (broker.Fill, error) {
	q, ok := e.quotes[req.Symbol]
	if !ok {
		return broker.Fill{}, fmt.Errorf("%w: %s", ErrNoQuote, req.Symbol)
	}

	price := q.Ask
	if req.Direction == broker.Sell {
		price = q.Bid
	}

	ticket := strconv.Itoa(e.nextID)
	e.nextID++

	p := &position{
		ticket:     ticket,
		symbol:     req.Symbol,
		direction:  req.Direction,
		volume:     req.Volume,
		entryPrice: price,
		stopLoss:   req.StopLoss,
		takeProfit: req.TakeProfit,
		openTime:   q.Time,
		open:       true,
	}
	e.positions[ticket] = p
	e.tickets = append(e.tickets, ticket)

	return broker.Fill{
		Ticket: ticket,
		Symbol: req.Symbol,
		Volume: req.Volume,
		Price:  price,
		Time:   q.Time,
	}, nil
}

func (e *Engine) ModifyPosition(ctx context.Context, ticket string, stopLoss, takeProfit float64) error {
	p, ok := e.positions[ticket]
	if !ok {
		return fmt.Errorf("%w: %s", ErrTicketNotFound, ticket)
	}
	if !p.open {
		return fmt.Errorf("%w: %s", ErrPositionClosed, ticket)
	}
	p.stopLoss = stopLoss
	if takeProfit != 0 {
		p.takeProfit = takeProfit
	}
	return nil
}

func (e *Engine) ClosePosition(ctx context.Context, ticket string, volume float64, comment string) error {
	p, ok := e.positions[ticket]
	if !ok {
		return fmt.Errorf("%w: %s", ErrTicketNotFound, ticket)
	}
	if !p.open {
		return fmt.Errorf("%w: %s", ErrPositionClosed, ticket)
	}

	q, ok := e.quotes[p.symbol]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoQuote, p.symbol)
	}

	price := q.Bid
	if p.direction == broker.Sell {
		price = q.Ask
	}

	if volume <= 0 || volume > p.volume {
		volume = p.volume
	}
	e.realize(p, volume, price, q.Time, comment)
	return nil
}

// realize books pnl for volume lots of p at the given price, closing the
// position entirely when no volume remains.
func (e *Engine) realize(p *position, volume, price float64, now time.Time, reason string) {
	meta := market.Meta(p.symbol)

	move := price - p.entryPrice
	if p.direction == broker.Sell {
		move = -move
	}
	pnl := move / meta.PipUnit * meta.PipValue * volume

	e.balance += pnl
	p.volume -= volume
	if p.volume <= 1e-9 {
		p.volume = 0
		p.open = false
	}

	rec := journal.TradeRecord{
		Session:    e.session,
		Ticket:     p.ticket,
		Symbol:     p.symbol,
		Direction:  p.direction,
		EntryPrice: p.entryPrice,
		ExitPrice:  price,
		Volume:     volume,
		PnL:        pnl,
		OpenTime:   p.openTime,
		CloseTime:  now,
		Reason:     reason,
	}
	e.ledger = append(e.ledger, rec)

	if e.onClose != nil {
		e.onClose(rec)
	}
}

func unrealized(p *position, mark float64) float64 {
	meta := market.Meta(p.symbol)
	move := mark - p.entryPrice
	if p.direction == broker.Sell {
		move = -move
	}
	return move / meta.PipUnit * meta.PipValue * p.volume
}
