// Package broker defines the execution/market-data gateway contract. The
// strategy layer only sees the Executor subset, so the live gateway and the
// backtest simulator are interchangeable.
package broker

import (
	"context"
	"time"

	"github.com/rustyeddy/turtle/market"
)

// Trade directions.
const (
	Buy  = "BUY"
	Sell = "SELL"
)

// Account is a read-only account snapshot fetched once per cycle.
type Account struct {
	Balance    float64
	Equity     float64
	Margin     float64
	FreeMargin float64
	Profit     float64
}

// OrderRequest asks for a market order with an attached stop loss.
type OrderRequest struct {
	Symbol     string
	Direction  string // Buy or Sell
	Volume     float64
	StopLoss   float64
	TakeProfit float64
	Comment    string
}

// Fill reports the executed order. Ticket is the venue's opaque position id.
type Fill struct {
	Ticket string
	Symbol string
	Volume float64
	Price  float64
	Time   time.Time
}

// PositionInfo mirrors the venue's view of one open position. It is
// consulted for reconciliation but never owns lifecycle truth.
type PositionInfo struct {
	Ticket     string
	Symbol     string
	Direction  string
	Volume     float64
	EntryPrice float64
	StopLoss   float64
	OpenTime   time.Time
}

// Executor is the order/market-data surface the signal generator drives.
// Implemented by both the live gateway and the backtest sim engine.
type Executor interface {
	GetQuote(ctx context.Context, symbol string) (market.Quote, error)
	GetAccountSnapshot(ctx context.Context) (Account, error)
	GetOpenPositions(ctx context.Context, symbol string) ([]PositionInfo, error)
	PlaceOrder(ctx context.Context, req OrderRequest) (Fill, error)
	ModifyPosition(ctx context.Context, ticket string, stopLoss, takeProfit float64) error
	ClosePosition(ctx context.Context, ticket string, volume float64, comment string) error
}

// Gateway is the full live-venue contract: Executor plus connectivity and
// historical data.
type Gateway interface {
	Executor

	Connect(ctx context.Context) error
	GetHistoricalData(ctx context.Context, symbol string, tf market.Timeframe, barCount int) ([]market.Bar, error)
}
