// Package journal is the append-only trade/status log. Every event the
// system emits — fills, periodic account snapshots, warnings — becomes one
// record here, and the persisted log is the sole input to the compliance
// auditor.
package journal

import "time"

// Record types.
const (
	TypeInfo    = "INFO"
	TypeWarning = "WARNING"
	TypeError   = "ERROR"
	TypeTrade   = "TRADE"
	TypeStatus  = "STATUS"
	TypeMetrics = "METRICS"
)

// Actions.
const (
	ActionBuy  = "BUY"
	ActionSell = "SELL"
)

// Record is one append-only log row. STATUS rows are periodic account
// snapshots; TRADE rows are fills.
type Record struct {
	Session       string
	Time          time.Time
	Type          string
	Symbol        string
	Action        string
	Price         float64
	Volume        float64
	StopLoss      float64
	TakeProfit    float64
	Comment       string
	Leverage      float64
	TrendStrength float64
	Balance       float64
	Equity        float64
}

// TradeRecord is one completed round trip (or partial close), produced by
// both live execution and backtest simulation.
type TradeRecord struct {
	Session    string
	Ticket     string
	Symbol     string
	Direction  string // BUY or SELL
	EntryPrice float64
	ExitPrice  float64
	Volume     float64
	PnL        float64
	OpenTime   time.Time
	CloseTime  time.Time
	Reason     string
}

type Journal interface {
	Append(Record) error
	RecordTrade(TradeRecord) error
	Close() error
}

// Info is a convenience for freeform INFO/WARNING/ERROR rows.
func Info(j Journal, now time.Time, typ, symbol, comment string) {
	if j == nil {
		return
	}
	_ = j.Append(Record{Time: now, Type: typ, Symbol: symbol, Comment: comment})
}
