package market

import "time"

// Bar represents one closed OHLCV candlestick. Bars are immutable once
// produced and always ordered oldest-first in a series.
type Bar struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Quote is a point-in-time bid/ask pair for an instrument.
type Quote struct {
	Symbol string
	Time   time.Time
	Bid    float64
	Ask    float64
}

func (q Quote) Mid() float64 {
	return (q.Bid + q.Ask) / 2
}

func (q Quote) Spread() float64 {
	return q.Ask - q.Bid
}

// Closes extracts the close series from a bar window.
func Closes(bars []Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}

// Timeframe is a bar duration identifier like "M15" or "H1".
type Timeframe string

const (
	M1  Timeframe = "M1"
	M5  Timeframe = "M5"
	M15 Timeframe = "M15"
	H1  Timeframe = "H1"
	H4  Timeframe = "H4"
	D1  Timeframe = "D1"
)

var timeframeSeconds = map[Timeframe]int64{
	M1: 60, M5: 300, M15: 900, H1: 3600, H4: 14400, D1: 86400,
}

// Seconds returns the bar duration in seconds, or 0 for an unknown timeframe.
func (tf Timeframe) Seconds() int64 {
	return timeframeSeconds[tf]
}
