// Package indicators derives the volatility, channel, trend, and volume
// signals a breakout strategy needs from a closed-bar window.
package indicators

import "github.com/rustyeddy/turtle/market"

// Params selects the lookback periods for a snapshot.
type Params struct {
	EntryPeriod int // Donchian entry channel lookback
	ExitPeriod  int // Donchian exit channel lookback
	ATRPeriod   int
}

// Snapshot is the full set of derived values for one decision point. It is
// computed purely from an immutable bar window and never mutates.
//
// Channel values are read at a two-bar lag relative to the decision point:
// the channel consulted for a breakout test never includes the bar that most
// recently closed, so a breakout bar cannot validate its own breakout.
type Snapshot struct {
	ATR float64

	EntryChannelHigh float64
	EntryChannelLow  float64
	ExitChannelHigh  float64
	ExitChannelLow   float64

	// EMAs are omitted (zero, flag false) until enough bars exist.
	EMA50     float64
	EMA200    float64
	HasEMA50  bool
	HasEMA200 bool

	TrendBullish  bool
	StrongTrend   bool
	TrendStrength float64 // 0..1

	HighVolatility bool
	VolumeRatio    float64
}

const (
	volWindow      = 20  // trailing ATR mean window for the volatility flag
	volThreshold   = 1.3 // ATR multiple that marks high volatility
	volumeWindow   = 50  // trailing mean window for the volume ratio
	slopeLookback  = 10  // bars back for the EMA slope component
	emaShortPeriod = 50
	emaLongPeriod  = 200
)

// MinBars returns the shortest window Compute accepts for these params.
// The EMAs want more history but are simply omitted below their own
// thresholds rather than blocking the snapshot.
func (p Params) MinBars() int {
	n := p.EntryPeriod
	if p.ExitPeriod > n {
		n = p.ExitPeriod
	}
	if p.ATRPeriod > n {
		n = p.ATRPeriod
	}
	return n + 2
}

// Compute derives a snapshot from an ordered bar window whose last element
// is the most recently closed bar. It reports ok=false when the window is
// too short; callers must treat that as "no decision this cycle".
func Compute(bars []market.Bar, p Params) (Snapshot, bool) {
	if p.EntryPeriod <= 0 || p.ExitPeriod <= 0 || p.ATRPeriod <= 0 {
		return Snapshot{}, false
	}
	n := len(bars)
	if n < p.MinBars() {
		return Snapshot{}, false
	}

	var s Snapshot

	s.ATR = ATR(bars, p.ATRPeriod)

	// Two-bar lag: drop the most recently closed bar from the channel window.
	lagged := bars[:n-1]
	s.EntryChannelHigh, s.EntryChannelLow = Channel(lagged, p.EntryPeriod)
	s.ExitChannelHigh, s.ExitChannelLow = Channel(lagged, p.ExitPeriod)

	closes := market.Closes(bars)
	if n >= emaShortPeriod {
		s.EMA50 = EMA(closes, emaShortPeriod)
		s.HasEMA50 = true
	}
	if n >= emaLongPeriod {
		s.EMA200 = EMA(closes, emaLongPeriod)
		s.HasEMA200 = true
	}

	last := bars[n-1]
	s.TrendBullish = s.HasEMA50 && last.Close > s.EMA50
	s.StrongTrend = s.HasEMA50 && s.HasEMA200 && s.EMA50 > s.EMA200
	if s.HasEMA50 {
		s.TrendStrength = trendStrength(last.Close, s.EMA50, s.ATR, closes)
	}

	s.HighVolatility = highVolatility(bars, p.ATRPeriod, s.ATR)
	s.VolumeRatio = volumeRatio(bars)

	return s, true
}

// trendStrength blends price distance from the short EMA (70%) with the
// short EMA's slope over the last slopeLookback bars (30%).
func trendStrength(close, ema50, atr float64, closes []float64) float64 {
	var dist float64
	if atr > 0 {
		dist = clamp01(((close - ema50) / atr) / 3)
	}

	var slope float64
	if len(closes) >= emaShortPeriod+slopeLookback {
		if prev := EMA(closes[:len(closes)-slopeLookback], emaShortPeriod); prev > 0 {
			slope = clamp01((ema50 - prev) / prev * 20)
		}
	}

	return 0.7*dist + 0.3*slope
}

func highVolatility(bars []market.Bar, atrPeriod int, atr float64) bool {
	sum := 0.0
	count := 0
	for i := 0; i < volWindow; i++ {
		if len(bars)-i < 2 {
			break
		}
		sum += ATR(bars[:len(bars)-i], atrPeriod)
		count++
	}
	if count == 0 {
		return false
	}
	return atr > volThreshold*(sum/float64(count))
}

func volumeRatio(bars []market.Bar) float64 {
	n := len(bars)
	w := volumeWindow
	if n < w {
		w = n
	}
	sum := 0.0
	for i := n - w; i < n; i++ {
		sum += bars[i].Volume
	}
	mean := sum / float64(w)
	if mean <= 0 {
		return 0
	}
	return bars[n-1].Volume / mean
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
