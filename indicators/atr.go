package indicators

import (
	"math"

	"github.com/rustyeddy/turtle/market"
)

// TrueRange for a bar given the previous bar's close:
// max(high-low, |high-prevClose|, |low-prevClose|).
func TrueRange(current, previous market.Bar) float64 {
	highLow := current.High - current.Low
	highClose := math.Abs(current.High - previous.Close)
	lowClose := math.Abs(current.Low - previous.Close)
	return math.Max(highLow, math.Max(highClose, lowClose))
}

// ATR is the simple moving average of true range over the trailing period
// bars. A partial window is allowed while fewer than period+1 bars exist;
// with fewer than two bars the result is 0.
func ATR(bars []market.Bar, period int) float64 {
	n := len(bars)
	if period <= 0 || n < 2 {
		return 0
	}

	count := period
	if n-1 < count {
		count = n - 1
	}

	sum := 0.0
	for i := n - count; i < n; i++ {
		sum += TrueRange(bars[i], bars[i-1])
	}
	return sum / float64(count)
}
