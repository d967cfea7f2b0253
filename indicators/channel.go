package indicators

import "github.com/rustyeddy/turtle/market"

// Channel returns the Donchian channel over the trailing period bars of the
// given window: the rolling max of highs and min of lows. Callers control
// lag by slicing the window they pass in.
func Channel(bars []market.Bar, period int) (high, low float64) {
	n := len(bars)
	if period <= 0 || n == 0 {
		return 0, 0
	}
	if period > n {
		period = n
	}

	high = bars[n-period].High
	low = bars[n-period].Low
	for i := n - period + 1; i < n; i++ {
		if bars[i].High > high {
			high = bars[i].High
		}
		if bars[i].Low < low {
			low = bars[i].Low
		}
	}
	return high, low
}
