package indicators

// SMA calculates the simple moving average of the trailing period values.
// Returns 0 when there is not enough data.
func SMA(values []float64, period int) float64 {
	n := len(values)
	if period <= 0 || n < period {
		return 0
	}
	sum := 0.0
	for i := n - period; i < n; i++ {
		sum += values[i]
	}
	return sum / float64(period)
}

// EMA calculates the exponential moving average over the full value series,
// seeded with the SMA of the first period values. Returns 0 when there is
// not enough data.
func EMA(values []float64, period int) float64 {
	n := len(values)
	if period <= 0 || n < period {
		return 0
	}

	multiplier := 2.0 / float64(period+1)

	// Seed with SMA of the first period values.
	sma := 0.0
	for i := 0; i < period; i++ {
		sma += values[i]
	}
	ema := sma / float64(period)

	for i := period; i < n; i++ {
		ema = (values[i]-ema)*multiplier + ema
	}
	return ema
}
