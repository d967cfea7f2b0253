package market

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetaKnownInstruments(t *testing.T) {
	assert.Equal(t, 0.0001, PipUnit("EURUSD"))
	assert.Equal(t, 0.01, PipUnit("USDJPY"))
	assert.Equal(t, 0.01, PipUnit("XAUUSD"))
	assert.Equal(t, 0.1, PipUnit("US500"))
}

func TestMetaClassFallback(t *testing.T) {
	// Unlisted symbols fall back to class conventions.
	assert.Equal(t, 0.0001, PipUnit("NZDCAD"))
	assert.Equal(t, 0.01, PipUnit("XPTUSD"))
	assert.Equal(t, 0.1, PipUnit("NAS100"))

	// USD-quoted pairs share the US prefix with indices but are still FX.
	assert.Equal(t, 0.0001, PipUnit("USDCHF"))
	assert.Equal(t, 0.0001, PipUnit("USDCAD"))
	assert.Equal(t, 0.0001, PipUnit("USDSEK"))

	m := Meta("DE40")
	assert.Equal(t, ClassIndex, m.Class)
	assert.Equal(t, 10.0, m.PipValue)
}

func TestQuoteMidAndSpread(t *testing.T) {
	q := Quote{Bid: 1.1999, Ask: 1.2001}
	assert.InDelta(t, 1.2000, q.Mid(), 1e-9)
	assert.InDelta(t, 0.0002, q.Spread(), 1e-9)
}

func TestTimeframeSeconds(t *testing.T) {
	assert.Equal(t, int64(3600), H1.Seconds())
	assert.Equal(t, int64(0), Timeframe("H2").Seconds())
}

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bars.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadBarsCSV(t *testing.T) {
	path := writeCSV(t, `time,open,high,low,close,volume
2024-06-03T00:00:00Z,1.2000,1.2010,1.1990,1.2005,1000
2024-06-03T01:00:00Z,1.2005,1.2020,1.2000,1.2015,1200
`)

	bars, err := LoadBarsCSV(path)
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC), bars[0].Time)
	assert.Equal(t, 1.2015, bars[1].Close)
	assert.Equal(t, 1200.0, bars[1].Volume)
}

func TestLoadBarsCSVNoHeader(t *testing.T) {
	path := writeCSV(t, "2024-06-03T00:00:00Z,1.2,1.201,1.199,1.2005,1000\n")
	bars, err := LoadBarsCSV(path)
	require.NoError(t, err)
	assert.Len(t, bars, 1)
}

func TestLoadBarsCSVRejectsDisorder(t *testing.T) {
	path := writeCSV(t, `2024-06-03T01:00:00Z,1.2,1.201,1.199,1.2005,1000
2024-06-03T00:00:00Z,1.2,1.201,1.199,1.2005,1000
`)
	_, err := LoadBarsCSV(path)
	assert.ErrorContains(t, err, "out of order")
}

func TestLoadBarsCSVRejectsBadRow(t *testing.T) {
	path := writeCSV(t, "2024-06-03T00:00:00Z,1.2,notanumber,1.199,1.2005,1000\n")
	_, err := LoadBarsCSV(path)
	assert.Error(t, err)
}

func TestCloses(t *testing.T) {
	bars := []Bar{{Close: 1.1}, {Close: 1.2}, {Close: 1.3}}
	assert.Equal(t, []float64{1.1, 1.2, 1.3}, Closes(bars))
}
