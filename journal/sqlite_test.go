package journal

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *SQLite {
	t.Helper()
	j, err := NewSQLite(filepath.Join(t.TempDir(), "journal.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j
}

func TestSQLiteRecordsRoundTrip(t *testing.T) {
	j := openTestDB(t)

	t0 := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, j.Append(Record{
		Session: "s1", Time: t0, Type: TypeStatus,
		Balance: 100000, Equity: 100250,
	}))
	require.NoError(t, j.Append(Record{
		Session: "s1", Time: t0.Add(time.Hour), Type: TypeTrade,
		Symbol: "EURUSD", Action: ActionBuy, Price: 1.1002, Volume: 0.5,
		StopLoss: 1.0950, TrendStrength: 0.8, Balance: 100000,
	}))
	require.NoError(t, j.Append(Record{
		Session: "s2", Time: t0, Type: TypeInfo, Comment: "other session",
	}))

	recs, err := j.ListRecords("s1")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, TypeStatus, recs[0].Type)
	assert.Equal(t, 100250.0, recs[0].Equity)
	assert.Equal(t, "EURUSD", recs[1].Symbol)
	assert.Equal(t, ActionBuy, recs[1].Action)

	sessions, err := j.Sessions()
	require.NoError(t, err)
	assert.Equal(t, []string{"s1", "s2"}, sessions)
}

func TestSQLiteTradesRoundTrip(t *testing.T) {
	j := openTestDB(t)

	t0 := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, j.RecordTrade(TradeRecord{
		Session: "s1", Ticket: "1", Symbol: "EURUSD", Direction: ActionBuy,
		EntryPrice: 1.1002, ExitPrice: 1.1102, Volume: 0.5, PnL: 500,
		OpenTime: t0, CloseTime: t0.Add(4 * time.Hour), Reason: "ExitChannel",
	}))

	trades, err := j.ListTrades("s1")
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, "1", trades[0].Ticket)
	assert.Equal(t, 500.0, trades[0].PnL)
}

func TestSQLiteRuns(t *testing.T) {
	j := openTestDB(t)

	run := Run{
		RunID:        "01TESTRUN",
		Created:      time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		Strategy:     "turtle",
		Symbols:      "EURUSD",
		Timeframe:    "H1",
		StartBalance: 100000,
		EndBalance:   103500,
		Trades:       12,
		WinRate:      41.7,
		NetProfit:    3500,
	}
	require.NoError(t, j.RecordRun(run))

	got, err := j.GetRun("01TESTRUN")
	require.NoError(t, err)
	assert.Equal(t, run.Trades, got.Trades)
	assert.Equal(t, run.EndBalance, got.EndBalance)

	_, err = j.GetRun("missing")
	assert.Error(t, err)
}
