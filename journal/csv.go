package journal

import (
	"encoding/csv"
	"os"
	"strconv"
	"time"
)

// CSV writes records and trades to two flat files. Handy for quick runs
// where a SQLite database is overkill.
type CSV struct {
	records *csv.Writer
	trades  *csv.Writer
	rf, tf  *os.File
}

func NewCSV(recordsPath, tradesPath string) (*CSV, error) {
	rf, err := os.Create(recordsPath)
	if err != nil {
		return nil, err
	}
	tf, err := os.Create(tradesPath)
	if err != nil {
		rf.Close()
		return nil, err
	}

	rw := csv.NewWriter(rf)
	tw := csv.NewWriter(tf)

	if err := rw.Write([]string{
		"session", "time", "type", "symbol", "action", "price", "volume",
		"stop_loss", "take_profit", "comment", "leverage", "trend_strength",
		"balance", "equity",
	}); err != nil {
		return nil, err
	}
	if err := tw.Write([]string{
		"session", "ticket", "symbol", "direction", "entry_price", "exit_price",
		"volume", "pnl", "open_time", "close_time", "reason",
	}); err != nil {
		return nil, err
	}

	rw.Flush()
	tw.Flush()
	if err := rw.Error(); err != nil {
		return nil, err
	}
	if err := tw.Error(); err != nil {
		return nil, err
	}

	return &CSV{records: rw, trades: tw, rf: rf, tf: tf}, nil
}

func (j *CSV) Append(r Record) error {
	if err := j.records.Write([]string{
		r.Session,
		r.Time.Format(time.RFC3339),
		r.Type,
		r.Symbol,
		r.Action,
		f(r.Price), f(r.Volume), f(r.StopLoss), f(r.TakeProfit),
		r.Comment,
		f(r.Leverage), f(r.TrendStrength), f(r.Balance), f(r.Equity),
	}); err != nil {
		return err
	}
	j.records.Flush()
	return j.records.Error()
}

func (j *CSV) RecordTrade(t TradeRecord) error {
	if err := j.trades.Write([]string{
		t.Session,
		t.Ticket,
		t.Symbol,
		t.Direction,
		f(t.EntryPrice), f(t.ExitPrice), f(t.Volume), f(t.PnL),
		t.OpenTime.Format(time.RFC3339),
		t.CloseTime.Format(time.RFC3339),
		t.Reason,
	}); err != nil {
		return err
	}
	j.trades.Flush()
	return j.trades.Error()
}

func (j *CSV) Close() error {
	j.records.Flush()
	if err := j.records.Error(); err != nil {
		return err
	}
	j.trades.Flush()
	if err := j.trades.Error(); err != nil {
		return err
	}
	if err := j.rf.Close(); err != nil {
		return err
	}
	return j.tf.Close()
}

func f(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}
