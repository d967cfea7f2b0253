package journal

import (
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLite{db: db}, nil
}

func (j *SQLite) Append(r Record) error {
	_, err := j.db.Exec(`
		INSERT INTO records
		(session, time, type, symbol, action, price, volume, stop_loss, take_profit,
		 comment, leverage, trend_strength, balance, equity)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.Session, r.Time, r.Type, r.Symbol, r.Action, r.Price, r.Volume,
		r.StopLoss, r.TakeProfit, r.Comment, r.Leverage, r.TrendStrength,
		r.Balance, r.Equity,
	)
	return err
}

func (j *SQLite) RecordTrade(t TradeRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO trades
		(session, ticket, symbol, direction, entry_price, exit_price, volume, pnl,
		 open_time, close_time, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.Session, t.Ticket, t.Symbol, t.Direction, t.EntryPrice, t.ExitPrice,
		t.Volume, t.PnL, t.OpenTime, t.CloseTime, t.Reason,
	)
	return err
}

// Run summarizes one backtest for the runs table.
type Run struct {
	RunID          string
	Created        time.Time
	Strategy       string
	Symbols        string
	Timeframe      string
	StartBalance   float64
	EndBalance     float64
	Trades         int
	WinRate        float64
	NetProfit      float64
	MaxDrawdownPct float64
}

func (j *SQLite) RecordRun(r Run) error {
	_, err := j.db.Exec(`
		INSERT INTO runs
		(run_id, created, strategy, symbols, timeframe, start_balance, end_balance,
		 trades, win_rate, net_profit, max_drawdown_pct)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.Created, r.Strategy, r.Symbols, r.Timeframe, r.StartBalance,
		r.EndBalance, r.Trades, r.WinRate, r.NetProfit, r.MaxDrawdownPct,
	)
	return err
}

func (j *SQLite) Close() error {
	return j.db.Close()
}
