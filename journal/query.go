package journal

import (
	"database/sql"
	"fmt"
)

// ListRecords returns a session's log rows in time order.
func (j *SQLite) ListRecords(session string) ([]Record, error) {
	rows, err := j.db.Query(`
		SELECT session, time, type, symbol, action, price, volume, stop_loss,
		       take_profit, comment, leverage, trend_strength, balance, equity
		FROM records
		WHERE session = ?
		ORDER BY time ASC`, session)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(
			&r.Session, &r.Time, &r.Type, &r.Symbol, &r.Action, &r.Price,
			&r.Volume, &r.StopLoss, &r.TakeProfit, &r.Comment, &r.Leverage,
			&r.TrendStrength, &r.Balance, &r.Equity,
		); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ListTrades returns a session's trade records ordered by close time.
func (j *SQLite) ListTrades(session string) ([]TradeRecord, error) {
	rows, err := j.db.Query(`
		SELECT session, ticket, symbol, direction, entry_price, exit_price,
		       volume, pnl, open_time, close_time, reason
		FROM trades
		WHERE session = ?
		ORDER BY close_time ASC`, session)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TradeRecord
	for rows.Next() {
		var t TradeRecord
		if err := rows.Scan(
			&t.Session, &t.Ticket, &t.Symbol, &t.Direction, &t.EntryPrice,
			&t.ExitPrice, &t.Volume, &t.PnL, &t.OpenTime, &t.CloseTime, &t.Reason,
		); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Sessions lists the distinct session IDs present in the log.
func (j *SQLite) Sessions() ([]string, error) {
	rows, err := j.db.Query(`SELECT DISTINCT session FROM records ORDER BY session`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// GetRun returns a single backtest run summary by ID.
func (j *SQLite) GetRun(runID string) (Run, error) {
	var r Run
	row := j.db.QueryRow(`
		SELECT run_id, created, strategy, symbols, timeframe, start_balance,
		       end_balance, trades, win_rate, net_profit, max_drawdown_pct
		FROM runs
		WHERE run_id = ?`, runID)

	err := row.Scan(
		&r.RunID, &r.Created, &r.Strategy, &r.Symbols, &r.Timeframe,
		&r.StartBalance, &r.EndBalance, &r.Trades, &r.WinRate, &r.NetProfit,
		&r.MaxDrawdownPct,
	)
	if err == sql.ErrNoRows {
		return Run{}, fmt.Errorf("run %q not found", runID)
	}
	return r, err
}
