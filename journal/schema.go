package journal

const schema = `
CREATE TABLE IF NOT EXISTS records (
	session TEXT NOT NULL,
	time DATETIME NOT NULL,
	type TEXT NOT NULL,
	symbol TEXT,
	action TEXT,
	price REAL,
	volume REAL,
	stop_loss REAL,
	take_profit REAL,
	comment TEXT,
	leverage REAL,
	trend_strength REAL,
	balance REAL,
	equity REAL
);

CREATE TABLE IF NOT EXISTS trades (
	session TEXT NOT NULL,
	ticket TEXT NOT NULL,
	symbol TEXT NOT NULL,
	direction TEXT NOT NULL,
	entry_price REAL NOT NULL,
	exit_price REAL NOT NULL,
	volume REAL NOT NULL,
	pnl REAL NOT NULL,
	open_time DATETIME NOT NULL,
	close_time DATETIME NOT NULL,
	reason TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS runs (
	run_id TEXT PRIMARY KEY,
	created DATETIME NOT NULL,
	strategy TEXT NOT NULL,
	symbols TEXT NOT NULL,
	timeframe TEXT NOT NULL,
	start_balance REAL NOT NULL,
	end_balance REAL NOT NULL,
	trades INTEGER NOT NULL,
	win_rate REAL NOT NULL,
	net_profit REAL NOT NULL,
	max_drawdown_pct REAL NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_records_session_time ON records(session, time);
CREATE INDEX IF NOT EXISTS idx_trades_session_close ON trades(session, close_time);
`
