package ledger

// Money columns are stored as TEXT so decimal values round-trip without
// float drift. All timestamps are stored in UTC.
const Schema = `
CREATE TABLE IF NOT EXISTS trades (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	cycle_id TEXT NOT NULL UNIQUE,
	timestamp DATETIME NOT NULL,
	decision TEXT NOT NULL,
	confidence REAL NOT NULL,
	risk_tier TEXT NOT NULL,
	rationale TEXT NOT NULL,
	expected_min TEXT NOT NULL,
	expected_max TEXT NOT NULL,
	action_taken TEXT NOT NULL,
	price TEXT NOT NULL,
	quantity TEXT NOT NULL,
	notional TEXT NOT NULL,
	fee TEXT NOT NULL,
	order_id TEXT NOT NULL DEFAULT '',
	outcome TEXT NOT NULL,
	reason TEXT NOT NULL DEFAULT '',
	cash_before TEXT NOT NULL,
	asset_before TEXT NOT NULL,
	avg_price_before TEXT NOT NULL,
	mark_price TEXT NOT NULL,
	market_data TEXT NOT NULL DEFAULT '{}'
);

CREATE INDEX IF NOT EXISTS idx_trades_timestamp ON trades(timestamp);

CREATE TABLE IF NOT EXISTS reflections (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	trade_id INTEGER NOT NULL,
	kind TEXT NOT NULL,
	performance_score REAL NOT NULL,
	pnl TEXT NOT NULL,
	pnl_percent REAL NOT NULL,
	decision_quality_score REAL NOT NULL,
	timing_score REAL NOT NULL,
	risk_management_score REAL NOT NULL,
	narrative TEXT NOT NULL DEFAULT '',
	suggestions TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL,
	FOREIGN KEY (trade_id) REFERENCES trades(id)
);

CREATE INDEX IF NOT EXISTS idx_reflections_trade ON reflections(trade_id);
CREATE UNIQUE INDEX IF NOT EXISTS idx_reflections_immediate
	ON reflections(trade_id) WHERE kind = 'immediate';

CREATE TABLE IF NOT EXISTS performance_windows (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	period_kind TEXT NOT NULL,
	period_start DATETIME NOT NULL,
	period_end DATETIME NOT NULL,
	total_trades INTEGER NOT NULL,
	winning_trades INTEGER NOT NULL,
	losing_trades INTEGER NOT NULL,
	win_rate REAL NOT NULL,
	total_pnl TEXT NOT NULL,
	total_pnl_percent REAL NOT NULL,
	max_drawdown REAL NOT NULL,
	sharpe_ratio REAL NOT NULL,
	created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_windows_period
	ON performance_windows(period_kind, period_start, period_end);

CREATE TABLE IF NOT EXISTS learning_insights (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	insight_type TEXT NOT NULL,
	title TEXT NOT NULL,
	description TEXT NOT NULL,
	confidence REAL NOT NULL,
	priority TEXT NOT NULL,
	status TEXT NOT NULL,
	created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS strategy_improvements (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	improvement_type TEXT NOT NULL,
	old_value TEXT NOT NULL,
	new_value TEXT NOT NULL,
	reason TEXT NOT NULL,
	expected_impact TEXT NOT NULL,
	success_metric REAL NOT NULL,
	status TEXT NOT NULL,
	created_at DATETIME NOT NULL
);
`
