package journal

const Schema = `
CREATE TABLE IF NOT EXISTS rollovers (
	event_id TEXT PRIMARY KEY,
	account_id TEXT NOT NULL,
	trading_date TEXT NOT NULL,
	folded_high REAL NOT NULL,
	eod_high_anchor REAL NOT NULL,
	time DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_rollovers_account
	ON rollovers(account_id, trading_date);

CREATE TABLE IF NOT EXISTS breaches (
	event_id TEXT PRIMARY KEY,
	account_id TEXT NOT NULL,
	floor REAL NOT NULL,
	equity REAL NOT NULL,
	used REAL NOT NULL,
	remaining REAL NOT NULL,
	reason TEXT NOT NULL,
	time DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_breaches_account
	ON breaches(account_id);
`
