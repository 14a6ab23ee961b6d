package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS dim_bank (
	code TEXT PRIMARY KEY,
	name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS dim_product (
	code TEXT PRIMARY KEY,
	name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS dim_date (
	date_key   INTEGER PRIMARY KEY,
	date       TEXT NOT NULL,
	day        INTEGER NOT NULL,
	month      INTEGER NOT NULL,
	month_name TEXT NOT NULL,
	quarter    INTEGER NOT NULL,
	year       INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS runs (
	id                TEXT PRIMARY KEY,
	started_at        DATETIME NOT NULL,
	finished_at       DATETIME,
	days_searched     INTEGER NOT NULL,
	emails_found      INTEGER NOT NULL DEFAULT 0,
	pdfs_downloaded   INTEGER NOT NULL DEFAULT 0,
	records_extracted INTEGER NOT NULL DEFAULT 0,
	records_rejected  INTEGER NOT NULL DEFAULT 0,
	parse_failures    INTEGER NOT NULL DEFAULT 0,
	fetch_failures    INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS downloads (
	id            TEXT PRIMARY KEY,
	run_id        TEXT NOT NULL REFERENCES runs(id),
	file_name     TEXT NOT NULL,
	path          TEXT NOT NULL,
	bank          TEXT NOT NULL,
	subject       TEXT NOT NULL DEFAULT '',
	sender        TEXT NOT NULL DEFAULT '',
	email_date    TEXT NOT NULL DEFAULT '',
	size          INTEGER NOT NULL,
	downloaded_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS statements (
	id             TEXT PRIMARY KEY,
	run_id         TEXT NOT NULL REFERENCES runs(id),
	statement_date TEXT NOT NULL,
	date_key       INTEGER NOT NULL REFERENCES dim_date(date_key),
	month          TEXT NOT NULL,
	year           INTEGER NOT NULL,
	bank           TEXT NOT NULL REFERENCES dim_bank(code),
	product        TEXT NOT NULL REFERENCES dim_product(code),
	amount         TEXT NOT NULL,
	amount_minor   INTEGER NOT NULL,
	due_date       TEXT NOT NULL DEFAULT '',
	file_name      TEXT NOT NULL,
	processed_time DATETIME NOT NULL
);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sql: `
INSERT OR IGNORE INTO dim_bank (code, name) VALUES
	('HDFC', 'HDFC Bank'),
	('IDFC', 'IDFC FIRST Bank'),
	('AXIS', 'Axis Bank'),
	('SBI', 'SBI Card'),
	('ICICI', 'ICICI Bank'),
	('KOTAK', 'Kotak Mahindra Bank'),
	('CITI', 'Citibank'),
	('AMEX', 'American Express'),
	('YES', 'YES Bank'),
	('INDUSIND', 'IndusInd Bank'),
	('UNKNOWN', 'Unknown');

INSERT OR IGNORE INTO dim_product (code, name) VALUES
	('CREDIT_CARD', 'Credit Card');

CREATE INDEX IF NOT EXISTS idx_statements_bank ON statements(bank);
CREATE INDEX IF NOT EXISTS idx_statements_date_key ON statements(date_key);
CREATE INDEX IF NOT EXISTS idx_downloads_run_id ON downloads(run_id);

INSERT INTO schema_version (version) VALUES (2);
`,
	},
}
