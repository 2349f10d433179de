package store

const schemaSQL = `
CREATE TABLE IF NOT EXISTS categories (
    category_id          TEXT PRIMARY KEY,
    name                 TEXT NOT NULL,
    description          TEXT
);

CREATE TABLE IF NOT EXISTS transactions (
    tx_id                TEXT PRIMARY KEY,
    external_id          TEXT,
    amount               TEXT NOT NULL,
    currency             TEXT,
    tx_type              TEXT NOT NULL CHECK (tx_type IN ('income', 'expense')),
    category_id          TEXT,
    category             TEXT,
    description          TEXT,
    occurred_at          TEXT NOT NULL,
    source               TEXT NOT NULL,
    file_path            TEXT,
    imported_at          TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS file_tracker (
    file_path            TEXT PRIMARY KEY,
    mtime_ns             INTEGER NOT NULL,
    size_bytes           INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS forecast_runs (
    run_id               TEXT PRIMARY KEY,
    created_at           TEXT NOT NULL,
    horizon              INTEGER NOT NULL,
    history_days         INTEGER NOT NULL,
    category             TEXT,
    neural_used          INTEGER NOT NULL DEFAULT 0,
    neural_error         TEXT
);

CREATE TABLE IF NOT EXISTS forecast_points (
    run_id               TEXT NOT NULL REFERENCES forecast_runs(run_id) ON DELETE CASCADE,
    day                  TEXT NOT NULL,
    predicted_expense    REAL NOT NULL,
    PRIMARY KEY (run_id, day)
);

CREATE INDEX IF NOT EXISTS idx_transactions_occurred ON transactions(occurred_at);
CREATE INDEX IF NOT EXISTS idx_transactions_file ON transactions(file_path);
CREATE INDEX IF NOT EXISTS idx_forecast_runs_created ON forecast_runs(created_at);
`
