package database

// All migrations use IF NOT EXISTS to be idempotent.

const migrationSignals = `
CREATE TABLE IF NOT EXISTS signals (
    id TEXT PRIMARY KEY,
    request_id TEXT,
    action TEXT,
    symbol TEXT,
    size TEXT,
    take_profit TEXT,
    stop_loss TEXT,
    stage TEXT NOT NULL DEFAULT 'validating',
    status TEXT NOT NULL DEFAULT 'received',
    error_category TEXT,
    error_message TEXT,
    broker_status INTEGER,
    broker_body TEXT,
    received_at DATETIME NOT NULL,
    completed_at DATETIME,
    duration_ms INTEGER
);
`

const migrationSignalIndexes = `
CREATE INDEX IF NOT EXISTS idx_signals_received_at ON signals(received_at);
CREATE INDEX IF NOT EXISTS idx_signals_status ON signals(status);
`
