package sqlite

// migrations upgrade the schema one version at a time. The database's
// PRAGMA user_version records how many have been applied; step i takes the
// schema from version i to i+1. Append new steps, never edit shipped ones.
var migrations = []string{
	// v1: signed-in sessions and their push tokens. Secrets live in the
	// keyring, so only the presence of a client key is recorded.
	`
CREATE TABLE IF NOT EXISTS sessions (
    user_id        TEXT PRIMARY KEY,
    tenant_id      TEXT,
    has_client_key BOOLEAN DEFAULT FALSE,
    created_at     DATETIME DEFAULT CURRENT_TIMESTAMP,
    last_active    DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS push_tokens (
    user_id     TEXT NOT NULL REFERENCES sessions(user_id) ON DELETE CASCADE,
    token       TEXT NOT NULL,
    provider    TEXT NOT NULL DEFAULT 'firebase-fcm',
    created_at  DATETIME DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (user_id, token)
);

CREATE INDEX IF NOT EXISTS idx_sessions_last_active ON sessions(last_active DESC);
`,
	// v2: per-user pagination limit for the inbox module.
	`
CREATE TABLE IF NOT EXISTS inbox_state (
    user_id          TEXT PRIMARY KEY,
    pagination_limit INTEGER NOT NULL DEFAULT 32
);
`,
	// v3: unix timestamp of the last completed inbox load.
	`
ALTER TABLE inbox_state ADD COLUMN last_sync INTEGER;
`,
	// v4: limits written before clamping was enforced are pulled back into
	// range so restored sessions never page with an invalid limit.
	`
UPDATE inbox_state SET pagination_limit = 1   WHERE pagination_limit < 1;
UPDATE inbox_state SET pagination_limit = 100 WHERE pagination_limit > 100;
`,
}
