package storage

const schema = `
-- The 'sources' table tracks where cards come from, either a local directory or a git repository.
CREATE TABLE IF NOT EXISTS sources (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    path TEXT NOT NULL UNIQUE,
    type TEXT NOT NULL DEFAULT 'local', -- local | git
    last_scanned DATETIME
);

-- The 'cards' table stores every study item and its scheduling state.
-- seq keeps the deck in insertion order.
CREATE TABLE IF NOT EXISTS cards (
    seq INTEGER PRIMARY KEY AUTOINCREMENT,
    id TEXT NOT NULL UNIQUE,
    front TEXT NOT NULL,
    back TEXT NOT NULL,
    category TEXT NOT NULL DEFAULT '',
    difficulty TEXT NOT NULL DEFAULT '',
    correct_count INTEGER NOT NULL DEFAULT 0 CHECK (correct_count >= 0),
    incorrect_count INTEGER NOT NULL DEFAULT 0 CHECK (incorrect_count >= 0),
    last_reviewed_at DATETIME,
    next_review_at DATETIME, -- NULL means due immediately
    created_by_student INTEGER NOT NULL DEFAULT 0,
    source_id INTEGER,

    FOREIGN KEY(source_id) REFERENCES sources(id)
);

-- The 'review_log' table is an append-only history of committed responses.
CREATE TABLE IF NOT EXISTS review_log (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    card_id TEXT NOT NULL,
    reviewed_at DATETIME NOT NULL,
    correct INTEGER NOT NULL,
    bucket TEXT NOT NULL,
    next_due DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_review_log_card ON review_log(card_id);
`
