package store

// schema contains the SQL statements to create the list store schema.
const schema = `
-- Listed entities, one row per (kind, canonical id)
CREATE TABLE IF NOT EXISTS entities (
    kind       TEXT NOT NULL,
    id         TEXT NOT NULL,
    raw        TEXT NOT NULL,
    deprecated INTEGER NOT NULL DEFAULT 0,
    source     TEXT NOT NULL,
    PRIMARY KEY (kind, id),
    FOREIGN KEY (source) REFERENCES sources(name)
);

CREATE INDEX IF NOT EXISTS idx_entities_source ON entities(source);
CREATE INDEX IF NOT EXISTS idx_entities_deprecated ON entities(deprecated);

-- Imported list files
CREATE TABLE IF NOT EXISTS sources (
    name        TEXT PRIMARY KEY,
    entry_count INTEGER NOT NULL DEFAULT 0,
    imported_at TEXT NOT NULL
);

-- Metadata table for store info
CREATE TABLE IF NOT EXISTS metadata (
    key   TEXT PRIMARY KEY,
    value TEXT
);
`
