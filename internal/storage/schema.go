package storage

const schema = `
-- Pages: one row per crawled document. url is the dedup key.
CREATE TABLE IF NOT EXISTS pages (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    url TEXT UNIQUE NOT NULL,
    title TEXT NOT NULL,
    last_modified TEXT NOT NULL,
    size INTEGER NOT NULL DEFAULT 0,
    keywords TEXT NOT NULL DEFAULT '[]',   -- JSON [{"stem":..,"frequency":..}]
    parent_id INTEGER,
    max_tf_title INTEGER NOT NULL DEFAULT 0,
    max_tf_body INTEGER NOT NULL DEFAULT 0,
    FOREIGN KEY (parent_id) REFERENCES pages(id)
);
CREATE INDEX IF NOT EXISTS idx_pages_url ON pages(url);
CREATE INDEX IF NOT EXISTS idx_pages_parent ON pages(parent_id);

-- Positional postings for both index spaces, keyed by field.
CREATE TABLE IF NOT EXISTS postings (
    field TEXT NOT NULL,                   -- 'title' | 'body'
    stem TEXT NOT NULL,
    page_id INTEGER NOT NULL,
    positions TEXT NOT NULL,               -- JSON array of 0-based offsets
    frequency INTEGER NOT NULL,
    PRIMARY KEY (field, stem, page_id),
    FOREIGN KEY (page_id) REFERENCES pages(id)
);
CREATE INDEX IF NOT EXISTS idx_postings_page ON postings(field, page_id);

-- Per-stem document frequencies, one counter per field.
CREATE TABLE IF NOT EXISTS document_stats (
    stem TEXT PRIMARY KEY,
    df_title INTEGER NOT NULL DEFAULT 0,
    df_body INTEGER NOT NULL DEFAULT 0
);

-- Link discovery records: which page discovered which child URL.
CREATE TABLE IF NOT EXISTS links (
    parent_id INTEGER NOT NULL,
    child_url TEXT NOT NULL,
    PRIMARY KEY (parent_id, child_url),
    FOREIGN KEY (parent_id) REFERENCES pages(id)
);
`
