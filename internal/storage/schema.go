// Copyright (c) 2025 Docenty, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

// schema is the full database schema, applied idempotently on open.
const schema = `
CREATE TABLE IF NOT EXISTS documents (
    id             TEXT PRIMARY KEY,
    title          TEXT NOT NULL,
    content        TEXT NOT NULL DEFAULT '',
    security_level TEXT NOT NULL DEFAULT 'NORMAL',
    created_at     TIMESTAMP NOT NULL,
    updated_at     TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_documents_updated ON documents(updated_at DESC);

CREATE TABLE IF NOT EXISTS knowledge (
    id             TEXT PRIMARY KEY,
    title          TEXT NOT NULL,
    content        TEXT NOT NULL DEFAULT '',
    category       TEXT NOT NULL,
    security_level TEXT NOT NULL DEFAULT 'NORMAL',
    tags           TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_knowledge_category ON knowledge(category);

CREATE TABLE IF NOT EXISTS validation_history (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    document_id TEXT NOT NULL,
    is_valid   INTEGER NOT NULL,
    score      REAL NOT NULL,
    issues     INTEGER NOT NULL,
    checked_at TIMESTAMP NOT NULL,
    FOREIGN KEY (document_id) REFERENCES documents(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_validation_document ON validation_history(document_id, checked_at DESC);

CREATE TABLE IF NOT EXISTS accounts (
    username        TEXT PRIMARY KEY,
    password_hash   TEXT NOT NULL,
    totp_secret     TEXT NOT NULL DEFAULT '',
    failed_attempts INTEGER NOT NULL DEFAULT 0,
    locked_until    TIMESTAMP,
    created_at      TIMESTAMP NOT NULL
);
`
