/*
Copyright (C) 2026  Obsync Contributors

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU General Public License as published by
	the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU General Public License for more details.

	You should have received a copy of the GNU General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

package store

import (
	"fmt"
	"strings"
)

// dialect hides the two small ways Postgres and SQLite disagree for our
// purposes: bind-parameter spelling and the handful of DDL type names. Both
// backends speak RETURNING and ON CONFLICT, so the query text itself is
// otherwise shared verbatim across rebind.
type dialect interface {
	name() string
	// rebind rewrites a query written with '?' placeholders into this
	// dialect's native spelling ('?' for sqlite, '$1'.. for postgres).
	rebind(query string) string
	ddl() string
}

func rebindQuestionMarks(query string, numbered bool) string {
	if !numbered {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

type postgresDialect struct{}

func (postgresDialect) name() string { return "postgres" }

func (postgresDialect) rebind(query string) string {
	return rebindQuestionMarks(query, true)
}

func (postgresDialect) ddl() string {
	return `
CREATE TABLE IF NOT EXISTS vaults (
	id         TEXT PRIMARY KEY,
	owner      TEXT NOT NULL,
	name       TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS devices (
	id           TEXT PRIMARY KEY,
	owner        TEXT NOT NULL,
	display_name TEXT NOT NULL,
	public_key   TEXT,
	last_seen_at TIMESTAMPTZ
);
CREATE TABLE IF NOT EXISTS op_log (
	seq              BIGSERIAL,
	vault_id         TEXT NOT NULL,
	file_id          TEXT,
	op_type          TEXT NOT NULL,
	payload          JSONB NOT NULL,
	idempotency_key  TEXT NOT NULL UNIQUE,
	author_device_id TEXT,
	created_at       TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (vault_id, seq)
);
CREATE INDEX IF NOT EXISTS op_log_vault_seq ON op_log (vault_id, seq);
CREATE TABLE IF NOT EXISTS sync_cursors (
	device_id         TEXT NOT NULL,
	vault_id          TEXT NOT NULL,
	last_applied_seq  BIGINT NOT NULL DEFAULT 0,
	PRIMARY KEY (device_id, vault_id)
);
CREATE TABLE IF NOT EXISTS blobs (
	hash         TEXT PRIMARY KEY,
	size         BIGINT NOT NULL,
	chunk_count  INT NOT NULL,
	cipher_alg   TEXT NOT NULL,
	committed_at TIMESTAMPTZ
);
CREATE TABLE IF NOT EXISTS blob_chunks (
	blob_hash   TEXT NOT NULL,
	idx         INT NOT NULL,
	chunk_hash  TEXT NOT NULL,
	size        BIGINT NOT NULL,
	storage_key TEXT NOT NULL,
	PRIMARY KEY (blob_hash, idx)
);
CREATE INDEX IF NOT EXISTS blob_chunks_hash ON blob_chunks (blob_hash);
CREATE TABLE IF NOT EXISTS key_envelopes (
	vault_id            TEXT NOT NULL,
	device_id           TEXT NOT NULL,
	version             INT NOT NULL,
	encrypted_vault_key BYTEA NOT NULL,
	PRIMARY KEY (vault_id, device_id, version)
);
`
}

type sqliteDialect struct{}

func (sqliteDialect) name() string { return "sqlite3" }

func (sqliteDialect) rebind(query string) string {
	return query // sqlite3 driver accepts '?' verbatim
}

func (sqliteDialect) ddl() string {
	return `
CREATE TABLE IF NOT EXISTS vaults (
	id         TEXT PRIMARY KEY,
	owner      TEXT NOT NULL,
	name       TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS devices (
	id           TEXT PRIMARY KEY,
	owner        TEXT NOT NULL,
	display_name TEXT NOT NULL,
	public_key   TEXT,
	last_seen_at TIMESTAMP
);
CREATE TABLE IF NOT EXISTS op_log (
	seq              INTEGER PRIMARY KEY AUTOINCREMENT,
	vault_id         TEXT NOT NULL,
	file_id          TEXT,
	op_type          TEXT NOT NULL,
	payload          TEXT NOT NULL,
	idempotency_key  TEXT NOT NULL UNIQUE,
	author_device_id TEXT,
	created_at       TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS op_log_vault_seq ON op_log (vault_id, seq);
CREATE TABLE IF NOT EXISTS sync_cursors (
	device_id         TEXT NOT NULL,
	vault_id          TEXT NOT NULL,
	last_applied_seq  INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (device_id, vault_id)
);
CREATE TABLE IF NOT EXISTS blobs (
	hash         TEXT PRIMARY KEY,
	size         INTEGER NOT NULL,
	chunk_count  INTEGER NOT NULL,
	cipher_alg   TEXT NOT NULL,
	committed_at TIMESTAMP
);
CREATE TABLE IF NOT EXISTS blob_chunks (
	blob_hash   TEXT NOT NULL,
	idx         INTEGER NOT NULL,
	chunk_hash  TEXT NOT NULL,
	size        INTEGER NOT NULL,
	storage_key TEXT NOT NULL,
	PRIMARY KEY (blob_hash, idx)
);
CREATE INDEX IF NOT EXISTS blob_chunks_hash ON blob_chunks (blob_hash);
CREATE TABLE IF NOT EXISTS key_envelopes (
	vault_id            TEXT NOT NULL,
	device_id           TEXT NOT NULL,
	version             INTEGER NOT NULL,
	encrypted_vault_key BLOB NOT NULL,
	PRIMARY KEY (vault_id, device_id, version)
);
`
}

func dialectFor(driverName string) (dialect, error) {
	switch driverName {
	case "postgres":
		return postgresDialect{}, nil
	case "sqlite3":
		return sqliteDialect{}, nil
	default:
		return nil, fmt.Errorf("store: unsupported driver %q", driverName)
	}
}
