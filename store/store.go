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

// Package store implements the Metadata Store (C1): the relational
// persistence for vaults, devices, the append-only operation log, sync
// cursors, blob manifests, the chunk index, and key envelopes. It exposes
// a narrow transactional interface: a push batch's writes happen inside a
// single *sql.Tx (see Tx), matching the teacher's single-persistence-engine
// boundary in storage/persistence.go; the other writes (vault creation, blob
// manifests and chunks, pull-side cursor and device updates) are single
// statements run directly on the pool.
package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"github.com/obsync-sh/obsync/obslog"
)

// Store is the Metadata Store. Any *sql.DB error it surfaces is fatal to
// the in-flight request per §4.1 — callers wrap it as model.CodeInternal.
type Store struct {
	db      *sql.DB
	dialect dialect
	log     zerolog.Logger

	recent *recentOpsCache
}

// Open connects to driverName/dsn, runs migrations, and returns a ready
// Store. driverName is one of "postgres" or "sqlite3".
func Open(ctx context.Context, driverName, dsn string) (*Store, error) {
	d, err := dialectFor(driverName)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", driverName, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: ping %s: %w", driverName, err)
	}
	s := &Store{
		db:      db,
		dialect: d,
		log:     obslog.WithComponent("store"),
		recent:  newRecentOpsCache(2048),
	}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, s.dialect.ddl())
	if err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	s.log.Info().Str("driver", s.dialect.name()).Msg("metadata store migrated")
	return nil
}

// q rebinds a '?'-placeholder query into this store's dialect.
func (s *Store) q(query string) string { return s.dialect.rebind(query) }
