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
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/obsync-sh/obsync/model"
)

// upsertCursor implements both cursor advance policies from spec §4.1:
// CursorSet always overwrites, CursorMax only moves the watermark forward.
func upsertCursor(ctx context.Context, q querier, s *Store, deviceID model.DeviceID, vaultID model.VaultID, seq int64, policy model.CursorPolicy) error {
	var query string
	switch policy {
	case model.CursorSet:
		query = s.q(`
			INSERT INTO sync_cursors (device_id, vault_id, last_applied_seq)
			VALUES (?, ?, ?)
			ON CONFLICT (device_id, vault_id) DO UPDATE SET last_applied_seq = EXCLUDED.last_applied_seq
		`)
	case model.CursorMax:
		query = s.q(`
			INSERT INTO sync_cursors (device_id, vault_id, last_applied_seq)
			VALUES (?, ?, ?)
			ON CONFLICT (device_id, vault_id) DO UPDATE
				SET last_applied_seq = CASE
					WHEN EXCLUDED.last_applied_seq > sync_cursors.last_applied_seq THEN EXCLUDED.last_applied_seq
					ELSE sync_cursors.last_applied_seq
				END
		`)
	default:
		return fmt.Errorf("store: unknown cursor policy %v", policy)
	}
	if _, err := q.ExecContext(ctx, query, deviceID.String(), vaultID.String(), seq); err != nil {
		return fmt.Errorf("store: upsert cursor: %w", err)
	}
	return nil
}

// UpsertCursor advances a cursor outside of any push batch, used by the
// pull service when a device polls without submitting new ops.
func (s *Store) UpsertCursor(ctx context.Context, deviceID model.DeviceID, vaultID model.VaultID, seq int64, policy model.CursorPolicy) error {
	return upsertCursor(ctx, s.db, s, deviceID, vaultID, seq, policy)
}

// GetCursor returns a device's last applied seq for vaultID, or 0 if none
// has ever been recorded.
func (s *Store) GetCursor(ctx context.Context, deviceID model.DeviceID, vaultID model.VaultID) (int64, error) {
	query := s.q(`SELECT last_applied_seq FROM sync_cursors WHERE device_id = ? AND vault_id = ?`)
	var seq int64
	err := s.db.QueryRowContext(ctx, query, deviceID.String(), vaultID.String()).Scan(&seq)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("store: get cursor: %w", err)
	}
	return seq, nil
}
