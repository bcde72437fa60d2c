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
	"time"

	"github.com/obsync-sh/obsync/model"
)

// touchDevice self-registers deviceId on first contact (EXPANSION §4.8:
// a push or pull from an unknown device creates it with a placeholder
// display name) and always stamps last_seen_at.
func touchDevice(ctx context.Context, q querier, s *Store, deviceID model.DeviceID, owner model.VaultID) error {
	now := time.Now().UTC()
	query := s.q(`
		INSERT INTO devices (id, owner, display_name, last_seen_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET last_seen_at = EXCLUDED.last_seen_at
	`)
	_, err := q.ExecContext(ctx, query, deviceID.String(), owner.String(), "unnamed device", now)
	if err != nil {
		return fmt.Errorf("store: touch device: %w", err)
	}
	return nil
}

// TouchDevice registers/updates a device outside of a push batch, used by
// the pull service.
func (s *Store) TouchDevice(ctx context.Context, deviceID model.DeviceID, owner model.VaultID) error {
	return touchDevice(ctx, s.db, s, deviceID, owner)
}

// GetDevice looks up a device by id. ok is false if it has never
// registered via touchDevice.
func (s *Store) GetDevice(ctx context.Context, deviceID model.DeviceID) (model.Device, bool, error) {
	query := s.q(`SELECT id, owner, display_name, public_key, last_seen_at FROM devices WHERE id = ?`)
	row := s.db.QueryRowContext(ctx, query, deviceID.String())

	var id, owner, displayName string
	var publicKey sql.NullString
	var lastSeenAt sql.NullTime
	err := row.Scan(&id, &owner, &displayName, &publicKey, &lastSeenAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Device{}, false, nil
	}
	if err != nil {
		return model.Device{}, false, fmt.Errorf("store: get device: %w", err)
	}

	vid, err := model.ParseVaultID(owner)
	if err != nil {
		return model.Device{}, false, err
	}
	did, err := model.ParseDeviceID(id)
	if err != nil {
		return model.Device{}, false, err
	}
	dev := model.Device{
		ID:          did,
		Owner:       vid,
		DisplayName: displayName,
		PublicKey:   publicKey.String,
	}
	if lastSeenAt.Valid {
		t := lastSeenAt.Time
		dev.LastSeenAt = &t
	}
	return dev, true, nil
}
