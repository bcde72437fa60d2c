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

// CreateVault inserts a new vault row, per EXPANSION §4.9's admin-scope
// POST /v1/vaults endpoint.
func (s *Store) CreateVault(ctx context.Context, owner model.VaultID, name string) (model.Vault, error) {
	v := model.Vault{
		ID:        model.NewVaultID(),
		Owner:     owner,
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
	query := s.q(`INSERT INTO vaults (id, owner, name, created_at) VALUES (?, ?, ?, ?)`)
	if _, err := s.db.ExecContext(ctx, query, v.ID.String(), v.Owner.String(), v.Name, v.CreatedAt); err != nil {
		return model.Vault{}, fmt.Errorf("store: create vault: %w", err)
	}
	return v, nil
}

// GetVault looks up a vault by id. ok is false if it doesn't exist, which
// the access gate (C7) treats as CodeVaultNotFound rather than leaking
// whether it belongs to someone else.
func (s *Store) GetVault(ctx context.Context, vaultID model.VaultID) (model.Vault, bool, error) {
	query := s.q(`SELECT id, owner, name, created_at FROM vaults WHERE id = ?`)
	row := s.db.QueryRowContext(ctx, query, vaultID.String())

	var id, owner, name string
	var createdAt time.Time
	err := row.Scan(&id, &owner, &name, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Vault{}, false, nil
	}
	if err != nil {
		return model.Vault{}, false, fmt.Errorf("store: get vault: %w", err)
	}

	vid, err := model.ParseVaultID(id)
	if err != nil {
		return model.Vault{}, false, err
	}
	ownerID, err := model.ParseVaultID(owner)
	if err != nil {
		return model.Vault{}, false, err
	}
	return model.Vault{ID: vid, Owner: ownerID, Name: name, CreatedAt: createdAt}, true, nil
}
