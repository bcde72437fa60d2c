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

// Package access implements the Access Gate (C7): the one place scope and
// vault-ownership checks happen, so every other component can assume a
// request already cleared them. It never authenticates — the Principal it's
// handed has already been verified upstream.
package access

import (
	"context"

	"github.com/obsync-sh/obsync/model"
)

// VaultLookup is the subset of *store.Store the gate needs, kept narrow so
// it can be faked in tests without a database.
type VaultLookup interface {
	GetVault(ctx context.Context, vaultID model.VaultID) (model.Vault, bool, error)
}

// RequireScope returns model.ErrForbidden unless p carries requested (or
// admin, which subsumes it).
func RequireScope(p model.Principal, requested model.Scope) error {
	if !p.HasScope(requested) {
		return model.ErrForbidden("requires " + string(requested) + " scope")
	}
	return nil
}

// RequireVaultOwner checks that vaultID exists and belongs to p, after
// first checking requested scope. A vault owned by someone else reports
// the same CodeVaultNotFound a nonexistent vault would, so the gate never
// leaks which vault ids are in use.
func RequireVaultOwner(ctx context.Context, lookup VaultLookup, p model.Principal, vaultID model.VaultID, requested model.Scope) (model.Vault, error) {
	if err := RequireScope(p, requested); err != nil {
		return model.Vault{}, err
	}
	vault, ok, err := lookup.GetVault(ctx, vaultID)
	if err != nil {
		return model.Vault{}, model.ErrInternal(err.Error())
	}
	if !ok || vault.Owner != p.UserID {
		return model.Vault{}, model.ErrVaultNotFound(vaultID)
	}
	return vault, nil
}
