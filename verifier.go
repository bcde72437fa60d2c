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

package main

import (
	"context"
	"os"

	"github.com/obsync-sh/obsync/model"
)

// passthroughVerifier is the default, single-tenant credential check: one
// shared secret, read once from OBSYNC_ADMIN_TOKEN, grants its bearer
// admin scope over a single fixed owner identity. A multi-tenant or
// externally-authenticated deployment replaces this with its own
// httpapi.Verifier; the core never assumes a particular identity provider.
type passthroughVerifier struct{}

func (passthroughVerifier) Verify(ctx context.Context, token string) (model.Principal, error) {
	want := os.Getenv("OBSYNC_ADMIN_TOKEN")
	if want == "" || token != want {
		return model.Principal{}, model.ErrUnauthorized("unrecognized token")
	}
	return model.Principal{
		UserID:   singleTenantOwner(),
		Scopes:   []model.Scope{model.ScopeAdmin},
		AuthType: "shared-secret",
	}, nil
}

// singleTenantOwner is the fixed owner identity this deployment mode
// operates under. It is derived deterministically from OBSYNC_OWNER_ID so
// restarts don't mint a new vault owner every time.
func singleTenantOwner() model.VaultID {
	if raw := os.Getenv("OBSYNC_OWNER_ID"); raw != "" {
		if id, err := model.ParseVaultID(raw); err == nil {
			return id
		}
	}
	return model.VaultID{}
}
