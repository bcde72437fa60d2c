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

package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/obsync-sh/obsync/blobapi"
	"github.com/obsync-sh/obsync/blobstore"
	"github.com/obsync-sh/obsync/config"
	"github.com/obsync-sh/obsync/ingest"
	"github.com/obsync-sh/obsync/model"
	"github.com/obsync-sh/obsync/pull"
	"github.com/obsync-sh/obsync/realtime"
	"github.com/obsync-sh/obsync/store"
)

// fixedVerifier hands back whatever Principal it was constructed with,
// regardless of the token presented, which is all a handler test needs.
type fixedVerifier struct {
	principal model.Principal
	reject    bool
}

func (v fixedVerifier) Verify(ctx context.Context, token string) (model.Principal, error) {
	if v.reject {
		return model.Principal{}, model.ErrUnauthorized("rejected")
	}
	return v.principal, nil
}

func newTestServer(t *testing.T, owner model.VaultID, scopes ...model.Scope) (*Server, model.VaultID) {
	t.Helper()
	s, err := store.Open(context.Background(), "sqlite3", "file::memory:?cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	bus := realtime.NewBus(16)
	ing := ingest.New(s, bus)
	cfgStore := config.NewStore(config.Load().Reloadable)
	pl := pull.New(s, cfgStore)
	backend := blobstore.NewFSBackend(t.TempDir())
	blobs := blobapi.New(s, backend)

	if len(scopes) == 0 {
		scopes = []model.Scope{model.ScopeAdmin}
	}
	verifier := fixedVerifier{principal: model.Principal{UserID: owner, Scopes: scopes, AuthType: "test"}}

	srv := New(":0", s, ing, pl, bus, blobs, verifier, cfgStore)

	vault, err := s.CreateVault(context.Background(), owner, "test vault")
	require.NoError(t, err)
	return srv, vault.ID
}

func doRequest(srv *Server, method, target string, body interface{}) *httptest.ResponseRecorder {
	var r *http.Request
	if body != nil {
		b, _ := json.Marshal(body)
		r = httptest.NewRequest(method, target, bytes.NewReader(b))
	} else {
		r = httptest.NewRequest(method, target, nil)
	}
	r.Header.Set("Authorization", "Bearer anything")
	w := httptest.NewRecorder()
	srv.routes().ServeHTTP(w, r)
	return w
}

func TestHandleCreateVaultRequiresAdminScope(t *testing.T) {
	owner := model.NewVaultID()
	srv, _ := newTestServer(t, owner, model.ScopeRead)

	w := doRequest(srv, http.MethodPost, "/v1/vaults", createVaultRequest{Name: "second vault"})
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestHandleCreateVaultSucceeds(t *testing.T) {
	owner := model.NewVaultID()
	srv, _ := newTestServer(t, owner, model.ScopeAdmin)

	w := doRequest(srv, http.MethodPost, "/v1/vaults", createVaultRequest{Name: "second vault"})
	require.Equal(t, http.StatusCreated, w.Code)

	var got vaultDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Equal(t, "second vault", got.Name)
	require.NotEmpty(t, got.ID)
}

func TestHandlePushAndPullRoundTrip(t *testing.T) {
	owner := model.NewVaultID()
	srv, vaultID := newTestServer(t, owner, model.ScopeAdmin)

	deviceID := model.NewDeviceID()
	pushBody := pushRequestDTO{
		DeviceID: deviceID.String(),
		Ops: []pushOpDTO{
			{OpType: string(model.OpFileCreate), Payload: json.RawMessage(`{"name":"note.md"}`), IdempotencyKey: "key-1"},
		},
	}
	w := doRequest(srv, http.MethodPost, "/v1/vaults/"+vaultID.String()+"/push", pushBody)
	require.Equal(t, http.StatusOK, w.Code)

	var pushResp pushResponseDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &pushResp))
	require.Equal(t, 1, pushResp.AppliedCount)
	require.Empty(t, pushResp.MissingChunks)
	require.Equal(t, int64(1), pushResp.AcknowledgedSeq)

	w = doRequest(srv, http.MethodGet, "/v1/vaults/"+vaultID.String()+"/pull?deviceId="+deviceID.String()+"&since=0&limit=50", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var pullResp pullResponseDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &pullResp))
	require.Len(t, pullResp.Ops, 1)
	require.False(t, pullResp.HasMore)

	// Omitting deviceId on pull must still succeed (spec marks it optional).
	w = doRequest(srv, http.MethodGet, "/v1/vaults/"+vaultID.String()+"/pull?since=0&limit=50", nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestHandlePushRejectsUnknownVault(t *testing.T) {
	owner := model.NewVaultID()
	srv, _ := newTestServer(t, owner, model.ScopeAdmin)

	otherVault := model.NewVaultID()
	body := pushRequestDTO{DeviceID: model.NewDeviceID().String(), Ops: []pushOpDTO{
		{OpType: string(model.OpFileCreate), Payload: json.RawMessage(`{}`), IdempotencyKey: "k"},
	}}
	w := doRequest(srv, http.MethodPost, "/v1/vaults/"+otherVault.String()+"/push", body)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandlePushRequiresAuthentication(t *testing.T) {
	owner := model.NewVaultID()
	srv, vaultID := newTestServer(t, owner, model.ScopeAdmin)

	r := httptest.NewRequest(http.MethodPost, "/v1/vaults/"+vaultID.String()+"/push", bytes.NewReader([]byte(`{}`)))
	w := httptest.NewRecorder()
	srv.routes().ServeHTTP(w, r)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestWriteErrorRendersModelErrorEnvelope(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/v1/vaults/x/pull", nil)
	writeError(w, r, model.ErrForbidden("nope"))

	require.Equal(t, http.StatusForbidden, w.Code)
	var body model.Error
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.NotEmpty(t, body.TraceID)
	require.Equal(t, "nope", body.Message)
}
