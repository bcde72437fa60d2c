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

// Package httpapi wires the core services (ingest, pull, realtime, blobapi)
// onto the /v1 HTTP surface of spec §6. Routing and server bootstrap follow
// the teacher's scm/network.go HTTPServe shape: a plain *http.Server with
// generous timeouts, no router framework.
package httpapi

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/obsync-sh/obsync/access"
	"github.com/obsync-sh/obsync/blobapi"
	"github.com/obsync-sh/obsync/config"
	"github.com/obsync-sh/obsync/ingest"
	"github.com/obsync-sh/obsync/model"
	"github.com/obsync-sh/obsync/obslog"
	"github.com/obsync-sh/obsync/pull"
	"github.com/obsync-sh/obsync/realtime"
	"github.com/obsync-sh/obsync/store"
)

// Server holds every collaborator a handler might need.
type Server struct {
	store    *store.Store
	ingest   *ingest.Service
	pull     *pull.Service
	bus      *realtime.Bus
	blobs    *blobapi.Service
	verifier Verifier
	cfg      *config.Store

	httpServer *http.Server
}

// New builds the Server and its underlying *http.Server, matching the
// teacher's 300-second read/write timeouts.
func New(addr string, s *store.Store, ing *ingest.Service, pl *pull.Service, bus *realtime.Bus, blobs *blobapi.Service, verifier Verifier, cfg *config.Store) *Server {
	srv := &Server{store: s, ingest: ing, pull: pl, bus: bus, blobs: blobs, verifier: verifier, cfg: cfg}
	srv.httpServer = &http.Server{
		Addr:         addr,
		Handler:      srv.routes(),
		ReadTimeout:  300 * time.Second,
		WriteTimeout: 300 * time.Second,
	}
	return srv
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/vaults", s.handleCreateVault)
	mux.HandleFunc("POST /v1/vaults/{vaultId}/push", s.handlePush)
	mux.HandleFunc("GET /v1/vaults/{vaultId}/pull", s.handlePull)
	mux.HandleFunc("GET /v1/vaults/{vaultId}/realtime", s.handleRealtime)
	mux.HandleFunc("POST /v1/blobs/init", s.handleBlobInit)
	mux.HandleFunc("PUT /v1/blobs/{hash}/chunks/{index}", s.handleBlobPutChunk)
	mux.HandleFunc("POST /v1/blobs/{hash}/commit", s.handleBlobCommit)
	mux.HandleFunc("GET /v1/blobs/{hash}", s.handleBlobManifest)
	mux.HandleFunc("GET /v1/blobs/{hash}/chunks/{index}", s.handleBlobGetChunk)
	return mux
}

// ListenAndServe blocks serving HTTP until the process is asked to stop.
func (s *Server) ListenAndServe() error {
	obslog.WithComponent("httpapi").Info().Str("addr", s.httpServer.Addr).Msg("listening")
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests, honoring ctx's deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// writeError renders a model.Error as the §7 wire envelope, stamping a
// fresh trace id so an operator can correlate the response with server logs.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *model.Error
	if !errors.As(err, &apiErr) {
		apiErr = model.ErrInternal(err.Error())
	}
	apiErr = apiErr.WithTraceID(newTraceID())

	log := obslog.WithTraceID(obslog.WithComponent("httpapi"), apiErr.TraceID)
	log.Warn().Str("path", r.URL.Path).Str("code", string(apiErr.Code)).Msg(apiErr.Message)

	writeJSON(w, apiErr.HTTPStatus(), apiErr)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func newTraceID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "unknown"
	}
	return hex.EncodeToString(b[:])
}

// requireVault is the thin HTTP-layer wrapper around access.RequireVaultOwner.
func (s *Server) requireVault(r *http.Request, p model.Principal, vaultID model.VaultID, scope model.Scope) (model.Vault, error) {
	return access.RequireVaultOwner(r.Context(), s.store, p, vaultID, scope)
}
