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
	"context"
	"net/http"
	"strings"

	"github.com/obsync-sh/obsync/model"
)

// Verifier turns a bearer token into an already-authenticated Principal.
// The core never verifies credentials itself — this is the seam an
// external identity provider plugs into.
type Verifier interface {
	Verify(ctx context.Context, token string) (model.Principal, error)
}

// extractToken pulls a bearer token from, in order: the Authorization
// header, the WebSocket subprotocol (browsers can't set arbitrary headers
// on a WS handshake), and finally a legacy "token" query parameter kept
// for older clients. Whichever source is used, obslog.RedactQuery must be
// applied before any URL containing it reaches a log line.
func extractToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		if tok, ok := strings.CutPrefix(auth, "Bearer "); ok {
			return tok
		}
	}
	if proto := r.Header.Get("Sec-WebSocket-Protocol"); proto != "" {
		for _, p := range strings.Split(proto, ",") {
			p = strings.TrimSpace(p)
			if tok, ok := strings.CutPrefix(p, "obsync.token."); ok {
				return tok
			}
		}
	}
	return r.URL.Query().Get("token")
}

func (s *Server) authenticate(r *http.Request) (model.Principal, error) {
	token := extractToken(r)
	if token == "" {
		return model.Principal{}, model.ErrUnauthorized("missing credential")
	}
	p, err := s.verifier.Verify(r.Context(), token)
	if err != nil {
		return model.Principal{}, model.ErrUnauthorized("credential rejected")
	}
	return p, nil
}
