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
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"github.com/obsync-sh/obsync/model"
	"github.com/obsync-sh/obsync/obslog"
)

var upgrader = websocket.Upgrader{
	// The token travels in the Sec-WebSocket-Protocol subprotocol, not a
	// cookie, so cross-origin handshakes are safe to accept here; the real
	// authorization check is RequireVaultOwner below.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleRealtime upgrades to a WebSocket and streams ops for one vault, per
// spec §4.5/§6: a {"type":"backlog",...} envelope for everything after the
// caller-supplied since, then a {"type":"event",...} envelope per live op,
// with a {"type":"keepalive",...} text frame on RealtimeKeepaliveSec. There
// is no deviceId here — Subscribe takes since directly from the caller.
func (s *Server) handleRealtime(w http.ResponseWriter, r *http.Request) {
	p, err := s.authenticate(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	vaultID, err := model.ParseVaultID(r.PathValue("vaultId"))
	if err != nil {
		writeError(w, r, model.NewError(model.CodeInvalidPush, "invalid vaultId"))
		return
	}
	if _, err := s.requireVault(r, p, vaultID, model.ScopeRead); err != nil {
		writeError(w, r, err)
		return
	}
	since, _ := strconv.ParseInt(r.URL.Query().Get("since"), 10, 64)

	log := obslog.WithComponent("httpapi.realtime")

	// Subscribe before reading the backlog so an op committed in between
	// arrives on the live stream (possibly a second time) instead of being lost.
	sub := s.bus.Subscribe(vaultID, newTraceID(), nil)
	defer sub.Close()

	rc := s.cfg.Get()
	backlog, err := s.store.ReadOpsSince(r.Context(), vaultID, since, rc.RealtimeBacklogCap)
	if err != nil {
		writeError(w, r, model.ErrInternal(err.Error()))
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	events := make([]realtimeBacklogEventDTO, 0, len(backlog))
	for _, op := range backlog {
		events = append(events, realtimeBacklogEventDTO{
			Seq: op.Seq, OpType: string(op.OpType), Payload: op.Payload, CreatedAt: op.CreatedAt.Format(time.RFC3339),
		})
	}
	if err := conn.WriteJSON(realtimeBacklogEnvelopeDTO{Type: "backlog", Events: events}); err != nil {
		return
	}

	keepalive := time.Duration(rc.RealtimeKeepaliveSec) * time.Second
	if keepalive <= 0 {
		keepalive = 20 * time.Second
	}
	ticker := time.NewTicker(keepalive)
	defer ticker.Stop()

	// Drain client-initiated close frames/pings on a background goroutine
	// so the connection's read side is always serviced, as gorilla's docs
	// for concurrent read/write require.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	for {
		if sub.Dropped() > 0 {
			writeRealtimeError(conn, model.NewError(model.CodeRealtimeOverflow,
				"subscriber fell behind and missed ops; reconnect and pull to resynchronize"))
			return
		}

		select {
		case op, ok := <-sub.Ops:
			if !ok {
				return
			}
			envelope := realtimeEventEnvelopeDTO{
				Type: "event", VaultID: vaultID.String(), Seq: op.Seq, OpType: string(op.OpType),
				Payload: op.Payload, CreatedAt: op.CreatedAt.Format(time.RFC3339),
			}
			if err := conn.WriteJSON(envelope); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteJSON(realtimeKeepaliveEnvelopeDTO{Type: "keepalive", Ts: time.Now().Unix()}); err != nil {
				return
			}
		case <-closed:
			return
		case <-r.Context().Done():
			return
		}
	}
}

// writeRealtimeError sends the {"type":"error",...} envelope immediately
// before the caller closes the socket, per spec §4.5's close framing.
func writeRealtimeError(conn *websocket.Conn, apiErr *model.Error) {
	_ = conn.WriteJSON(realtimeErrorEnvelopeDTO{
		Type: "error", Code: string(apiErr.Code), Message: apiErr.Message, Remediation: apiErr.Remediation,
	})
}
