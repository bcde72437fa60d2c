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
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/obsync-sh/obsync/access"
	"github.com/obsync-sh/obsync/ingest"
	"github.com/obsync-sh/obsync/model"
	"github.com/obsync-sh/obsync/pull"
)

func (s *Server) handleCreateVault(w http.ResponseWriter, r *http.Request) {
	p, err := s.authenticate(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := access.RequireScope(p, model.ScopeAdmin); err != nil {
		writeError(w, r, err)
		return
	}

	var req createVaultRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		writeError(w, r, model.NewError(model.CodeInvalidPush, "name is required"))
		return
	}

	vault, err := s.store.CreateVault(r.Context(), p.UserID, req.Name)
	if err != nil {
		writeError(w, r, model.ErrInternal(err.Error()))
		return
	}

	writeJSON(w, http.StatusCreated, vaultDTO{
		ID:        vault.ID.String(),
		Owner:     vault.Owner.String(),
		Name:      vault.Name,
		CreatedAt: vault.CreatedAt.Format(time.RFC3339),
	})
}

func (s *Server) handlePush(w http.ResponseWriter, r *http.Request) {
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
	if _, err := s.requireVault(r, p, vaultID, model.ScopeWrite); err != nil {
		writeError(w, r, err)
		return
	}

	var req pushRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, model.NewError(model.CodeInvalidPush, "malformed request body"))
		return
	}
	deviceID, err := model.ParseDeviceID(req.DeviceID)
	if err != nil {
		writeError(w, r, model.NewError(model.CodeInvalidPush, "invalid deviceId"))
		return
	}

	ops := make([]ingest.PushOp, 0, len(req.Ops))
	for _, o := range req.Ops {
		var fileID *model.FileID
		if o.FileID != nil {
			fid, err := model.ParseFileID(*o.FileID)
			if err != nil {
				writeError(w, r, model.NewError(model.CodeInvalidPush, "invalid fileId"))
				return
			}
			fileID = &fid
		}
		ops = append(ops, ingest.PushOp{
			FileID:         fileID,
			OpType:         model.OpType(o.OpType),
			Payload:        o.Payload,
			IdempotencyKey: o.IdempotencyKey,
		})
	}

	result, err := s.ingest.Push(r.Context(), ingest.PushRequest{VaultID: vaultID, DeviceID: deviceID, Ops: ops})
	if err != nil {
		writeError(w, r, err)
		return
	}

	missing := make([]missingChunkDTO, 0, len(result.MissingChunks))
	for _, m := range result.MissingChunks {
		missing = append(missing, missingChunkDTO{BlobHash: m.BlobHash, Index: m.Index})
	}
	writeJSON(w, http.StatusOK, pushResponseDTO{
		AcknowledgedSeq: result.AcknowledgedSeq,
		AppliedCount:    result.AppliedCount,
		MissingChunks:   missing,
		RebaseRequired:  result.RebaseRequired,
	})
}

func (s *Server) handlePull(w http.ResponseWriter, r *http.Request) {
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

	var deviceID *model.DeviceID
	if raw := r.URL.Query().Get("deviceId"); raw != "" {
		parsed, err := model.ParseDeviceID(raw)
		if err != nil {
			writeError(w, r, model.NewError(model.CodeInvalidPush, "invalid deviceId"))
			return
		}
		deviceID = &parsed
	}
	since, _ := strconv.ParseInt(r.URL.Query().Get("since"), 10, 64)
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	result, err := s.pull.Pull(r.Context(), pull.PullRequest{VaultID: vaultID, DeviceID: deviceID, Since: since, Limit: limit})
	if err != nil {
		writeError(w, r, err)
		return
	}

	ops := make([]json.RawMessage, 0, len(result.Ops))
	for _, op := range result.Ops {
		encoded, err := json.Marshal(op)
		if err != nil {
			writeError(w, r, model.ErrInternal(err.Error()))
			return
		}
		ops = append(ops, encoded)
	}
	writeJSON(w, http.StatusOK, pullResponseDTO{Ops: ops, Watermark: result.HighestSeq, HasMore: result.HasMore})
}
