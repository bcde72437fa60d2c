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
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/obsync-sh/obsync/access"
	"github.com/obsync-sh/obsync/blobapi"
	"github.com/obsync-sh/obsync/model"
)

func (s *Server) handleBlobInit(w http.ResponseWriter, r *http.Request) {
	p, err := s.authenticate(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := access.RequireScope(p, model.ScopeWrite); err != nil {
		writeError(w, r, err)
		return
	}

	var req blobInitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, model.NewError(model.CodeInvalidBlobInit, "malformed request body"))
		return
	}

	result, err := s.blobs.Init(r.Context(), blobapi.InitRequest{
		Hash: req.Hash, Size: req.Size, ChunkCount: req.ChunkCount, CipherAlg: req.CipherAlg,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, blobInitResponse{
		UploadID:       result.UploadID,
		Hash:           req.Hash,
		MissingIndices: result.MissingIndices,
	})
}

func (s *Server) handleBlobPutChunk(w http.ResponseWriter, r *http.Request) {
	p, err := s.authenticate(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := access.RequireScope(p, model.ScopeWrite); err != nil {
		writeError(w, r, err)
		return
	}

	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		writeError(w, r, model.NewError(model.CodeInvalidChunk, "invalid chunk index"))
		return
	}

	var req putChunkRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, model.NewError(model.CodeInvalidChunk, "malformed request body"))
		return
	}
	cipherText, err := base64.StdEncoding.DecodeString(req.CipherTextBase64)
	if err != nil {
		writeError(w, r, model.NewError(model.CodeInvalidChunk, "cipherTextBase64 is not valid base64"))
		return
	}

	blobHash := r.PathValue("hash")
	err = s.blobs.PutChunk(r.Context(), blobapi.PutChunkRequest{
		BlobHash:  blobHash,
		Index:     index,
		ChunkHash: req.ChunkHash,
		Data:      bytes.NewReader(cipherText),
		Size:      int64(len(cipherText)),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, putChunkResponseDTO{BlobHash: blobHash, Index: index, Persisted: true})
}

func (s *Server) handleBlobCommit(w http.ResponseWriter, r *http.Request) {
	p, err := s.authenticate(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := access.RequireScope(p, model.ScopeWrite); err != nil {
		writeError(w, r, err)
		return
	}

	var req blobCommitRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, model.NewError(model.CodeInvalidBlobCommit, "malformed request body"))
		return
	}

	blobHash := r.PathValue("hash")
	if err := s.blobs.Commit(r.Context(), blobapi.CommitRequest{
		BlobHash:           blobHash,
		PayloadHash:        req.Hash,
		ExpectedChunkCount: req.ExpectedChunkCount,
		ExpectedSize:       req.ExpectedSize,
	}); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, blobCommitResponseDTO{Hash: blobHash, Committed: true})
}

func (s *Server) handleBlobManifest(w http.ResponseWriter, r *http.Request) {
	p, err := s.authenticate(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := access.RequireScope(p, model.ScopeRead); err != nil {
		writeError(w, r, err)
		return
	}

	blob, chunks, err := s.blobs.GetManifest(r.Context(), r.PathValue("hash"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	chunkDTOs := make([]blobChunkDTO, 0, len(chunks))
	for _, c := range chunks {
		chunkDTOs = append(chunkDTOs, blobChunkDTO{Index: c.Index, ChunkHash: c.ChunkHash, Size: c.Size})
	}
	writeJSON(w, http.StatusOK, blobManifestDTO{
		Hash: blob.Hash, Size: blob.Size, ChunkCount: blob.ChunkCount, CipherAlg: blob.CipherAlg, Chunks: chunkDTOs,
	})
}

func (s *Server) handleBlobGetChunk(w http.ResponseWriter, r *http.Request) {
	p, err := s.authenticate(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := access.RequireScope(p, model.ScopeRead); err != nil {
		writeError(w, r, err)
		return
	}

	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		writeError(w, r, model.NewError(model.CodeInvalidChunk, "invalid chunk index"))
		return
	}
	blobHash := r.PathValue("hash")
	chunk, err := s.blobs.GetChunk(r.Context(), blobHash, index)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, getChunkResponseDTO{
		BlobHash:         blobHash,
		Index:            chunk.Index,
		ChunkHash:        chunk.ChunkHash,
		Size:             chunk.Size,
		CipherTextBase64: base64.StdEncoding.EncodeToString(chunk.Data),
	})
}
