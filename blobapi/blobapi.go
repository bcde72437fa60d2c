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

// Package blobapi implements the Blob Orchestrator (C6): the three-phase
// chunked upload protocol (init, put-chunk, commit) plus the matching read
// path, sitting between the HTTP surface and the Chunk Object Store.
package blobapi

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/docker/go-units"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/obsync-sh/obsync/blobstore"
	"github.com/obsync-sh/obsync/model"
	"github.com/obsync-sh/obsync/obslog"
	"github.com/obsync-sh/obsync/store"
)

// MaxChunkSize bounds a single chunk upload. Chosen to keep the S3 backend
// on the single-PUT path in blobstore.S3Backend.WriteChunk.
const MaxChunkSize = 8 * units.MiB

// Service is the Blob Orchestrator.
type Service struct {
	store   *store.Store
	backend blobstore.Backend

	// initGroup coalesces concurrent Init calls for the same hash —
	// two devices racing to upload the same attachment shouldn't both pay
	// for a manifest row write.
	initGroup singleflight.Group
}

func New(s *store.Store, backend blobstore.Backend) *Service {
	return &Service{store: s, backend: backend}
}

// InitRequest is phase A of the chunked upload protocol.
type InitRequest struct {
	Hash       string
	Size       int64
	ChunkCount int
	CipherAlg  string
}

// InitResult is phase A's response: a fresh opaque upload id plus the
// chunk indices the caller still needs to upload.
type InitResult struct {
	UploadID       string
	MissingIndices []int
}

// Init creates (or no-ops onto an existing) uncommitted manifest for an
// upload, and reports which chunk indices are still missing so a resuming
// client knows exactly what to send.
func (s *Service) Init(ctx context.Context, req InitRequest) (InitResult, error) {
	if req.Hash == "" || req.Size <= 0 || req.ChunkCount <= 0 {
		return InitResult{}, model.NewError(model.CodeInvalidBlobInit, "hash, size and chunkCount are required")
	}

	_, err, _ := s.initGroup.Do(req.Hash, func() (interface{}, error) {
		return nil, s.store.UpsertBlobManifest(ctx, req.Hash, req.Size, req.ChunkCount, req.CipherAlg)
	})
	if err != nil {
		return InitResult{}, model.ErrInternal(err.Error())
	}

	chunks, err := s.store.ListChunks(ctx, req.Hash)
	if err != nil {
		return InitResult{}, model.ErrInternal(err.Error())
	}
	present := make(map[int]bool, len(chunks))
	for _, c := range chunks {
		present[c.Index] = true
	}

	var missing []int
	for i := 0; i < req.ChunkCount; i++ {
		if !present[i] {
			missing = append(missing, i)
		}
	}

	return InitResult{UploadID: uuid.NewString(), MissingIndices: missing}, nil
}

// PutChunkRequest is phase B: one content-addressed slice of a blob.
type PutChunkRequest struct {
	BlobHash  string
	Index     int
	ChunkHash string // expected sha256, hex-encoded, claimed by the client
	Data      io.Reader
	Size      int64
}

// PutChunk verifies the uploaded bytes hash to ChunkHash before handing
// them to the backend — a mismatch is rejected outright rather than stored
// under a misleading name, matching the digest-then-store shape of the
// pack's blob validation code.
func (s *Service) PutChunk(ctx context.Context, req PutChunkRequest) error {
	if req.BlobHash == "" || req.ChunkHash == "" || req.Index < 0 {
		return model.NewError(model.CodeInvalidChunk, "blobHash, chunkHash and a non-negative index are required")
	}
	if req.Size > MaxChunkSize {
		return model.NewError(model.CodeInvalidChunk, fmt.Sprintf("chunk of %s exceeds the %s limit",
			units.BytesSize(float64(req.Size)), units.BytesSize(float64(MaxChunkSize))))
	}

	blob, ok, err := s.store.LookupBlob(ctx, req.BlobHash)
	if err != nil {
		return model.ErrInternal(err.Error())
	}
	if !ok {
		return model.NewError(model.CodeBlobNotFound, fmt.Sprintf("blob %s was not initialized", req.BlobHash))
	}
	digest := sha256.New()
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, io.TeeReader(req.Data, digest)); err != nil {
		return model.ErrInternal(fmt.Sprintf("read chunk body: %v", err))
	}
	computed := hex.EncodeToString(digest.Sum(nil))
	if computed != req.ChunkHash {
		return model.NewError(model.CodeChunkHashMismatch, fmt.Sprintf("chunk %d: expected hash %s, computed %s", req.Index, req.ChunkHash, computed)).
			WithRemediation("re-read the chunk from disk and retry the upload")
	}
	if blob.CommittedAt != nil {
		// Already committed: treat a retransmitted chunk as a no-op success
		// rather than an error, since the upload already succeeded.
		return nil
	}

	storageKey, err := s.backend.WriteChunk(ctx, req.BlobHash, req.Index, bytes.NewReader(buf.Bytes()))
	if err != nil {
		return model.ErrInternal(err.Error())
	}
	if err := s.store.UpsertChunk(ctx, req.BlobHash, req.Index, computed, int64(buf.Len()), storageKey); err != nil {
		return model.ErrInternal(err.Error())
	}
	return nil
}

// CommitRequest is phase C's payload: the caller's own declared hash (which
// must match the blobHash path segment it is committing) plus the chunk
// count/total size it expects the store to already hold.
type CommitRequest struct {
	BlobHash           string
	PayloadHash        string
	ExpectedChunkCount int
	ExpectedSize       int64
}

// blobIncompleteDetails is the structured diagnostic attached to a
// BLOB_INCOMPLETE error, so a client can tell how far short of the
// declared manifest the store's chunks currently fall.
type blobIncompleteDetails struct {
	CurrentCount       int   `json:"currentCount"`
	CurrentSize        int64 `json:"currentSize"`
	ExpectedChunkCount int   `json:"expectedChunkCount"`
	ExpectedSize       int64 `json:"expectedSize"`
}

// Commit is phase C: finalize hash once at least the declared chunk count
// and size have arrived. A client that uploaded more than it declared is
// not penalized — the check is a floor, not an exact match.
func (s *Service) Commit(ctx context.Context, req CommitRequest) error {
	if req.PayloadHash != req.BlobHash {
		return model.NewError(model.CodeInvalidBlobCommit, "payload hash does not match the committed blob")
	}
	if req.ExpectedChunkCount <= 0 || req.ExpectedSize <= 0 {
		return model.NewError(model.CodeInvalidBlobCommit, "expectedChunkCount and expectedSize are required")
	}

	blob, ok, err := s.store.LookupBlob(ctx, req.BlobHash)
	if err != nil {
		return model.ErrInternal(err.Error())
	}
	if !ok {
		return model.NewError(model.CodeBlobNotFound, fmt.Sprintf("blob %s was not initialized", req.BlobHash))
	}
	if blob.CommittedAt != nil {
		return nil
	}

	count, sumSize, err := s.store.CountChunks(ctx, req.BlobHash)
	if err != nil {
		return model.ErrInternal(err.Error())
	}
	if count < req.ExpectedChunkCount || sumSize < req.ExpectedSize {
		return model.NewError(model.CodeBlobIncomplete, fmt.Sprintf("have %d chunks (%s) of %d declared (%s) for %s",
			count, units.BytesSize(float64(sumSize)), req.ExpectedChunkCount, units.BytesSize(float64(req.ExpectedSize)), req.BlobHash)).
			WithRemediation("upload the remaining chunks and retry commit").
			WithDetails(blobIncompleteDetails{
				CurrentCount:       count,
				CurrentSize:        sumSize,
				ExpectedChunkCount: req.ExpectedChunkCount,
				ExpectedSize:       req.ExpectedSize,
			})
	}

	if err := s.store.MarkBlobCommitted(ctx, req.BlobHash); err != nil {
		return model.ErrInternal(err.Error())
	}
	obslog.WithComponent("blobapi").Info().Str("blobHash", req.BlobHash).Int("chunkCount", count).Msg("blob committed")
	return nil
}

// GetManifest is the read-path counterpart of Init. An uncommitted blob is
// not visible through this path — it reports BLOB_NOT_FOUND just as an
// entirely unknown hash would.
func (s *Service) GetManifest(ctx context.Context, blobHash string) (model.Blob, []model.BlobChunk, error) {
	blob, ok, err := s.store.LookupBlob(ctx, blobHash)
	if err != nil {
		return model.Blob{}, nil, model.ErrInternal(err.Error())
	}
	if !ok || blob.CommittedAt == nil {
		return model.Blob{}, nil, model.NewError(model.CodeBlobNotFound, fmt.Sprintf("blob %s not found", blobHash))
	}
	chunks, err := s.store.ListChunks(ctx, blobHash)
	if err != nil {
		return model.Blob{}, nil, model.ErrInternal(err.Error())
	}
	return blob, chunks, nil
}

// ChunkData is one chunk's bytes plus the metadata a caller needs to build
// the §6 chunk-read wire envelope.
type ChunkData struct {
	Index     int
	ChunkHash string
	Size      int64
	Data      []byte
}

// GetChunk reads one committed chunk's bytes and metadata.
func (s *Service) GetChunk(ctx context.Context, blobHash string, index int) (ChunkData, error) {
	chunk, ok, err := s.store.GetChunk(ctx, blobHash, index)
	if err != nil {
		return ChunkData{}, model.ErrInternal(err.Error())
	}
	if !ok {
		return ChunkData{}, model.NewError(model.CodeChunkNotFound, fmt.Sprintf("chunk %d of blob %s not found", index, blobHash))
	}
	blob, ok, err := s.store.LookupBlob(ctx, blobHash)
	if err != nil {
		return ChunkData{}, model.ErrInternal(err.Error())
	}
	if !ok || blob.CommittedAt == nil {
		return ChunkData{}, model.NewError(model.CodeBlobNotFound, fmt.Sprintf("blob %s not found", blobHash))
	}
	rc, err := s.backend.ReadChunk(ctx, chunk.StorageKey)
	if err != nil {
		return ChunkData{}, model.ErrInternal(err.Error())
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return ChunkData{}, model.ErrInternal(fmt.Sprintf("read chunk body: %v", err))
	}
	return ChunkData{Index: chunk.Index, ChunkHash: chunk.ChunkHash, Size: chunk.Size, Data: data}, nil
}
