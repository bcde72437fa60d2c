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

package blobapi

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/obsync-sh/obsync/blobstore"
	"github.com/obsync-sh/obsync/model"
	"github.com/obsync-sh/obsync/store"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	s, err := store.Open(context.Background(), "sqlite3", "file::memory:?cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	backend := blobstore.NewFSBackend(t.TempDir())
	return New(s, backend)
}

func hashOf(data string) string {
	sum := sha256.Sum256([]byte(data))
	return hex.EncodeToString(sum[:])
}

func TestFullUploadLifecycle(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	chunkData := "hello obsync"
	chunkHash := hashOf(chunkData)

	initResult, err := svc.Init(ctx, InitRequest{Hash: "blob-1", Size: int64(len(chunkData)), ChunkCount: 1, CipherAlg: "aes-256-gcm"})
	require.NoError(t, err)
	require.NotEmpty(t, initResult.UploadID)
	require.Equal(t, []int{0}, initResult.MissingIndices)

	err = svc.PutChunk(ctx, PutChunkRequest{BlobHash: "blob-1", Index: 0, ChunkHash: chunkHash, Data: strings.NewReader(chunkData), Size: int64(len(chunkData))})
	require.NoError(t, err)

	// Re-init after the chunk landed must report nothing missing anymore.
	again, err := svc.Init(ctx, InitRequest{Hash: "blob-1", Size: int64(len(chunkData)), ChunkCount: 1, CipherAlg: "aes-256-gcm"})
	require.NoError(t, err)
	require.Empty(t, again.MissingIndices)

	require.NoError(t, svc.Commit(ctx, CommitRequest{
		BlobHash: "blob-1", PayloadHash: "blob-1",
		ExpectedChunkCount: 1, ExpectedSize: int64(len(chunkData)),
	}))

	manifest, chunks, err := svc.GetManifest(ctx, "blob-1")
	require.NoError(t, err)
	require.NotNil(t, manifest.CommittedAt)
	require.Len(t, chunks, 1)

	chunk, err := svc.GetChunk(ctx, "blob-1", 0)
	require.NoError(t, err)
	require.Equal(t, chunkData, string(chunk.Data))
	require.Equal(t, chunkHash, chunk.ChunkHash)
}

func TestCommitFailsWhenChunksIncomplete(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Init(ctx, InitRequest{Hash: "blob-2", Size: 100, ChunkCount: 2, CipherAlg: "aes-256-gcm"})
	require.NoError(t, err)

	data := "only one chunk"
	err = svc.PutChunk(ctx, PutChunkRequest{BlobHash: "blob-2", Index: 0, ChunkHash: hashOf(data), Data: strings.NewReader(data), Size: int64(len(data))})
	require.NoError(t, err)

	err = svc.Commit(ctx, CommitRequest{BlobHash: "blob-2", PayloadHash: "blob-2", ExpectedChunkCount: 2, ExpectedSize: 100})
	var apiErr *model.Error
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, model.CodeBlobIncomplete, apiErr.Code)
	details, ok := apiErr.Details.(blobIncompleteDetails)
	require.True(t, ok)
	require.Equal(t, 1, details.CurrentCount)
}

func TestCommitRejectsPayloadHashMismatch(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Init(ctx, InitRequest{Hash: "blob-mismatch", Size: 10, ChunkCount: 1, CipherAlg: "aes-256-gcm"})
	require.NoError(t, err)

	err = svc.Commit(ctx, CommitRequest{BlobHash: "blob-mismatch", PayloadHash: "something-else", ExpectedChunkCount: 1, ExpectedSize: 10})
	var apiErr *model.Error
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, model.CodeInvalidBlobCommit, apiErr.Code)
}

func TestCommitSucceedsWhenMoreThanDeclaredWasUploaded(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Init(ctx, InitRequest{Hash: "blob-extra", Size: 5, ChunkCount: 1, CipherAlg: "aes-256-gcm"})
	require.NoError(t, err)

	data := "hello" // 5 bytes, matches the declared size exactly
	err = svc.PutChunk(ctx, PutChunkRequest{BlobHash: "blob-extra", Index: 0, ChunkHash: hashOf(data), Data: strings.NewReader(data), Size: int64(len(data))})
	require.NoError(t, err)

	// A client committing with a lower expectation than what actually
	// landed must still succeed — the check is a floor, not an exact match.
	err = svc.Commit(ctx, CommitRequest{BlobHash: "blob-extra", PayloadHash: "blob-extra", ExpectedChunkCount: 1, ExpectedSize: 3})
	require.NoError(t, err)
}

func TestPutChunkRejectsHashMismatch(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Init(ctx, InitRequest{Hash: "blob-3", Size: 10, ChunkCount: 1, CipherAlg: "aes-256-gcm"})
	require.NoError(t, err)

	err = svc.PutChunk(ctx, PutChunkRequest{BlobHash: "blob-3", Index: 0, ChunkHash: "deadbeef", Data: strings.NewReader("actual data"), Size: 11})
	var apiErr *model.Error
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, model.CodeChunkHashMismatch, apiErr.Code)
}

func TestGetChunkNotFound(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.GetChunk(context.Background(), "nonexistent", 0)
	var apiErr *model.Error
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, model.CodeChunkNotFound, apiErr.Code)
}
