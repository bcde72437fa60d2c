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

package blobstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// FSBackend stores chunks as plain files under Root, sharded by the first
// two hex digits of the chunk's storage key so a single directory never holds an
// unreasonable number of entries. Writes land in a temp file and are
// renamed into place, the same write-then-rename idiom the teacher's
// FileStorage uses to avoid ever exposing a half-written chunk to a reader.
type FSBackend struct {
	Root string
}

func NewFSBackend(root string) *FSBackend {
	return &FSBackend{Root: root}
}

func (b *FSBackend) pathFor(storageKey string) string {
	shard := storageKey
	if len(shard) > 2 {
		shard = shard[:2]
	}
	return filepath.Join(b.Root, shard, storageKey)
}

func (b *FSBackend) WriteChunk(ctx context.Context, blobHash string, index int, data io.Reader) (string, error) {
	storageKey := chunkKey(blobHash, index)
	dest := b.pathFor(storageKey)

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", fmt.Errorf("blobstore: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".tmp-chunk-*")
	if err != nil {
		return "", fmt.Errorf("blobstore: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op once the rename below succeeds

	if _, err := io.Copy(tmp, data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("blobstore: write chunk: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return "", fmt.Errorf("blobstore: sync chunk: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("blobstore: close chunk: %w", err)
	}
	if err := os.Rename(tmpName, dest); err != nil {
		return "", fmt.Errorf("blobstore: rename chunk into place: %w", err)
	}
	return storageKey, nil
}

func (b *FSBackend) ReadChunk(ctx context.Context, storageKey string) (io.ReadCloser, error) {
	f, err := os.Open(b.pathFor(storageKey))
	if err != nil {
		return nil, fmt.Errorf("blobstore: read chunk: %w", err)
	}
	return f, nil
}

func chunkKey(blobHash string, index int) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%d", blobHash, index)))
	return hex.EncodeToString(sum[:])
}
