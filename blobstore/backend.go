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

// Package blobstore implements the Chunk Object Store (C2): content
// addressed ciphertext storage behind a pluggable Backend, the same shape
// the teacher uses for its persistence engine (storage/persistence.go's
// PersistenceEngine interface) — one filesystem implementation and one S3
// implementation, selected at startup and otherwise invisible to callers.
package blobstore

import (
	"context"
	"io"
)

// Backend is the storage-agnostic contract the blob orchestrator drives.
// A chunk's storage key is opaque to the orchestrator; only the backend
// that wrote it needs to understand its shape.
type Backend interface {
	// WriteChunk stores data under a key derived from blobHash and index,
	// returning the storage key to persist in the chunk index.
	WriteChunk(ctx context.Context, blobHash string, index int, data io.Reader) (storageKey string, err error)
	// ReadChunk opens the chunk previously written at storageKey.
	ReadChunk(ctx context.Context, storageKey string) (io.ReadCloser, error)
}
