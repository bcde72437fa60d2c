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

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/obsync-sh/obsync/model"
)

func lookupBlob(ctx context.Context, q querier, s *Store, hash string) (model.Blob, bool, error) {
	query := s.q(`SELECT hash, size, chunk_count, cipher_alg, committed_at FROM blobs WHERE hash = ?`)
	row := q.QueryRowContext(ctx, query, hash)

	var b model.Blob
	var committedAt sql.NullTime
	err := row.Scan(&b.Hash, &b.Size, &b.ChunkCount, &b.CipherAlg, &committedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Blob{}, false, nil
	}
	if err != nil {
		return model.Blob{}, false, fmt.Errorf("store: lookup blob: %w", err)
	}
	if committedAt.Valid {
		t := committedAt.Time
		b.CommittedAt = &t
	}
	return b, true, nil
}

// LookupBlob reads a blob manifest outside of any push transaction, used by
// the blob orchestrator's PutChunk, Commit, GetManifest and GetChunk.
func (s *Store) LookupBlob(ctx context.Context, hash string) (model.Blob, bool, error) {
	return lookupBlob(ctx, s.db, s, hash)
}

// UpsertBlobManifest creates (or re-touches) the uncommitted manifest row
// for hash at the start of phase A (init) of the chunked upload protocol.
func (s *Store) UpsertBlobManifest(ctx context.Context, hash string, size int64, chunkCount int, cipherAlg string) error {
	query := s.q(`
		INSERT INTO blobs (hash, size, chunk_count, cipher_alg, committed_at)
		VALUES (?, ?, ?, ?, NULL)
		ON CONFLICT (hash) DO NOTHING
	`)
	if _, err := s.db.ExecContext(ctx, query, hash, size, chunkCount, cipherAlg); err != nil {
		return fmt.Errorf("store: upsert blob manifest: %w", err)
	}
	return nil
}

// UpsertChunk records one successfully written chunk (phase B, put-chunk).
func (s *Store) UpsertChunk(ctx context.Context, blobHash string, index int, chunkHash string, size int64, storageKey string) error {
	query := s.q(`
		INSERT INTO blob_chunks (blob_hash, idx, chunk_hash, size, storage_key)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (blob_hash, idx) DO UPDATE SET
			chunk_hash = EXCLUDED.chunk_hash, size = EXCLUDED.size, storage_key = EXCLUDED.storage_key
	`)
	if _, err := s.db.ExecContext(ctx, query, blobHash, index, chunkHash, size, storageKey); err != nil {
		return fmt.Errorf("store: upsert chunk: %w", err)
	}
	return nil
}

// CountChunks reports how many distinct chunk indices have been recorded
// for blobHash and their total size, used by phase C (commit) to verify
// completeness before marking a blob committed.
func (s *Store) CountChunks(ctx context.Context, blobHash string) (count int, sumSize int64, err error) {
	query := s.q(`SELECT COUNT(*), COALESCE(SUM(size), 0) FROM blob_chunks WHERE blob_hash = ?`)
	if err := s.db.QueryRowContext(ctx, query, blobHash).Scan(&count, &sumSize); err != nil {
		return 0, 0, fmt.Errorf("store: count chunks: %w", err)
	}
	return count, sumSize, nil
}

// GetChunk looks up a single chunk by (blobHash, index), used by the chunk
// read path.
func (s *Store) GetChunk(ctx context.Context, blobHash string, index int) (model.BlobChunk, bool, error) {
	query := s.q(`SELECT idx, chunk_hash, size, storage_key FROM blob_chunks WHERE blob_hash = ? AND idx = ?`)
	row := s.db.QueryRowContext(ctx, query, blobHash, index)

	c := model.BlobChunk{BlobHash: blobHash}
	err := row.Scan(&c.Index, &c.ChunkHash, &c.Size, &c.StorageKey)
	if errors.Is(err, sql.ErrNoRows) {
		return model.BlobChunk{}, false, nil
	}
	if err != nil {
		return model.BlobChunk{}, false, fmt.Errorf("store: get chunk: %w", err)
	}
	return c, true, nil
}

// ListChunks returns every chunk of blobHash ordered by index, used both by
// phase A (init) to find missing indices and by the manifest read path.
func (s *Store) ListChunks(ctx context.Context, blobHash string) ([]model.BlobChunk, error) {
	query := s.q(`SELECT idx, chunk_hash, size, storage_key FROM blob_chunks WHERE blob_hash = ? ORDER BY idx ASC`)
	rows, err := s.db.QueryContext(ctx, query, blobHash)
	if err != nil {
		return nil, fmt.Errorf("store: list chunks: %w", err)
	}
	defer rows.Close()

	var out []model.BlobChunk
	for rows.Next() {
		c := model.BlobChunk{BlobHash: blobHash}
		if err := rows.Scan(&c.Index, &c.ChunkHash, &c.Size, &c.StorageKey); err != nil {
			return nil, fmt.Errorf("store: list chunks: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// MarkBlobCommitted finalizes phase C, making the blob visible to blob_ref
// ops. Safe to call more than once.
func (s *Store) MarkBlobCommitted(ctx context.Context, hash string) error {
	query := s.q(`UPDATE blobs SET committed_at = ? WHERE hash = ? AND committed_at IS NULL`)
	if _, err := s.db.ExecContext(ctx, query, time.Now().UTC(), hash); err != nil {
		return fmt.Errorf("store: mark blob committed: %w", err)
	}
	return nil
}
