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
	"encoding/json"
	"fmt"
	"time"

	"github.com/obsync-sh/obsync/model"
)

// Tx is the single transactional unit a push request runs inside: every op
// in the batch is appended through the same Tx, and the cursor advance at
// the end of the batch commits atomically with them.
type Tx struct {
	tx *sql.Tx
	s  *Store
}

// BeginTx opens a new transaction. Callers must Commit or Rollback.
func (s *Store) BeginTx(ctx context.Context) (*Tx, error) {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("store: begin tx: %w", err)
	}
	return &Tx{tx: sqlTx, s: s}, nil
}

func (t *Tx) Commit() error   { return t.tx.Commit() }
func (t *Tx) Rollback() error { return t.tx.Rollback() }

// AppendOpParams bundles AppendOp's inputs.
type AppendOpParams struct {
	VaultID        model.VaultID
	FileID         *model.FileID
	OpType         model.OpType
	Payload        json.RawMessage
	IdempotencyKey string
	AuthorDeviceID *model.DeviceID
}

// AppendOp is the one write operation the whole ingestion pipeline hinges
// on: it assigns the next seq for the op, or — if idempotencyKey was
// already used — returns the seq assigned the first time, with
// wasNew=false and no other side effect. See spec §4.1 and §8 invariant 1.
func (t *Tx) AppendOp(ctx context.Context, p AppendOpParams) (op model.Operation, wasNew bool, err error) {
	now := time.Now().UTC()

	insertQuery := t.s.q(`
		INSERT INTO op_log (vault_id, file_id, op_type, payload, idempotency_key, author_device_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (idempotency_key) DO NOTHING
		RETURNING seq, created_at
	`)

	var fileID interface{}
	if p.FileID != nil {
		fileID = p.FileID.String()
	}
	var authorDeviceID interface{}
	if p.AuthorDeviceID != nil {
		authorDeviceID = p.AuthorDeviceID.String()
	}

	row := t.tx.QueryRowContext(ctx, insertQuery,
		p.VaultID.String(), fileID, string(p.OpType), string(p.Payload), p.IdempotencyKey, authorDeviceID, now)

	var seq int64
	var createdAt time.Time
	scanErr := row.Scan(&seq, &createdAt)
	switch {
	case scanErr == nil:
		wasNew = true
	case scanErr == sql.ErrNoRows:
		// Idempotency key already present: this is not an error, it's the
		// no-op replay path. Look up the seq assigned the first time.
		existing, lookupErr := t.lookupByIdempotencyKey(ctx, p.IdempotencyKey)
		if lookupErr != nil {
			return model.Operation{}, false, lookupErr
		}
		return existing, false, nil
	default:
		return model.Operation{}, false, fmt.Errorf("store: append op: %w", scanErr)
	}

	op = model.Operation{
		Seq:            seq,
		VaultID:        p.VaultID,
		FileID:         p.FileID,
		OpType:         p.OpType,
		Payload:        p.Payload,
		IdempotencyKey: p.IdempotencyKey,
		AuthorDeviceID: p.AuthorDeviceID,
		CreatedAt:      createdAt,
	}
	t.s.recent.put(op)
	return op, wasNew, nil
}

func (t *Tx) lookupByIdempotencyKey(ctx context.Context, key string) (model.Operation, error) {
	query := t.s.q(`
		SELECT seq, vault_id, file_id, op_type, payload, author_device_id, created_at
		FROM op_log WHERE idempotency_key = ?
	`)
	row := t.tx.QueryRowContext(ctx, query, key)
	return scanOperation(row, key)
}

// UpsertCursor advances (deviceId, vaultId)'s watermark per policy.
func (t *Tx) UpsertCursor(ctx context.Context, deviceID model.DeviceID, vaultID model.VaultID, seq int64, policy model.CursorPolicy) error {
	return upsertCursor(ctx, t.tx, t.s, deviceID, vaultID, seq, policy)
}

// TouchDevice registers deviceId on first contact (EXPANSION §4.8) and
// always stamps last_seen_at, inside the same transaction as the push.
func (t *Tx) TouchDevice(ctx context.Context, deviceID model.DeviceID, owner model.VaultID) error {
	return touchDevice(ctx, t.tx, t.s, deviceID, owner)
}

// LookupBlob reads the blob manifest inside the transaction, used by the
// push ingestor to check that a blob_ref op names a blob whose upload was
// already committed through the blob orchestrator.
func (t *Tx) LookupBlob(ctx context.Context, hash string) (model.Blob, bool, error) {
	return lookupBlob(ctx, t.tx, t.s, hash)
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func scanOperation(row *sql.Row, idempotencyKey string) (model.Operation, error) {
	var op model.Operation
	var vaultID string
	var fileID sql.NullString
	var authorDeviceID sql.NullString
	if err := row.Scan(&op.Seq, &vaultID, &fileID, &op.OpType, &op.Payload, &authorDeviceID, &op.CreatedAt); err != nil {
		return model.Operation{}, fmt.Errorf("store: lookup op by idempotency key %q: %w", idempotencyKey, err)
	}
	vid, err := model.ParseVaultID(vaultID)
	if err != nil {
		return model.Operation{}, err
	}
	op.VaultID = vid
	op.IdempotencyKey = idempotencyKey
	if fileID.Valid {
		fid, err := model.ParseFileID(fileID.String)
		if err != nil {
			return model.Operation{}, err
		}
		op.FileID = &fid
	}
	if authorDeviceID.Valid {
		did, err := model.ParseDeviceID(authorDeviceID.String)
		if err != nil {
			return model.Operation{}, err
		}
		op.AuthorDeviceID = &did
	}
	return op, nil
}
