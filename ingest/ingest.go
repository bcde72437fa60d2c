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

// Package ingest implements the Push Ingestor (C3): the one write path
// into a vault's operation log. A push is one batch, one transaction —
// either every op in it gets a seq or none does, and replaying the same
// batch (same idempotency keys) is always safe. Modeled on the
// transaction-per-batch, per-item diagnostics shape of the pack's
// toolbridge-api sync handler, adapted from its last-write-wins upsert to
// Obsync's idempotency-key model.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/obsync-sh/obsync/model"
	"github.com/obsync-sh/obsync/obslog"
	"github.com/obsync-sh/obsync/store"
)

// Publisher is the subset of *realtime.Bus the ingestor needs.
type Publisher interface {
	Publish(op model.Operation)
}

// PushOp is one item of a push batch, as received over the wire.
type PushOp struct {
	FileID         *model.FileID
	OpType         model.OpType
	Payload        json.RawMessage
	IdempotencyKey string
}

// PushRequest is one push batch for one device against one vault.
type PushRequest struct {
	VaultID  model.VaultID
	DeviceID model.DeviceID
	Ops      []PushOp
}

// AppliedOp reports, per submitted op, the seq it was assigned (or had
// assigned the first time, for a replayed idempotency key).
type AppliedOp struct {
	IdempotencyKey string
	Seq            int64
	WasNew         bool
}

// MissingChunk names one blob_ref op whose referenced blob was missing or
// not yet committed at push time. The op is still appended — this is a
// diagnostic, not a rejection.
type MissingChunk struct {
	BlobHash string
	Index    int
}

// PushResult is the push endpoint's response body (spec §6). RebaseRequired
// is always false: this system has no concept of server-side op rewriting,
// the field exists only for wire compatibility with a client that checks it.
type PushResult struct {
	Applied         []AppliedOp
	AcknowledgedSeq int64
	AppliedCount    int
	MissingChunks   []MissingChunk
	RebaseRequired  bool
}

// Service is the Push Ingestor.
type Service struct {
	store     *store.Store
	publisher Publisher
}

func New(s *store.Store, publisher Publisher) *Service {
	return &Service{store: s, publisher: publisher}
}

// Push validates and applies req as a single transaction. A validation
// failure on any op fails the whole batch before anything is written,
// matching spec §8 invariant 2 (a push either commits entirely or not at
// all).
func (s *Service) Push(ctx context.Context, req PushRequest) (PushResult, error) {
	log := obslog.WithComponent("ingest")

	if len(req.Ops) == 0 {
		return PushResult{}, model.NewError(model.CodeInvalidPush, "push batch must contain at least one op")
	}
	for i, op := range req.Ops {
		if !op.OpType.Valid() {
			return PushResult{}, model.NewError(model.CodeInvalidPush, fmt.Sprintf("op %d: invalid opType %q", i, op.OpType))
		}
		if op.IdempotencyKey == "" {
			return PushResult{}, model.NewError(model.CodeInvalidPush, fmt.Sprintf("op %d: missing idempotencyKey", i))
		}
	}

	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return PushResult{}, model.ErrInternal(err.Error())
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := tx.TouchDevice(ctx, req.DeviceID, req.VaultID); err != nil {
		return PushResult{}, model.ErrInternal(err.Error())
	}

	result := PushResult{}
	var newlyApplied []model.Operation

	for i, op := range req.Ops {
		if op.OpType == model.OpBlobRef {
			var ref model.BlobRefPayload
			if err := json.Unmarshal(op.Payload, &ref); err != nil || ref.BlobHash == "" {
				return PushResult{}, model.NewError(model.CodeInvalidPush, fmt.Sprintf("op %d: invalid blob_ref payload", i))
			}
			blob, ok, err := tx.LookupBlob(ctx, ref.BlobHash)
			if err != nil {
				return PushResult{}, model.ErrInternal(err.Error())
			}
			if !ok || blob.CommittedAt == nil {
				// The op is still recorded — a missing/uncommitted blob is
				// surfaced as a diagnostic, not a rejection, so the device
				// can upload the chunks later without replaying the op.
				result.MissingChunks = append(result.MissingChunks, MissingChunk{BlobHash: ref.BlobHash, Index: ref.Index})
			}
		}

		applied, wasNew, err := tx.AppendOp(ctx, store.AppendOpParams{
			VaultID:        req.VaultID,
			FileID:         op.FileID,
			OpType:         op.OpType,
			Payload:        op.Payload,
			IdempotencyKey: op.IdempotencyKey,
			AuthorDeviceID: &req.DeviceID,
		})
		if err != nil {
			return PushResult{}, model.ErrInternal(err.Error())
		}

		result.Applied = append(result.Applied, AppliedOp{IdempotencyKey: op.IdempotencyKey, Seq: applied.Seq, WasNew: wasNew})
		if applied.Seq > result.AcknowledgedSeq {
			result.AcknowledgedSeq = applied.Seq
		}
		if wasNew {
			result.AppliedCount++
			newlyApplied = append(newlyApplied, applied)
		}
	}

	if result.AcknowledgedSeq > 0 {
		if err := tx.UpsertCursor(ctx, req.DeviceID, req.VaultID, result.AcknowledgedSeq, model.CursorSet); err != nil {
			return PushResult{}, model.ErrInternal(err.Error())
		}
	}

	if err := tx.Commit(); err != nil {
		return PushResult{}, model.ErrInternal(err.Error())
	}
	committed = true

	for _, op := range newlyApplied {
		s.publisher.Publish(op)
	}
	log.Debug().Str("vaultId", req.VaultID.String()).Int("opCount", len(req.Ops)).Int64("acknowledgedSeq", result.AcknowledgedSeq).Msg("push applied")

	return result, nil
}
