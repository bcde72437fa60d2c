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

// Package pull implements the Pull Service (C4): a device catching up on
// a vault's log from a cursor, with a page-size knob the operator can tune
// live through config.ReloadableConfig.
package pull

import (
	"context"

	"github.com/obsync-sh/obsync/config"
	"github.com/obsync-sh/obsync/model"
	"github.com/obsync-sh/obsync/obslog"
	"github.com/obsync-sh/obsync/store"
)

// Service is the Pull Service.
type Service struct {
	store *store.Store
	cfg   *config.Store
}

func New(s *store.Store, cfg *config.Store) *Service {
	return &Service{store: s, cfg: cfg}
}

// PullRequest is one catch-up request. DeviceID is optional: the cursor
// advance and device-touch side effects only happen when it is supplied.
type PullRequest struct {
	VaultID  model.VaultID
	DeviceID *model.DeviceID
	Since    int64
	Limit    int // 0 means use the configured default
}

// PullResult is the pull endpoint's response body (spec §6).
type PullResult struct {
	Ops        []model.Operation
	HighestSeq int64
	HasMore    bool
}

// Pull reads ops after req.Since, advances req.DeviceID's cursor to the
// watermark it actually observed (CursorMax: a pull never regresses a
// cursor another concurrent pull already advanced further), and reports
// whether more pages remain.
func (s *Service) Pull(ctx context.Context, req PullRequest) (PullResult, error) {
	rc := s.cfg.Get()

	limit := req.Limit
	if limit <= 0 {
		limit = rc.PullDefaultLimit
	}
	if limit > rc.PullMaxLimit {
		limit = rc.PullMaxLimit
	}

	// Ask for one extra to learn whether another page exists without a
	// second round trip.
	ops, err := s.store.ReadOpsSince(ctx, req.VaultID, req.Since, limit+1)
	if err != nil {
		return PullResult{}, model.ErrInternal(err.Error())
	}

	hasMore := len(ops) > limit
	if hasMore {
		ops = ops[:limit]
	}

	result := PullResult{Ops: ops, HighestSeq: req.Since, HasMore: hasMore}
	if len(ops) > 0 {
		result.HighestSeq = ops[len(ops)-1].Seq
	}

	if req.DeviceID != nil {
		if err := s.store.UpsertCursor(ctx, *req.DeviceID, req.VaultID, result.HighestSeq, model.CursorMax); err != nil {
			return PullResult{}, model.ErrInternal(err.Error())
		}
		if err := s.store.TouchDevice(ctx, *req.DeviceID, req.VaultID); err != nil {
			return PullResult{}, model.ErrInternal(err.Error())
		}
	}

	obslog.WithComponent("pull").Debug().
		Str("vaultId", req.VaultID.String()).Int64("since", req.Since).Int("returned", len(ops)).Bool("hasMore", hasMore).
		Msg("pull served")

	return result, nil
}
