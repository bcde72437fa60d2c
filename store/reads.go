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
	"fmt"

	"github.com/obsync-sh/obsync/model"
)

const hardReadLimit = 1000

// ReadOpsSince returns ops for vaultID with seq > sinceSeq, ascending,
// capped at limit (and always at hardReadLimit). It tries the in-memory
// tail cache first and only falls back to SQL when the cache can't prove
// its window covers the requested range — see recentOpsCache.getSince.
func (s *Store) ReadOpsSince(ctx context.Context, vaultID model.VaultID, sinceSeq int64, limit int) ([]model.Operation, error) {
	if limit <= 0 || limit > hardReadLimit {
		limit = hardReadLimit
	}

	if ops, ok := s.recent.getSince(vaultID.String(), sinceSeq, limit); ok {
		return ops, nil
	}

	query := s.q(`
		SELECT seq, file_id, op_type, payload, author_device_id, created_at
		FROM op_log
		WHERE vault_id = ? AND seq > ?
		ORDER BY seq ASC
		LIMIT ?
	`)
	rows, err := s.db.QueryContext(ctx, query, vaultID.String(), sinceSeq, limit)
	if err != nil {
		return nil, fmt.Errorf("store: read ops since: %w", err)
	}
	defer rows.Close()

	var out []model.Operation
	for rows.Next() {
		var op model.Operation
		var fileID, authorDeviceID sql.NullString
		if err := rows.Scan(&op.Seq, &fileID, &op.OpType, &op.Payload, &authorDeviceID, &op.CreatedAt); err != nil {
			return nil, fmt.Errorf("store: read ops since: %w", err)
		}
		op.VaultID = vaultID
		if fileID.Valid {
			fid, err := model.ParseFileID(fileID.String)
			if err != nil {
				return nil, err
			}
			op.FileID = &fid
		}
		if authorDeviceID.Valid {
			did, err := model.ParseDeviceID(authorDeviceID.String)
			if err != nil {
				return nil, err
			}
			op.AuthorDeviceID = &did
		}
		out = append(out, op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: read ops since: %w", err)
	}
	return out, nil
}
