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

package pull

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/obsync-sh/obsync/config"
	"github.com/obsync-sh/obsync/model"
	"github.com/obsync-sh/obsync/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(context.Background(), "sqlite3", "file::memory:?cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func appendTestOp(t *testing.T, s *store.Store, vaultID model.VaultID, key string) model.Operation {
	t.Helper()
	tx, err := s.BeginTx(context.Background())
	require.NoError(t, err)
	op, _, err := tx.AppendOp(context.Background(), store.AppendOpParams{
		VaultID: vaultID, OpType: model.OpMarkdownUpdate, Payload: json.RawMessage(`{}`), IdempotencyKey: key,
	})
	require.NoError(t, err)
	require.NoError(t, tx.Commit())
	return op
}

func TestPullReturnsOpsAfterCursorAndAdvancesIt(t *testing.T) {
	s := newTestStore(t)
	vaultID := model.NewVaultID()
	deviceID := model.NewDeviceID()

	appendTestOp(t, s, vaultID, "k1")
	second := appendTestOp(t, s, vaultID, "k2")

	cfg := config.NewStore(config.ReloadableConfig{PullDefaultLimit: 200, PullMaxLimit: 1000})
	svc := New(s, cfg)

	result, err := svc.Pull(context.Background(), PullRequest{VaultID: vaultID, DeviceID: &deviceID, Since: 0})
	require.NoError(t, err)
	require.Len(t, result.Ops, 2)
	require.Equal(t, second.Seq, result.HighestSeq)
	require.False(t, result.HasMore)

	cursor, err := s.GetCursor(context.Background(), deviceID, vaultID)
	require.NoError(t, err)
	require.Equal(t, second.Seq, cursor)
}

func TestPullHasMoreWhenLimitUndersizes(t *testing.T) {
	s := newTestStore(t)
	vaultID := model.NewVaultID()

	for i := 0; i < 5; i++ {
		appendTestOp(t, s, vaultID, "k"+string(rune('a'+i)))
	}

	cfg := config.NewStore(config.ReloadableConfig{PullDefaultLimit: 200, PullMaxLimit: 1000})
	svc := New(s, cfg)

	deviceID := model.NewDeviceID()
	result, err := svc.Pull(context.Background(), PullRequest{VaultID: vaultID, DeviceID: &deviceID, Since: 0, Limit: 2})
	require.NoError(t, err)
	require.Len(t, result.Ops, 2)
	require.True(t, result.HasMore)
}

func TestPullWithoutDeviceIDStillReturnsOps(t *testing.T) {
	s := newTestStore(t)
	vaultID := model.NewVaultID()

	appendTestOp(t, s, vaultID, "k1")

	cfg := config.NewStore(config.ReloadableConfig{PullDefaultLimit: 200, PullMaxLimit: 1000})
	svc := New(s, cfg)

	result, err := svc.Pull(context.Background(), PullRequest{VaultID: vaultID, Since: 0})
	require.NoError(t, err)
	require.Len(t, result.Ops, 1)
}

func TestPullCursorNeverRegresses(t *testing.T) {
	s := newTestStore(t)
	vaultID := model.NewVaultID()
	deviceID := model.NewDeviceID()

	appendTestOp(t, s, vaultID, "k1")
	second := appendTestOp(t, s, vaultID, "k2")

	require.NoError(t, s.UpsertCursor(context.Background(), deviceID, vaultID, second.Seq, model.CursorSet))

	cfg := config.NewStore(config.ReloadableConfig{PullDefaultLimit: 200, PullMaxLimit: 1000})
	svc := New(s, cfg)

	// An empty-range pull (since == highest) must not move the cursor backwards.
	_, err := svc.Pull(context.Background(), PullRequest{VaultID: vaultID, DeviceID: &deviceID, Since: second.Seq})
	require.NoError(t, err)

	cursor, err := s.GetCursor(context.Background(), deviceID, vaultID)
	require.NoError(t, err)
	require.Equal(t, second.Seq, cursor)
}
